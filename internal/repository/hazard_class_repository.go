package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hazmat-api/internal/compatibility"
	"github.com/noah-isme/hazmat-api/internal/models"
)

// HazardClassRepository reads and seeds the hazard class catalog.
type HazardClassRepository struct {
	db *sqlx.DB
}

// NewHazardClassRepository constructs the repository.
func NewHazardClassRepository(db *sqlx.DB) *HazardClassRepository {
	return &HazardClassRepository{db: db}
}

const hazardClassColumns = `id, code, name, description, logo_path, created_at`

// List returns every hazard class ordered by code.
func (r *HazardClassRepository) List(ctx context.Context) ([]models.HazardClass, error) {
	query := `SELECT ` + hazardClassColumns + ` FROM hazard_classes ORDER BY code`
	var classes []models.HazardClass
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list hazard classes: %w", err)
	}
	return classes, nil
}

// FindByID returns one hazard class.
func (r *HazardClassRepository) FindByID(ctx context.Context, id string) (*models.HazardClass, error) {
	query := `SELECT ` + hazardClassColumns + ` FROM hazard_classes WHERE id = $1`
	var class models.HazardClass
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find hazard class: %w", err)
	}
	return &class, nil
}

// FindByIDs returns the hazard classes whose ids are listed. Missing ids are simply absent.
func (r *HazardClassRepository) FindByIDs(ctx context.Context, ids []string) ([]models.HazardClass, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+hazardClassColumns+` FROM hazard_classes WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build hazard class query: %w", err)
	}
	var classes []models.HazardClass
	if err := r.db.SelectContext(ctx, &classes, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find hazard classes: %w", err)
	}
	return classes, nil
}

// EnsureCatalog upserts the reference catalog keyed by code and returns the number of rows written.
func (r *HazardClassRepository) EnsureCatalog(ctx context.Context, catalog []compatibility.ClassInfo) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin catalog tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO hazard_classes (id, code, name, description, logo_path, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, logo_path = EXCLUDED.logo_path`
	now := time.Now().UTC()
	for _, info := range catalog {
		if _, err = tx.ExecContext(ctx, query, uuid.NewString(), info.Code, info.Name, info.Description, info.LogoPath, now); err != nil {
			return 0, fmt.Errorf("upsert hazard class %s: %w", info.Code, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit catalog: %w", err)
	}
	return len(catalog), nil
}
