package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hazmat-api/internal/models"
)

// ContainerRepository persists containers together with their hazard links and pair assessments.
type ContainerRepository struct {
	db *sqlx.DB
}

// NewContainerRepository constructs the repository.
func NewContainerRepository(db *sqlx.DB) *ContainerRepository {
	return &ContainerRepository{db: db}
}

const containerColumns = `id, department, location, submitted_by, submitter_id, container_code, container_type, status,
       submitted_at, updated_at, admin_reviewed_by, admin_reviewed_at, admin_comment,
       rework_requested_by, rework_requested_at, rework_comment, hod_decided_by, hod_decided_at, hod_comment`

// Create inserts the container, its hazard links and its pair assessments in one transaction.
func (r *ContainerRepository) Create(ctx context.Context, detail *models.ContainerDetail) (err error) {
	now := time.Now().UTC()
	if detail.ID == "" {
		detail.ID = uuid.NewString()
	}
	if detail.SubmittedAt.IsZero() {
		detail.SubmittedAt = now
	}
	detail.UpdatedAt = detail.SubmittedAt

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin container tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO containers
	(id, department, location, submitted_by, submitter_id, container_code, container_type, status, submitted_at, updated_at)
	VALUES (:id, :department, :location, :submitted_by, :submitter_id, :container_code, :container_type, :status, :submitted_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insert, &detail.Container); err != nil {
		return fmt.Errorf("insert container: %w", err)
	}
	if err = r.insertChildrenTx(ctx, tx, detail); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit container: %w", err)
	}
	return nil
}

// Resubmit replaces the container metadata, hazards and pairs and moves it to detail.Status,
// provided the stored status still equals from.
func (r *ContainerRepository) Resubmit(ctx context.Context, detail *models.ContainerDetail, from models.ContainerStatus) (err error) {
	detail.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resubmit tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	args := []interface{}{
		detail.Department, detail.Location, detail.SubmittedBy, detail.ContainerCode, detail.ContainerType,
		detail.Status, detail.UpdatedAt, detail.ID, from,
	}
	const query = `UPDATE containers SET department = $1, location = $2, submitted_by = $3, container_code = $4,
	container_type = $5, status = $6, updated_at = $7 WHERE id = $8 AND status = $9`
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update container: %w", err)
	}
	if err = expectOneRow(result, "resubmit container"); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM hazard_pairs WHERE container_id = $1`, detail.ID); err != nil {
		return fmt.Errorf("clear hazard pairs: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM container_hazards WHERE container_id = $1`, detail.ID); err != nil {
		return fmt.Errorf("clear container hazards: %w", err)
	}
	if err = r.insertChildrenTx(ctx, tx, detail); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit resubmit: %w", err)
	}
	return nil
}

func (r *ContainerRepository) insertChildrenTx(ctx context.Context, tx *sqlx.Tx, detail *models.ContainerDetail) error {
	const insertHazard = `INSERT INTO container_hazards (container_id, hazard_class_id) VALUES ($1, $2)`
	for i := range detail.Hazards {
		detail.Hazards[i].ContainerID = detail.ID
		if _, err := tx.ExecContext(ctx, insertHazard, detail.ID, detail.Hazards[i].HazardClassID); err != nil {
			return fmt.Errorf("insert container hazard: %w", err)
		}
	}

	const insertPair = `INSERT INTO hazard_pairs
	(id, container_id, hazard_class_a_id, hazard_class_b_id, distance, is_isolated, min_required_distance, status, created_at)
	VALUES (:id, :container_id, :hazard_class_a_id, :hazard_class_b_id, :distance, :is_isolated, :min_required_distance, :status, :created_at)`
	for i := range detail.Pairs {
		pair := &detail.Pairs[i]
		if !pair.MinRequiredDistance.IsSet() || pair.IsIsolated != pair.MinRequiredDistance.IsUnbounded() {
			return fmt.Errorf("hazard pair %s/%s: isolated=%t with min distance %s",
				pair.HazardClassAID, pair.HazardClassBID, pair.IsIsolated, pair.MinRequiredDistance)
		}
		if pair.ID == "" {
			pair.ID = uuid.NewString()
		}
		pair.ContainerID = detail.ID
		if pair.CreatedAt.IsZero() {
			pair.CreatedAt = detail.UpdatedAt
		}
		if _, err := tx.NamedExecContext(ctx, insertPair, pair); err != nil {
			return fmt.Errorf("insert hazard pair: %w", err)
		}
	}
	return nil
}

// FindByID returns the container row without children.
func (r *ContainerRepository) FindByID(ctx context.Context, id string) (*models.Container, error) {
	query := `SELECT ` + containerColumns + ` FROM containers WHERE id = $1`
	var container models.Container
	if err := r.db.GetContext(ctx, &container, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find container: %w", err)
	}
	return &container, nil
}

// GetDetail returns the container with hazards and pair assessments.
func (r *ContainerRepository) GetDetail(ctx context.Context, id string) (*models.ContainerDetail, error) {
	container, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.ContainerDetail{Container: *container}

	const hazards = `SELECT ch.container_id, ch.hazard_class_id, hc.code, hc.name
	FROM container_hazards ch JOIN hazard_classes hc ON hc.id = ch.hazard_class_id
	WHERE ch.container_id = $1 ORDER BY hc.code`
	if err := r.db.SelectContext(ctx, &detail.Hazards, hazards, id); err != nil {
		return nil, fmt.Errorf("load container hazards: %w", err)
	}

	const pairs = `SELECT hp.id, hp.container_id, hp.hazard_class_a_id, hp.hazard_class_b_id, a.code AS class_a_code,
       b.code AS class_b_code, hp.distance, hp.is_isolated, hp.min_required_distance, hp.status, hp.created_at
	FROM hazard_pairs hp
	JOIN hazard_classes a ON a.id = hp.hazard_class_a_id
	JOIN hazard_classes b ON b.id = hp.hazard_class_b_id
	WHERE hp.container_id = $1 ORDER BY a.code, b.code`
	if err := r.db.SelectContext(ctx, &detail.Pairs, pairs, id); err != nil {
		return nil, fmt.Errorf("load hazard pairs: %w", err)
	}
	return detail, nil
}

// List returns containers matching the filter with the total count.
func (r *ContainerRepository) List(ctx context.Context, filter models.ContainerFilter) ([]models.Container, int, error) {
	args := make([]interface{}, 0, 6)
	where := containerConditions(&args, filter, "")

	page, pageSize := normalisePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM containers%s ORDER BY submitted_at DESC LIMIT %d OFFSET %d",
		containerColumns, where, pageSize, (page-1)*pageSize)

	var containers []models.Container
	if err := r.db.SelectContext(ctx, &containers, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list containers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM containers"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count containers: %w", err)
	}
	return containers, total, nil
}

// ListSummaries returns one row per container with pair counters for register exports.
func (r *ContainerRepository) ListSummaries(ctx context.Context, filter models.ContainerFilter) ([]models.ContainerSummary, error) {
	args := make([]interface{}, 0, 6)
	where := containerConditions(&args, filter, "c.")
	query := `SELECT c.id, c.container_code, c.department, c.location, c.submitted_by, c.status, c.submitted_at,
       COUNT(hp.id) AS pair_count,
       COUNT(hp.id) FILTER (WHERE hp.status = 'danger') AS danger_count
	FROM containers c LEFT JOIN hazard_pairs hp ON hp.container_id = c.id` + where + `
	GROUP BY c.id ORDER BY c.submitted_at DESC`

	var summaries []models.ContainerSummary
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("list container summaries: %w", err)
	}
	return summaries, nil
}

// Transition moves the container to t.To and stamps the audit columns for that stage.
// It returns sql.ErrNoRows when the stored status no longer equals t.From.
func (r *ContainerRepository) Transition(ctx context.Context, t models.ContainerTransition) error {
	prefix, err := auditPrefix(t.To)
	if err != nil {
		return err
	}
	args := []interface{}{t.To, t.At, t.ActorName, t.Comment, t.ContainerID, t.From}
	query := fmt.Sprintf(`UPDATE containers SET status = $1, updated_at = $2, %[1]s_by = $3, %[1]s_at = $2, %[2]s = $4
	WHERE id = $5 AND status = $6`, prefix, commentColumn(prefix))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition container: %w", err)
	}
	return expectOneRow(result, "transition container")
}

// DeleteCascade removes the container and every child row, returning the attachments that were removed.
// It refuses with ErrOpenDeletionRequest while a deletion request for the container is still open.
func (r *ContainerRepository) DeleteCascade(ctx context.Context, id string) (attachments []models.Attachment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM containers WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock container: %w", err)
	}
	args := []interface{}{id}
	var open int
	openQuery := `SELECT COUNT(*) FROM deletion_requests WHERE container_id = $1 AND ` + statusIn(&args, models.OpenDeletionStatuses)
	if err = tx.GetContext(ctx, &open, openQuery, args...); err != nil {
		return nil, fmt.Errorf("count open deletion requests: %w", err)
	}
	if open > 0 {
		err = ErrOpenDeletionRequest
		return nil, err
	}

	if attachments, err = deleteContainerTx(ctx, tx, id); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete container: %w", err)
	}
	return attachments, nil
}

func deleteContainerTx(ctx context.Context, tx *sqlx.Tx, id string) ([]models.Attachment, error) {
	var attachments []models.Attachment
	const selectAttachments = `SELECT ` + attachmentColumns + ` FROM container_attachments WHERE container_id = $1`
	if err := tx.SelectContext(ctx, &attachments, selectAttachments, id); err != nil {
		return nil, fmt.Errorf("load attachments: %w", err)
	}
	for _, stmt := range []string{
		`DELETE FROM container_attachments WHERE container_id = $1`,
		`DELETE FROM hazard_pairs WHERE container_id = $1`,
		`DELETE FROM container_hazards WHERE container_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return nil, fmt.Errorf("delete container children: %w", err)
		}
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM containers WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete container: %w", err)
	}
	if err := expectOneRow(result, "delete container"); err != nil {
		return nil, err
	}
	return attachments, nil
}

func containerConditions(args *[]interface{}, filter models.ContainerFilter, alias string) string {
	conditions := make([]string, 0, 4)
	if len(filter.Status) > 0 {
		conditions = append(conditions, statusIn(args, filter.Status, alias))
	}
	if filter.Department != "" {
		*args = append(*args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("%sdepartment = $%d", alias, len(*args)))
	}
	if filter.SubmitterID != "" {
		*args = append(*args, filter.SubmitterID)
		conditions = append(conditions, fmt.Sprintf("%ssubmitter_id = $%d", alias, len(*args)))
	}
	if filter.Search != "" {
		*args = append(*args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(%[1]scontainer_code) LIKE $%[2]d OR LOWER(%[1]slocation) LIKE $%[2]d)", alias, len(*args)))
	}
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

// statusIn appends statuses to args and returns a "status IN (...)" clause.
func statusIn[S ~string](args *[]interface{}, statuses []S, alias ...string) string {
	column := "status"
	if len(alias) > 0 {
		column = alias[0] + column
	}
	placeholders := make([]string, len(statuses))
	for i, status := range statuses {
		*args = append(*args, status)
		placeholders[i] = fmt.Sprintf("$%d", len(*args))
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ","))
}

func auditPrefix(to models.ContainerStatus) (string, error) {
	switch to {
	case models.ContainerStatusPending:
		return "admin_reviewed", nil
	case models.ContainerStatusReworkRequested:
		return "rework_requested", nil
	case models.ContainerStatusApproved, models.ContainerStatusRejected:
		return "hod_decided", nil
	}
	return "", fmt.Errorf("no audit columns for status %s", to)
}

func commentColumn(prefix string) string {
	switch prefix {
	case "admin_reviewed":
		return "admin_comment"
	case "rework_requested":
		return "rework_comment"
	}
	return "hod_comment"
}

func expectOneRow(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func normalisePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
