package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hazmat-api/internal/models"
)

var (
	// ErrPendingDeletionRequest is returned when the container already has a request awaiting admin review.
	ErrPendingDeletionRequest = errors.New("container already has a pending deletion request")
	// ErrOpenDeletionRequest is returned when a direct delete meets an undecided request.
	ErrOpenDeletionRequest = errors.New("container has an undecided deletion request")
)

const deletionRequestColumns = `id, container_id, container_code, requested_by, requester_name, reason, status,
       admin_recommendation, admin_comment, admin_reviewed_by, admin_reviewed_at,
       hod_comment, hod_decided_by, hod_decided_at, created_at`

// DeletionRequestRepository persists deletion requests and applies approved deletions.
type DeletionRequestRepository struct {
	db *sqlx.DB
}

// NewDeletionRequestRepository constructs the repository.
func NewDeletionRequestRepository(db *sqlx.DB) *DeletionRequestRepository {
	return &DeletionRequestRepository{db: db}
}

// Create locks the container row, checks for a pending request and inserts the new one.
// It returns sql.ErrNoRows when the container does not exist.
func (r *DeletionRequestRepository) Create(ctx context.Context, request *models.DeletionRequest) (err error) {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin deletion request tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var code string
	if err = tx.GetContext(ctx, &code, `SELECT container_code FROM containers WHERE id = $1 FOR UPDATE`, request.ContainerID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock container: %w", err)
	}
	request.ContainerCode = code

	const pendingQuery = `SELECT COUNT(*) FROM deletion_requests WHERE container_id = $1 AND status = $2`
	var pending int
	if err = tx.GetContext(ctx, &pending, pendingQuery, request.ContainerID, models.DeletionStatusPending); err != nil {
		return fmt.Errorf("count pending deletion requests: %w", err)
	}
	if pending > 0 {
		err = ErrPendingDeletionRequest
		return err
	}

	const insert = `INSERT INTO deletion_requests
	(id, container_id, container_code, requested_by, requester_name, reason, status, created_at)
	VALUES (:id, :container_id, :container_code, :requested_by, :requester_name, :reason, :status, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insert, request); err != nil {
		return fmt.Errorf("insert deletion request: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit deletion request: %w", err)
	}
	return nil
}

// FindByID returns a deletion request.
func (r *DeletionRequestRepository) FindByID(ctx context.Context, id string) (*models.DeletionRequest, error) {
	query := `SELECT ` + deletionRequestColumns + ` FROM deletion_requests WHERE id = $1`
	var request models.DeletionRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find deletion request: %w", err)
	}
	return &request, nil
}

// List returns deletion requests matching the filter with the total count.
func (r *DeletionRequestRepository) List(ctx context.Context, filter models.DeletionRequestFilter) ([]models.DeletionRequest, int, error) {
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		conditions = append(conditions, statusIn(&args, filter.Status))
	}
	if filter.ContainerID != "" {
		args = append(args, filter.ContainerID)
		conditions = append(conditions, fmt.Sprintf("container_id = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	where := ""
	for i, condition := range conditions {
		if i == 0 {
			where = " WHERE " + condition
			continue
		}
		where += " AND " + condition
	}

	page, pageSize := normalisePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM deletion_requests%s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		deletionRequestColumns, where, pageSize, (page-1)*pageSize)

	var requests []models.DeletionRequest
	if err := r.db.SelectContext(ctx, &requests, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list deletion requests: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM deletion_requests"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count deletion requests: %w", err)
	}
	return requests, total, nil
}

// Transition applies a status-conditional update. When cascade is set the container and its
// children are deleted in the same transaction and the removed attachments are returned.
// A container already removed by an earlier approval is left as is.
// It returns sql.ErrNoRows when the stored status no longer equals t.From.
func (r *DeletionRequestRepository) Transition(ctx context.Context, t models.DeletionTransition, cascade bool) (attachments []models.Attachment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin deletion transition tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var query string
	var args []interface{}
	if t.To == models.DeletionStatusAdminReviewed {
		query = `UPDATE deletion_requests SET status = $1, admin_recommendation = $2, admin_comment = $3,
	admin_reviewed_by = $4, admin_reviewed_at = $5 WHERE id = $6 AND status = $7 RETURNING container_id`
		args = []interface{}{t.To, t.Recommendation, t.Comment, t.ActorName, t.At, t.RequestID, t.From}
	} else {
		query = `UPDATE deletion_requests SET status = $1, hod_comment = $2, hod_decided_by = $3, hod_decided_at = $4
	WHERE id = $5 AND status = $6 RETURNING container_id`
		args = []interface{}{t.To, t.Comment, t.ActorName, t.At, t.RequestID, t.From}
	}

	var containerID string
	if err = tx.GetContext(ctx, &containerID, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("transition deletion request: %w", err)
	}

	if cascade {
		var locked string
		err = tx.GetContext(ctx, &locked, `SELECT id FROM containers WHERE id = $1 FOR UPDATE`, containerID)
		switch {
		case err == sql.ErrNoRows:
			err = nil
		case err != nil:
			return nil, fmt.Errorf("lock container: %w", err)
		default:
			if attachments, err = deleteContainerTx(ctx, tx, containerID); err != nil {
				return nil, err
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit deletion transition: %w", err)
	}
	return attachments, nil
}
