package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hazmat-api/internal/models"
)

const attachmentColumns = `id, container_id, file_name, file_path, mime_type, size_bytes, uploaded_by, uploaded_at`

// AttachmentRepository stores metadata for files uploaded against containers.
type AttachmentRepository struct {
	db *sqlx.DB
}

// NewAttachmentRepository constructs the repository.
func NewAttachmentRepository(db *sqlx.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// Create inserts attachment metadata.
func (r *AttachmentRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	if attachment.ID == "" {
		attachment.ID = uuid.NewString()
	}
	if attachment.UploadedAt.IsZero() {
		attachment.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO container_attachments (` + attachmentColumns + `)
	VALUES (:id, :container_id, :file_name, :file_path, :mime_type, :size_bytes, :uploaded_by, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attachment); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// ListByContainer returns attachments newest first.
func (r *AttachmentRepository) ListByContainer(ctx context.Context, containerID string) ([]models.Attachment, error) {
	const query = `SELECT ` + attachmentColumns + ` FROM container_attachments WHERE container_id = $1 ORDER BY uploaded_at DESC`
	var attachments []models.Attachment
	if err := r.db.SelectContext(ctx, &attachments, query, containerID); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return attachments, nil
}

// FindByID returns one attachment.
func (r *AttachmentRepository) FindByID(ctx context.Context, id string) (*models.Attachment, error) {
	const query = `SELECT ` + attachmentColumns + ` FROM container_attachments WHERE id = $1`
	var attachment models.Attachment
	if err := r.db.GetContext(ctx, &attachment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attachment: %w", err)
	}
	return &attachment, nil
}
