package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hazmat-api/internal/models"
	"github.com/noah-isme/hazmat-api/internal/workflow"
	"github.com/noah-isme/hazmat-api/pkg/config"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
	"github.com/noah-isme/hazmat-api/pkg/storage"
)

const sniffLength = 3072

type attachmentStore interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	ListByContainer(ctx context.Context, containerID string) ([]models.Attachment, error)
	FindByID(ctx context.Context, id string) (*models.Attachment, error)
}

type fileStore interface {
	SaveStream(filename string, r io.Reader) (int64, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// AttachmentService stores container attachments and issues signed download links.
type AttachmentService struct {
	repo         attachmentStore
	containers   containerFinder
	files        fileStore
	signer       *storage.SignedURLSigner
	audit        auditLogger
	logger       *zap.Logger
	maxSize      int64
	allowed      map[string]struct{}
	downloadBase string
}

// NewAttachmentService constructs the service. downloadBase is the route prefix tokens are appended to.
func NewAttachmentService(repo attachmentStore, containers containerFinder, files fileStore, signer *storage.SignedURLSigner, audit auditLogger, cfg config.AttachmentsConfig, downloadBase string, logger *zap.Logger) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	maxSize := cfg.MaxFileSizeBytes
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &AttachmentService{
		repo:         repo,
		containers:   containers,
		files:        files,
		signer:       signer,
		audit:        audit,
		logger:       logger,
		maxSize:      maxSize,
		allowed:      allowed,
		downloadBase: strings.TrimRight(downloadBase, "/"),
	}
}

// MaxSize is the upload limit in bytes.
func (s *AttachmentService) MaxSize() int64 {
	return s.maxSize
}

// Upload stores a file for a container. The submitter, admins and HODs may upload.
func (s *AttachmentService) Upload(ctx context.Context, actor workflow.Actor, containerID, fileName string, r io.Reader) (*models.Attachment, error) {
	container, err := s.containers.FindByID(ctx, containerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "container not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load container")
	}
	if actor.Role == models.RoleUser && container.SubmitterID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the submitter, admins or HODs may attach files")
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	if n == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	head = head[:n]
	detected := mimetype.Detect(head)
	mimeType := mediaType(detected)
	if _, ok := s.allowed[mimeType]; !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("file type %s is not allowed", mimeType))
	}

	id := uuid.NewString()
	relPath := path.Join(container.ID, id+extensionFor(detected, fileName))
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxSize+1)
	size, err := s.files.SaveStream(relPath, body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	if size > s.maxSize {
		s.discard(relPath)
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxSize))
	}

	attachment := &models.Attachment{
		ID:          id,
		ContainerID: container.ID,
		FileName:    cleanFileName(fileName),
		FilePath:    relPath,
		MimeType:    mimeType,
		SizeBytes:   size,
		UploadedBy:  actor.Name,
		UploadedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, attachment); err != nil {
		s.discard(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attachment")
	}
	s.sign(attachment)

	emitAudit(ctx, s.audit, s.logger, "attachment-service", &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionAttachmentUpload,
		Resource:   models.AuditResourceContainer,
		ResourceID: &container.ID,
		NewValues:  auditValues(map[string]interface{}{"attachment_id": id, "mime_type": mimeType, "size_bytes": size}),
	})
	return attachment, nil
}

// List returns a container's attachments with signed links, honouring container visibility.
func (s *AttachmentService) List(ctx context.Context, actor workflow.Actor, containerID string) ([]models.Attachment, error) {
	container, err := s.containers.FindByID(ctx, containerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "container not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load container")
	}
	if actor.Role == models.RoleUser && container.SubmitterID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "container belongs to another user")
	}
	attachments, err := s.ListForContainer(ctx, containerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attachments")
	}
	return attachments, nil
}

// ListForContainer returns attachments with signed download links.
func (s *AttachmentService) ListForContainer(ctx context.Context, containerID string) ([]models.Attachment, error) {
	attachments, err := s.repo.ListByContainer(ctx, containerID)
	if err != nil {
		return nil, err
	}
	for i := range attachments {
		s.sign(&attachments[i])
	}
	return attachments, nil
}

// Open resolves a signed token to the attachment and an open file handle. The caller closes the file.
func (s *AttachmentService) Open(ctx context.Context, token string) (*models.Attachment, *os.File, error) {
	id, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	attachment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachment")
	}
	if attachment.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "attachment file missing")
	}
	return attachment, file, nil
}

func (s *AttachmentService) sign(a *models.Attachment) {
	if s.signer == nil {
		return
	}
	token, expiresAt, err := s.signer.Generate(a.ID, a.FilePath)
	if err != nil {
		s.logger.Warn("failed to sign attachment link", zap.String("attachment_id", a.ID), zap.Error(err))
		return
	}
	a.DownloadURL = s.downloadBase + "/" + token
	a.ExpiresAt = &expiresAt
}

func (s *AttachmentService) discard(relPath string) {
	if err := s.files.Delete(relPath); err != nil {
		s.logger.Warn("failed to remove rejected upload", zap.String("path", relPath), zap.Error(err))
	}
}

// mediaType drops parameters such as charset from the detected type.
func mediaType(detected *mimetype.MIME) string {
	if mt, _, err := mime.ParseMediaType(detected.String()); err == nil {
		return mt
	}
	return detected.String()
}

func extensionFor(detected *mimetype.MIME, fileName string) string {
	if ext := detected.Extension(); ext != "" {
		return ext
	}
	return strings.ToLower(filepath.Ext(fileName))
}

func cleanFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "attachment"
	}
	return base
}
