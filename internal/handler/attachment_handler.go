package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hazmat-api/internal/middleware"
	"github.com/noah-isme/hazmat-api/internal/models"
	"github.com/noah-isme/hazmat-api/internal/workflow"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
	"github.com/noah-isme/hazmat-api/pkg/response"
)

type attachmentService interface {
	MaxSize() int64
	Upload(ctx context.Context, actor workflow.Actor, containerID, fileName string, r io.Reader) (*models.Attachment, error)
	List(ctx context.Context, actor workflow.Actor, containerID string) ([]models.Attachment, error)
	Open(ctx context.Context, token string) (*models.Attachment, *os.File, error)
}

// multipartOverhead leaves room for form boundaries around the file part.
const multipartOverhead = 64 << 10

// AttachmentHandler exposes container file uploads and signed downloads.
type AttachmentHandler struct {
	service attachmentService
}

// NewAttachmentHandler constructs the handler.
func NewAttachmentHandler(svc attachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: svc}
}

// Upload godoc
// @Summary Upload container attachment
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Container ID"
// @Param file formData file true "File"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /containers/{id}/attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.service.MaxSize()+multipartOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", h.service.MaxSize())))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file field required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read upload"))
		return
	}
	defer file.Close()

	attachment, err := h.service.Upload(c.Request.Context(), actor, c.Param("id"), header.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attachment)
}

// List godoc
// @Summary List container attachments
// @Tags Attachments
// @Produce json
// @Param id path string true "Container ID"
// @Success 200 {object} response.Envelope
// @Router /containers/{id}/attachments [get]
func (h *AttachmentHandler) List(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	attachments, err := h.service.List(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attachments, nil)
}

// Download godoc
// @Summary Download attachment
// @Description Streams a file addressed by a signed, expiring token
// @Tags Attachments
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /attachments/download/{token} [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	attachment, file, err := h.service.Open(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Set(middleware.ContextAuditResourceKey, attachment.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	c.Header("Content-Length", strconv.FormatInt(attachment.SizeBytes, 10))
	c.Header("Cache-Control", "private, no-store")
	c.DataFromReader(http.StatusOK, attachment.SizeBytes, attachment.MimeType, file, nil)
}
