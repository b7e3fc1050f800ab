package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hazmat-api/internal/dto"
	"github.com/noah-isme/hazmat-api/internal/service"
	"github.com/noah-isme/hazmat-api/internal/workflow"
	"github.com/noah-isme/hazmat-api/pkg/response"
)

type exportService interface {
	ContainerPDF(ctx context.Context, actor workflow.Actor, id string) (*service.ExportFile, error)
	Register(ctx context.Context, actor workflow.Actor, query dto.ExportQuery) (*service.ExportFile, error)
}

// ExportHandler serves rendered PDF and CSV downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// ContainerPDF godoc
// @Summary Container assessment PDF
// @Tags Exports
// @Produce application/pdf
// @Param id path string true "Container ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /containers/{id}/pdf [get]
func (h *ExportHandler) ContainerPDF(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.ContainerPDF(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// Register godoc
// @Summary Export the container register
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv, pdf or xlsx"
// @Param status query string false "Comma separated statuses"
// @Param department query string false "Department"
// @Param search query string false "Search by code or location"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /containers/export [get]
func (h *ExportHandler) Register(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.ExportQuery{
		Format:         strings.ToLower(c.DefaultQuery("format", service.FormatCSV)),
		ContainerQuery: containerQuery(c),
	}
	file, err := h.service.Register(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

func sendFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
