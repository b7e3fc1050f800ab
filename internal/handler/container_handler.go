package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hazmat-api/internal/dto"
	"github.com/noah-isme/hazmat-api/internal/models"
	"github.com/noah-isme/hazmat-api/internal/workflow"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
	"github.com/noah-isme/hazmat-api/pkg/response"
)

type containerService interface {
	Submit(ctx context.Context, actor workflow.Actor, req dto.SubmitContainerRequest) (*models.ContainerDetail, error)
	Resubmit(ctx context.Context, actor workflow.Actor, id string, req dto.SubmitContainerRequest) (*models.ContainerDetail, error)
	AdminReview(ctx context.Context, actor workflow.Actor, id, comment string) (*models.Container, error)
	RequestRework(ctx context.Context, actor workflow.Actor, id, comment string) (*models.Container, error)
	Decide(ctx context.Context, actor workflow.Actor, id string, req dto.DecisionRequest) (*models.Container, error)
	Get(ctx context.Context, actor workflow.Actor, id string) (*models.ContainerDetail, error)
	List(ctx context.Context, actor workflow.Actor, query dto.ContainerQuery) ([]models.Container, *models.Pagination, error)
	Delete(ctx context.Context, actor workflow.Actor, id string) error
}

// ContainerHandler exposes container submission and approval endpoints.
type ContainerHandler struct {
	service containerService
}

// NewContainerHandler constructs the handler.
func NewContainerHandler(svc containerService) *ContainerHandler {
	return &ContainerHandler{service: svc}
}

// Submit godoc
// @Summary Submit a container
// @Description Stores a container with its hazard pairs assessed by the compatibility engine
// @Tags Containers
// @Accept json
// @Produce json
// @Param payload body dto.SubmitContainerRequest true "Container"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /containers [post]
func (h *ContainerHandler) Submit(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubmitContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid container payload"))
		return
	}
	detail, err := h.service.Submit(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// List godoc
// @Summary List containers
// @Description Users see only their own containers
// @Tags Containers
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param department query string false "Department"
// @Param search query string false "Search by code or location"
// @Param mine query bool false "Only my submissions"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /containers [get]
func (h *ContainerHandler) List(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	containers, pagination, err := h.service.List(c.Request.Context(), actor, containerQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, containers, pagination)
}

// Get godoc
// @Summary Get container detail
// @Tags Containers
// @Produce json
// @Param id path string true "Container ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /containers/{id} [get]
func (h *ContainerHandler) Get(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Review godoc
// @Summary Admin review
// @Description Moves a pending_review container to pending
// @Tags Containers
// @Accept json
// @Produce json
// @Param id path string true "Container ID"
// @Param payload body dto.ReviewRequest true "Comment"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /containers/{id}/review [post]
func (h *ContainerHandler) Review(c *gin.Context) {
	h.commentAction(c, h.service.AdminReview)
}

// Rework godoc
// @Summary Request rework
// @Tags Containers
// @Accept json
// @Produce json
// @Param id path string true "Container ID"
// @Param payload body dto.ReviewRequest true "Comment"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /containers/{id}/rework [post]
func (h *ContainerHandler) Rework(c *gin.Context) {
	h.commentAction(c, h.service.RequestRework)
}

// Decide godoc
// @Summary HOD decision
// @Description Approves or rejects a pending container
// @Tags Containers
// @Accept json
// @Produce json
// @Param id path string true "Container ID"
// @Param payload body dto.DecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /containers/{id}/decision [post]
func (h *ContainerHandler) Decide(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	container, err := h.service.Decide(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, container, nil)
}

// Resubmit godoc
// @Summary Resubmit a container
// @Description Replaces the contents of a container in rework_requested or rejected status
// @Tags Containers
// @Accept json
// @Produce json
// @Param id path string true "Container ID"
// @Param payload body dto.SubmitContainerRequest true "Container"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /containers/{id} [put]
func (h *ContainerHandler) Resubmit(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubmitContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid container payload"))
		return
	}
	detail, err := h.service.Resubmit(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete a container
// @Tags Containers
// @Param id path string true "Container ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /containers/{id} [delete]
func (h *ContainerHandler) Delete(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type commentTransition func(ctx context.Context, actor workflow.Actor, id, comment string) (*models.Container, error)

func (h *ContainerHandler) commentAction(c *gin.Context, fn commentTransition) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	container, err := fn(c.Request.Context(), actor, c.Param("id"), req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, container, nil)
}

func containerQuery(c *gin.Context) dto.ContainerQuery {
	var query dto.ContainerQuery
	for _, status := range splitQuery(c.Query("status")) {
		query.Status = append(query.Status, models.ContainerStatus(strings.ToLower(status)))
	}
	query.Department = strings.TrimSpace(c.Query("department"))
	query.Search = strings.TrimSpace(c.Query("search"))
	query.Mine = c.Query("mine") == "true"
	query.Page, query.PageSize = pageParams(c)
	return query
}
