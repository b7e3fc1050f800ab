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

type deletionRequestService interface {
	Create(ctx context.Context, actor workflow.Actor, containerID string, req dto.CreateDeletionRequest) (*models.DeletionRequest, error)
	Review(ctx context.Context, actor workflow.Actor, id string, req dto.DeletionReviewRequest) (*models.DeletionRequest, error)
	Decide(ctx context.Context, actor workflow.Actor, id string, req dto.DecisionRequest) (*models.DeletionRequest, error)
	Get(ctx context.Context, actor workflow.Actor, id string) (*models.DeletionRequest, error)
	List(ctx context.Context, actor workflow.Actor, query dto.DeletionQuery) ([]models.DeletionRequest, *models.Pagination, error)
}

// DeletionRequestHandler exposes the two-stage container deletion workflow.
type DeletionRequestHandler struct {
	service deletionRequestService
}

// NewDeletionRequestHandler constructs the handler.
func NewDeletionRequestHandler(svc deletionRequestService) *DeletionRequestHandler {
	return &DeletionRequestHandler{service: svc}
}

// Create godoc
// @Summary Request container deletion
// @Tags Deletion Requests
// @Accept json
// @Produce json
// @Param id path string true "Container ID"
// @Param payload body dto.CreateDeletionRequest true "Reason"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /containers/{id}/deletion-requests [post]
func (h *DeletionRequestHandler) Create(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateDeletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid deletion request payload"))
		return
	}
	request, err := h.service.Create(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List deletion requests
// @Tags Deletion Requests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param container_id query string false "Container ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /deletion-requests [get]
func (h *DeletionRequestHandler) List(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.DeletionQuery
	for _, status := range splitQuery(c.Query("status")) {
		query.Status = append(query.Status, models.DeletionStatus(strings.ToLower(status)))
	}
	query.ContainerID = strings.TrimSpace(c.Query("container_id"))
	query.Page, query.PageSize = pageParams(c)

	requests, pagination, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get deletion request
// @Tags Deletion Requests
// @Produce json
// @Param id path string true "Deletion request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /deletion-requests/{id} [get]
func (h *DeletionRequestHandler) Get(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	request, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Review godoc
// @Summary Admin recommendation
// @Tags Deletion Requests
// @Accept json
// @Produce json
// @Param id path string true "Deletion request ID"
// @Param payload body dto.DeletionReviewRequest true "Recommendation"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /deletion-requests/{id}/review [post]
func (h *DeletionRequestHandler) Review(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.DeletionReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	request, err := h.service.Review(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Decide godoc
// @Summary HOD decision
// @Description Approval deletes the container and its children
// @Tags Deletion Requests
// @Accept json
// @Produce json
// @Param id path string true "Deletion request ID"
// @Param payload body dto.DecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /deletion-requests/{id}/decision [post]
func (h *DeletionRequestHandler) Decide(c *gin.Context) {
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
	request, err := h.service.Decide(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
