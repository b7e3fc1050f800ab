package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hazmat-api/internal/dto"
	"github.com/noah-isme/hazmat-api/internal/middleware"
	"github.com/noah-isme/hazmat-api/internal/models"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
	"github.com/noah-isme/hazmat-api/pkg/response"
)

type compatibilityService interface {
	ListClasses(ctx context.Context) ([]models.HazardClass, bool, error)
	Preview(ctx context.Context, req dto.PreviewPairRequest) (*models.PairAssessment, error)
}

// HazardClassHandler exposes the hazard class catalog and pair previews.
type HazardClassHandler struct {
	service compatibilityService
}

// NewHazardClassHandler constructs the handler.
func NewHazardClassHandler(svc compatibilityService) *HazardClassHandler {
	return &HazardClassHandler{service: svc}
}

// List godoc
// @Summary List hazard classes
// @Tags Hazard Classes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /hazard-classes [get]
func (h *HazardClassHandler) List(c *gin.Context) {
	classes, hit, err := h.service.ListClasses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, classes, nil, middleware.ExtractMeta(c))
}

// Preview godoc
// @Summary Evaluate a hazard pair
// @Description Evaluates two hazard classes at a distance without storing anything
// @Tags Hazard Classes
// @Accept json
// @Produce json
// @Param payload body dto.PreviewPairRequest true "Pair"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /hazard-classes/preview [post]
func (h *HazardClassHandler) Preview(c *gin.Context) {
	var req dto.PreviewPairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preview payload"))
		return
	}
	result, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
