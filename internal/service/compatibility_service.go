package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hazmat-api/internal/compatibility"
	"github.com/noah-isme/hazmat-api/internal/dto"
	"github.com/noah-isme/hazmat-api/internal/models"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
)

type hazardClassStore interface {
	List(ctx context.Context) ([]models.HazardClass, error)
	FindByID(ctx context.Context, id string) (*models.HazardClass, error)
	EnsureCatalog(ctx context.Context, catalog []compatibility.ClassInfo) (int, error)
}

// CompatibilityService exposes the hazard class catalog and stateless pair previews.
type CompatibilityService struct {
	classes   hazardClassStore
	engine    *compatibility.Engine
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cache     *CacheService
	cacheTTL  time.Duration
}

const catalogCacheKey = "hazard-classes:all"

// CompatibilityOption customises a CompatibilityService.
type CompatibilityOption func(*CompatibilityService)

// WithCatalogCache serves ListClasses through the given cache.
func WithCatalogCache(cache *CacheService, ttl time.Duration) CompatibilityOption {
	return func(s *CompatibilityService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// NewCompatibilityService constructs the service over the canonical engine.
func NewCompatibilityService(classes hazardClassStore, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, opts ...CompatibilityOption) *CompatibilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CompatibilityService{
		classes:   classes,
		engine:    compatibility.NewEngine(nil),
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ListClasses returns the seeded catalog and whether it was served from cache.
func (s *CompatibilityService) ListClasses(ctx context.Context) ([]models.HazardClass, bool, error) {
	var cached []models.HazardClass
	if s.cache.Get(ctx, catalogCacheKey, &cached) {
		return cached, true, nil
	}
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list hazard classes")
	}
	s.cache.Set(ctx, catalogCacheKey, classes, s.cacheTTL)
	return classes, false, nil
}

// Preview evaluates a pair by class id without persisting anything.
func (s *CompatibilityService) Preview(ctx context.Context, req dto.PreviewPairRequest) (*models.PairAssessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preview payload")
	}
	a, err := s.findClass(ctx, req.HazardClassAID)
	if err != nil {
		return nil, err
	}
	b, err := s.findClass(ctx, req.HazardClassBID)
	if err != nil {
		return nil, err
	}
	assessment, err := s.engine.Evaluate(a.Code, b.Code, req.Distance)
	if err != nil {
		return nil, assessmentError(err)
	}
	s.metrics.RecordAssessment(assessment.Status, "preview")
	return &models.PairAssessment{
		HazardClassA:        *a,
		HazardClassB:        *b,
		Distance:            req.Distance,
		Status:              assessment.Status,
		IsIsolated:          assessment.Isolated,
		MinRequiredDistance: assessment.MinRequiredDistance,
		Action:              assessment.Action,
		Defaulted:           assessment.Defaulted,
	}, nil
}

// SeedCatalog upserts the reference hazard classes.
func (s *CompatibilityService) SeedCatalog(ctx context.Context) (int, error) {
	n, err := s.classes.EnsureCatalog(ctx, compatibility.Catalog())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed hazard classes")
	}
	s.cache.Invalidate(ctx, "hazard-classes:*")
	s.logger.Info("hazard class catalog ensured", zap.Int("classes", n))
	return n, nil
}

func (s *CompatibilityService) findClass(ctx context.Context, id string) (*models.HazardClass, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown hazard class "+id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hazard class")
	}
	return class, nil
}
