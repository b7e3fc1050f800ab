package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hazmat-api/internal/dto"
	"github.com/noah-isme/hazmat-api/internal/models"
	"github.com/noah-isme/hazmat-api/internal/repository"
	"github.com/noah-isme/hazmat-api/internal/workflow"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
)

const deletionEntity = "deletion_request"

type deletionRequestStore interface {
	Create(ctx context.Context, request *models.DeletionRequest) error
	FindByID(ctx context.Context, id string) (*models.DeletionRequest, error)
	List(ctx context.Context, filter models.DeletionRequestFilter) ([]models.DeletionRequest, int, error)
	Transition(ctx context.Context, t models.DeletionTransition, cascade bool) ([]models.Attachment, error)
}

type containerFinder interface {
	FindByID(ctx context.Context, id string) (*models.Container, error)
}

// DeletionRequestService runs the two-stage deletion approval.
type DeletionRequestService struct {
	repo       deletionRequestStore
	containers containerFinder
	audit      auditLogger
	notifier   Notifier
	metrics    *MetricsService
	files      fileRemover
	logger     *zap.Logger
	now        func() time.Time
}

// DeletionRequestServiceOption configures optional collaborators.
type DeletionRequestServiceOption func(*DeletionRequestService)

// WithDeletionNotifier sets the notifier.
func WithDeletionNotifier(n Notifier) DeletionRequestServiceOption {
	return func(s *DeletionRequestService) { s.notifier = n }
}

// WithDeletionMetrics sets the metrics sink.
func WithDeletionMetrics(m *MetricsService) DeletionRequestServiceOption {
	return func(s *DeletionRequestService) { s.metrics = m }
}

// WithDeletionFiles sets where attachment files are removed from after an approved deletion.
func WithDeletionFiles(files fileRemover) DeletionRequestServiceOption {
	return func(s *DeletionRequestService) { s.files = files }
}

// WithDeletionClock overrides the time source.
func WithDeletionClock(now func() time.Time) DeletionRequestServiceOption {
	return func(s *DeletionRequestService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewDeletionRequestService constructs the service.
func NewDeletionRequestService(repo deletionRequestStore, containers containerFinder, audit auditLogger, logger *zap.Logger, opts ...DeletionRequestServiceOption) *DeletionRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &DeletionRequestService{
		repo:       repo,
		containers: containers,
		audit:      audit,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create files a deletion request for a container the actor submitted.
func (s *DeletionRequestService) Create(ctx context.Context, actor workflow.Actor, containerID string, req dto.CreateDeletionRequest) (*models.DeletionRequest, error) {
	container, err := s.containers.FindByID(ctx, containerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "container not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load container")
	}
	if err := workflow.CheckDeletionCreate(actor, container, req.Reason); err != nil {
		s.metrics.RecordTransition(deletionEntity, "create", OutcomeRejected)
		return nil, err
	}

	request := &models.DeletionRequest{
		ID:            uuid.NewString(),
		ContainerID:   container.ID,
		ContainerCode: container.ContainerCode,
		RequestedBy:   actor.ID,
		RequesterName: actor.Name,
		Reason:        strings.TrimSpace(req.Reason),
		Status:        workflow.InitialDeletionStatus(),
		CreatedAt:     s.now(),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		switch {
		case errors.Is(err, repository.ErrPendingDeletionRequest):
			s.metrics.RecordTransition(deletionEntity, "create", OutcomeConflict)
			return nil, appErrors.Clone(appErrors.ErrConflict, "container already has a pending deletion request")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "container not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store deletion request")
	}
	s.metrics.RecordTransition(deletionEntity, "create", OutcomeApplied)

	emitAudit(ctx, s.audit, s.logger, "deletion-request-service", &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionDeletionCreate,
		Resource:   models.AuditResourceDeletionRequest,
		ResourceID: &request.ID,
		NewValues:  auditValues(map[string]interface{}{"container_id": request.ContainerID, "status": request.Status}),
	})
	s.notify(ctx, Notice{
		Event:         EventDeletionRequested,
		Audience:      models.RoleAdmin,
		ContainerID:   request.ContainerID,
		ContainerCode: request.ContainerCode,
		RequestID:     request.ID,
		Status:        string(request.Status),
		ActorName:     actor.Name,
		Comment:       request.Reason,
	})
	return request, nil
}

// Review attaches the admin recommendation.
func (s *DeletionRequestService) Review(ctx context.Context, actor workflow.Actor, id string, req dto.DeletionReviewRequest) (*models.DeletionRequest, error) {
	recommendation, err := workflow.ParseRecommendation(req.Recommendation)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, workflow.DeletionAdminReview, actor, id, req.Comment, &recommendation)
}

// Decide records the HOD decision. Approval deletes the container.
func (s *DeletionRequestService) Decide(ctx context.Context, actor workflow.Actor, id string, req dto.DecisionRequest) (*models.DeletionRequest, error) {
	action, err := workflow.DeletionDecisionAction(req.Decision)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, action, actor, id, req.Comment, nil)
}

func (s *DeletionRequestService) transition(ctx context.Context, action workflow.DeletionAction, actor workflow.Actor, id, comment string, recommendation *models.Recommendation) (*models.DeletionRequest, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	step, err := workflow.PlanDeletion(action, actor, request, comment)
	if err != nil {
		s.metrics.RecordTransition(deletionEntity, string(action), OutcomeRejected)
		return nil, err
	}

	comment = strings.TrimSpace(comment)
	now := s.now()
	attachments, err := s.repo.Transition(ctx, models.DeletionTransition{
		RequestID:      request.ID,
		From:           step.From,
		To:             step.To,
		ActorName:      actor.Name,
		Comment:        comment,
		Recommendation: recommendation,
		At:             now,
	}, step.CascadeDelete)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordTransition(deletionEntity, string(action), OutcomeConflict)
			return nil, appErrors.Clone(appErrors.ErrConcurrentUpdate, "deletion request was changed by someone else; reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update deletion request")
	}
	s.metrics.RecordTransition(deletionEntity, string(action), OutcomeApplied)
	if step.CascadeDelete {
		removeFiles(ctx, s.files, s.logger, attachments)
	}

	previous := request.Status
	request.Status = step.To
	name, note, ts := actor.Name, comment, now
	notice := Notice{
		ContainerID:   request.ContainerID,
		ContainerCode: request.ContainerCode,
		RequestID:     request.ID,
		ActorName:     actor.Name,
		Comment:       comment,
	}
	if step.To == models.DeletionStatusAdminReviewed {
		request.AdminRecommendation = recommendation
		request.AdminReviewedBy, request.AdminComment, request.AdminReviewedAt = &name, &note, &ts
		notice.Event = EventDeletionReviewed
		notice.Audience = models.RoleHOD
		notice.Status = string(*recommendation)
	} else {
		request.HODDecidedBy, request.HODComment, request.HODDecidedAt = &name, &note, &ts
		notice.Event = EventDeletionDecided
		notice.RecipientID = request.RequestedBy
		notice.Status = string(step.To)
	}

	newValues := map[string]interface{}{"status": step.To, "comment": comment}
	if recommendation != nil {
		newValues["recommendation"] = *recommendation
	}
	if step.CascadeDelete {
		newValues["container_deleted"] = request.ContainerID
	}
	emitAudit(ctx, s.audit, s.logger, "deletion-request-service", &models.AuditLog{
		UserID:     &actor.ID,
		Action:     step.AuditAction,
		Resource:   models.AuditResourceDeletionRequest,
		ResourceID: &request.ID,
		OldValues:  auditValues(map[string]interface{}{"status": previous}),
		NewValues:  auditValues(newValues),
	})
	s.notify(ctx, notice)
	return request, nil
}

// Get returns a deletion request. Plain users only see their own.
func (s *DeletionRequestService) Get(ctx context.Context, actor workflow.Actor, id string) (*models.DeletionRequest, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleUser && request.RequestedBy != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "deletion request belongs to another user")
	}
	return request, nil
}

// List returns deletion requests visible to the actor.
func (s *DeletionRequestService) List(ctx context.Context, actor workflow.Actor, query dto.DeletionQuery) ([]models.DeletionRequest, *models.Pagination, error) {
	filter := models.DeletionRequestFilter{
		Status:      query.Status,
		ContainerID: strings.TrimSpace(query.ContainerID),
		Page:        query.Page,
		PageSize:    query.PageSize,
	}
	if actor.Role == models.RoleUser {
		filter.RequestedBy = actor.ID
	}
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list deletion requests")
	}
	page, size := pageBounds(query.Page, query.PageSize)
	return requests, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *DeletionRequestService) load(ctx context.Context, id string) (*models.DeletionRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "deletion request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load deletion request")
	}
	return request, nil
}

func (s *DeletionRequestService) notify(ctx context.Context, notice Notice) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, notice)
}
