package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hazmat-api/internal/compatibility"
	"github.com/noah-isme/hazmat-api/internal/dto"
	"github.com/noah-isme/hazmat-api/internal/models"
	"github.com/noah-isme/hazmat-api/internal/repository"
	"github.com/noah-isme/hazmat-api/internal/workflow"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
	applogger "github.com/noah-isme/hazmat-api/pkg/logger"
)

const containerEntity = "container"

type containerStore interface {
	Create(ctx context.Context, detail *models.ContainerDetail) error
	Resubmit(ctx context.Context, detail *models.ContainerDetail, from models.ContainerStatus) error
	FindByID(ctx context.Context, id string) (*models.Container, error)
	GetDetail(ctx context.Context, id string) (*models.ContainerDetail, error)
	List(ctx context.Context, filter models.ContainerFilter) ([]models.Container, int, error)
	Transition(ctx context.Context, t models.ContainerTransition) error
	DeleteCascade(ctx context.Context, id string) ([]models.Attachment, error)
}

type hazardClassReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.HazardClass, error)
}

type attachmentLister interface {
	ListForContainer(ctx context.Context, containerID string) ([]models.Attachment, error)
}

type fileRemover interface {
	Delete(filename string) error
}

// ContainerService runs container submission and the approval workflow.
type ContainerService struct {
	repo        containerStore
	classes     hazardClassReader
	audit       auditLogger
	validator   *validator.Validate
	engine      *compatibility.Engine
	notifier    Notifier
	metrics     *MetricsService
	attachments attachmentLister
	files       fileRemover
	logger      *zap.Logger
	now         func() time.Time
}

// ContainerServiceOption configures optional collaborators.
type ContainerServiceOption func(*ContainerService)

// WithContainerNotifier sets the notifier used after each committed transition.
func WithContainerNotifier(n Notifier) ContainerServiceOption {
	return func(s *ContainerService) {
		s.notifier = n
	}
}

// WithContainerMetrics sets the metrics sink.
func WithContainerMetrics(m *MetricsService) ContainerServiceOption {
	return func(s *ContainerService) {
		s.metrics = m
	}
}

// WithContainerAttachments decorates details with attachments and removes files after deletes.
func WithContainerAttachments(lister attachmentLister, files fileRemover) ContainerServiceOption {
	return func(s *ContainerService) {
		s.attachments = lister
		s.files = files
	}
}

// WithContainerEngine overrides the compatibility engine.
func WithContainerEngine(engine *compatibility.Engine) ContainerServiceOption {
	return func(s *ContainerService) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithContainerClock overrides the time source.
func WithContainerClock(now func() time.Time) ContainerServiceOption {
	return func(s *ContainerService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewContainerService constructs the service.
func NewContainerService(repo containerStore, classes hazardClassReader, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...ContainerServiceOption) *ContainerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ContainerService{
		repo:      repo,
		classes:   classes,
		audit:     audit,
		validator: validate,
		engine:    compatibility.NewEngine(nil),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit evaluates every declared pair and stores the container with its hazards and pairs.
func (s *ContainerService) Submit(ctx context.Context, actor workflow.Actor, req dto.SubmitContainerRequest) (*models.ContainerDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid container payload")
	}
	now := s.now()
	detail, err := s.assemble(ctx, req, uuid.NewString(), now)
	if err != nil {
		return nil, err
	}
	detail.Status = workflow.InitialContainerStatus()
	detail.SubmitterID = actor.ID
	if detail.SubmittedBy == "" {
		detail.SubmittedBy = actor.Name
	}
	detail.SubmittedAt = now
	detail.UpdatedAt = now

	if err := s.repo.Create(ctx, detail); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store container")
	}
	s.recordAssessments(detail.Pairs)
	s.metrics.RecordTransition(containerEntity, "submit", OutcomeApplied)

	emitAudit(ctx, s.audit, s.logger, "container-service", &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionContainerSubmit,
		Resource:   models.AuditResourceContainer,
		ResourceID: &detail.ID,
		NewValues:  auditValues(map[string]interface{}{"status": detail.Status, "pairs": len(detail.Pairs)}),
	})
	s.notify(ctx, Notice{
		Event:         EventContainerSubmitted,
		Audience:      models.RoleAdmin,
		ContainerID:   detail.ID,
		ContainerCode: detail.ContainerCode,
		Status:        string(detail.Status),
		ActorName:     actor.Name,
	})
	return detail, nil
}

// Resubmit replaces a container in rework with a new payload and returns it to pending_review.
func (s *ContainerService) Resubmit(ctx context.Context, actor workflow.Actor, id string, req dto.SubmitContainerRequest) (*models.ContainerDetail, error) {
	container, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	step, err := workflow.PlanContainer(workflow.ContainerResubmit, actor, container, "")
	if err != nil {
		s.metrics.RecordTransition(containerEntity, string(workflow.ContainerResubmit), OutcomeRejected)
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid container payload")
	}
	now := s.now()
	detail, err := s.assemble(ctx, req, container.ID, now)
	if err != nil {
		return nil, err
	}
	submittedBy := detail.SubmittedBy
	detail.Container = *container
	detail.Department = strings.TrimSpace(req.Department)
	detail.Location = strings.TrimSpace(req.Location)
	detail.ContainerCode = strings.TrimSpace(req.ContainerCode)
	detail.ContainerType = strings.TrimSpace(req.ContainerType)
	if submittedBy != "" {
		detail.SubmittedBy = submittedBy
	}
	detail.Status = step.To
	detail.UpdatedAt = now

	if err := s.repo.Resubmit(ctx, detail, step.From); err != nil {
		return nil, s.transitionError(err, string(step.Action))
	}
	s.recordAssessments(detail.Pairs)
	s.metrics.RecordTransition(containerEntity, string(step.Action), OutcomeApplied)

	emitAudit(ctx, s.audit, s.logger, "container-service", &models.AuditLog{
		UserID:     &actor.ID,
		Action:     step.AuditAction,
		Resource:   models.AuditResourceContainer,
		ResourceID: &detail.ID,
		OldValues:  auditValues(map[string]interface{}{"status": container.Status}),
		NewValues:  auditValues(map[string]interface{}{"status": detail.Status, "pairs": len(detail.Pairs)}),
	})
	s.notify(ctx, Notice{
		Event:         EventContainerResubmitted,
		Audience:      models.RoleAdmin,
		ContainerID:   detail.ID,
		ContainerCode: detail.ContainerCode,
		Status:        string(detail.Status),
		ActorName:     actor.Name,
	})
	return detail, nil
}

// AdminReview moves a freshly submitted container to pending.
func (s *ContainerService) AdminReview(ctx context.Context, actor workflow.Actor, id, comment string) (*models.Container, error) {
	return s.transition(ctx, workflow.ContainerAdminReview, actor, id, comment)
}

// RequestRework sends a container back to its submitter.
func (s *ContainerService) RequestRework(ctx context.Context, actor workflow.Actor, id, comment string) (*models.Container, error) {
	return s.transition(ctx, workflow.ContainerRequestRework, actor, id, comment)
}

// Decide records the HOD's final decision.
func (s *ContainerService) Decide(ctx context.Context, actor workflow.Actor, id string, req dto.DecisionRequest) (*models.Container, error) {
	action, err := workflow.DecisionAction(req.Decision)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, action, actor, id, req.Comment)
}

func (s *ContainerService) transition(ctx context.Context, action workflow.ContainerAction, actor workflow.Actor, id, comment string) (*models.Container, error) {
	container, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	step, err := workflow.PlanContainer(action, actor, container, comment)
	if err != nil {
		s.metrics.RecordTransition(containerEntity, string(action), OutcomeRejected)
		return nil, err
	}

	previous := container.Status
	comment = strings.TrimSpace(comment)
	now := s.now()
	if err := s.repo.Transition(ctx, models.ContainerTransition{
		ContainerID: container.ID,
		From:        step.From,
		To:          step.To,
		ActorName:   actor.Name,
		Comment:     comment,
		At:          now,
	}); err != nil {
		return nil, s.transitionError(err, string(action))
	}
	s.metrics.RecordTransition(containerEntity, string(action), OutcomeApplied)
	stampStage(container, step.To, actor.Name, comment, now)

	emitAudit(ctx, s.audit, s.logger, "container-service", &models.AuditLog{
		UserID:     &actor.ID,
		Action:     step.AuditAction,
		Resource:   models.AuditResourceContainer,
		ResourceID: &container.ID,
		OldValues:  auditValues(map[string]interface{}{"status": previous}),
		NewValues:  auditValues(map[string]interface{}{"status": step.To, "comment": comment}),
	})

	notice := Notice{
		ContainerID:   container.ID,
		ContainerCode: container.ContainerCode,
		Status:        string(step.To),
		ActorName:     actor.Name,
		Comment:       comment,
	}
	switch step.Action {
	case workflow.ContainerAdminReview:
		notice.Event = EventContainerReviewed
		notice.Audience = models.RoleHOD
	case workflow.ContainerRequestRework:
		notice.Event = EventContainerRework
		notice.RecipientID = container.SubmitterID
	default:
		notice.Event = EventContainerDecided
		notice.RecipientID = container.SubmitterID
	}
	s.notify(ctx, notice)
	return container, nil
}

// Get returns a container with hazards, pairs and attachments. Plain users only see their own.
func (s *ContainerService) Get(ctx context.Context, actor workflow.Actor, id string) (*models.ContainerDetail, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "container not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load container")
	}
	if actor.Role == models.RoleUser && detail.SubmitterID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "container belongs to another user")
	}
	if s.attachments != nil {
		attachments, err := s.attachments.ListForContainer(ctx, detail.ID)
		if err != nil {
			s.logger.Warn("failed to load container attachments", zap.String("container_id", detail.ID), zap.Error(err))
		} else {
			detail.Attachments = attachments
		}
	}
	return detail, nil
}

// List returns containers visible to the actor.
func (s *ContainerService) List(ctx context.Context, actor workflow.Actor, query dto.ContainerQuery) ([]models.Container, *models.Pagination, error) {
	filter := ContainerFilterFor(actor, query)
	containers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list containers")
	}
	page, size := pageBounds(query.Page, query.PageSize)
	return containers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Delete removes a container outright. Only an HOD may do this, and never while a deletion request is open.
func (s *ContainerService) Delete(ctx context.Context, actor workflow.Actor, id string) error {
	if err := workflow.CheckDirectDelete(actor); err != nil {
		s.metrics.RecordTransition(containerEntity, "delete", OutcomeRejected)
		return err
	}
	attachments, err := s.repo.DeleteCascade(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "container not found")
		case errors.Is(err, repository.ErrOpenDeletionRequest):
			s.metrics.RecordTransition(containerEntity, "delete", OutcomeConflict)
			return appErrors.Clone(appErrors.ErrConflict, "container has an open deletion request; decide it instead")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete container")
	}
	s.metrics.RecordTransition(containerEntity, "delete", OutcomeApplied)
	removeFiles(ctx, s.files, s.logger, attachments)

	emitAudit(ctx, s.audit, s.logger, "container-service", &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionContainerDelete,
		Resource:   models.AuditResourceContainer,
		ResourceID: &id,
		NewValues:  auditValues(map[string]interface{}{"attachments_removed": len(attachments)}),
	})
	return nil
}

// ContainerFilterFor narrows a query to what the actor may see.
func ContainerFilterFor(actor workflow.Actor, query dto.ContainerQuery) models.ContainerFilter {
	filter := models.ContainerFilter{
		Status:     query.Status,
		Department: strings.TrimSpace(query.Department),
		Search:     strings.TrimSpace(query.Search),
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	if actor.Role == models.RoleUser || query.Mine {
		filter.SubmitterID = actor.ID
	}
	return filter
}

// assemble resolves the selected hazard classes and evaluates every declared pair.
func (s *ContainerService) assemble(ctx context.Context, req dto.SubmitContainerRequest, containerID string, now time.Time) (*models.ContainerDetail, error) {
	ids := make([]string, 0, len(req.SelectedHazards))
	for _, id := range req.SelectedHazards {
		ids = append(ids, strings.TrimSpace(id))
	}
	found, err := s.classes.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hazard classes")
	}
	byID := make(map[string]models.HazardClass, len(found))
	for _, class := range found {
		byID[class.ID] = class
	}

	detail := &models.ContainerDetail{
		Container: models.Container{
			ID:            containerID,
			Department:    strings.TrimSpace(req.Department),
			Location:      strings.TrimSpace(req.Location),
			SubmittedBy:   strings.TrimSpace(req.SubmittedBy),
			ContainerCode: strings.TrimSpace(req.ContainerCode),
			ContainerType: strings.TrimSpace(req.ContainerType),
		},
		Hazards: make([]models.ContainerHazard, 0, len(ids)),
		Pairs:   make([]models.HazardPair, 0, len(req.HazardPairs)),
	}
	for _, id := range ids {
		class, ok := byID[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown hazard class %s", id))
		}
		detail.Hazards = append(detail.Hazards, models.ContainerHazard{
			ContainerID:   containerID,
			HazardClassID: class.ID,
			Code:          class.Code,
			Name:          class.Name,
		})
	}

	seen := make(map[[2]string]struct{}, len(req.HazardPairs))
	for i, input := range req.HazardPairs {
		aID, bID := strings.TrimSpace(input.HazardClassAID), strings.TrimSpace(input.HazardClassBID)
		a, okA := byID[aID]
		b, okB := byID[bID]
		if !okA || !okB {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("hazard_pairs[%d] references a class that is not selected", i))
		}
		if aID == bID {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("hazard_pairs[%d] must pair two different classes", i))
		}
		key := [2]string{aID, bID}
		if bID < aID {
			key = [2]string{bID, aID}
		}
		if _, dup := seen[key]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("hazard_pairs[%d] duplicates %s + %s", i, a.Code, b.Code))
		}
		seen[key] = struct{}{}

		assessment, err := s.engine.Evaluate(a.Code, b.Code, input.Distance)
		if err != nil {
			return nil, assessmentError(err)
		}
		detail.Pairs = append(detail.Pairs, models.HazardPair{
			ID:                  uuid.NewString(),
			ContainerID:         containerID,
			HazardClassAID:      a.ID,
			HazardClassBID:      b.ID,
			ClassACode:          a.Code,
			ClassBCode:          b.Code,
			Distance:            input.Distance,
			IsIsolated:          assessment.Isolated,
			MinRequiredDistance: assessment.MinRequiredDistance,
			Status:              assessment.Status,
			CreatedAt:           now,
		})
	}
	return detail, nil
}

func (s *ContainerService) load(ctx context.Context, id string) (*models.Container, error) {
	container, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "container not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load container")
	}
	return container, nil
}

func (s *ContainerService) transitionError(err error, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		s.metrics.RecordTransition(containerEntity, action, OutcomeConflict)
		return appErrors.Clone(appErrors.ErrConcurrentUpdate, "container was changed by someone else; reload and retry")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update container")
}

func (s *ContainerService) recordAssessments(pairs []models.HazardPair) {
	for _, pair := range pairs {
		s.metrics.RecordAssessment(pair.Status, "submission")
	}
}

func (s *ContainerService) notify(ctx context.Context, notice Notice) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, notice)
}

// stampStage mirrors the audit columns the repository wrote for the stage.
func stampStage(c *models.Container, to models.ContainerStatus, actorName, comment string, at time.Time) {
	c.Status = to
	c.UpdatedAt = at
	name, note, ts := actorName, comment, at
	switch to {
	case models.ContainerStatusPending:
		c.AdminReviewedBy, c.AdminComment, c.AdminReviewedAt = &name, &note, &ts
	case models.ContainerStatusReworkRequested:
		c.ReworkRequestedBy, c.ReworkComment, c.ReworkRequestedAt = &name, &note, &ts
	case models.ContainerStatusApproved, models.ContainerStatusRejected:
		c.HODDecidedBy, c.HODComment, c.HODDecidedAt = &name, &note, &ts
	}
}

func assessmentError(err error) error {
	switch {
	case errors.Is(err, compatibility.ErrUnknownClass), errors.Is(err, compatibility.ErrInvalidDistance):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to evaluate hazard pair")
}

func removeFiles(ctx context.Context, files fileRemover, logger *zap.Logger, attachments []models.Attachment) {
	if files == nil {
		return
	}
	for _, a := range attachments {
		if err := files.Delete(a.FilePath); err != nil {
			applogger.WithContext(ctx, logger).Warn("failed to remove attachment file", zap.String("attachment_id", a.ID), zap.Error(err))
		}
	}
}

func pageBounds(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
