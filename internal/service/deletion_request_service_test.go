package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hazmat-api/internal/dto"
	"github.com/noah-isme/hazmat-api/internal/models"
	"github.com/noah-isme/hazmat-api/internal/repository"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
)

type deletionRepoStub struct {
	requests    map[string]*models.DeletionRequest
	transitions []models.DeletionTransition
	cascaded    []string
	filter      models.DeletionRequestFilter
	attachments []models.Attachment
	loseRace    bool
	pending     bool
}

func newDeletionRepoStub() *deletionRepoStub {
	return &deletionRepoStub{requests: make(map[string]*models.DeletionRequest)}
}

func (r *deletionRepoStub) Create(ctx context.Context, request *models.DeletionRequest) error {
	if r.pending {
		return repository.ErrPendingDeletionRequest
	}
	copied := *request
	r.requests[request.ID] = &copied
	return nil
}

func (r *deletionRepoStub) FindByID(ctx context.Context, id string) (*models.DeletionRequest, error) {
	request, ok := r.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *request
	return &copied, nil
}

func (r *deletionRepoStub) List(ctx context.Context, filter models.DeletionRequestFilter) ([]models.DeletionRequest, int, error) {
	r.filter = filter
	out := make([]models.DeletionRequest, 0, len(r.requests))
	for _, request := range r.requests {
		if filter.RequestedBy != "" && request.RequestedBy != filter.RequestedBy {
			continue
		}
		out = append(out, *request)
	}
	return out, len(out), nil
}

func (r *deletionRepoStub) Transition(ctx context.Context, t models.DeletionTransition, cascade bool) ([]models.Attachment, error) {
	request, ok := r.requests[t.RequestID]
	if !ok || r.loseRace || request.Status != t.From {
		return nil, sql.ErrNoRows
	}
	request.Status = t.To
	r.transitions = append(r.transitions, t)
	if cascade {
		r.cascaded = append(r.cascaded, request.ContainerID)
		return r.attachments, nil
	}
	return nil, nil
}

type deletionFixture struct {
	repo       *deletionRepoStub
	containers *containerRepoStub
	audit      *auditStub
	notifier   *notifierStub
	files      *fileRemoverStub
	svc        *DeletionRequestService
}

func newDeletionFixture() *deletionFixture {
	f := &deletionFixture{
		repo:       newDeletionRepoStub(),
		containers: newContainerRepoStub(),
		audit:      &auditStub{},
		notifier:   &notifierStub{},
		files:      &fileRemoverStub{},
	}
	f.containers.put(models.Container{
		ID:            "c-1",
		ContainerCode: "CHEM-01",
		SubmitterID:   submitter.ID,
		Status:        models.ContainerStatusApproved,
	})
	f.svc = NewDeletionRequestService(f.repo, f.containers, f.audit, nil,
		WithDeletionNotifier(f.notifier),
		WithDeletionFiles(f.files),
		WithDeletionMetrics(NewMetricsService()),
		WithDeletionClock(func() time.Time { return fixedNow }),
	)
	return f
}

func (f *deletionFixture) seed(status models.DeletionStatus) {
	f.repo.requests["d-1"] = &models.DeletionRequest{
		ID:            "d-1",
		ContainerID:   "c-1",
		ContainerCode: "CHEM-01",
		RequestedBy:   submitter.ID,
		RequesterName: submitter.Name,
		Reason:        "the cabinet has been decommissioned",
		Status:        status,
	}
}

const validReason = "the cabinet has been decommissioned"

func TestDeletionRequestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("owner files a pending request", func(t *testing.T) {
		f := newDeletionFixture()
		request, err := f.svc.Create(ctx, submitter, "c-1", dto.CreateDeletionRequest{Reason: "  " + validReason + "  "})
		require.NoError(t, err)
		assert.Equal(t, models.DeletionStatusPending, request.Status)
		assert.Equal(t, validReason, request.Reason)
		assert.Equal(t, "CHEM-01", request.ContainerCode)
		assert.Equal(t, fixedNow, request.CreatedAt)
		assert.Len(t, f.repo.requests, 1)
		assert.Equal(t, []string{models.AuditActionDeletionCreate}, f.audit.actions())
		require.Len(t, f.notifier.notices, 1)
		assert.Equal(t, EventDeletionRequested, f.notifier.notices[0].Event)
		assert.Equal(t, models.RoleAdmin, f.notifier.notices[0].Audience)
	})

	t.Run("short reason", func(t *testing.T) {
		f := newDeletionFixture()
		_, err := f.svc.Create(ctx, submitter, "c-1", dto.CreateDeletionRequest{Reason: "not needed"})
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	})

	t.Run("not the submitter", func(t *testing.T) {
		f := newDeletionFixture()
		_, err := f.svc.Create(ctx, stranger, "c-1", dto.CreateDeletionRequest{Reason: validReason})
		assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	})

	t.Run("admins do not file requests", func(t *testing.T) {
		f := newDeletionFixture()
		_, err := f.svc.Create(ctx, admin, "c-1", dto.CreateDeletionRequest{Reason: validReason})
		assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	})

	t.Run("second pending request conflicts", func(t *testing.T) {
		f := newDeletionFixture()
		f.repo.pending = true
		_, err := f.svc.Create(ctx, submitter, "c-1", dto.CreateDeletionRequest{Reason: validReason})
		assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
		assert.Empty(t, f.notifier.notices)
	})

	t.Run("missing container", func(t *testing.T) {
		f := newDeletionFixture()
		_, err := f.svc.Create(ctx, submitter, "c-404", dto.CreateDeletionRequest{Reason: validReason})
		assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	})
}

func TestDeletionRequestApprovalDeletesContainer(t *testing.T) {
	f := newDeletionFixture()
	f.seed(models.DeletionStatusPending)
	f.repo.attachments = []models.Attachment{{ID: "att-1", FilePath: "c-1/att-1.png"}}
	ctx := context.Background()

	reviewed, err := f.svc.Review(ctx, admin, "d-1", dto.DeletionReviewRequest{Recommendation: "Approve", Comment: "no longer on the floor plan"})
	require.NoError(t, err)
	assert.Equal(t, models.DeletionStatusAdminReviewed, reviewed.Status)
	require.NotNil(t, reviewed.AdminRecommendation)
	assert.Equal(t, models.RecommendApprove, *reviewed.AdminRecommendation)
	assert.Equal(t, admin.Name, *reviewed.AdminReviewedBy)
	assert.Empty(t, f.repo.cascaded)

	decided, err := f.svc.Decide(ctx, hod, "d-1", dto.DecisionRequest{Decision: "approve", Comment: "agreed, remove it"})
	require.NoError(t, err)
	assert.Equal(t, models.DeletionStatusApproved, decided.Status)
	assert.Equal(t, hod.Name, *decided.HODDecidedBy)
	assert.Equal(t, []string{"c-1"}, f.repo.cascaded)
	assert.Equal(t, []string{"c-1/att-1.png"}, f.files.deleted)

	assert.Equal(t, []string{models.AuditActionDeletionReview, models.AuditActionDeletionApprove}, f.audit.actions())
	var values map[string]interface{}
	require.NoError(t, json.Unmarshal(f.audit.logs[1].NewValues, &values))
	assert.Equal(t, "c-1", values["container_deleted"])

	require.Len(t, f.notifier.notices, 2)
	assert.Equal(t, EventDeletionReviewed, f.notifier.notices[0].Event)
	assert.Equal(t, models.RoleHOD, f.notifier.notices[0].Audience)
	assert.Equal(t, "approve", f.notifier.notices[0].Status)
	assert.Equal(t, EventDeletionDecided, f.notifier.notices[1].Event)
	assert.Equal(t, submitter.ID, f.notifier.notices[1].RecipientID)
}

func TestDeletionRequestRejectionKeepsContainer(t *testing.T) {
	f := newDeletionFixture()
	f.seed(models.DeletionStatusAdminReviewed)

	decided, err := f.svc.Decide(context.Background(), hod, "d-1", dto.DecisionRequest{Decision: "rejected", Comment: "still used by the lab"})
	require.NoError(t, err)
	assert.Equal(t, models.DeletionStatusRejected, decided.Status)
	assert.Empty(t, f.repo.cascaded)
	assert.Empty(t, f.files.deleted)

	var values map[string]interface{}
	require.NoError(t, json.Unmarshal(f.audit.logs[0].NewValues, &values))
	_, deleted := values["container_deleted"]
	assert.False(t, deleted)
}

func TestDeletionRequestGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("hod cannot skip the admin stage", func(t *testing.T) {
		f := newDeletionFixture()
		f.seed(models.DeletionStatusPending)
		_, err := f.svc.Decide(ctx, hod, "d-1", dto.DecisionRequest{Decision: "approve", Comment: "agreed, remove it"})
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
		assert.Empty(t, f.repo.cascaded)
	})

	t.Run("admin cannot decide", func(t *testing.T) {
		f := newDeletionFixture()
		f.seed(models.DeletionStatusAdminReviewed)
		_, err := f.svc.Decide(ctx, admin, "d-1", dto.DecisionRequest{Decision: "approve", Comment: "agreed, remove it"})
		assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	})

	t.Run("bad recommendation", func(t *testing.T) {
		f := newDeletionFixture()
		f.seed(models.DeletionStatusPending)
		_, err := f.svc.Review(ctx, admin, "d-1", dto.DeletionReviewRequest{Recommendation: "defer", Comment: "need more information"})
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	})

	t.Run("short comment", func(t *testing.T) {
		f := newDeletionFixture()
		f.seed(models.DeletionStatusPending)
		_, err := f.svc.Review(ctx, admin, "d-1", dto.DeletionReviewRequest{Recommendation: "reject", Comment: "no"})
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	})

	t.Run("decided request is terminal", func(t *testing.T) {
		f := newDeletionFixture()
		f.seed(models.DeletionStatusRejected)
		_, err := f.svc.Review(ctx, admin, "d-1", dto.DeletionReviewRequest{Recommendation: "approve", Comment: "please reconsider"})
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	})

	t.Run("lost race", func(t *testing.T) {
		f := newDeletionFixture()
		f.seed(models.DeletionStatusAdminReviewed)
		f.repo.loseRace = true
		_, err := f.svc.Decide(ctx, hod, "d-1", dto.DecisionRequest{Decision: "approve", Comment: "agreed, remove it"})
		assert.True(t, appErrors.Is(err, appErrors.ErrConcurrentUpdate))
		assert.Empty(t, f.audit.logs)
	})

	t.Run("missing request", func(t *testing.T) {
		f := newDeletionFixture()
		_, err := f.svc.Review(ctx, admin, "d-404", dto.DeletionReviewRequest{Recommendation: "approve", Comment: "no longer needed"})
		assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	})
}

func TestDeletionRequestVisibility(t *testing.T) {
	f := newDeletionFixture()
	f.seed(models.DeletionStatusPending)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, stranger, "d-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	request, err := f.svc.Get(ctx, submitter, "d-1")
	require.NoError(t, err)
	assert.Equal(t, "d-1", request.ID)

	items, page, err := f.svc.List(ctx, stranger, dto.DeletionQuery{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, stranger.ID, f.repo.filter.RequestedBy)
	assert.Equal(t, 1, page.Page)

	items, _, err = f.svc.List(ctx, admin, dto.DeletionQuery{Status: []models.DeletionStatus{models.DeletionStatusPending}})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Empty(t, f.repo.filter.RequestedBy)
}

func TestDeletionRequestFileCleanupFailureIsLogged(t *testing.T) {
	f := newDeletionFixture()
	f.seed(models.DeletionStatusAdminReviewed)
	f.repo.attachments = []models.Attachment{{ID: "att-1", FilePath: "c-1/att-1.png"}}
	f.files.err = errors.New("read-only file system")

	decided, err := f.svc.Decide(context.Background(), hod, "d-1", dto.DecisionRequest{Decision: "approve", Comment: "agreed, remove it"})
	require.NoError(t, err)
	assert.Equal(t, models.DeletionStatusApproved, decided.Status)
}
