package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hazmat-api/internal/models"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
)

const validComment = "checked labels and shelving"

var (
	admin     = Actor{ID: "admin-1", Name: "Ada Admin", Role: models.RoleAdmin}
	hod       = Actor{ID: "hod-1", Name: "Hana Head", Role: models.RoleHOD}
	submitter = Actor{ID: "user-1", Name: "Sam Submitter", Role: models.RoleUser}
	stranger  = Actor{ID: "user-2", Name: "Other User", Role: models.RoleUser}
)

func container(status models.ContainerStatus) *models.Container {
	return &models.Container{ID: "c-1", SubmitterID: submitter.ID, Status: status}
}

func requireCode(t *testing.T, err error, target *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, target), "expected %s, got %v", target.Code, err)
}

func TestSubmitStartsInPendingReview(t *testing.T) {
	assert.Equal(t, models.ContainerStatusPendingReview, InitialContainerStatus())
}

func TestAdminReviewMovesToPending(t *testing.T) {
	step, err := PlanContainer(ContainerAdminReview, admin, container(models.ContainerStatusPendingReview), validComment)
	require.NoError(t, err)
	assert.Equal(t, models.ContainerStatusPending, step.To)
	assert.Equal(t, models.ContainerStatusPendingReview, step.From)
}

func TestSecondAdminReviewFailsWithGuardError(t *testing.T) {
	_, err := PlanContainer(ContainerAdminReview, admin, container(models.ContainerStatusPending), validComment)
	requireCode(t, err, appErrors.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "pending")

	details := appErrors.FromError(err).Details
	assert.Equal(t, models.ContainerStatusPending, details["current_status"])
	assert.Equal(t, []models.ContainerStatus{models.ContainerStatusPendingReview}, details["allowed_statuses"])
}

func TestAdminReviewRequiresAdmin(t *testing.T) {
	_, err := PlanContainer(ContainerAdminReview, hod, container(models.ContainerStatusPendingReview), validComment)
	requireCode(t, err, appErrors.ErrForbidden)
}

func TestShortCommentRejected(t *testing.T) {
	_, err := PlanContainer(ContainerAdminReview, admin, container(models.ContainerStatusPendingReview), "  ok  ")
	requireCode(t, err, appErrors.ErrValidation)
}

func TestReworkCapabilities(t *testing.T) {
	_, err := PlanContainer(ContainerRequestRework, admin, container(models.ContainerStatusPendingReview), validComment)
	require.NoError(t, err)

	_, err = PlanContainer(ContainerRequestRework, admin, container(models.ContainerStatusPending), validComment)
	requireCode(t, err, appErrors.ErrInvalidTransition)

	step, err := PlanContainer(ContainerRequestRework, hod, container(models.ContainerStatusPending), validComment)
	require.NoError(t, err)
	assert.Equal(t, models.ContainerStatusReworkRequested, step.To)
	assert.Equal(t, models.ContainerStatusPending, step.From)

	_, err = PlanContainer(ContainerRequestRework, submitter, container(models.ContainerStatusPending), validComment)
	requireCode(t, err, appErrors.ErrForbidden)
}

func TestResubmitOwnerOnly(t *testing.T) {
	step, err := PlanContainer(ContainerResubmit, submitter, container(models.ContainerStatusReworkRequested), "")
	require.NoError(t, err)
	assert.Equal(t, models.ContainerStatusPendingReview, step.To)

	_, err = PlanContainer(ContainerResubmit, stranger, container(models.ContainerStatusReworkRequested), "")
	requireCode(t, err, appErrors.ErrForbidden)

	_, err = PlanContainer(ContainerResubmit, submitter, container(models.ContainerStatusPending), "")
	requireCode(t, err, appErrors.ErrInvalidTransition)
}

func TestHODDecisionFromReworkRequestedAllowed(t *testing.T) {
	step, err := PlanContainer(ContainerApprove, hod, container(models.ContainerStatusReworkRequested), validComment)
	require.NoError(t, err)
	assert.Equal(t, models.ContainerStatusApproved, step.To)

	step, err = PlanContainer(ContainerReject, hod, container(models.ContainerStatusPendingReview), validComment)
	require.NoError(t, err)
	assert.Equal(t, models.ContainerStatusRejected, step.To)
}

func TestTerminalStatesRejectEveryAction(t *testing.T) {
	for _, status := range []models.ContainerStatus{models.ContainerStatusApproved, models.ContainerStatusRejected} {
		for action := range containerEdges {
			for _, actor := range []Actor{admin, hod, submitter} {
				_, err := PlanContainer(action, actor, container(status), validComment)
				require.Error(t, err, "%s by %s from %s", action, actor.Role, status)
			}
		}
	}
}

func TestDecisionAction(t *testing.T) {
	action, err := DecisionAction("Approve")
	require.NoError(t, err)
	assert.Equal(t, ContainerApprove, action)

	action, err = DecisionAction("rejected")
	require.NoError(t, err)
	assert.Equal(t, ContainerReject, action)

	_, err = DecisionAction("maybe")
	requireCode(t, err, appErrors.ErrValidation)
}

func TestCheckDirectDelete(t *testing.T) {
	require.NoError(t, CheckDirectDelete(hod))
	requireCode(t, CheckDirectDelete(admin), appErrors.ErrForbidden)
}

func TestDeletionCreateGuards(t *testing.T) {
	reason := "container was decommissioned last week"
	require.NoError(t, CheckDeletionCreate(submitter, container(models.ContainerStatusApproved), reason))

	requireCode(t, CheckDeletionCreate(stranger, container(models.ContainerStatusApproved), reason), appErrors.ErrForbidden)
	requireCode(t, CheckDeletionCreate(admin, container(models.ContainerStatusApproved), reason), appErrors.ErrForbidden)

	// a 15 character reason passes the comment minimum but not the reason minimum
	requireCode(t, CheckDeletionCreate(submitter, container(models.ContainerStatusApproved), "no longer used."), appErrors.ErrValidation)
}

func TestDeletionLifecycle(t *testing.T) {
	request := &models.DeletionRequest{ID: "d-1", Status: InitialDeletionStatus()}

	_, err := PlanDeletion(DeletionApprove, hod, request, validComment)
	requireCode(t, err, appErrors.ErrInvalidTransition)

	_, err = PlanDeletion(DeletionAdminReview, hod, request, validComment)
	requireCode(t, err, appErrors.ErrForbidden)

	step, err := PlanDeletion(DeletionAdminReview, admin, request, validComment)
	require.NoError(t, err)
	assert.Equal(t, models.DeletionStatusAdminReviewed, step.To)
	assert.False(t, step.CascadeDelete)

	request.Status = step.To
	_, err = PlanDeletion(DeletionAdminReview, admin, request, validComment)
	requireCode(t, err, appErrors.ErrInvalidTransition)

	step, err = PlanDeletion(DeletionApprove, hod, request, validComment)
	require.NoError(t, err)
	assert.Equal(t, models.DeletionStatusApproved, step.To)
	assert.True(t, step.CascadeDelete)

	step, err = PlanDeletion(DeletionReject, hod, request, validComment)
	require.NoError(t, err)
	assert.False(t, step.CascadeDelete)
}

func TestParseRecommendation(t *testing.T) {
	rec, err := ParseRecommendation(" APPROVE ")
	require.NoError(t, err)
	assert.Equal(t, models.RecommendApprove, rec)

	_, err = ParseRecommendation("delete")
	requireCode(t, err, appErrors.ErrValidation)
}
