package workflow

import (
	"fmt"
	"strings"

	"github.com/noah-isme/hazmat-api/internal/models"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
)

// DeletionAction enumerates the deletion request transitions.
type DeletionAction string

const (
	DeletionAdminReview DeletionAction = "admin_review"
	DeletionApprove     DeletionAction = "approve"
	DeletionReject      DeletionAction = "reject"
)

type deletionEdge struct {
	role        models.UserRole
	from        models.DeletionStatus
	to          models.DeletionStatus
	auditAction string
}

var deletionEdges = map[DeletionAction]deletionEdge{
	DeletionAdminReview: {
		role:        models.RoleAdmin,
		from:        models.DeletionStatusPending,
		to:          models.DeletionStatusAdminReviewed,
		auditAction: models.AuditActionDeletionReview,
	},
	DeletionApprove: {
		role:        models.RoleHOD,
		from:        models.DeletionStatusAdminReviewed,
		to:          models.DeletionStatusApproved,
		auditAction: models.AuditActionDeletionApprove,
	},
	DeletionReject: {
		role:        models.RoleHOD,
		from:        models.DeletionStatusAdminReviewed,
		to:          models.DeletionStatusRejected,
		auditAction: models.AuditActionDeletionReject,
	},
}

// DeletionStep is a validated deletion request transition.
type DeletionStep struct {
	Action      DeletionAction
	From        models.DeletionStatus
	To          models.DeletionStatus
	AuditAction string
	// CascadeDelete is set when committing the step must remove the container.
	CascadeDelete bool
}

// InitialDeletionStatus is the state every deletion request starts in.
func InitialDeletionStatus() models.DeletionStatus {
	return models.DeletionStatusPending
}

// CheckDeletionCreate verifies that actor may request deletion of container.
func CheckDeletionCreate(actor Actor, container *models.Container, reason string) error {
	if actor.Role != models.RoleUser {
		return appErrors.Clone(appErrors.ErrForbidden, "deletion requests are created by the submitting user")
	}
	if container.SubmitterID != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the original submitter may request deletion")
	}
	return ValidateReason(reason)
}

// PlanDeletion checks role, state and comment for a deletion request transition.
func PlanDeletion(action DeletionAction, actor Actor, request *models.DeletionRequest, comment string) (DeletionStep, error) {
	edge, ok := deletionEdges[action]
	if !ok {
		return DeletionStep{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown deletion action %q", action))
	}
	if actor.Role != edge.role {
		return DeletionStep{}, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%s requires role %s", action, edge.role))
	}
	if request.Status != edge.from {
		return DeletionStep{}, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot %s deletion request in status %s; expected %s", action, request.Status, edge.from)).
			WithDetails(map[string]interface{}{
				"action":           action,
				"current_status":   request.Status,
				"allowed_statuses": []models.DeletionStatus{edge.from},
			})
	}
	if err := ValidateComment(comment); err != nil {
		return DeletionStep{}, err
	}
	return DeletionStep{
		Action:        action,
		From:          edge.from,
		To:            edge.to,
		AuditAction:   edge.auditAction,
		CascadeDelete: edge.to == models.DeletionStatusApproved,
	}, nil
}

// ParseRecommendation validates an admin recommendation keyword.
func ParseRecommendation(raw string) (models.Recommendation, error) {
	switch models.Recommendation(strings.ToLower(strings.TrimSpace(raw))) {
	case models.RecommendApprove:
		return models.RecommendApprove, nil
	case models.RecommendReject:
		return models.RecommendReject, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "recommendation must be approve or reject")
}

// DeletionDecisionAction maps an HOD decision keyword to its action.
func DeletionDecisionAction(decision string) (DeletionAction, error) {
	action, err := DecisionAction(decision)
	if err != nil {
		return "", err
	}
	if action == ContainerApprove {
		return DeletionApprove, nil
	}
	return DeletionReject, nil
}
