// Package workflow holds the transition and capability tables for the container
// approval lifecycle and the deletion request lifecycle.
package workflow

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/noah-isme/hazmat-api/internal/models"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
)

// MinCommentLength applies to review, rework and decision comments.
const MinCommentLength = 10

// MinReasonLength applies to deletion request reasons.
const MinReasonLength = 20

// ContainerAction enumerates the role-gated container transitions.
type ContainerAction string

const (
	ContainerAdminReview   ContainerAction = "admin_review"
	ContainerRequestRework ContainerAction = "request_rework"
	ContainerResubmit      ContainerAction = "resubmit"
	ContainerApprove       ContainerAction = "approve"
	ContainerReject        ContainerAction = "reject"
)

// Actor is the authenticated caller attempting a transition.
type Actor struct {
	ID   string
	Name string
	Role models.UserRole
}

type containerEdge struct {
	// from lists the accepted source states per role.
	from          map[models.UserRole][]models.ContainerStatus
	to            models.ContainerStatus
	ownerOnly     bool
	needsComment  bool
	auditAction   string
	describeRoles string
}

var (
	reviewable = []models.ContainerStatus{
		models.ContainerStatusPendingReview,
		models.ContainerStatusPending,
		models.ContainerStatusReworkRequested,
	}

	containerEdges = map[ContainerAction]containerEdge{
		ContainerAdminReview: {
			from: map[models.UserRole][]models.ContainerStatus{
				models.RoleAdmin: {models.ContainerStatusPendingReview},
			},
			to:            models.ContainerStatusPending,
			needsComment:  true,
			auditAction:   models.AuditActionContainerReview,
			describeRoles: "admin",
		},
		ContainerRequestRework: {
			from: map[models.UserRole][]models.ContainerStatus{
				models.RoleAdmin: {models.ContainerStatusPendingReview},
				models.RoleHOD:   {models.ContainerStatusPendingReview, models.ContainerStatusPending},
			},
			to:            models.ContainerStatusReworkRequested,
			needsComment:  true,
			auditAction:   models.AuditActionContainerRework,
			describeRoles: "admin or hod",
		},
		ContainerResubmit: {
			from: map[models.UserRole][]models.ContainerStatus{
				models.RoleUser:  {models.ContainerStatusReworkRequested},
				models.RoleAdmin: {models.ContainerStatusReworkRequested},
				models.RoleHOD:   {models.ContainerStatusReworkRequested},
			},
			to:            models.ContainerStatusPendingReview,
			ownerOnly:     true,
			auditAction:   models.AuditActionContainerResubmit,
			describeRoles: "the original submitter",
		},
		ContainerApprove: {
			from:          map[models.UserRole][]models.ContainerStatus{models.RoleHOD: reviewable},
			to:            models.ContainerStatusApproved,
			needsComment:  true,
			auditAction:   models.AuditActionContainerApprove,
			describeRoles: "hod",
		},
		ContainerReject: {
			from:          map[models.UserRole][]models.ContainerStatus{models.RoleHOD: reviewable},
			to:            models.ContainerStatusRejected,
			needsComment:  true,
			auditAction:   models.AuditActionContainerReject,
			describeRoles: "hod",
		},
	}
)

// ContainerStep is a validated transition ready to be applied with a conditional write.
// From is the status the plan was made against; the write only succeeds while it still holds.
type ContainerStep struct {
	Action      ContainerAction
	From        models.ContainerStatus
	To          models.ContainerStatus
	AuditAction string
}

// InitialContainerStatus is the state every submission starts in.
func InitialContainerStatus() models.ContainerStatus {
	return models.ContainerStatusPendingReview
}

// PlanContainer checks the caller's capability, the current state and the comment,
// in that order, and returns the step to persist.
func PlanContainer(action ContainerAction, actor Actor, container *models.Container, comment string) (ContainerStep, error) {
	edge, ok := containerEdges[action]
	if !ok {
		return ContainerStep{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown container action %q", action))
	}
	allowed, ok := edge.from[actor.Role]
	if !ok {
		return ContainerStep{}, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%s requires role %s", action, edge.describeRoles))
	}
	if edge.ownerOnly && container.SubmitterID != actor.ID {
		return ContainerStep{}, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%s is limited to %s", action, edge.describeRoles))
	}
	if !containsStatus(allowed, container.Status) {
		return ContainerStep{}, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot %s container in status %s; %s may act on %s", action, container.Status, actor.Role, joinStatuses(allowed))).
			WithDetails(map[string]interface{}{
				"action":           action,
				"current_status":   container.Status,
				"allowed_statuses": allowed,
			})
	}
	if edge.needsComment {
		if err := ValidateComment(comment); err != nil {
			return ContainerStep{}, err
		}
	}
	return ContainerStep{
		Action:      action,
		From:        container.Status,
		To:          edge.to,
		AuditAction: edge.auditAction,
	}, nil
}

// DecisionAction maps an HOD decision keyword to its action.
func DecisionAction(decision string) (ContainerAction, error) {
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case "approve", "approved":
		return ContainerApprove, nil
	case "reject", "rejected":
		return ContainerReject, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "decision must be approve or reject")
}

// ValidateComment enforces the review comment minimum.
func ValidateComment(comment string) error {
	if utf8.RuneCountInString(strings.TrimSpace(comment)) < MinCommentLength {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("comment must be at least %d characters", MinCommentLength))
	}
	return nil
}

// ValidateReason enforces the deletion reason minimum.
func ValidateReason(reason string) error {
	if utf8.RuneCountInString(strings.TrimSpace(reason)) < MinReasonLength {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("reason must be at least %d characters", MinReasonLength))
	}
	return nil
}

func containsStatus(list []models.ContainerStatus, status models.ContainerStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

func joinStatuses(list []models.ContainerStatus) string {
	parts := make([]string, len(list))
	for i, s := range list {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// CheckDirectDelete allows only an HOD to remove a container outside the request workflow.
func CheckDirectDelete(actor Actor) error {
	if actor.Role != models.RoleHOD {
		return appErrors.Clone(appErrors.ErrForbidden, "deleting a container requires role hod")
	}
	return nil
}
