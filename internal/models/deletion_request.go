package models

import "time"

// DeletionStatus captures the deletion request lifecycle.
type DeletionStatus string

const (
	DeletionStatusPending       DeletionStatus = "pending"
	DeletionStatusAdminReviewed DeletionStatus = "admin_reviewed"
	DeletionStatusApproved      DeletionStatus = "approved"
	DeletionStatusRejected      DeletionStatus = "rejected"
)

// OpenDeletionStatuses are the undecided states. While a request is in one of them the
// container cannot be deleted directly.
var OpenDeletionStatuses = []DeletionStatus{DeletionStatusPending, DeletionStatusAdminReviewed}

// Recommendation is the admin's advice attached to a deletion request.
type Recommendation string

const (
	RecommendApprove Recommendation = "approve"
	RecommendReject  Recommendation = "reject"
)

// DeletionRequest asks for a container to be removed. ContainerID is kept after the container is deleted.
type DeletionRequest struct {
	ID                  string          `db:"id" json:"id"`
	ContainerID         string          `db:"container_id" json:"container_id"`
	ContainerCode       string          `db:"container_code" json:"container_code"`
	RequestedBy         string          `db:"requested_by" json:"requested_by"`
	RequesterName       string          `db:"requester_name" json:"requester_name"`
	Reason              string          `db:"reason" json:"reason"`
	Status              DeletionStatus  `db:"status" json:"status"`
	AdminRecommendation *Recommendation `db:"admin_recommendation" json:"admin_recommendation,omitempty"`
	AdminComment        *string         `db:"admin_comment" json:"admin_comment,omitempty"`
	AdminReviewedBy     *string         `db:"admin_reviewed_by" json:"admin_reviewed_by,omitempty"`
	AdminReviewedAt     *time.Time      `db:"admin_reviewed_at" json:"admin_reviewed_at,omitempty"`
	HODComment          *string         `db:"hod_comment" json:"hod_comment,omitempty"`
	HODDecidedBy        *string         `db:"hod_decided_by" json:"hod_decided_by,omitempty"`
	HODDecidedAt        *time.Time      `db:"hod_decided_at" json:"hod_decided_at,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}

// DeletionRequestFilter constrains listing queries.
type DeletionRequestFilter struct {
	Status      []DeletionStatus
	ContainerID string
	RequestedBy string
	Page        int
	PageSize    int
}

// DeletionTransition describes a status-conditional update of a deletion request.
type DeletionTransition struct {
	RequestID      string
	From           DeletionStatus
	To             DeletionStatus
	ActorName      string
	Comment        string
	Recommendation *Recommendation
	At             time.Time
}
