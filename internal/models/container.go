package models

import (
	"time"

	"github.com/noah-isme/hazmat-api/internal/compatibility"
)

// ContainerStatus captures the approval lifecycle of a container.
type ContainerStatus string

const (
	ContainerStatusPendingReview   ContainerStatus = "pending_review"
	ContainerStatusPending         ContainerStatus = "pending"
	ContainerStatusReworkRequested ContainerStatus = "rework_requested"
	ContainerStatusApproved        ContainerStatus = "approved"
	ContainerStatusRejected        ContainerStatus = "rejected"
)

// Container is a submitted chemical storage unit with per-stage audit columns.
type Container struct {
	ID                string          `db:"id" json:"id"`
	Department        string          `db:"department" json:"department"`
	Location          string          `db:"location" json:"location"`
	SubmittedBy       string          `db:"submitted_by" json:"submitted_by"`
	SubmitterID       string          `db:"submitter_id" json:"submitter_id"`
	ContainerCode     string          `db:"container_code" json:"container_code"`
	ContainerType     string          `db:"container_type" json:"container_type"`
	Status            ContainerStatus `db:"status" json:"status"`
	SubmittedAt       time.Time       `db:"submitted_at" json:"submitted_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
	AdminReviewedBy   *string         `db:"admin_reviewed_by" json:"admin_reviewed_by,omitempty"`
	AdminReviewedAt   *time.Time      `db:"admin_reviewed_at" json:"admin_reviewed_at,omitempty"`
	AdminComment      *string         `db:"admin_comment" json:"admin_comment,omitempty"`
	ReworkRequestedBy *string         `db:"rework_requested_by" json:"rework_requested_by,omitempty"`
	ReworkRequestedAt *time.Time      `db:"rework_requested_at" json:"rework_requested_at,omitempty"`
	ReworkComment     *string         `db:"rework_comment" json:"rework_comment,omitempty"`
	HODDecidedBy      *string         `db:"hod_decided_by" json:"hod_decided_by,omitempty"`
	HODDecidedAt      *time.Time      `db:"hod_decided_at" json:"hod_decided_at,omitempty"`
	HODComment        *string         `db:"hod_comment" json:"hod_comment,omitempty"`
}

// ContainerHazard links a container to one selected hazard class.
type ContainerHazard struct {
	ContainerID   string                  `db:"container_id" json:"-"`
	HazardClassID string                  `db:"hazard_class_id" json:"hazard_class_id"`
	Code          compatibility.ClassCode `db:"code" json:"code"`
	Name          string                  `db:"name" json:"name"`
}

// HazardPair is a persisted pair assessment. A NULL min_required_distance means isolation.
type HazardPair struct {
	ID                  string                    `db:"id" json:"id"`
	ContainerID         string                    `db:"container_id" json:"-"`
	HazardClassAID      string                    `db:"hazard_class_a_id" json:"hazard_class_a_id"`
	HazardClassBID      string                    `db:"hazard_class_b_id" json:"hazard_class_b_id"`
	ClassACode          compatibility.ClassCode   `db:"class_a_code" json:"class_a_code"`
	ClassBCode          compatibility.ClassCode   `db:"class_b_code" json:"class_b_code"`
	Distance            float64                   `db:"distance" json:"distance"`
	IsIsolated          bool                      `db:"is_isolated" json:"is_isolated"`
	MinRequiredDistance compatibility.MinDistance `db:"min_required_distance" json:"min_required_distance"`
	Status              compatibility.Status      `db:"status" json:"status"`
	CreatedAt           time.Time                 `db:"created_at" json:"created_at"`
}

// ContainerDetail aggregates a container with its child records.
type ContainerDetail struct {
	Container
	Hazards     []ContainerHazard `json:"hazards"`
	Pairs       []HazardPair      `json:"hazard_pairs"`
	Attachments []Attachment      `json:"attachments,omitempty"`
}

// ContainerFilter constrains listing queries.
type ContainerFilter struct {
	Status      []ContainerStatus
	Department  string
	SubmitterID string
	Search      string
	Page        int
	PageSize    int
}

// ContainerTransition describes a status-conditional update of a container.
// From is the status the caller observed.
type ContainerTransition struct {
	ContainerID string
	From        ContainerStatus
	To          ContainerStatus
	ActorName   string
	Comment     string
	At          time.Time
}

// ContainerSummary is a flattened row for register exports.
type ContainerSummary struct {
	ID            string          `db:"id" json:"id"`
	ContainerCode string          `db:"container_code" json:"container_code"`
	Department    string          `db:"department" json:"department"`
	Location      string          `db:"location" json:"location"`
	SubmittedBy   string          `db:"submitted_by" json:"submitted_by"`
	Status        ContainerStatus `db:"status" json:"status"`
	PairCount     int             `db:"pair_count" json:"pair_count"`
	DangerCount   int             `db:"danger_count" json:"danger_count"`
	SubmittedAt   time.Time       `db:"submitted_at" json:"submitted_at"`
}
