package dto

import "github.com/noah-isme/hazmat-api/internal/models"

// HazardPairInput declares the distance between two selected hazard classes.
type HazardPairInput struct {
	HazardClassAID string  `json:"hazard_class_a_id" validate:"required"`
	HazardClassBID string  `json:"hazard_class_b_id" validate:"required"`
	Distance       float64 `json:"distance" validate:"gte=0"`
}

// SubmitContainerRequest is the payload for submitting or resubmitting a container.
type SubmitContainerRequest struct {
	Department      string            `json:"department" validate:"required,max=120"`
	Location        string            `json:"location" validate:"required,max=120"`
	SubmittedBy     string            `json:"submitted_by" validate:"omitempty,max=120"`
	ContainerCode   string            `json:"container_code" validate:"required,max=64"`
	ContainerType   string            `json:"container_type" validate:"required,max=64"`
	SelectedHazards []string          `json:"selected_hazards" validate:"required,min=1,unique,dive,required"`
	HazardPairs     []HazardPairInput `json:"hazard_pairs" validate:"dive"`
}

// ReviewRequest carries the comment attached to an admin review or rework request.
type ReviewRequest struct {
	Comment string `json:"comment"`
}

// DecisionRequest carries an HOD decision.
type DecisionRequest struct {
	Decision string `json:"decision"`
	Comment  string `json:"comment"`
}

// ContainerQuery mirrors supported listing filters.
type ContainerQuery struct {
	Status     []models.ContainerStatus
	Department string
	Search     string
	Mine       bool
	Page       int
	PageSize   int
}

// ExportQuery selects the register export format.
type ExportQuery struct {
	Format string
	ContainerQuery
}
