package dto

import "github.com/noah-isme/hazmat-api/internal/models"

// CreateDeletionRequest asks for a container to be removed.
type CreateDeletionRequest struct {
	Reason string `json:"reason"`
}

// DeletionReviewRequest is the admin recommendation.
type DeletionReviewRequest struct {
	Recommendation string `json:"recommendation"`
	Comment        string `json:"comment"`
}

// DeletionQuery mirrors supported listing filters.
type DeletionQuery struct {
	Status      []models.DeletionStatus
	ContainerID string
	Page        int
	PageSize    int
}
