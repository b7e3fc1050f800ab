package models

import (
	"time"

	"github.com/noah-isme/hazmat-api/internal/compatibility"
)

// HazardClass is a seeded DOT hazard class row.
type HazardClass struct {
	ID          string                  `db:"id" json:"id"`
	Code        compatibility.ClassCode `db:"code" json:"code"`
	Name        string                  `db:"name" json:"name"`
	Description string                  `db:"description" json:"description"`
	LogoPath    string                  `db:"logo_path" json:"logo_path"`
	CreatedAt   time.Time               `db:"created_at" json:"created_at"`
}

// PairAssessment is the engine verdict returned by the stateless preview.
type PairAssessment struct {
	HazardClassA        HazardClass               `json:"hazard_class_a"`
	HazardClassB        HazardClass               `json:"hazard_class_b"`
	Distance            float64                   `json:"distance"`
	Status              compatibility.Status      `json:"status"`
	IsIsolated          bool                      `json:"is_isolated"`
	MinRequiredDistance compatibility.MinDistance `json:"min_required_distance"`
	Action              compatibility.Action      `json:"action"`
	Defaulted           bool                      `json:"defaulted"`
}
