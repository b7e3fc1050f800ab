package dto

// PreviewPairRequest evaluates a pair without persisting it.
type PreviewPairRequest struct {
	HazardClassAID string  `json:"hazard_class_a_id" validate:"required"`
	HazardClassBID string  `json:"hazard_class_b_id" validate:"required"`
	Distance       float64 `json:"distance" validate:"gte=0"`
}
