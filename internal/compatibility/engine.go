// Package compatibility decides whether two hazard classes may be stored at a
// declared separation distance.
package compatibility

import (
	"errors"
	"fmt"
	"math"
)

// Status is the compliance verdict for a declared distance.
type Status string

const (
	StatusSafe    Status = "safe"
	StatusCaution Status = "caution"
	StatusDanger  Status = "danger"
)

// CautionRatio is the share of the required distance below which a pair is in danger.
const CautionRatio = 0.6

var (
	// ErrUnknownClass is returned when a class code is outside the vocabulary.
	ErrUnknownClass = errors.New("unknown hazard class")
	// ErrInvalidDistance is returned for negative or non-finite distances.
	ErrInvalidDistance = errors.New("invalid distance")
)

// Assessment is the outcome of evaluating one pair.
type Assessment struct {
	Status              Status      `json:"status"`
	Isolated            bool        `json:"is_isolated"`
	MinRequiredDistance MinDistance `json:"min_required_distance"`
	Action              Action      `json:"action"`
	// Defaulted is set when the pair had no table entry and DefaultAction applied.
	Defaulted bool `json:"defaulted"`
}

// Engine evaluates pairs against a table.
type Engine struct {
	table *Table
}

// NewEngine returns an engine over table, or the canonical table when nil.
func NewEngine(table *Table) *Engine {
	if table == nil {
		table = DefaultTable()
	}
	return &Engine{table: table}
}

// Evaluate maps two class codes and a distance in meters to a verdict.
func (e *Engine) Evaluate(a, b ClassCode, distance float64) (Assessment, error) {
	for _, code := range []ClassCode{a, b} {
		if !IsKnown(code) {
			return Assessment{}, fmt.Errorf("%w: %q", ErrUnknownClass, code)
		}
	}
	if distance < 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
		return Assessment{}, fmt.Errorf("%w: %v", ErrInvalidDistance, distance)
	}

	action, found := e.table.Lookup(a, b)
	if !found {
		action = DefaultAction
	}
	result := Assessment{Action: action, Defaulted: !found}

	switch action {
	case ActionOKTogether:
		result.Status = StatusSafe
		result.MinRequiredDistance = Meters(0)
	case ActionIsolate:
		result.Status = StatusDanger
		result.Isolated = true
		result.MinRequiredDistance = Unbounded()
	case ActionMayNotCompatible:
		if a == b {
			result.Status = StatusSafe
			result.MinRequiredDistance = Meters(0)
			break
		}
		result.Status, result.MinRequiredDistance = banded(distance, 3)
	case ActionSegregate5M:
		result.Status, result.MinRequiredDistance = banded(distance, 5)
	default:
		result.Status, result.MinRequiredDistance = banded(distance, 3)
	}
	return result, nil
}

func banded(distance, required float64) (Status, MinDistance) {
	switch {
	case distance >= required:
		return StatusSafe, Meters(required)
	case distance >= required*CautionRatio:
		return StatusCaution, Meters(required)
	default:
		return StatusDanger, Meters(required)
	}
}

// Evaluate runs the canonical engine.
func Evaluate(a, b ClassCode, distance float64) (Assessment, error) {
	return defaultEngine.Evaluate(a, b, distance)
}

var defaultEngine = NewEngine(nil)
