package compatibility

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrDistanceUnset is returned when a MinDistance that was never assigned reaches an encoder.
var ErrDistanceUnset = errors.New("min distance not set")

type distanceKind uint8

const (
	distanceUnset distanceKind = iota
	distanceMeters
	distanceUnbounded
)

// MinDistance is a minimum separation in meters that may be unbounded.
// The zero value is unset and refuses to encode. Unbounded values encode as
// JSON null and SQL NULL.
type MinDistance struct {
	meters float64
	kind   distanceKind
}

// Meters returns a bounded minimum distance.
func Meters(m float64) MinDistance {
	return MinDistance{meters: m, kind: distanceMeters}
}

// Unbounded returns the sentinel for pairs that no finite distance satisfies.
func Unbounded() MinDistance {
	return MinDistance{kind: distanceUnbounded}
}

// IsSet reports whether the distance was assigned.
func (d MinDistance) IsSet() bool {
	return d.kind != distanceUnset
}

// IsUnbounded reports whether no finite distance suffices.
func (d MinDistance) IsUnbounded() bool {
	return d.kind == distanceUnbounded
}

// Meters returns the distance in meters; ok is false when unbounded or unset.
func (d MinDistance) Meters() (m float64, ok bool) {
	return d.meters, d.kind == distanceMeters
}

// String renders the distance for logs and documents.
func (d MinDistance) String() string {
	switch d.kind {
	case distanceUnset:
		return "unset"
	case distanceUnbounded:
		return "unbounded"
	}
	return strconv.FormatFloat(d.meters, 'f', -1, 64) + " m"
}

// MarshalJSON implements json.Marshaler.
func (d MinDistance) MarshalJSON() ([]byte, error) {
	switch d.kind {
	case distanceUnset:
		return nil, ErrDistanceUnset
	case distanceUnbounded:
		return []byte("null"), nil
	}
	return json.Marshal(d.meters)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *MinDistance) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Unbounded()
		return nil
	}
	var m float64
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("min distance: %w", err)
	}
	*d = Meters(m)
	return nil
}

// Value implements driver.Valuer.
func (d MinDistance) Value() (driver.Value, error) {
	switch d.kind {
	case distanceUnset:
		return nil, ErrDistanceUnset
	case distanceUnbounded:
		return nil, nil
	}
	return d.meters, nil
}

// Scan implements sql.Scanner.
func (d *MinDistance) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Unbounded()
	case float64:
		*d = Meters(v)
	case float32:
		*d = Meters(float64(v))
	case int64:
		*d = Meters(float64(v))
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("min distance: unsupported type %T", src)
	}
	return nil
}

func (d *MinDistance) scanString(raw string) error {
	m, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(m, 0) || math.IsNaN(m) {
		return fmt.Errorf("min distance: invalid value %q", raw)
	}
	*d = Meters(m)
	return nil
}
