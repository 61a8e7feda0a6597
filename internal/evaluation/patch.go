package evaluation

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a lenient optional JSON number.
//
// It accepts JSON numbers and numeric strings. Null, missing, non-numeric and
// non-finite values leave it unset instead of failing the surrounding decode.
type Number struct {
	value float64
	set   bool
}

// NumberOf returns a set Number.
func NumberOf(v float64) Number {
	return Number{value: v, set: true}
}

// Float returns the value and whether it was present and numeric.
func (n Number) Float() (float64, bool) {
	return n.value, n.set
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	raw := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	n.value = v
	n.set = true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.set {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

// ConfigPatch is the remote configuration document. Every field is optional.
type ConfigPatch struct {
	Alpha            Number `json:"engagement_weight_alpha"`
	WeightAccuracy   Number `json:"weight_accuracy"`
	WeightTime       Number `json:"weight_time"`
	WeightProgress   Number `json:"weight_progress"`
	WeightMotivation Number `json:"weight_motivation"`
	LowMin           Number `json:"min_threshold_low"`
	LowMax           Number `json:"max_threshold_low"`
	MedMin           Number `json:"min_threshold_medium"`
	MedMax           Number `json:"max_threshold_medium"`
	PeriodDays       Number `json:"evaluation_period_days"`
}
