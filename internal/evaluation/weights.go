package evaluation

import (
	"errors"
	"fmt"
	"math"
)

const (
	weightSumTolerance = 0.005
	driftEpsilon       = 1e-6
	defaultPeriodDays  = 7
)

// ErrUnknownWeight is returned when a weight key is not one of the four tracked weights.
var ErrUnknownWeight = errors.New("unknown weight key")

// ErrUnknownBand is returned when a band name is neither low nor medium.
var ErrUnknownBand = errors.New("unknown threshold band")

// WeightKey names one of the four blended score components.
type WeightKey string

const (
	KeyAccuracy   WeightKey = "accuracy"
	KeyTime       WeightKey = "time"
	KeyProgress   WeightKey = "progress"
	KeyMotivation WeightKey = "motivation"
)

// WeightKeys lists the tracked weights in display order.
var WeightKeys = []WeightKey{KeyAccuracy, KeyTime, KeyProgress, KeyMotivation}

// Band names a threshold pair used to classify a score into a tier.
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
)

// WeightConfig mirrors the configurable evaluation parameters held by the admin panel.
//
// The four weights always sum to 1 and each band keeps min <= max. The bands are
// not validated against each other: a medium band may overlap or sit inside the low band.
type WeightConfig struct {
	Alpha            float64 `json:"engagement_weight_alpha"`
	WeightAccuracy   float64 `json:"weight_accuracy"`
	WeightTime       float64 `json:"weight_time"`
	WeightProgress   float64 `json:"weight_progress"`
	WeightMotivation float64 `json:"weight_motivation"`
	LowMin           float64 `json:"min_threshold_low"`
	LowMax           float64 `json:"max_threshold_low"`
	MedMin           float64 `json:"min_threshold_medium"`
	MedMax           float64 `json:"max_threshold_medium"`
	PeriodDays       int     `json:"evaluation_period_days"`
}

// DefaultWeightConfig returns the values used until the remote configuration is loaded.
func DefaultWeightConfig() WeightConfig {
	return WeightConfig{
		Alpha:            0.667,
		WeightAccuracy:   0.3,
		WeightTime:       0.2,
		WeightProgress:   0.3,
		WeightMotivation: 0.2,
		LowMin:           0.3,
		LowMax:           0.7,
		MedMin:           0.4,
		MedMax:           0.8,
		PeriodDays:       defaultPeriodDays,
	}
}

// ParseWeightKey converts user input into a WeightKey.
func ParseWeightKey(raw string) (WeightKey, error) {
	for _, key := range WeightKeys {
		if string(key) == raw {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWeight, raw)
}

// ParseBand converts user input into a Band.
func ParseBand(raw string) (Band, error) {
	switch Band(raw) {
	case BandLow, BandMedium:
		return Band(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBand, raw)
}

// Weight returns the current value of a single weight.
func (c WeightConfig) Weight(key WeightKey) (float64, error) {
	refs := c.weightRefs()
	idx := indexOfWeight(key)
	if idx < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownWeight, key)
	}
	return *refs[idx], nil
}

// Sum returns the total of the four weights.
func (c WeightConfig) Sum() float64 {
	return c.WeightAccuracy + c.WeightTime + c.WeightProgress + c.WeightMotivation
}

// SetWeight sets one weight and rescales the other three so the total stays 1.
//
// The value is clamped to [0,1]. When the other weights are all zero the remainder is
// split equally between them. Rounding drift is added to the largest of the others.
func (c WeightConfig) SetWeight(key WeightKey, value float64) (WeightConfig, error) {
	idx := indexOfWeight(key)
	if idx < 0 {
		return c, fmt.Errorf("%w: %q", ErrUnknownWeight, key)
	}

	refs := c.weightRefs()
	target := clamp01(value)
	*refs[idx] = target

	others := make([]*float64, 0, len(refs)-1)
	for i, ref := range refs {
		if i != idx {
			others = append(others, ref)
		}
	}

	rest := 1 - target
	sumOthers := 0.0
	for _, ref := range others {
		sumOthers += *ref
	}

	if sumOthers <= 0 {
		share := rest / float64(len(others))
		for _, ref := range others {
			*ref = share
		}
	} else {
		for _, ref := range others {
			*ref = (*ref / sumOthers) * rest
		}
	}

	if diff := 1 - c.Sum(); math.Abs(diff) > driftEpsilon {
		best := others[0]
		for _, ref := range others[1:] {
			if *ref > *best {
				best = ref
			}
		}
		*best = clamp01(*best + diff)
	}

	return c, nil
}

// SetAlpha sets the engagement blend factor. It is independent of the weights.
func (c WeightConfig) SetAlpha(value float64) WeightConfig {
	c.Alpha = clamp01(value)
	return c
}

// SetBand stores a threshold pair, clamping both bounds and swapping them when reversed.
func (c WeightConfig) SetBand(band Band, minValue, maxValue float64) (WeightConfig, error) {
	lo, hi := clamp01(minValue), clamp01(maxValue)
	if lo > hi {
		lo, hi = hi, lo
	}

	switch band {
	case BandLow:
		c.LowMin, c.LowMax = lo, hi
	case BandMedium:
		c.MedMin, c.MedMax = lo, hi
	default:
		return c, fmt.Errorf("%w: %q", ErrUnknownBand, band)
	}
	return c, nil
}

// BandRange returns the bounds of a band.
func (c WeightConfig) BandRange(band Band) (float64, float64, error) {
	switch band {
	case BandLow:
		return c.LowMin, c.LowMax, nil
	case BandMedium:
		return c.MedMin, c.MedMax, nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrUnknownBand, band)
}

// SetPeriodDays sets the evaluation window length in days. Values below one become one.
func (c WeightConfig) SetPeriodDays(days int) WeightConfig {
	if days < 1 {
		days = 1
	}
	c.PeriodDays = days
	return c
}

// Merge overlays every field present in the patch and keeps the current value for the rest.
//
// Remote values are clamped, reversed bands are swapped, and weights that no longer sum
// to 1 are rescaled so the invariants hold after a load.
func (c WeightConfig) Merge(patch ConfigPatch) WeightConfig {
	overlay := func(dst *float64, src Number) {
		if v, ok := src.Float(); ok {
			*dst = clamp01(v)
		}
	}

	overlay(&c.Alpha, patch.Alpha)
	overlay(&c.WeightAccuracy, patch.WeightAccuracy)
	overlay(&c.WeightTime, patch.WeightTime)
	overlay(&c.WeightProgress, patch.WeightProgress)
	overlay(&c.WeightMotivation, patch.WeightMotivation)
	overlay(&c.LowMin, patch.LowMin)
	overlay(&c.LowMax, patch.LowMax)
	overlay(&c.MedMin, patch.MedMin)
	overlay(&c.MedMax, patch.MedMax)

	if days, ok := patch.PeriodDays.Float(); ok && days >= 1 {
		c.PeriodDays = int(math.Round(days))
	}

	if c.LowMin > c.LowMax {
		c.LowMin, c.LowMax = c.LowMax, c.LowMin
	}
	if c.MedMin > c.MedMax {
		c.MedMin, c.MedMax = c.MedMax, c.MedMin
	}

	return c.normalized()
}

// Rounded returns a copy with every ratio rounded to 2 decimals, ready to be saved.
// Rounding drift is moved onto the largest weight so the rounded weights still sum to 1.
func (c WeightConfig) Rounded() WeightConfig {
	c.Alpha = round2(c.Alpha)
	c.LowMin, c.LowMax = round2(c.LowMin), round2(c.LowMax)
	c.MedMin, c.MedMax = round2(c.MedMin), round2(c.MedMax)

	refs := c.weightRefs()
	for _, ref := range refs {
		*ref = round2(*ref)
	}
	if diff := round2(1 - c.Sum()); diff != 0 {
		best := refs[0]
		for _, ref := range refs[1:] {
			if *ref > *best {
				best = ref
			}
		}
		*best = round2(clamp01(*best + diff))
	}
	return c
}

// Validate reports a broken invariant, if any.
func (c WeightConfig) Validate() error {
	values := []float64{c.Alpha, c.LowMin, c.LowMax, c.MedMin, c.MedMax}
	for _, ref := range c.weightRefs() {
		values = append(values, *ref)
	}
	for _, v := range values {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("value %v outside [0,1]", v)
		}
	}
	if sum := c.Sum(); math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("weights must sum to 1, got %.3f", sum)
	}
	if c.LowMin > c.LowMax {
		return fmt.Errorf("low band min %.2f exceeds max %.2f", c.LowMin, c.LowMax)
	}
	if c.MedMin > c.MedMax {
		return fmt.Errorf("medium band min %.2f exceeds max %.2f", c.MedMin, c.MedMax)
	}
	return nil
}

func (c WeightConfig) normalized() WeightConfig {
	sum := c.Sum()
	if math.Abs(sum-1) <= driftEpsilon {
		return c
	}

	refs := c.weightRefs()
	if sum <= 0 {
		for _, ref := range refs {
			*ref = 1 / float64(len(refs))
		}
		return c
	}
	for _, ref := range refs {
		*ref /= sum
	}
	return c
}

func (c *WeightConfig) weightRefs() []*float64 {
	return []*float64{&c.WeightAccuracy, &c.WeightTime, &c.WeightProgress, &c.WeightMotivation}
}

func indexOfWeight(key WeightKey) int {
	for i, k := range WeightKeys {
		if k == key {
			return i
		}
	}
	return -1
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Min(1, math.Max(0, x))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
