package domain

import (
	"fmt"
	"math"
	"sort"
)

// WeightTolerance bounds how far a fitted weight vector may drift from a
// total of 1.0.
const WeightTolerance = 1e-6

// WeightVector maps each feature to its non-negative importance. Once a
// vector is published as part of a model it must not be modified; use Clone
// to derive a new one.
type WeightVector map[FeatureName]float64

// DefaultWeights is the distribution served before any model is adopted.
func DefaultWeights() WeightVector {
	return WeightVector{
		FeatureHookStrength:  0.20,
		FeatureMotionLevel:   0.15,
		FeatureToneScore:     0.15,
		FeatureAvgBrightness: 0.10,
		FeatureAvgContrast:   0.10,
		FeatureColorVariance: 0.10,
		FeatureDuration:      0.10,
		FeatureTextCoverage:  0.05,
		FeatureContentLength: 0.05,
	}
}

func (w WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

func (w WeightVector) Sum() float64 {
	total := 0.0
	for _, name := range FeatureNames {
		total += w[name]
	}
	return total
}

func (w WeightVector) Validate() error {
	for name, v := range w {
		if !IsKnownFeature(name) {
			return fmt.Errorf("%w: unknown feature %q", ErrInvalidInput, name)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: weight for %s is %v", ErrInvalidInput, name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("%w: weights sum to %.6f, must sum to 1.0", ErrInvalidInput, sum)
	}
	return nil
}

type RankedWeight struct {
	Feature FeatureName `json:"feature"`
	Weight  float64     `json:"weight"`
}

// Ranked returns the weights ordered by weight descending, ties broken by
// feature name.
func (w WeightVector) Ranked() []RankedWeight {
	out := make([]RankedWeight, 0, len(w))
	for _, name := range FeatureNames {
		if v, ok := w[name]; ok {
			out = append(out, RankedWeight{Feature: name, Weight: v})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight == out[j].Weight {
			return out[i].Feature < out[j].Feature
		}
		return out[i].Weight > out[j].Weight
	})
	return out
}

func (w WeightVector) ToMap() map[string]float64 {
	out := make(map[string]float64, len(w))
	for k, v := range w {
		out[string(k)] = v
	}
	return out
}

func WeightVectorFromMap(raw map[string]float64) WeightVector {
	out := make(WeightVector, len(raw))
	for k, v := range raw {
		out[FeatureName(k)] = v
	}
	return out
}
