// Package engine holds the pure scoring and fitting math for engagement
// prediction. Nothing here blocks or touches storage, so every function is
// safe to call from any goroutine.
package engine

import (
	"math"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

// Normalize maps a raw vector onto [0,1] per feature. Values outside the
// feature's range saturate instead of failing.
func Normalize(raw domain.FeatureVector) domain.FeatureVector {
	var out domain.FeatureVector
	for _, name := range domain.FeatureNames {
		out.Set(name, normalizeValue(name, raw.Get(name)))
	}
	return out
}

func normalizeValue(name domain.FeatureName, value float64) float64 {
	ceiling := domain.FeatureCeilings[name]
	if ceiling <= 0 || math.IsNaN(value) {
		return 0
	}
	return clamp(value, 0, ceiling) / ceiling
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
