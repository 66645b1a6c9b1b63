package engine

import (
	"math"
	"testing"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

func TestNormalizeClampsEveryFieldIntoUnitRange(t *testing.T) {
	t.Parallel()
	inputs := []float64{-1e9, -50, -0.0001, 0, 0.5, 1, 12, 30, 99.9, 100, 250, 500, 501, 1e12, math.Inf(1), math.Inf(-1), math.NaN()}
	for _, name := range domain.FeatureNames {
		for _, in := range inputs {
			var raw domain.FeatureVector
			raw.Set(name, in)
			got := Normalize(raw).Get(name)
			if got < 0 || got > 1 || math.IsNaN(got) {
				t.Fatalf("normalize %s=%v produced %v, want value in [0,1]", name, in, got)
			}
		}
	}
}

func TestNormalizeUsesDocumentedCeilings(t *testing.T) {
	t.Parallel()
	raw := domain.FeatureVector{
		AvgBrightness: 90,
		HookStrength:  0.4,
		ContentLength: 150,
		Duration:      45,
		TextCoverage:  -10,
	}
	got := Normalize(raw)
	checks := map[domain.FeatureName]float64{
		domain.FeatureAvgBrightness: 0.9,
		domain.FeatureHookStrength:  0.4,
		domain.FeatureContentLength: 0.3,
		domain.FeatureDuration:      1,
		domain.FeatureTextCoverage:  0,
	}
	for name, want := range checks {
		if math.Abs(got.Get(name)-want) > 1e-12 {
			t.Fatalf("normalized %s = %v, want %v", name, got.Get(name), want)
		}
	}
}

func TestFeatureVectorFromMapDefaultsMissingAndNonFinite(t *testing.T) {
	t.Parallel()
	fv := domain.FeatureVectorFromMap(map[string]float64{
		"hookStrength": 0.7,
		"duration":     math.NaN(),
		"unknownThing": 42,
	})
	if fv.HookStrength != 0.7 {
		t.Fatalf("expected hookStrength to be copied, got %v", fv.HookStrength)
	}
	if fv.Duration != 0 {
		t.Fatalf("expected NaN duration to default to 0, got %v", fv.Duration)
	}
	if fv.AvgBrightness != 0 {
		t.Fatalf("expected missing avgBrightness to default to 0, got %v", fv.AvgBrightness)
	}
}
