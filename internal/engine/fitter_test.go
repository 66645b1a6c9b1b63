package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

// correlatedSamples returns n samples where hookStrength rises with
// engagement, motionLevel falls with it and every other feature is flat.
func correlatedSamples(n int) []domain.TrainingSample {
	out := make([]domain.TrainingSample, 0, n)
	for i := 0; i < n; i++ {
		fv := domain.FeatureVector{
			AvgBrightness: 50,
			AvgContrast:   50,
			MotionLevel:   100 - float64(i)*10,
			ColorVariance: 50,
			TextCoverage:  20,
			HookStrength:  float64(i) / 10,
			ContentLength: 120,
			Duration:      10,
			ToneScore:     60,
		}
		out = append(out, domain.TrainingSample{Features: fv, ObservedEngagement: 40 + float64(i)*5})
	}
	return out
}

func TestFitRequiresTenSamples(t *testing.T) {
	t.Parallel()
	_, err := Fit(correlatedSamples(9), domain.DefaultWeights())
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for 9 samples, got %v", err)
	}
	if _, err := Fit(correlatedSamples(10), domain.DefaultWeights()); err != nil {
		t.Fatalf("expected 10 samples to fit, got %v", err)
	}
	if _, err := Fit(nil, domain.DefaultWeights()); !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for empty batch, got %v", err)
	}
}

func TestFitWeightsSumToOneAndUseCorrelationStrength(t *testing.T) {
	t.Parallel()
	res, err := Fit(correlatedSamples(10), domain.DefaultWeights())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if res.Degenerate {
		t.Fatalf("did not expect degenerate fallback")
	}
	if math.Abs(res.Weights.Sum()-1) > domain.WeightTolerance {
		t.Fatalf("weights sum to %v, want 1", res.Weights.Sum())
	}
	if err := res.Weights.Validate(); err != nil {
		t.Fatalf("fitted weights invalid: %v", err)
	}

	want := domain.WeightVector{
		domain.FeatureAvgBrightness: 0,
		domain.FeatureAvgContrast:   0,
		domain.FeatureMotionLevel:   0.5,
		domain.FeatureColorVariance: 0,
		domain.FeatureTextCoverage:  0,
		domain.FeatureHookStrength:  0.5,
		domain.FeatureContentLength: 0,
		domain.FeatureDuration:      0,
		domain.FeatureToneScore:     0,
	}
	if diff := cmp.Diff(want, res.Weights, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("unexpected weights (-want +got):\n%s", diff)
	}
	if res.Correlations[domain.FeatureMotionLevel] >= 0 {
		t.Fatalf("expected raw motion correlation to stay negative, got %v", res.Correlations[domain.FeatureMotionLevel])
	}
}

func TestFitDegenerateBatchReturnsPreviousWeights(t *testing.T) {
	t.Parallel()
	sample := domain.TrainingSample{
		Features: domain.FeatureVector{
			AvgBrightness: 90, AvgContrast: 85, MotionLevel: 80, ColorVariance: 75, TextCoverage: 25,
			HookStrength: 0.9, ContentLength: 150, Duration: 10, ToneScore: 85,
		},
		ObservedEngagement: 64,
	}
	samples := make([]domain.TrainingSample, 10)
	for i := range samples {
		samples[i] = sample
	}
	previous := domain.WeightVector{
		domain.FeatureHookStrength: 0.6,
		domain.FeatureToneScore:    0.4,
	}

	res, err := Fit(samples, previous)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if !res.Degenerate {
		t.Fatalf("expected degenerate fallback for zero-variance batch")
	}
	if diff := cmp.Diff(previous, res.Weights); diff != "" {
		t.Fatalf("expected previous weights unchanged (-want +got):\n%s", diff)
	}
	for name, w := range res.Weights {
		if math.IsNaN(w) {
			t.Fatalf("weight for %s is NaN", name)
		}
	}
	res.Weights[domain.FeatureHookStrength] = 0
	if previous[domain.FeatureHookStrength] != 0.6 {
		t.Fatalf("fallback must not alias the previous vector")
	}
}

func TestFitFlatEngagementIsDegenerate(t *testing.T) {
	t.Parallel()
	samples := correlatedSamples(12)
	for i := range samples {
		samples[i].ObservedEngagement = 55
	}
	res, err := Fit(samples, domain.DefaultWeights())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if !res.Degenerate {
		t.Fatalf("expected flat engagement to be degenerate")
	}
}

func TestPearson(t *testing.T) {
	t.Parallel()
	r, ok := pearson([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8})
	if !ok || math.Abs(r-1) > 1e-12 {
		t.Fatalf("expected perfect correlation, got r=%v ok=%v", r, ok)
	}
	r, ok = pearson([]float64{1, 2, 3, 4}, []float64{8, 6, 4, 2})
	if !ok || math.Abs(r+1) > 1e-12 {
		t.Fatalf("expected perfect negative correlation, got r=%v ok=%v", r, ok)
	}
	if _, ok := pearson([]float64{0.9, 0.9, 0.9}, []float64{1, 2, 3}); ok {
		t.Fatalf("expected constant series to be undefined")
	}
}
