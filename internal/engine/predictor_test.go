package engine

import (
	"math"
	"testing"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

func sampleFeatures() domain.FeatureVector {
	return domain.FeatureVector{
		AvgBrightness: 90,
		AvgContrast:   85,
		MotionLevel:   80,
		ColorVariance: 75,
		TextCoverage:  25,
		HookStrength:  0.9,
		ContentLength: 150,
		Duration:      10,
		ToneScore:     85,
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	t.Parallel()
	weights := domain.DefaultWeights()
	first := Predict(sampleFeatures(), weights)
	for i := 0; i < 50; i++ {
		next := Predict(sampleFeatures(), weights)
		if math.Float64bits(next.Score) != math.Float64bits(first.Score) {
			t.Fatalf("score changed between identical calls: %v vs %v", first.Score, next.Score)
		}
		if next.Confidence != first.Confidence {
			t.Fatalf("confidence changed between identical calls")
		}
	}
	if got := Score(sampleFeatures(), weights); math.Float64bits(got) != math.Float64bits(first.Score) {
		t.Fatalf("Score and Predict disagree: %v vs %v", got, first.Score)
	}
}

func TestPredictIsMonotonicInHookStrength(t *testing.T) {
	t.Parallel()
	weights := domain.DefaultWeights()
	strong := sampleFeatures()
	weak := sampleFeatures()
	weak.HookStrength = 0.1

	strongScore := Predict(strong, weights).Score
	weakScore := Predict(weak, weights).Score
	if !(strongScore > weakScore) {
		t.Fatalf("expected hookStrength 0.9 to outscore 0.1, got %v <= %v", strongScore, weakScore)
	}
}

func TestPredictScoreBoundsAndConfidence(t *testing.T) {
	t.Parallel()
	weights := domain.DefaultWeights()

	empty := Predict(domain.FeatureVector{}, weights)
	if empty.Score != 50 {
		t.Fatalf("expected all-zero features to score sigmoid(0)*100 = 50, got %v", empty.Score)
	}
	if empty.Confidence != 0.2 {
		t.Fatalf("expected base confidence 0.2 for empty features, got %v", empty.Confidence)
	}

	full := Predict(sampleFeatures(), weights)
	if math.Abs(full.Confidence-1.0) > 1e-12 {
		t.Fatalf("expected full coverage confidence 1.0, got %v", full.Confidence)
	}
	if full.Score < 0 || full.Score > 100 {
		t.Fatalf("score out of range: %v", full.Score)
	}

	sum := 0.0
	for _, c := range full.Contributions {
		sum += c.Contribution
	}
	if want := 100 / (1 + math.Exp(-sum)); math.Abs(full.Score-want) > 1e-9 {
		t.Fatalf("score %v does not match contributions sum %v", full.Score, want)
	}
	if len(full.Contributions) != len(domain.FeatureNames) {
		t.Fatalf("expected a contribution per feature, got %d", len(full.Contributions))
	}
}

func TestPredictIgnoresFeaturesWithoutWeight(t *testing.T) {
	t.Parallel()
	weights := domain.WeightVector{domain.FeatureHookStrength: 1}
	a := sampleFeatures()
	b := sampleFeatures()
	b.AvgBrightness = 0
	b.Duration = 0
	if Predict(a, weights).Score != Predict(b, weights).Score {
		t.Fatalf("unweighted features must not change the score")
	}
}
