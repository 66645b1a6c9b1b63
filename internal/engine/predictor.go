package engine

import (
	"math"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

const (
	baseConfidence     = 0.2
	coverageConfidence = 0.8
)

// Predict scores a raw feature vector with the given weights. Features with no
// weight contribute nothing. The result depends only on its inputs.
func Predict(raw domain.FeatureVector, weights domain.WeightVector) domain.PredictionResult {
	normalized := Normalize(raw)
	contributions := make([]domain.FeatureContribution, 0, len(domain.FeatureNames))
	sum := 0.0
	nonZero := 0
	for _, name := range domain.FeatureNames {
		value := normalized.Get(name)
		weight := weights[name]
		contribution := value * weight
		sum += contribution
		if value != 0 {
			nonZero++
		}
		contributions = append(contributions, domain.FeatureContribution{
			Feature:         name,
			NormalizedValue: value,
			Weight:          weight,
			Contribution:    contribution,
		})
	}
	coverage := float64(nonZero) / float64(len(domain.FeatureNames))
	return domain.PredictionResult{
		Score:         scoreFromSum(sum),
		Confidence:    baseConfidence + coverageConfidence*coverage,
		Contributions: contributions,
	}
}

// Score is Predict without the breakdown, used on hot evaluation loops.
func Score(raw domain.FeatureVector, weights domain.WeightVector) float64 {
	normalized := Normalize(raw)
	sum := 0.0
	for _, name := range domain.FeatureNames {
		sum += normalized.Get(name) * weights[name]
	}
	return scoreFromSum(sum)
}

func scoreFromSum(sum float64) float64 {
	return sigmoid(sum) * 100
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
