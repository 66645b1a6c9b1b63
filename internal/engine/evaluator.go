package engine

import (
	"math"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

// CorrectWithin is the absolute error, in score points, under which a
// prediction counts as correct.
const CorrectWithin = 20.0

// Evaluate measures how well weights reproduce the observed engagement of the
// batch. It only describes; deciding whether the numbers are good enough is
// left to the caller.
func Evaluate(samples []domain.TrainingSample, weights domain.WeightVector) domain.Performance {
	if len(samples) == 0 {
		return domain.Performance{}
	}
	correct := 0
	totalError := 0.0
	for _, sample := range samples {
		diff := math.Abs(Score(sample.Features, weights) - sample.ObservedEngagement)
		totalError += diff
		if diff <= CorrectWithin {
			correct++
		}
	}
	n := float64(len(samples))
	return domain.Performance{
		Accuracy:    float64(correct) / n,
		MeanError:   totalError / n,
		SampleCount: len(samples),
	}
}
