package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

type FitResult struct {
	Weights      domain.WeightVector
	Correlations map[domain.FeatureName]float64
	// Degenerate is set when every raw weight was zero and Weights is the
	// previous vector returned unchanged.
	Degenerate bool
}

// Fit derives a weight vector from observed outcomes. Each feature's weight is
// the absolute Pearson correlation between its normalized values and the
// observed engagement, scaled so all weights sum to 1. The sign of the
// correlation is dropped on purpose: only strength feeds the score.
func Fit(samples []domain.TrainingSample, previous domain.WeightVector) (FitResult, error) {
	if len(samples) < domain.MinTrainingSamples {
		return FitResult{}, fmt.Errorf("%w: have %d samples, need %d", domain.ErrInsufficientData, len(samples), domain.MinTrainingSamples)
	}
	weights, correlations, err := fitRaw(samples)
	if err != nil {
		if errors.Is(err, domain.ErrDegenerateBatch) {
			return FitResult{Weights: previous.Clone(), Correlations: correlations, Degenerate: true}, nil
		}
		return FitResult{}, err
	}
	return FitResult{Weights: weights, Correlations: correlations}, nil
}

func fitRaw(samples []domain.TrainingSample) (domain.WeightVector, map[domain.FeatureName]float64, error) {
	normalized := make([]domain.FeatureVector, len(samples))
	engagement := make([]float64, len(samples))
	for i, sample := range samples {
		normalized[i] = Normalize(sample.Features)
		engagement[i] = sample.ObservedEngagement
	}

	correlations := make(map[domain.FeatureName]float64, len(domain.FeatureNames))
	raw := make(domain.WeightVector, len(domain.FeatureNames))
	total := 0.0
	column := make([]float64, len(samples))
	for _, name := range domain.FeatureNames {
		for i := range normalized {
			column[i] = normalized[i].Get(name)
		}
		r, ok := pearson(column, engagement)
		if !ok {
			r = 0
		}
		correlations[name] = r
		raw[name] = math.Abs(r)
		total += raw[name]
	}
	if total == 0 {
		return nil, correlations, domain.ErrDegenerateBatch
	}
	for name, v := range raw {
		raw[name] = v / total
	}
	return raw, correlations, nil
}

// pearson returns the correlation coefficient of xs and ys. ok is false when
// either series has zero variance and the coefficient is undefined.
func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	if n == 0 || len(xs) != len(ys) {
		return 0, false
	}
	// Rounding in the mean can leave a constant series with a tiny non-zero
	// variance, so constants are caught before any arithmetic.
	if isConstant(xs) || isConstant(ys) {
		return 0, false
	}
	meanX, meanY := 0.0, 0.0
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= n
	meanY /= n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	r := cov / math.Sqrt(varX*varY)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return clamp(r, -1, 1), true
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
