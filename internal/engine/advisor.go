package engine

import (
	"fmt"
	"math"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

const (
	DefaultTargetScore = 75.0
	maxSuggestions     = 3
)

type band struct {
	low, high float64
	advice    string
}

// targetBands are raw-scale ranges that historically perform well.
var targetBands = map[domain.FeatureName]band{
	domain.FeatureAvgBrightness: {70, 85, "Adjust exposure so frames sit in a bright but not blown-out range"},
	domain.FeatureAvgContrast:   {70, 85, "Increase contrast to make the subject stand out"},
	domain.FeatureColorVariance: {70, 85, "Use a more varied color palette"},
	domain.FeatureMotionLevel:   {70, 85, "Add more movement or faster cuts"},
	domain.FeatureHookStrength:  {0.9, 1.0, "Open with a stronger hook in the first seconds"},
	domain.FeatureTextCoverage:  {15, 35, "Keep on-screen text between 15% and 35% of the frame"},
	domain.FeatureDuration:      {8, 12, "Trim or extend the clip to 8-12 seconds"},
	domain.FeatureContentLength: {100, 200, "Keep the script or caption between 100 and 200 characters"},
	domain.FeatureToneScore:     {70, 90, "Lift the tone to be more energetic and positive"},
}

// Suggest proposes bounded changes to the most heavily weighted features when
// the current score misses targetScore. A non-positive target falls back to
// DefaultTargetScore. PotentialImprovement is a heuristic, not a promised
// score delta.
func Suggest(raw domain.FeatureVector, weights domain.WeightVector, targetScore float64) domain.Advice {
	if targetScore <= 0 {
		targetScore = DefaultTargetScore
	}
	current := Score(raw, weights)
	advice := domain.Advice{
		CurrentScore: current,
		TargetScore:  targetScore,
		Suggestions:  []domain.Suggestion{},
	}
	if current >= targetScore {
		return advice
	}

	ranked := weights.Ranked()
	if len(ranked) > maxSuggestions {
		ranked = ranked[:maxSuggestions]
	}
	totalImpact := 0.0
	for _, rw := range ranked {
		b, ok := targetBands[rw.Feature]
		if !ok {
			continue
		}
		value := raw.Get(rw.Feature)
		suggested := clamp(value, b.low, b.high)
		delta := math.Abs(suggested - value)
		if delta == 0 {
			continue
		}
		impact := rw.Weight * delta / domain.FeatureCeilings[rw.Feature]
		totalImpact += impact
		advice.Suggestions = append(advice.Suggestions, domain.Suggestion{
			Feature:        rw.Feature,
			CurrentValue:   value,
			SuggestedValue: suggested,
			Impact:         impact,
			Message:        fmt.Sprintf("%s (%s: %g -> %g)", b.advice, rw.Feature, value, suggested),
		})
	}
	advice.PotentialImprovement = totalImpact * 100
	return advice
}
