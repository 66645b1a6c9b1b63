package domain

import "time"

const (
	// MinTrainingSamples is the smallest batch the fitter accepts.
	MinTrainingSamples = 10

	DefaultModelName    = "engagement_predictor"
	DefaultModelVersion = "default"
)

const (
	EventModelAdopted  = "engagement.model_adopted"
	EventModelRejected = "engagement.model_rejected"
)

type TrainingSample struct {
	Features           FeatureVector
	ObservedEngagement float64
	Views              *int64
	CompletionRate     *float64
}

type Performance struct {
	Accuracy    float64 `json:"accuracy"`
	MeanError   float64 `json:"mean_error"`
	SampleCount int     `json:"sample_count"`
}

// ModelVersion is a persisted weight vector. Only Active changes after
// creation.
type ModelVersion struct {
	ModelName   string       `json:"model_name"`
	Version     string       `json:"version"`
	Weights     WeightVector `json:"weights"`
	Performance Performance  `json:"performance"`
	Active      bool         `json:"active"`
	CreatedAt   time.Time    `json:"created_at"`
}

type FeatureContribution struct {
	Feature         FeatureName `json:"feature"`
	NormalizedValue float64     `json:"normalized_value"`
	Weight          float64     `json:"weight"`
	Contribution    float64     `json:"contribution"`
}

type PredictionResult struct {
	Score         float64               `json:"predicted_score"`
	Confidence    float64               `json:"confidence"`
	Contributions []FeatureContribution `json:"contributions"`
	ModelVersion  string                `json:"model_version,omitempty"`
}

type Suggestion struct {
	Feature        FeatureName `json:"feature"`
	CurrentValue   float64     `json:"current_value"`
	SuggestedValue float64     `json:"suggested_value"`
	Impact         float64     `json:"impact"`
	Message        string      `json:"message"`
}

type Advice struct {
	CurrentScore         float64      `json:"current_score"`
	TargetScore          float64      `json:"target_score"`
	Suggestions          []Suggestion `json:"suggestions"`
	PotentialImprovement float64      `json:"potential_improvement"`
}

// OutcomeRecord is a content item's extracted features together with the
// engagement it went on to receive.
type OutcomeRecord struct {
	ContentID      string             `json:"content_id"`
	Features       map[string]float64 `json:"features"`
	Engagement     float64            `json:"engagement"`
	Views          *int64             `json:"views,omitempty"`
	CompletionRate *float64           `json:"completion_rate,omitempty"`
	RecordedAt     time.Time          `json:"recorded_at"`
}

type RetrainOutcome struct {
	ModelName       string                  `json:"model_name"`
	VersionID       string                  `json:"version_id"`
	PreviousVersion string                  `json:"previous_version"`
	Performance     Performance             `json:"performance"`
	Weights         WeightVector            `json:"weights"`
	Correlations    map[FeatureName]float64 `json:"correlations,omitempty"`
	Adopted         bool                    `json:"adopted"`
	Degenerate      bool                    `json:"degenerate"`
	TrainedAt       time.Time               `json:"trained_at"`
}
