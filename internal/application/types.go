package application

import (
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/ports"
)

type Config struct {
	ServiceName         string
	ModelName           string
	AdoptionThreshold   float64
	TrainingSampleLimit int
	RetrainTimeout      time.Duration
	ModelCacheTTL       time.Duration
}

type Actor struct {
	SubjectID string
	Role      string
	RequestID string
}

type PredictInput struct {
	Features map[string]float64
}

type SuggestInput struct {
	Features    map[string]float64
	TargetScore float64
}

type RecordOutcomeInput struct {
	ContentID      string
	Features       map[string]float64
	Engagement     float64
	Views          *int64
	CompletionRate *float64
	RecordedAt     time.Time
}

type FeatureImportance struct {
	ModelName    string                `json:"model_name"`
	ModelVersion string                `json:"model_version"`
	Weights      domain.WeightVector   `json:"weights"`
	Ranked       []domain.RankedWeight `json:"ranked"`
	Performance  domain.Performance    `json:"performance"`
}

type Service struct {
	cfg       Config
	logger    *slog.Logger
	registry  *Registry
	lifecycle *ModelLifecycleManager
	outcomes  ports.OutcomeRepository
	models    ports.ModelStore
	nowFn     func() time.Time
}

type Dependencies struct {
	Config Config
	Logger *slog.Logger

	Outcomes ports.OutcomeRepository
	Models   ports.ModelStore
	Cache    ports.ModelCache
	Outbox   ports.OutboxRepository
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "M56-Predictive-Analytics"
	}
	if cfg.ModelName == "" {
		cfg.ModelName = domain.DefaultModelName
	}
	if cfg.AdoptionThreshold <= 0 {
		cfg.AdoptionThreshold = 0.6
	}
	if cfg.TrainingSampleLimit <= 0 {
		cfg.TrainingSampleLimit = 5000
	}
	if cfg.ModelCacheTTL <= 0 {
		cfg.ModelCacheTTL = 24 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := NewRegistry()
	return &Service{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		lifecycle: newLifecycleManager(cfg, deps, registry, logger),
		outcomes:  deps.Outcomes,
		models:    deps.Models,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}
