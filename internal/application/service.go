package application

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/engine"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/metrics"
)

func (s *Service) Predict(_ context.Context, actor Actor, input PredictInput) (domain.PredictionResult, error) {
	if err := requireActor(actor); err != nil {
		return domain.PredictionResult{}, err
	}
	model := s.registry.Load(s.cfg.ModelName)
	result := engine.Predict(domain.FeatureVectorFromMap(input.Features), model.Weights)
	result.ModelVersion = model.Version
	metrics.PredictionsTotal.WithLabelValues(model.ModelName).Inc()
	metrics.PredictionScore.Observe(result.Score)
	return result, nil
}

func (s *Service) SuggestImprovements(_ context.Context, actor Actor, input SuggestInput) (domain.Advice, error) {
	if err := requireActor(actor); err != nil {
		return domain.Advice{}, err
	}
	if input.TargetScore < 0 || input.TargetScore > 100 || math.IsNaN(input.TargetScore) {
		return domain.Advice{}, fmt.Errorf("%w: target score must be within 0-100", domain.ErrInvalidInput)
	}
	model := s.registry.Load(s.cfg.ModelName)
	return engine.Suggest(domain.FeatureVectorFromMap(input.Features), model.Weights, input.TargetScore), nil
}

// GetFeatureImportance returns a copy of the active weights.
func (s *Service) GetFeatureImportance(_ context.Context, actor Actor) (FeatureImportance, error) {
	if err := requireActor(actor); err != nil {
		return FeatureImportance{}, err
	}
	model := s.registry.Load(s.cfg.ModelName)
	return FeatureImportance{
		ModelName:    model.ModelName,
		ModelVersion: model.Version,
		Weights:      model.Weights.Clone(),
		Ranked:       model.Weights.Ranked(),
		Performance:  model.Performance,
	}, nil
}

func (s *Service) Retrain(ctx context.Context, actor Actor, modelName string) (domain.RetrainOutcome, error) {
	if err := requireOperator(actor); err != nil {
		return domain.RetrainOutcome{}, err
	}
	return s.lifecycle.Retrain(ctx, modelName)
}

func (s *Service) Reconcile(ctx context.Context, actor Actor, modelName string) (domain.ModelVersion, error) {
	if err := requireOperator(actor); err != nil {
		return domain.ModelVersion{}, err
	}
	return s.lifecycle.Reconcile(ctx, modelName)
}

func (s *Service) ListModelVersions(ctx context.Context, actor Actor, modelName string, limit int) ([]domain.ModelVersion, error) {
	if err := requireOperator(actor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	name, err := s.lifecycle.modelName(modelName)
	if err != nil {
		return nil, err
	}
	return s.models.List(ctx, name, limit)
}

func (s *Service) RecordOutcome(ctx context.Context, actor Actor, input RecordOutcomeInput) (domain.OutcomeRecord, error) {
	if err := requireOperator(actor); err != nil {
		return domain.OutcomeRecord{}, err
	}
	return s.recordOutcome(ctx, input)
}

// LoadActiveModel warms the in-memory model from persistence.
func (s *Service) LoadActiveModel(ctx context.Context) *ActiveModel {
	return s.lifecycle.LoadActive(ctx)
}

// RefreshActiveModel picks up a version adopted by another process, such as
// the worker or another API replica. It reports whether the served model
// changed.
func (s *Service) RefreshActiveModel(ctx context.Context) (bool, error) {
	return s.lifecycle.Refresh(ctx)
}

func (s *Service) ModelName() string { return s.cfg.ModelName }

type retrainRequestedPayload struct {
	ModelName   string `json:"model_name"`
	RequestedBy string `json:"requested_by"`
}

// HandleRetrainRequested runs a retrain for an engagement.retrain_requested
// event published by an external scheduler.
func (s *Service) HandleRetrainRequested(ctx context.Context, payload []byte) (domain.RetrainOutcome, error) {
	var req retrainRequestedPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return domain.RetrainOutcome{}, fmt.Errorf("%w: decode retrain request: %v", domain.ErrInvalidInput, err)
		}
	}
	return s.lifecycle.Retrain(ctx, req.ModelName)
}

// HandleOutcomeRecorded stores a content.outcome_recorded event as a training
// record.
func (s *Service) HandleOutcomeRecorded(ctx context.Context, payload []byte) error {
	var rec domain.OutcomeRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return fmt.Errorf("%w: decode outcome: %v", domain.ErrInvalidInput, err)
	}
	_, err := s.recordOutcome(ctx, RecordOutcomeInput{
		ContentID:      rec.ContentID,
		Features:       rec.Features,
		Engagement:     rec.Engagement,
		Views:          rec.Views,
		CompletionRate: rec.CompletionRate,
		RecordedAt:     rec.RecordedAt,
	})
	return err
}

func (s *Service) recordOutcome(ctx context.Context, input RecordOutcomeInput) (domain.OutcomeRecord, error) {
	contentID := strings.TrimSpace(input.ContentID)
	if contentID == "" || len(input.Features) == 0 {
		return domain.OutcomeRecord{}, domain.ErrInvalidInput
	}
	if math.IsNaN(input.Engagement) || input.Engagement < 0 || input.Engagement > 100 {
		return domain.OutcomeRecord{}, fmt.Errorf("%w: engagement must be within 0-100", domain.ErrInvalidInput)
	}
	if input.CompletionRate != nil && (*input.CompletionRate < 0 || *input.CompletionRate > 1) {
		return domain.OutcomeRecord{}, fmt.Errorf("%w: completion rate must be within 0-1", domain.ErrInvalidInput)
	}
	features := make(map[string]float64, len(input.Features))
	for key, value := range input.Features {
		if !domain.IsKnownFeature(domain.FeatureName(key)) {
			continue
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return domain.OutcomeRecord{}, fmt.Errorf("%w: feature %s is not finite", domain.ErrInvalidInput, key)
		}
		features[key] = value
	}
	if len(features) == 0 {
		return domain.OutcomeRecord{}, fmt.Errorf("%w: no known features", domain.ErrInvalidInput)
	}
	recordedAt := input.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = s.nowFn()
	}
	rec := domain.OutcomeRecord{
		ContentID:      contentID,
		Features:       features,
		Engagement:     input.Engagement,
		Views:          input.Views,
		CompletionRate: input.CompletionRate,
		RecordedAt:     recordedAt.UTC().Truncate(time.Microsecond),
	}
	if err := s.outcomes.Save(ctx, rec); err != nil {
		return domain.OutcomeRecord{}, fmt.Errorf("save outcome %s: %w", contentID, err)
	}
	return rec, nil
}

func requireActor(actor Actor) error {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

// requireOperator admits internal services and admins.
func requireOperator(actor Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(actor.Role)) {
	case "admin", "service":
		return nil
	default:
		return domain.ErrForbidden
	}
}
