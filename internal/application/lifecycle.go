package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/engine"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/metrics"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/ports"
)

// ModelLifecycleManager fits, evaluates and conditionally adopts new weight
// vectors. Retraining is serialized per model name.
type ModelLifecycleManager struct {
	cfg      Config
	logger   *slog.Logger
	registry *Registry
	outcomes ports.OutcomeRepository
	store    ports.ModelStore
	cache    ports.ModelCache
	outbox   ports.OutboxRepository
	locks    *keyedMutex
	nowFn    func() time.Time
}

func newLifecycleManager(cfg Config, deps Dependencies, registry *Registry, logger *slog.Logger) *ModelLifecycleManager {
	return &ModelLifecycleManager{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		outcomes: deps.Outcomes,
		store:    deps.Models,
		cache:    deps.Cache,
		outbox:   deps.Outbox,
		locks:    newKeyedMutex(),
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// Retrain refits the named model from historical outcomes. The returned
// outcome always carries a freshly minted version id, including when the
// candidate was rejected and no weights changed; check Adopted before
// assuming new weights are live.
func (m *ModelLifecycleManager) Retrain(ctx context.Context, modelName string) (domain.RetrainOutcome, error) {
	modelName, err := m.modelName(modelName)
	if err != nil {
		return domain.RetrainOutcome{}, err
	}
	unlock := m.locks.lock(modelName)
	defer unlock()

	start := time.Now()
	defer func() { metrics.RetrainDuration.Observe(time.Since(start).Seconds()) }()

	if m.cfg.RetrainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.RetrainTimeout)
		defer cancel()
	}

	records, err := m.outcomes.ListTrainingRecords(ctx, m.cfg.TrainingSampleLimit)
	if err != nil {
		metrics.RetrainTotal.WithLabelValues(modelName, metrics.RetrainOutcomeFailed).Inc()
		return domain.RetrainOutcome{}, fmt.Errorf("load training records: %w", err)
	}
	samples := BuildTrainingSamples(records)

	current := m.registry.Load(modelName)
	fit, err := engine.Fit(samples, current.Weights)
	if err != nil {
		outcome := metrics.RetrainOutcomeFailed
		if errors.Is(err, domain.ErrInsufficientData) {
			outcome = metrics.RetrainOutcomeInsufficientData
		}
		metrics.RetrainTotal.WithLabelValues(modelName, outcome).Inc()
		return domain.RetrainOutcome{}, err
	}
	perf := engine.Evaluate(samples, fit.Weights)
	now := m.nowFn()

	result := domain.RetrainOutcome{
		ModelName:       modelName,
		VersionID:       newVersionID(now),
		PreviousVersion: current.Version,
		Performance:     perf,
		Weights:         fit.Weights,
		Correlations:    fit.Correlations,
		Degenerate:      fit.Degenerate,
		TrainedAt:       now,
	}

	if perf.Accuracy <= m.cfg.AdoptionThreshold {
		metrics.RetrainTotal.WithLabelValues(modelName, metrics.RetrainOutcomeRejected).Inc()
		m.logger.InfoContext(ctx, "candidate model rejected",
			"module", "application.lifecycle",
			"layer", "application",
			"operation", "retrain",
			"outcome", "rejected",
			"model", modelName,
			"version", result.VersionID,
			"active_version", current.Version,
			"accuracy", perf.Accuracy,
			"mean_error", perf.MeanError,
			"sample_count", perf.SampleCount,
			"threshold", m.cfg.AdoptionThreshold,
		)
		m.enqueueEvent(ctx, domain.EventModelRejected, result)
		return result, nil
	}

	// Nothing has been written yet, so an expired deadline can still walk
	// away cleanly.
	if err := ctx.Err(); err != nil {
		metrics.RetrainTotal.WithLabelValues(modelName, metrics.RetrainOutcomeFailed).Inc()
		return domain.RetrainOutcome{}, fmt.Errorf("retrain abandoned before persistence: %w", err)
	}

	version := domain.ModelVersion{
		ModelName:   modelName,
		Version:     result.VersionID,
		Weights:     fit.Weights.Clone(),
		Performance: perf,
		Active:      true,
		CreatedAt:   now,
	}
	if err := m.adopt(context.WithoutCancel(ctx), version); err != nil {
		metrics.RetrainTotal.WithLabelValues(modelName, metrics.RetrainOutcomeFailed).Inc()
		return domain.RetrainOutcome{}, err
	}
	result.Adopted = true
	metrics.RetrainTotal.WithLabelValues(modelName, metrics.RetrainOutcomeAdopted).Inc()
	m.logger.InfoContext(ctx, "candidate model adopted",
		"module", "application.lifecycle",
		"layer", "application",
		"operation", "retrain",
		"outcome", "adopted",
		"model", modelName,
		"version", result.VersionID,
		"previous_version", current.Version,
		"accuracy", perf.Accuracy,
		"mean_error", perf.MeanError,
		"sample_count", perf.SampleCount,
		"degenerate", fit.Degenerate,
	)
	m.enqueueEvent(ctx, domain.EventModelAdopted, result)
	return result, nil
}

// adopt persists version as active, retires every other version of the
// model and only then publishes the new weights in memory.
func (m *ModelLifecycleManager) adopt(ctx context.Context, version domain.ModelVersion) error {
	if err := m.store.Create(ctx, version); err != nil {
		return fmt.Errorf("persist model version %s: %w", version.Version, err)
	}
	if err := m.store.DeactivateAllExcept(ctx, version.ModelName, version.Version); err != nil {
		m.logger.WarnContext(ctx, "deactivating superseded versions failed, retrying",
			"module", "application.lifecycle",
			"layer", "application",
			"operation", "deactivate_superseded",
			"outcome", "retry",
			"model", version.ModelName,
			"version", version.Version,
			"error", err,
		)
		if retryErr := m.store.DeactivateAllExcept(ctx, version.ModelName, version.Version); retryErr != nil {
			return fmt.Errorf("%w: model %s version %s: %w", domain.ErrReconcileRequired, version.ModelName, version.Version, retryErr)
		}
	}
	m.publish(ctx, version)
	return nil
}

// Reconcile makes the newest active version the only active one and serves
// it. Running it repeatedly is harmless.
func (m *ModelLifecycleManager) Reconcile(ctx context.Context, modelName string) (domain.ModelVersion, error) {
	modelName, err := m.modelName(modelName)
	if err != nil {
		return domain.ModelVersion{}, err
	}
	unlock := m.locks.lock(modelName)
	defer unlock()

	active, err := m.store.GetActive(ctx, modelName)
	if err != nil {
		return domain.ModelVersion{}, fmt.Errorf("load active model %s: %w", modelName, err)
	}
	if active == nil {
		return domain.ModelVersion{}, fmt.Errorf("active model %s: %w", modelName, domain.ErrNotFound)
	}
	if err := m.store.DeactivateAllExcept(ctx, modelName, active.Version); err != nil {
		return domain.ModelVersion{}, fmt.Errorf("%w: model %s version %s: %w", domain.ErrReconcileRequired, modelName, active.Version, err)
	}
	m.publish(ctx, *active)
	return *active, nil
}

// LoadActive warms the registry at startup: store first, then cache, else the
// default weights keep serving.
func (m *ModelLifecycleManager) LoadActive(ctx context.Context) *ActiveModel {
	modelName := m.cfg.ModelName
	active, err := m.store.GetActive(ctx, modelName)
	if err == nil && active != nil {
		m.publish(ctx, *active)
		return m.registry.Load(modelName)
	}
	if err != nil {
		m.logger.WarnContext(ctx, "load active model from store failed",
			"module", "application.lifecycle",
			"layer", "application",
			"operation", "load_active",
			"outcome", "failure",
			"model", modelName,
			"error", err,
		)
	}
	if m.cache != nil {
		cached, cacheErr := m.cache.GetActive(ctx, modelName)
		if cacheErr == nil && cached != nil {
			m.registry.Publish(activeFromVersion(*cached))
			metrics.ActiveModelAccuracy.WithLabelValues(modelName).Set(cached.Performance.Accuracy)
			return m.registry.Load(modelName)
		}
		if cacheErr != nil {
			m.logger.WarnContext(ctx, "load active model from cache failed", "model", modelName, "error", cacheErr)
		}
	}
	return m.registry.Load(modelName)
}

func (m *ModelLifecycleManager) publish(ctx context.Context, version domain.ModelVersion) {
	m.registry.Publish(activeFromVersion(version))
	metrics.ActiveModelAccuracy.WithLabelValues(version.ModelName).Set(version.Performance.Accuracy)
	if m.cache == nil {
		return
	}
	if err := m.cache.PutActive(ctx, version, m.cfg.ModelCacheTTL); err != nil {
		m.logger.WarnContext(ctx, "cache active model failed", "model", version.ModelName, "version", version.Version, "error", err)
	}
}

func (m *ModelLifecycleManager) enqueueEvent(ctx context.Context, eventType string, outcome domain.RetrainOutcome) {
	if m.outbox == nil {
		return
	}
	payload, err := json.Marshal(outcome)
	if err != nil {
		m.logger.WarnContext(ctx, "encode lifecycle event failed", "event_type", eventType, "error", err)
		return
	}
	err = m.outbox.Enqueue(context.WithoutCancel(ctx), ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: outcome.ModelName,
		Payload:      payload,
		OccurredAt:   outcome.TrainedAt,
	})
	if err != nil {
		m.logger.WarnContext(ctx, "enqueue lifecycle event failed",
			"module", "application.lifecycle",
			"layer", "application",
			"operation", "enqueue_event",
			"outcome", "failure",
			"event_type", eventType,
			"error", err,
		)
	}
}

// Refresh swaps in the store's active version when another process adopted
// it. It holds the retrain lock so a stale read cannot overwrite an adoption
// made by this process.
func (m *ModelLifecycleManager) Refresh(ctx context.Context) (bool, error) {
	modelName := m.cfg.ModelName
	unlock := m.locks.lock(modelName)
	defer unlock()

	active, err := m.store.GetActive(ctx, modelName)
	if err != nil {
		return false, fmt.Errorf("load active model %s: %w", modelName, err)
	}
	if active == nil || active.Version == m.registry.Load(modelName).Version {
		return false, nil
	}
	m.registry.Publish(activeFromVersion(*active))
	metrics.ActiveModelAccuracy.WithLabelValues(modelName).Set(active.Performance.Accuracy)
	m.logger.InfoContext(ctx, "active model refreshed",
		"module", "application.lifecycle",
		"layer", "application",
		"operation", "refresh",
		"outcome", "success",
		"model", modelName,
		"version", active.Version,
	)
	return true, nil
}

// modelName resolves an empty name to the served model. Other names are
// rejected: only the served model's weights are ever read back.
func (m *ModelLifecycleManager) modelName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == m.cfg.ModelName {
		return m.cfg.ModelName, nil
	}
	return "", fmt.Errorf("%w: unknown model %q", domain.ErrInvalidInput, name)
}

// BuildTrainingSamples turns historical records into fitting input. Records
// without features or with a non-finite engagement are unusable and skipped.
func BuildTrainingSamples(records []domain.OutcomeRecord) []domain.TrainingSample {
	out := make([]domain.TrainingSample, 0, len(records))
	for _, rec := range records {
		if len(rec.Features) == 0 || math.IsNaN(rec.Engagement) || math.IsInf(rec.Engagement, 0) {
			continue
		}
		out = append(out, domain.TrainingSample{
			Features:           domain.FeatureVectorFromMap(rec.Features),
			ObservedEngagement: clamp(rec.Engagement, 0, 100),
			Views:              rec.Views,
			CompletionRate:     rec.CompletionRate,
		})
	}
	return out
}

func newVersionID(now time.Time) string {
	return fmt.Sprintf("v%s-%s", now.Format("20060102T150405Z"), uuid.NewString()[:8])
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
