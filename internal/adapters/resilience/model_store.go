// Package resilience guards storage ports with circuit breakers so a failing
// database is shed quickly instead of stalling every retrain and warm start.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/ports"
)

type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.Name == "" {
		c.Name = "model-store"
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 1
	}
	return c
}

// ModelStore wraps a ports.ModelStore. While the breaker is open every call
// fails fast with domain.ErrStorageUnavailable.
type ModelStore struct {
	next    ports.ModelStore
	breaker *gobreaker.CircuitBreaker[any]
}

var _ ports.ModelStore = (*ModelStore)(nil)

func NewModelStore(next ports.ModelStore, cfg BreakerConfig, logger *slog.Logger) *ModelStore {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: isInfrastructureHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"module", "resilience.model_store",
				"layer", "adapter",
				"operation", "state_change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return &ModelStore{next: next, breaker: gobreaker.NewCircuitBreaker[any](settings)}
}

func (s *ModelStore) State() gobreaker.State {
	return s.breaker.State()
}

func (s *ModelStore) Create(ctx context.Context, version domain.ModelVersion) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.next.Create(ctx, version)
	})
	return mapBreakerError(err)
}

func (s *ModelStore) DeactivateAllExcept(ctx context.Context, modelName, version string) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.next.DeactivateAllExcept(ctx, modelName, version)
	})
	return mapBreakerError(err)
}

func (s *ModelStore) GetActive(ctx context.Context, modelName string) (*domain.ModelVersion, error) {
	out, err := s.breaker.Execute(func() (any, error) {
		return s.next.GetActive(ctx, modelName)
	})
	if err != nil {
		return nil, mapBreakerError(err)
	}
	v, _ := out.(*domain.ModelVersion)
	return v, nil
}

func (s *ModelStore) List(ctx context.Context, modelName string, limit int) ([]domain.ModelVersion, error) {
	out, err := s.breaker.Execute(func() (any, error) {
		return s.next.List(ctx, modelName, limit)
	})
	if err != nil {
		return nil, mapBreakerError(err)
	}
	versions, _ := out.([]domain.ModelVersion)
	return versions, nil
}

// isInfrastructureHealthy keeps caller mistakes and cancellations from
// tripping the breaker.
func isInfrastructureHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, context.Canceled)
}

func mapBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return err
}
