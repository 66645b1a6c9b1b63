package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

// RetrainFunc runs one retrain for the configured model.
type RetrainFunc func(ctx context.Context) (domain.RetrainOutcome, error)

// RetrainScheduler triggers retraining on a fixed interval for deployments
// without an external scheduler publishing retrain requests.
type RetrainScheduler struct {
	logger   *slog.Logger
	retrain  RetrainFunc
	interval time.Duration
}

func NewRetrainScheduler(logger *slog.Logger, retrain RetrainFunc, interval time.Duration) *RetrainScheduler {
	return &RetrainScheduler{logger: logger, retrain: retrain, interval: interval}
}

// Run blocks until ctx is done. A non-positive interval disables the
// scheduler.
func (s *RetrainScheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *RetrainScheduler) runOnce(ctx context.Context) {
	out, err := s.retrain(ctx)
	switch {
	case errors.Is(err, domain.ErrInsufficientData):
		s.logger.InfoContext(ctx, "scheduled retrain skipped",
			"module", "events.retrain_scheduler",
			"layer", "adapter",
			"operation", "retrain",
			"outcome", "insufficient_data",
		)
	case err != nil:
		s.logger.ErrorContext(ctx, "scheduled retrain failed",
			"module", "events.retrain_scheduler",
			"layer", "adapter",
			"operation", "retrain",
			"outcome", "failure",
			"error", err,
		)
	default:
		s.logger.InfoContext(ctx, "scheduled retrain finished",
			"module", "events.retrain_scheduler",
			"layer", "adapter",
			"operation", "retrain",
			"outcome", "success",
			"version", out.VersionID,
			"adopted", out.Adopted,
		)
	}
}
