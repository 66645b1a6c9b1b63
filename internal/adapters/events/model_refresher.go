package events

import (
	"context"
	"log/slog"
	"time"
)

// RefreshFunc reloads the active model from the store and reports whether the
// served version changed.
type RefreshFunc func(ctx context.Context) (bool, error)

// ModelRefresher polls the model store so the API serves versions adopted by
// the worker or by another replica.
type ModelRefresher struct {
	logger   *slog.Logger
	refresh  RefreshFunc
	interval time.Duration
}

func NewModelRefresher(logger *slog.Logger, refresh RefreshFunc, interval time.Duration) *ModelRefresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ModelRefresher{logger: logger, refresh: refresh, interval: interval}
}

func (r *ModelRefresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *ModelRefresher) runOnce(ctx context.Context) {
	changed, err := r.refresh(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "active model refresh failed, keeping current weights",
			"module", "events.model_refresher",
			"layer", "adapter",
			"operation", "refresh",
			"outcome", "failure",
			"error", err,
		)
		return
	}
	if changed {
		r.logger.DebugContext(ctx, "active model swapped",
			"module", "events.model_refresher",
			"layer", "adapter",
			"operation", "refresh",
			"outcome", "success",
		)
	}
}
