package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/ports"
)

// OutboxWorker relays lifecycle events from the outbox to the publisher.
// Records that keep failing are parked after maxRetries attempts: they stay
// in the table for inspection and are no longer fetched.
type OutboxWorker struct {
	logger     *slog.Logger
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batchSize  int
	maxRetries int
}

func NewOutboxWorker(logger *slog.Logger, outbox ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batchSize int) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxWorker{
		logger: logger, outbox: outbox, publisher: publisher, interval: interval, batchSize: batchSize, maxRetries: 10,
	}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *OutboxWorker) processOnce(ctx context.Context) error {
	records, err := w.outbox.FetchUnpublished(ctx, w.batchSize, w.maxRetries)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, rec := range records {
		if err := w.publisher.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey); err != nil {
			w.logger.WarnContext(ctx, "outbox publish failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "publish",
				"outcome", "failure",
				"event_type", rec.EventType,
				"retry_count", rec.RetryCount+1,
				"error", err,
			)
			if markErr := w.outbox.MarkFailed(ctx, rec.OutboxID, err.Error(), now); markErr != nil {
				w.logger.ErrorContext(ctx, "outbox failure not recorded",
					"module", "events.outbox_worker",
					"layer", "adapter",
					"operation", "mark_failed",
					"outcome", "failure",
					"outbox_id", rec.OutboxID.String(),
					"error", markErr,
				)
			}
			continue
		}
		if err := w.outbox.MarkPublished(ctx, rec.OutboxID, now); err != nil {
			w.logger.ErrorContext(ctx, "outbox mark published failed, event may be republished",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "mark_published",
				"outcome", "failure",
				"outbox_id", rec.OutboxID.String(),
				"event_type", rec.EventType,
				"error", err,
			)
		}
	}
	return nil
}
