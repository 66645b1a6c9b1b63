package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

type Message struct {
	Topic   string
	Key     string
	Payload []byte
}

type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
}

// Handler is implemented by application.Service.
type Handler interface {
	HandleRetrainRequested(ctx context.Context, payload []byte) (domain.RetrainOutcome, error)
	HandleOutcomeRecorded(ctx context.Context, payload []byte) error
}

type Topics struct {
	RetrainRequested string
	OutcomeRecorded  string
}

func DefaultTopics() Topics {
	return Topics{
		RetrainRequested: "engagement.retrain_requested",
		OutcomeRecorded:  "content.outcome_recorded",
	}
}

type ConsumerWorker struct {
	logger   *slog.Logger
	consumer Consumer
	handler  Handler
	topics   Topics
	interval time.Duration
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, handler Handler, topics Topics, interval time.Duration) *ConsumerWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	defaults := DefaultTopics()
	if topics.RetrainRequested == "" {
		topics.RetrainRequested = defaults.RetrainRequested
	}
	if topics.OutcomeRecorded == "" {
		topics.OutcomeRecorded = defaults.OutcomeRecorded
	}
	return &ConsumerWorker{
		logger: logger, consumer: consumer, handler: handler, topics: topics, interval: interval,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
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

func (w *ConsumerWorker) processOnce(ctx context.Context) error {
	msgs, err := w.consumer.Poll(ctx, 50)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		switch msg.Topic {
		case w.topics.RetrainRequested:
			out, err := w.handler.HandleRetrainRequested(ctx, msg.Payload)
			if err != nil {
				w.logger.WarnContext(ctx, "failed to handle retrain request",
					"module", "events.consumer_worker",
					"layer", "adapter",
					"operation", "handle_retrain_requested",
					"outcome", "failure",
					"error", err,
				)
				continue
			}
			w.logger.InfoContext(ctx, "retrain request handled",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "handle_retrain_requested",
				"outcome", "success",
				"model", out.ModelName,
				"version", out.VersionID,
				"adopted", out.Adopted,
			)
		case w.topics.OutcomeRecorded:
			if err := w.handler.HandleOutcomeRecorded(ctx, msg.Payload); err != nil {
				w.logger.WarnContext(ctx, "failed to handle outcome", "topic", msg.Topic, "key", msg.Key, "error", err)
			}
		default:
			w.logger.DebugContext(ctx, "ignoring message on unexpected topic", "topic", msg.Topic)
		}
	}
	return nil
}
