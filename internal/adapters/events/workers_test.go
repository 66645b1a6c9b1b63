package events

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/adapters/memory"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ []byte, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, eventType)
	return nil
}

func TestOutboxWorkerPublishesOnce(t *testing.T) {
	t.Parallel()
	repos := memory.NewRepositories()
	ctx := context.Background()
	for _, eventType := range []string{domain.EventModelAdopted, domain.EventModelRejected} {
		if err := repos.Outbox.Enqueue(ctx, ports.OutboxEvent{
			EventID: uuid.New(), EventType: eventType, PartitionKey: domain.DefaultModelName,
			Payload: []byte(`{}`), OccurredAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	pub := &recordingPublisher{}
	worker := NewOutboxWorker(discardLogger(), repos.Outbox, pub, time.Second, 10)

	if err := worker.processOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := worker.processOnce(ctx); err != nil {
		t.Fatalf("second process: %v", err)
	}
	if diff := cmp.Diff([]string{domain.EventModelAdopted, domain.EventModelRejected}, pub.events); diff != "" {
		t.Fatalf("unexpected published events (-want +got):\n%s", diff)
	}
}

func TestOutboxWorkerRecordsFailures(t *testing.T) {
	t.Parallel()
	repos := memory.NewRepositories()
	ctx := context.Background()
	_ = repos.Outbox.Enqueue(ctx, ports.OutboxEvent{EventID: uuid.New(), EventType: domain.EventModelAdopted, OccurredAt: time.Now()})
	worker := NewOutboxWorker(discardLogger(), repos.Outbox, &recordingPublisher{fail: true}, time.Second, 10)
	worker.maxRetries = 2

	for i := 0; i < 3; i++ {
		if err := worker.processOnce(ctx); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	pending, _ := repos.Outbox.FetchUnpublished(ctx, 10, 0)
	if len(pending) != 1 || pending[0].RetryCount != 2 || pending[0].LastError == nil {
		t.Fatalf("expected record parked after 2 retries, got %+v", pending)
	}
}

func TestOutboxWorkerParkedRecordsDoNotBlockNewEvents(t *testing.T) {
	t.Parallel()
	repos := memory.NewRepositories()
	ctx := context.Background()
	pub := &recordingPublisher{fail: true}
	worker := NewOutboxWorker(discardLogger(), repos.Outbox, pub, time.Second, 1)
	worker.maxRetries = 1

	_ = repos.Outbox.Enqueue(ctx, ports.OutboxEvent{EventID: uuid.New(), EventType: domain.EventModelRejected, OccurredAt: time.Now().UTC()})
	if err := worker.processOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	_ = repos.Outbox.Enqueue(ctx, ports.OutboxEvent{EventID: uuid.New(), EventType: domain.EventModelAdopted, OccurredAt: time.Now().UTC()})
	pub.mu.Lock()
	pub.fail = false
	pub.mu.Unlock()
	for i := 0; i < 3; i++ {
		if err := worker.processOnce(ctx); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if diff := cmp.Diff([]string{domain.EventModelAdopted}, pub.events); diff != "" {
		t.Fatalf("unexpected published events (-want +got):\n%s", diff)
	}
	parked, _ := repos.Outbox.FetchUnpublished(ctx, 10, 0)
	if len(parked) != 1 || parked[0].EventType != domain.EventModelRejected {
		t.Fatalf("expected the rejected event to stay parked, got %+v", parked)
	}
}

type failingMarkOutbox struct {
	*memory.OutboxRepository
}

func (failingMarkOutbox) MarkPublished(context.Context, uuid.UUID, time.Time) error {
	return errors.New("connection reset")
}

func TestOutboxWorkerLogsMarkPublishedFailure(t *testing.T) {
	t.Parallel()
	repos := memory.NewRepositories()
	ctx := context.Background()
	_ = repos.Outbox.Enqueue(ctx, ports.OutboxEvent{EventID: uuid.New(), EventType: domain.EventModelAdopted, OccurredAt: time.Now().UTC()})

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	worker := NewOutboxWorker(logger, failingMarkOutbox{repos.Outbox}, &recordingPublisher{}, time.Second, 10)
	if err := worker.processOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.Contains(buf.String(), `"operation":"mark_published"`) || !strings.Contains(buf.String(), "connection reset") {
		t.Fatalf("expected mark_published failure to be logged, got %s", buf.String())
	}
}

type fakeConsumer struct {
	msgs []Message
}

func (c *fakeConsumer) Poll(context.Context, int) ([]Message, error) {
	out := c.msgs
	c.msgs = nil
	return out, nil
}

type fakeHandler struct {
	retrains []string
	outcomes int
}

func (h *fakeHandler) HandleRetrainRequested(_ context.Context, payload []byte) (domain.RetrainOutcome, error) {
	h.retrains = append(h.retrains, string(payload))
	return domain.RetrainOutcome{ModelName: domain.DefaultModelName}, nil
}

func (h *fakeHandler) HandleOutcomeRecorded(context.Context, []byte) error {
	h.outcomes++
	return nil
}

func TestConsumerWorkerRoutesByTopic(t *testing.T) {
	t.Parallel()
	consumer := &fakeConsumer{msgs: []Message{
		{Topic: "engagement.retrain_requested", Payload: []byte(`{"model_name":"engagement_predictor"}`)},
		{Topic: "content.outcome_recorded", Payload: []byte(`{}`)},
		{Topic: "content.outcome_recorded", Payload: []byte(`{}`)},
		{Topic: "unrelated.topic", Payload: []byte(`{}`)},
	}}
	handler := &fakeHandler{}
	worker := NewConsumerWorker(discardLogger(), consumer, handler, Topics{}, time.Second)

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(handler.retrains) != 1 || handler.outcomes != 2 {
		t.Fatalf("unexpected routing: retrains=%d outcomes=%d", len(handler.retrains), handler.outcomes)
	}
}

func TestRetrainSchedulerDisabledWaitsForCancel(t *testing.T) {
	t.Parallel()
	calls := 0
	s := NewRetrainScheduler(discardLogger(), func(context.Context) (domain.RetrainOutcome, error) {
		calls++
		return domain.RetrainOutcome{}, nil
	}, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("disabled scheduler should not retrain, got %d calls", calls)
	}
}

func TestModelRefresherKeepsRunningAfterFailure(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	calls := 0
	r := NewModelRefresher(discardLogger(), func(context.Context) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return false, domain.ErrStorageUnavailable
		}
		return true, nil
	}, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls < 2 {
		t.Fatalf("expected refresh to be retried after a failure, got %d calls", calls)
	}
}
