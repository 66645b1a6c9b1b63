package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

// OutcomeRepository is the historical sample source: content items with both
// recorded features and recorded engagement.
type OutcomeRepository interface {
	Save(ctx context.Context, record domain.OutcomeRecord) error
	ListTrainingRecords(ctx context.Context, limit int) ([]domain.OutcomeRecord, error)
}

// ModelStore persists model versions. Create followed by DeactivateAllExcept
// is the adoption swap; DeactivateAllExcept must be safe to repeat.
type ModelStore interface {
	Create(ctx context.Context, version domain.ModelVersion) error
	DeactivateAllExcept(ctx context.Context, modelName, version string) error
	GetActive(ctx context.Context, modelName string) (*domain.ModelVersion, error)
	List(ctx context.Context, modelName string, limit int) ([]domain.ModelVersion, error)
}

type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	PublishedAt  *time.Time
	LastError    *string
	FirstSeenAt  time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	// FetchUnpublished returns the oldest unpublished records with fewer than
	// maxRetries failures. A non-positive maxRetries disables the filter.
	FetchUnpublished(ctx context.Context, limit, maxRetries int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error
}
