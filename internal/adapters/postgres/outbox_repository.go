package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	rec := outboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      string(event.Payload),
		CreatedAt:    event.OccurredAt,
		FirstSeenAt:  event.OccurredAt,
	}
	return mapStorageError(r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error)
}

func (r *outboxRepository) FetchUnpublished(ctx context.Context, limit, maxRetries int) ([]ports.OutboxRecord, error) {
	query := r.db.WithContext(ctx).Where("published_at IS NULL")
	if maxRetries > 0 {
		query = query.Where("retry_count < ?", maxRetries)
	}
	var rows []outboxModel
	if err := query.Order("created_at asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch unpublished outbox records: %w", mapStorageError(err))
	}
	out := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.OutboxRecord{
			OutboxID: row.OutboxID, EventType: row.EventType, PartitionKey: row.PartitionKey,
			Payload: []byte(row.Payload), RetryCount: row.RetryCount, PublishedAt: row.PublishedAt,
			LastError: row.LastError, FirstSeenAt: row.FirstSeenAt,
		})
	}
	return out, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&outboxModel{}).Where("outbox_id = ?", outboxID).Update("published_at", at).Error
	if err != nil {
		return fmt.Errorf("mark outbox record %s published: %w", outboxID, mapStorageError(err))
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&outboxModel{}).Where("outbox_id = ?", outboxID).Updates(map[string]any{
		"retry_count":   gorm.Expr("retry_count + 1"),
		"last_error":    errMsg,
		"last_error_at": at,
	}).Error
	if err != nil {
		return fmt.Errorf("mark outbox record %s failed: %w", outboxID, mapStorageError(err))
	}
	return nil
}
