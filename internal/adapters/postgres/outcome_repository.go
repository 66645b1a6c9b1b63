package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type outcomeRepository struct {
	db *gorm.DB
}

// Save upserts by content id; a re-recorded outcome replaces the old one.
func (r *outcomeRepository) Save(ctx context.Context, record domain.OutcomeRecord) error {
	features, err := json.Marshal(record.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	row := outcomeModel{
		ContentID:      record.ContentID,
		Features:       string(features),
		Engagement:     record.Engagement,
		Views:          record.Views,
		CompletionRate: record.CompletionRate,
		RecordedAt:     record.RecordedAt,
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"features", "engagement", "views", "completion_rate", "recorded_at"}),
	}).Create(&row).Error
	return mapStorageError(err)
}

func (r *outcomeRepository) ListTrainingRecords(ctx context.Context, limit int) ([]domain.OutcomeRecord, error) {
	var rows []outcomeModel
	q := r.db.WithContext(ctx).Order("recorded_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, mapStorageError(err)
	}
	out := make([]domain.OutcomeRecord, 0, len(rows))
	for _, row := range rows {
		features := map[string]float64{}
		if err := json.Unmarshal([]byte(row.Features), &features); err != nil {
			return nil, fmt.Errorf("decode features for %s: %w", row.ContentID, err)
		}
		out = append(out, domain.OutcomeRecord{
			ContentID:      row.ContentID,
			Features:       features,
			Engagement:     row.Engagement,
			Views:          row.Views,
			CompletionRate: row.CompletionRate,
			RecordedAt:     row.RecordedAt.UTC(),
		})
	}
	return out, nil
}
