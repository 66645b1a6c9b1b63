package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
	"gorm.io/gorm"
)

type modelVersionRepository struct {
	db *gorm.DB
}

func (r *modelVersionRepository) Create(ctx context.Context, version domain.ModelVersion) error {
	weights, err := json.Marshal(version.Weights.ToMap())
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	row := modelVersionModel{
		ModelName:   version.ModelName,
		Version:     version.Version,
		Weights:     string(weights),
		Accuracy:    version.Performance.Accuracy,
		MeanError:   version.Performance.MeanError,
		SampleCount: version.Performance.SampleCount,
		Active:      version.Active,
		CreatedAt:   version.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: version %s already exists", domain.ErrInvalidInput, version.Version)
		}
		return mapStorageError(err)
	}
	return nil
}

func (r *modelVersionRepository) DeactivateAllExcept(ctx context.Context, modelName, version string) error {
	err := r.db.WithContext(ctx).Model(&modelVersionModel{}).
		Where("model_name = ? AND version <> ? AND active", modelName, version).
		Update("active", false).Error
	return mapStorageError(err)
}

// GetActive returns the newest active row so a half-finished swap still
// resolves to the candidate that was being adopted.
func (r *modelVersionRepository) GetActive(ctx context.Context, modelName string) (*domain.ModelVersion, error) {
	var row modelVersionModel
	err := r.db.WithContext(ctx).
		Where("model_name = ? AND active", modelName).
		Order("created_at desc").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapStorageError(err)
	}
	v, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *modelVersionRepository) List(ctx context.Context, modelName string, limit int) ([]domain.ModelVersion, error) {
	var rows []modelVersionModel
	q := r.db.WithContext(ctx).Where("model_name = ?", modelName).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, mapStorageError(err)
	}
	out := make([]domain.ModelVersion, 0, len(rows))
	for _, row := range rows {
		v, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (m modelVersionModel) toDomain() (domain.ModelVersion, error) {
	raw := map[string]float64{}
	if err := json.Unmarshal([]byte(m.Weights), &raw); err != nil {
		return domain.ModelVersion{}, fmt.Errorf("decode weights for %s: %w", m.Version, err)
	}
	return domain.ModelVersion{
		ModelName: m.ModelName,
		Version:   m.Version,
		Weights:   domain.WeightVectorFromMap(raw),
		Performance: domain.Performance{
			Accuracy:    m.Accuracy,
			MeanError:   m.MeanError,
			SampleCount: m.SampleCount,
		},
		Active:    m.Active,
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}
