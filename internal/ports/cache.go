package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

// ModelCache keeps a copy of the active model outside the database so a
// replica can start serving adopted weights while the store is down.
type ModelCache interface {
	PutActive(ctx context.Context, version domain.ModelVersion, ttl time.Duration) error
	GetActive(ctx context.Context, modelName string) (*domain.ModelVersion, error)
}
