package postgres

import (
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Outcomes ports.OutcomeRepository
	Models   ports.ModelStore
	Outbox   ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Outcomes: &outcomeRepository{db: db},
		Models:   &modelVersionRepository{db: db},
		Outbox:   &outboxRepository{db: db},
	}
}
