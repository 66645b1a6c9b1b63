package postgres

import (
	"time"

	"github.com/google/uuid"
)

type outcomeModel struct {
	ContentID      string    `gorm:"column:content_id;primaryKey"`
	Features       string    `gorm:"column:features;type:jsonb"`
	Engagement     float64   `gorm:"column:engagement"`
	Views          *int64    `gorm:"column:views"`
	CompletionRate *float64  `gorm:"column:completion_rate"`
	RecordedAt     time.Time `gorm:"column:recorded_at"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (outcomeModel) TableName() string { return "engagement_outcomes" }

type modelVersionModel struct {
	ModelName   string    `gorm:"column:model_name;primaryKey"`
	Version     string    `gorm:"column:version;primaryKey"`
	Weights     string    `gorm:"column:weights;type:jsonb"`
	Accuracy    float64   `gorm:"column:accuracy"`
	MeanError   float64   `gorm:"column:mean_error"`
	SampleCount int       `gorm:"column:sample_count"`
	Active      bool      `gorm:"column:active"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (modelVersionModel) TableName() string { return "engagement_model_versions" }

type outboxModel struct {
	OutboxID     uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      string     `gorm:"column:payload;type:jsonb"`
	RetryCount   int        `gorm:"column:retry_count"`
	LastError    *string    `gorm:"column:last_error"`
	LastErrorAt  *time.Time `gorm:"column:last_error_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
	FirstSeenAt  time.Time  `gorm:"column:first_seen_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
}

func (outboxModel) TableName() string { return "engagement_outbox" }
