package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string
	LogLevel  string

	HTTPPort int
	GRPCPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string

	MaxDBConns                 int
	KafkaConsumerGroup         string
	KafkaTopicRetrainRequested string
	KafkaTopicOutcomeRecorded  string
	KafkaTopicModelEvents      string

	OutboxPollInterval   time.Duration
	OutboxBatchSize      int
	ConsumerPollInterval time.Duration

	ModelName           string
	AdoptionThreshold   float64
	TrainingSampleLimit int
	RetrainInterval     time.Duration
	RetrainTimeout      time.Duration
	ModelCacheTTL       time.Duration
	ModelRefresh        time.Duration

	StoreBreakerFailures int
	StoreBreakerTimeout  time.Duration
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		LogLevel string `yaml:"log_level"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL                string   `yaml:"postgres_url"`
		RedisURL                   string   `yaml:"redis_url"`
		KafkaBrokers               []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup         string   `yaml:"kafka_consumer_group"`
		KafkaTopicRetrainRequested string   `yaml:"kafka_topic_retrain_requested"`
		KafkaTopicOutcomeRecorded  string   `yaml:"kafka_topic_outcome_recorded"`
		KafkaTopicModelEvents      string   `yaml:"kafka_topic_model_events"`
	} `yaml:"dependencies"`
	Model struct {
		Name                   string  `yaml:"name"`
		AdoptionThreshold      float64 `yaml:"adoption_threshold"`
		TrainingSampleLimit    int     `yaml:"training_sample_limit"`
		RetrainIntervalMinutes int     `yaml:"retrain_interval_minutes"`
		RetrainTimeoutSeconds  int     `yaml:"retrain_timeout_seconds"`
		CacheTTLHours          int     `yaml:"cache_ttl_hours"`
		RefreshIntervalSeconds int     `yaml:"refresh_interval_seconds"`
	} `yaml:"model"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                  "M56-Predictive-Analytics",
		LogLevel:                   "info",
		HTTPPort:                   8080,
		GRPCPort:                   9090,
		MaxDBConns:                 20,
		KafkaConsumerGroup:         "m56-predictive-analytics",
		KafkaTopicRetrainRequested: "engagement.retrain_requested",
		KafkaTopicOutcomeRecorded:  "content.outcome_recorded",
		OutboxPollInterval:         2 * time.Second,
		OutboxBatchSize:            100,
		ConsumerPollInterval:       2 * time.Second,
		ModelName:                  "engagement_predictor",
		AdoptionThreshold:          0.6,
		TrainingSampleLimit:        5000,
		RetrainTimeout:             2 * time.Minute,
		ModelCacheTTL:              24 * time.Hour,
		ModelRefresh:               30 * time.Second,
		StoreBreakerFailures:       5,
		StoreBreakerTimeout:        30 * time.Second,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		applyFile(&cfg, f)
	}

	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.KafkaTopicRetrainRequested = envOrDefault("KAFKA_TOPIC_RETRAIN_REQUESTED", cfg.KafkaTopicRetrainRequested)
	cfg.KafkaTopicOutcomeRecorded = envOrDefault("KAFKA_TOPIC_OUTCOME_RECORDED", cfg.KafkaTopicOutcomeRecorded)
	cfg.KafkaTopicModelEvents = envOrDefault("KAFKA_TOPIC_MODEL_EVENTS", cfg.KafkaTopicModelEvents)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = envInt("DB_MAX_CONNS", cfg.MaxDBConns)
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerPollInterval.Seconds()))) * time.Second
	cfg.ModelName = envOrDefault("MODEL_NAME", cfg.ModelName)
	cfg.AdoptionThreshold = envFloat("ADOPTION_THRESHOLD", cfg.AdoptionThreshold)
	cfg.TrainingSampleLimit = envInt("TRAINING_SAMPLE_LIMIT", cfg.TrainingSampleLimit)
	cfg.RetrainInterval = time.Duration(envInt("RETRAIN_INTERVAL_MINUTES", int(cfg.RetrainInterval.Minutes()))) * time.Minute
	cfg.RetrainTimeout = time.Duration(envInt("RETRAIN_TIMEOUT_SECONDS", int(cfg.RetrainTimeout.Seconds()))) * time.Second
	cfg.ModelCacheTTL = time.Duration(envInt("MODEL_CACHE_TTL_HOURS", int(cfg.ModelCacheTTL.Hours()))) * time.Hour
	cfg.ModelRefresh = time.Duration(envInt("MODEL_REFRESH_SECONDS", int(cfg.ModelRefresh.Seconds()))) * time.Second
	cfg.StoreBreakerFailures = envInt("STORE_BREAKER_FAILURES", cfg.StoreBreakerFailures)
	cfg.StoreBreakerTimeout = time.Duration(envInt("STORE_BREAKER_TIMEOUT_SECONDS", int(cfg.StoreBreakerTimeout.Seconds()))) * time.Second

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.LogLevel != "" {
		cfg.LogLevel = f.Service.LogLevel
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
	}
	if f.Dependencies.KafkaConsumerGroup != "" {
		cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
	}
	if f.Dependencies.KafkaTopicRetrainRequested != "" {
		cfg.KafkaTopicRetrainRequested = f.Dependencies.KafkaTopicRetrainRequested
	}
	if f.Dependencies.KafkaTopicOutcomeRecorded != "" {
		cfg.KafkaTopicOutcomeRecorded = f.Dependencies.KafkaTopicOutcomeRecorded
	}
	if f.Dependencies.KafkaTopicModelEvents != "" {
		cfg.KafkaTopicModelEvents = f.Dependencies.KafkaTopicModelEvents
	}
	if f.Model.Name != "" {
		cfg.ModelName = f.Model.Name
	}
	if f.Model.AdoptionThreshold > 0 {
		cfg.AdoptionThreshold = f.Model.AdoptionThreshold
	}
	if f.Model.TrainingSampleLimit > 0 {
		cfg.TrainingSampleLimit = f.Model.TrainingSampleLimit
	}
	if f.Model.RetrainIntervalMinutes > 0 {
		cfg.RetrainInterval = time.Duration(f.Model.RetrainIntervalMinutes) * time.Minute
	}
	if f.Model.RetrainTimeoutSeconds > 0 {
		cfg.RetrainTimeout = time.Duration(f.Model.RetrainTimeoutSeconds) * time.Second
	}
	if f.Model.CacheTTLHours > 0 {
		cfg.ModelCacheTTL = time.Duration(f.Model.CacheTTLHours) * time.Hour
	}
	if f.Model.RefreshIntervalSeconds > 0 {
		cfg.ModelRefresh = time.Duration(f.Model.RefreshIntervalSeconds) * time.Second
	}
}

func validateConfig(cfg Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %d", cfg.HTTPPort)
	}
	if cfg.GRPCPort <= 0 || cfg.GRPCPort > 65535 {
		return fmt.Errorf("invalid GRPC_PORT %d", cfg.GRPCPort)
	}
	if cfg.AdoptionThreshold <= 0 || cfg.AdoptionThreshold >= 1 {
		return fmt.Errorf("ADOPTION_THRESHOLD must be within (0,1), got %v", cfg.AdoptionThreshold)
	}
	if cfg.TrainingSampleLimit < 10 {
		return fmt.Errorf("TRAINING_SAMPLE_LIMIT must be at least 10, got %d", cfg.TrainingSampleLimit)
	}
	if cfg.RetrainInterval < 0 {
		return fmt.Errorf("RETRAIN_INTERVAL_MINUTES must not be negative")
	}
	if cfg.ModelRefresh <= 0 {
		return fmt.Errorf("MODEL_REFRESH_SECONDS must be positive")
	}
	if strings.TrimSpace(cfg.ModelName) == "" {
		return fmt.Errorf("missing MODEL_NAME")
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	items := strings.Split(raw, ",")
	return trimNonEmpty(items)
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
