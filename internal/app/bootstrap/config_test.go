package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("POSTGRES_URL", "")
	if _, err := LoadConfig("testdata/does-not-exist.yaml"); err == nil {
		t.Fatal("expected missing database url to fail")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost:5432/m56")
	cfg, err := LoadConfig("testdata/does-not-exist.yaml")
	if err != nil {
		t.Fatalf("expected defaults, got err=%v", err)
	}
	if cfg.ServiceID != "M56-Predictive-Analytics" || cfg.HTTPPort != 8080 || cfg.GRPCPort != 9090 {
		t.Fatalf("unexpected service defaults: %+v", cfg)
	}
	if cfg.AdoptionThreshold != 0.6 || cfg.RetrainInterval != 0 || cfg.ModelName != "engagement_predictor" {
		t.Fatalf("unexpected model defaults: %+v", cfg)
	}
	if cfg.ModelRefresh != 30*time.Second {
		t.Fatalf("expected 30s model refresh, got %v", cfg.ModelRefresh)
	}
	if cfg.RedisURL != "" || len(cfg.KafkaBrokers) != 0 {
		t.Fatalf("redis and kafka should be optional, got %q %v", cfg.RedisURL, cfg.KafkaBrokers)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
service:
  id: m56-test
  http_port: 8181
dependencies:
  postgres_url: postgres://file/m56
  kafka_brokers: ["k1:9092", " ", "k2:9092"]
model:
  adoption_threshold: 0.7
  retrain_interval_minutes: 30
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DB_URL", "")
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("ADOPTION_THRESHOLD", "0.65")
	t.Setenv("RETRAIN_TIMEOUT_SECONDS", "45")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceID != "m56-test" || cfg.HTTPPort != 8181 || cfg.DatabaseURL != "postgres://file/m56" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if diff := cmp.Diff([]string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers); diff != "" {
		t.Fatalf("unexpected brokers (-want +got):\n%s", diff)
	}
	if cfg.AdoptionThreshold != 0.65 {
		t.Fatalf("expected env threshold to win, got %v", cfg.AdoptionThreshold)
	}
	if cfg.RetrainInterval != 30*time.Minute || cfg.RetrainTimeout != 45*time.Second {
		t.Fatalf("unexpected retrain timings %v %v", cfg.RetrainInterval, cfg.RetrainTimeout)
	}
}

func TestValidateConfigRejectsBadThreshold(t *testing.T) {
	base := Config{
		DatabaseURL:         "postgres://localhost/m56",
		HTTPPort:            8080,
		GRPCPort:            9090,
		ModelName:           "engagement_predictor",
		AdoptionThreshold:   0.6,
		TrainingSampleLimit: 100,
		ModelRefresh:        30 * time.Second,
	}
	if err := validateConfig(base); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	bad := base
	bad.AdoptionThreshold = 1.5
	if err := validateConfig(bad); err == nil {
		t.Fatal("expected threshold above 1 to fail")
	}
	bad = base
	bad.TrainingSampleLimit = 5
	if err := validateConfig(bad); err == nil {
		t.Fatal("expected sample limit below the fitting minimum to fail")
	}
	bad = base
	bad.ModelRefresh = 0
	if err := validateConfig(bad); err == nil {
		t.Fatal("expected a zero model refresh interval to fail")
	}
}
