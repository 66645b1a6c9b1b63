package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/adapters/memory"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

func TestModelStoreOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()
	inner := memory.NewRepositories().Models
	store := NewModelStore(inner, BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Hour}, nil)
	ctx := context.Background()

	inner.FailGetActive(2)
	for i := 0; i < 2; i++ {
		if _, err := store.GetActive(ctx, domain.DefaultModelName); err == nil {
			t.Fatalf("call %d: expected injected failure", i)
		}
	}
	if store.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", store.State())
	}
	_, err := store.GetActive(ctx, domain.DefaultModelName)
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable while open, got %v", err)
	}
}

func TestModelStoreIgnoresCallerErrors(t *testing.T) {
	t.Parallel()
	inner := memory.NewRepositories().Models
	store := NewModelStore(inner, BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Hour}, nil)
	ctx := context.Background()
	v := domain.ModelVersion{ModelName: domain.DefaultModelName, Version: "v1", Weights: domain.DefaultWeights(), Active: true}

	if err := store.Create(ctx, v); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, v); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected duplicate to be invalid input, got %v", err)
	}
	if store.State() != gobreaker.StateClosed {
		t.Fatalf("duplicate version must not trip the breaker")
	}
	active, err := store.GetActive(ctx, domain.DefaultModelName)
	if err != nil || active == nil || active.Version != "v1" {
		t.Fatalf("expected v1 active, got %+v err=%v", active, err)
	}
	versions, err := store.List(ctx, domain.DefaultModelName, 10)
	if err != nil || len(versions) != 1 {
		t.Fatalf("expected one version, got %d err=%v", len(versions), err)
	}
}
