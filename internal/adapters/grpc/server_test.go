package grpc

import (
	"context"
	"fmt"
	"math"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/adapters/memory"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/application"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

func newServer() *EngagementInternalServer {
	repos := memory.NewRepositories()
	svc := application.NewService(application.Dependencies{
		Outcomes: repos.Outcomes,
		Models:   repos.Models,
		Cache:    repos.Cache,
		Outbox:   repos.Outbox,
	})
	return NewEngagementInternalServer(svc)
}

func TestPredictReturnsScore(t *testing.T) {
	t.Parallel()
	req, err := structpb.NewStruct(map[string]any{
		"features": map[string]any{"hookStrength": 1.0},
	})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := newServer().Predict(context.Background(), req)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	want := 100 / (1 + math.Exp(-0.2))
	if got := resp.GetFields()["predicted_score"].GetNumberValue(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected score %v, got %v", want, got)
	}
	if got := resp.GetFields()["model_version"].GetStringValue(); got != domain.DefaultModelVersion {
		t.Fatalf("expected default model version, got %q", got)
	}
}

func TestPredictRejectsNonNumericFeature(t *testing.T) {
	t.Parallel()
	req, _ := structpb.NewStruct(map[string]any{
		"features": map[string]any{"hookStrength": "strong"},
	})
	_, err := newServer().Predict(context.Background(), req)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestRetrainWithoutSamplesIsFailedPrecondition(t *testing.T) {
	t.Parallel()
	req, _ := structpb.NewStruct(map[string]any{})
	_, err := newServer().Retrain(context.Background(), req)
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %v", err)
	}
}

func TestRetrainHonoursForwardedRole(t *testing.T) {
	t.Parallel()
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-actor-id", "creator-1", "x-actor-role", "creator"))
	req, _ := structpb.NewStruct(map[string]any{})
	_, err := newServer().Retrain(ctx, req)
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestGetFeatureImportanceReturnsDefaults(t *testing.T) {
	t.Parallel()
	resp, err := newServer().GetFeatureImportance(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("feature importance: %v", err)
	}
	weights := resp.GetFields()["weights"].GetStructValue().GetFields()
	if got := weights[string(domain.FeatureHookStrength)].GetNumberValue(); got != 0.2 {
		t.Fatalf("expected default hook weight 0.2, got %v", got)
	}
}

func TestToStatus(t *testing.T) {
	t.Parallel()
	cases := map[error]codes.Code{
		domain.ErrInvalidInput:       codes.InvalidArgument,
		domain.ErrInsufficientData:   codes.FailedPrecondition,
		domain.ErrReconcileRequired:  codes.FailedPrecondition,
		domain.ErrStorageUnavailable: codes.Unavailable,
		domain.ErrNotFound:           codes.NotFound,
	}
	for err, want := range cases {
		wrapped := fmt.Errorf("op: %w", err)
		if got := status.Code(toStatus(wrapped)); got != want {
			t.Fatalf("%v: expected %v, got %v", err, want, got)
		}
	}
}
