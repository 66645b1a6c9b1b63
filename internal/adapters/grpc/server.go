package grpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/application"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

const serviceName = "viralforge.predictive.v1.EngagementInternalService"

type EngagementInternalService interface {
	Predict(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetFeatureImportance(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Retrain(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type EngagementInternalServer struct {
	service *application.Service
}

func NewEngagementInternalServer(service *application.Service) *EngagementInternalServer {
	return &EngagementInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc EngagementInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*EngagementInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Predict", Handler: unaryHandler("Predict", func() *structpb.Struct { return &structpb.Struct{} }, svc.Predict)},
			{MethodName: "GetFeatureImportance", Handler: unaryHandler("GetFeatureImportance", func() *emptypb.Empty { return &emptypb.Empty{} }, svc.GetFeatureImportance)},
			{MethodName: "Retrain", Handler: unaryHandler("Retrain", func() *structpb.Struct { return &structpb.Struct{} }, svc.Retrain)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "predictive/v1/engagement_internal.proto",
	}, svc)
}

func (s *EngagementInternalServer) Predict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	featuresVal := req.GetFields()["features"]
	if featuresVal == nil || featuresVal.GetStructValue() == nil {
		return nil, status.Error(codes.InvalidArgument, "missing features")
	}
	features := map[string]float64{}
	for key, value := range featuresVal.GetStructValue().GetFields() {
		if _, ok := value.GetKind().(*structpb.Value_NumberValue); !ok {
			return nil, status.Errorf(codes.InvalidArgument, "feature %s must be a number", key)
		}
		features[key] = value.GetNumberValue()
	}
	result, err := s.service.Predict(ctx, actorFromContext(ctx), application.PredictInput{Features: features})
	if err != nil {
		return nil, toStatus(err)
	}
	contributions := make([]any, 0, len(result.Contributions))
	for _, c := range result.Contributions {
		contributions = append(contributions, map[string]any{
			"feature":          string(c.Feature),
			"normalized_value": c.NormalizedValue,
			"weight":           c.Weight,
			"contribution":     c.Contribution,
		})
	}
	return newStruct(map[string]any{
		"predicted_score": result.Score,
		"confidence":      result.Confidence,
		"model_version":   result.ModelVersion,
		"contributions":   contributions,
	})
}

func (s *EngagementInternalServer) GetFeatureImportance(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	importance, err := s.service.GetFeatureImportance(ctx, actorFromContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	weights := make(map[string]any, len(importance.Weights))
	for name, w := range importance.Weights.ToMap() {
		weights[name] = w
	}
	return newStruct(map[string]any{
		"model_name":    importance.ModelName,
		"model_version": importance.ModelVersion,
		"weights":       weights,
		"accuracy":      importance.Performance.Accuracy,
	})
}

func (s *EngagementInternalServer) Retrain(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	modelName := req.GetFields()["model_name"].GetStringValue()
	out, err := s.service.Retrain(ctx, actorFromContext(ctx), modelName)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{
		"model_name":       out.ModelName,
		"version_id":       out.VersionID,
		"previous_version": out.PreviousVersion,
		"adopted":          out.Adopted,
		"degenerate":       out.Degenerate,
		"accuracy":         out.Performance.Accuracy,
		"mean_error":       out.Performance.MeanError,
		"sample_count":     float64(out.Performance.SampleCount),
	})
}

func unaryHandler[Req any](method string, newReq func() Req, call func(context.Context, Req) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := newReq()
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(Req)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

// actorFromContext trusts the caller identity forwarded by the mesh sidecar.
// Internal callers default to the service role.
func actorFromContext(ctx context.Context) application.Actor {
	actor := application.Actor{SubjectID: "internal", Role: "service"}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return actor
	}
	if v := md.Get("x-actor-id"); len(v) > 0 && strings.TrimSpace(v[0]) != "" {
		actor.SubjectID = strings.TrimSpace(v[0])
	}
	if v := md.Get("x-actor-role"); len(v) > 0 && strings.TrimSpace(v[0]) != "" {
		actor.Role = strings.ToLower(strings.TrimSpace(v[0]))
	}
	if v := md.Get("x-request-id"); len(v) > 0 {
		actor.RequestID = v[0]
	}
	return actor
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientData), errors.Is(err, domain.ErrReconcileRequired):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable), errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}
