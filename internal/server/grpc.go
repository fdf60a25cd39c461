package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/campus-feed/internal/auth"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
	"github.com/joseph-ayodele/campus-feed/internal/repository"
)

// ServiceName is the gRPC service. Messages are google.protobuf.Struct so
// clients need no generated stubs.
const ServiceName = "campusfeed.v1.CampusFeed"

// GRPCService exposes parsing, listing and stats over gRPC.
type GRPCService struct {
	parser Parser
	events repository.EventRepository
	stats  Dashboard
	logger *slog.Logger
}

func NewGRPCService(parser Parser, events repository.EventRepository, stats Dashboard, logger *slog.Logger) *GRPCService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCService{parser: parser, events: events, stats: stats, logger: logger}
}

// writeMethods need a role that may change events.
var writeMethods = map[string]bool{"/" + ServiceName + "/Parse": true}

func (s *GRPCService) Parse(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req entity.ParseRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.parser.Parse(ctx, req)
	if err != nil {
		s.logger.Warn("grpc.parse.failed", "kind", common.KindOf(err), "error", err)
		return nil, common.GRPCError(err)
	}
	_, body := ParseResponse(res, nil)
	return toStruct(body)
}

func (s *GRPCService) ListEvents(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		Status string `json:"status"`
		Type   string `json:"type"`
		Limit  int    `json:"limit"`
		Offset int    `json:"offset"`
	}
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	f := entity.EventFilter{Limit: req.Limit, Offset: req.Offset}
	if req.Status != "" {
		st, ok := parseStatus(req.Status)
		if !ok {
			return nil, common.InvalidArgumentErrorf("unknown status %q", req.Status)
		}
		f.Status = &st
	}
	if req.Type != "" {
		t, ok := parseType(req.Type)
		if !ok {
			return nil, common.InvalidArgumentErrorf("unknown type %q", req.Type)
		}
		f.Type = &t
	}
	events, err := s.events.List(ctx, f)
	if err != nil {
		return nil, common.GRPCError(err)
	}
	if events == nil {
		events = []entity.Event{}
	}
	return toStruct(map[string]any{"events": events})
}

func (s *GRPCService) GetStats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(s.stats.Dashboard(ctx))
}

func fromStruct(in *structpb.Struct, v any) error {
	b, err := json.Marshal(in.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return out, nil
}

type campusFeedServer interface {
	Parse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unary(name string, call func(campusFeedServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(campusFeedServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(campusFeedServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*campusFeedServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Parse", campusFeedServer.Parse),
		unary("ListEvents", campusFeedServer.ListEvents),
		unary("GetStats", campusFeedServer.GetStats),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "campusfeed/v1/campusfeed.proto",
}

// AuthInterceptor applies the token gate to unary calls. Health checks pass.
func AuthInterceptor(gate *auth.Gate) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if gate == nil || strings.HasPrefix(info.FullMethod, "/grpc.health.v1.") {
			return handler(ctx, req)
		}
		var token string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("authorization"); len(v) > 0 {
				token = strings.TrimSpace(strings.TrimPrefix(v[0], "Bearer "))
			}
		}
		id, ok := gate.Verify(token)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid bearer token")
		}
		if writeMethods[info.FullMethod] && !auth.AllowWrite(id) {
			return nil, status.Errorf(codes.PermissionDenied, "role %s may not parse events", id.Role)
		}
		return handler(common.WithIdentity(ctx, id), req)
	}
}

// NewGRPCServer registers the service and the standard health service.
func NewGRPCServer(svc *GRPCService, gate *auth.Gate) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(grpc.UnaryInterceptor(AuthInterceptor(gate)))
	gs.RegisterService(&serviceDesc, svc)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return gs, hs
}
