package query

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/obsidianstack/capturestack/pkg/capture"
	"github.com/obsidianstack/capturestack/pkg/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "capturestack.v1.StackService"

// FullMethodGetRelatedStack is the full method path of GetRelatedStack.
const FullMethodGetRelatedStack = "/" + ServiceName + "/GetRelatedStack"

// StackRequest asks for the stitched stack of the newest live object with
// identity ID.
type StackRequest struct {
	ID uint64 `json:"id"`
}

// StackReply carries the stitched frames; nil entries separate segments.
// Found is false when no live entry has the requested id.
type StackReply struct {
	Found  bool           `json:"found"`
	Frames []*types.Frame `json:"frames,omitempty"`
}

// StackServer is the server API for the stack service.
type StackServer interface {
	GetRelatedStack(context.Context, *StackRequest) (*StackReply, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StackServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetRelatedStack", Handler: getRelatedStackHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func getRelatedStackHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StackRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StackServer).GetRelatedStack(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethodGetRelatedStack}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StackServer).GetRelatedStack(ctx, req.(*StackRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Service implements StackServer over a capture store and owns the gRPC
// health status of the agent.
type Service struct {
	store  *capture.Store
	health *health.Server
}

// New creates a Service reading st. Its health status starts from
// st.Enabled().
func New(st *capture.Store) *Service {
	s := &Service{store: st, health: health.NewServer()}
	s.SetServing(st.Enabled())
	return s
}

// Register adds the stack service and the standard health service to gs.
func (s *Service) Register(gs *grpc.Server) {
	gs.RegisterService(&serviceDesc, s)
	healthpb.RegisterHealthServer(gs, s.health)
}

// SetServing reports the stack service as SERVING while capturing is enabled
// and NOT_SERVING otherwise. The overall ("") status stays SERVING.
func (s *Service) SetServing(enabled bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if enabled {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
}

// Shutdown marks every service NOT_SERVING ahead of a graceful stop.
func (s *Service) Shutdown() {
	s.health.Shutdown()
}

// GetRelatedStack is the unary RPC handler. Authentication is enforced by the
// server interceptor before this is called.
func (s *Service) GetRelatedStack(ctx context.Context, req *StackRequest) (*StackReply, error) {
	if req.ID == 0 {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	frames, ok := s.store.RelatedStackByID(req.ID)
	slog.Debug("query: related stack", "id", req.ID, "found", ok, "frames", len(frames))
	if !ok {
		return &StackReply{}, nil
	}
	return &StackReply{Found: true, Frames: frames}, nil
}
