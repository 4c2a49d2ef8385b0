package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/roomflow/reservations/internal/availability/application"
	"github.com/roomflow/reservations/pkg/apperr"
)

type Server struct {
	log *slog.Logger
	svc *application.Service
}

func NewServer(log *slog.Logger, svc *application.Service) *Server {
	return &Server{log: log, svc: svc}
}

func (s *Server) CheckRoom(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	roomID := fields["roomId"].GetStringValue()
	date := fields["date"].GetStringValue()

	available, err := s.svc.CheckRoom(ctx, roomID, date)
	if err != nil {
		s.log.Error("check room failed", "room", roomID, "err", err)
		if errors.Is(err, apperr.ErrTransport) {
			return nil, status.Error(codes.Unavailable, "room store unavailable")
		}
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"available": structpb.NewBoolValue(available),
	}}, nil
}

// Register adds the availability and standard health services to gs.
func Register(gs *grpc.Server, srv *Server) {
	RegisterAvailabilityServer(gs, srv)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
}

func Run(addr string, srv *Server) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	gs := grpc.NewServer()
	Register(gs, srv)
	go func() {
		if err := gs.Serve(lis); err != nil {
			srv.log.Error("grpc serve stopped", "err", err)
		}
	}()
	return gs, nil
}
