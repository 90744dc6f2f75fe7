package grpcapi

import (
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// RoutingService - имя сервиса в grpc.health.v1
const RoutingService = "aggregator.routing"

// HealthServer reports whether deal routing can currently reach any aggregator.
// The overall "" service stays SERVING while the process is up.
type HealthServer struct {
	*health.Server
	routing atomic.Bool
}

func NewHealthServer() *HealthServer {
	h := &HealthServer{Server: health.NewServer()}
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetRoutingServing(true)
	return h
}

func (h *HealthServer) SetRoutingServing(serving bool) {
	h.routing.Store(serving)
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.SetServingStatus(RoutingService, status)
}

func (h *HealthServer) RoutingServing() bool {
	return h.routing.Load()
}

// NewServer builds the gRPC server with health and reflection registered
func NewServer(h *HealthServer, opts ...grpc.ServerOption) *grpc.Server {
	server := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(server, h)
	reflection.Register(server)
	return server
}
