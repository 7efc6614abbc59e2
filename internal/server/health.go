package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// BillsService is the service name reported by the gRPC health endpoint.
const BillsService = "carbon.v1.BillsService"

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer mirrors record store reachability into the standard gRPC health service.
type HealthServer struct {
	hs       *health.Server
	store    Pinger
	interval time.Duration
	logger   *slog.Logger
}

func NewHealthServer(store Pinger, interval time.Duration, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HealthServer{hs: health.NewServer(), store: store, interval: interval, logger: logger}
}

// Refresh pings the store once and updates the served status.
func (h *HealthServer) Refresh(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.store.Ping(pctx); err != nil {
		h.logger.Warn("health.store.unreachable", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.hs.SetServingStatus("", status)
	h.hs.SetServingStatus(BillsService, status)
}

// Serve listens on addr until ctx is done.
func (h *HealthServer) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, h.hs)

	h.Refresh(ctx)
	go func() {
		t := time.NewTicker(h.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				h.hs.Shutdown()
				gs.GracefulStop()
				return
			case <-t.C:
				h.Refresh(ctx)
			}
		}
	}()

	h.logger.Info("grpc health listening", "addr", addr)
	return gs.Serve(lis)
}
