package bootstrap

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/eleven-am/voice-relay/internal/health"
	"go.uber.org/fx"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	relayService        = "voice.relay"
	healthProbeInterval = 15 * time.Second
)

func NewGRPCServer() *grpc.Server {
	return grpc.NewServer()
}

func ProvideHealthServer(server *grpc.Server) *grpchealth.Server {
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	return hs
}

// servingStatus maps readiness onto the gRPC health vocabulary. A degraded
// relay still serves.
func servingStatus(status health.Status) healthpb.HealthCheckResponse_ServingStatus {
	if status == health.StatusUnhealthy {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

func mirrorReadiness(ctx context.Context, hs *grpchealth.Server, h *health.Handler, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		_, status := h.Evaluate(probeCtx)
		cancel()
		if ctx.Err() != nil {
			return
		}
		hs.SetServingStatus(relayService, servingStatus(status))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func StartGRPCServer(lc fx.Lifecycle, server *grpc.Server, hs *grpchealth.Server, h *health.Handler, cfg *Config, logger *slog.Logger) {
	if cfg.GRPCAddr == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				cancel()
				return err
			}
			hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			go mirrorReadiness(ctx, hs, h, healthProbeInterval)
			go func() {
				logger.Info("gRPC server starting", "addr", cfg.GRPCAddr)
				if err := server.Serve(lis); err != nil {
					logger.Error("gRPC server error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			hs.Shutdown()
			server.GracefulStop()
			return nil
		},
	})
}

var GRPCModule = fx.Options(
	fx.Provide(NewGRPCServer, ProvideHealthServer),
	fx.Invoke(StartGRPCServer),
)
