package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/md-rashed-zaman/callboard/libs/config"
	"github.com/md-rashed-zaman/callboard/libs/grpcx"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// startGrpcServer serves the gRPC health service. It reports SERVING until ctx ends,
// then NOT_SERVING while it drains.
func startGrpcServer(ctx context.Context, logger *slog.Logger) error {
	port, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv, health := grpcx.NewServer(logger)
	health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		health.Shutdown()
		srv.GracefulStop()
		logger.Info("grpc server stopped")
	}()
	return nil
}
