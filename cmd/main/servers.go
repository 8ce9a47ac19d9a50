package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"market-pulse/src/cache"
	"market-pulse/src/config"
	datasource "market-pulse/src/data_source"
	pb "market-pulse/src/grpc_control"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/scheduler"
	"market-pulse/src/server"
	"market-pulse/src/storage"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

// startHTTP runs the query and push server in the background
func startHTTP(srv *server.APIServer, appLogger *logger.Logger) {
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()
}

// -----------------------------------------------------------------------------

// startGRPC serves the operator control plane. It returns nil when
// grpc_port is 0.
func startGRPC(
	cfg *config.Config,
	configPath string,
	ds *datasource.MultiSourceManager,
	sched *scheduler.Scheduler,
	c *cache.Cache,
	appLogger *logger.Logger,
) (*grpc.Server, error) {
	if cfg.GrpcPort == 0 {
		appLogger.Info("gRPC control server disabled")
		return nil, nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for gRPC on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	controlService := pb.NewControlService(cfg, configPath, ds, sched, c, logger.NewLogger(cfg.MConfig, "ControlService"))
	pb.RegisterControlServer(grpcServer, controlService)

	go func() {
		appLogger.Info("Starting gRPC Control Server on %s", addr)
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Error("gRPC server stopped: %v", err)
		}
	}()
	return grpcServer, nil
}

// -----------------------------------------------------------------------------

// runRetention trims the archive once at startup and then hourly.
func runRetention(ctx context.Context, archive interfaces.IHistoryArchive, cfg *config.Config, appLogger *logger.Logger) {
	if archive == nil {
		return
	}

	cleanup := func() {
		if err := archive.CleanupOldData(storage.RetentionCutoff(cfg.MConfig, time.Now())); err != nil {
			appLogger.Error("Retention cleanup failed: %v", err)
		}
	}
	cleanup()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanup()
		}
	}
}
