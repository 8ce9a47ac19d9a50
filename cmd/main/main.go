package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-pulse/src/broadcast"
	"market-pulse/src/chart"
	"market-pulse/src/config"
	"market-pulse/src/logger"
	"market-pulse/src/metrics"
	"market-pulse/src/pipeline"
	"market-pulse/src/server"

	"github.com/juju/clock"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.MConfig, cfg.Name)

	if err := run(cfg, *configPath, appLogger); err != nil {
		appLogger.Critical("%v", err)
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func run(cfg *config.Config, configPath string, appLogger *logger.Logger) error {
	collector := metrics.NewMetricsCollector()

	// 1. Storage
	archive, err := setupArchive(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to open history archive: %w", err)
	}
	if archive != nil {
		defer archive.Close()
	}

	// 2. Sources and scheduling
	ds, err := setupDataSources(cfg, setupNetwork(cfg))
	if err != nil {
		return fmt.Errorf("failed to build sources: %w", err)
	}
	sched, err := setupScheduler(cfg, ds, collector)
	if err != nil {
		return fmt.Errorf("failed to build scheduler: %w", err)
	}

	// 3. State, fan-out and glue
	store := setupCache(cfg, ds)
	registry := broadcast.NewRegistry(cfg.Sessions.OutboundQueueSize, clock.WallClock, collector)
	broadcaster := broadcast.NewBroadcaster(registry, clock.WallClock, collector)
	pipe := pipeline.New(store, broadcaster, archive, collector)
	pipe.WarmHistory(ds.Instruments(), cfg.History.Capacity)

	// 4. Servers
	srv := server.NewAPIServer(cfg.MConfig, logger.NewLogger(cfg.MConfig, "APIServer"), server.Deps{
		Cache:       store,
		Charts:      chart.NewService(store),
		Registry:    registry,
		Broadcaster: broadcaster,
		Refresher:   sched,
		State:       pipe,
		Metrics:     collector,
	})
	startHTTP(srv, appLogger)

	grpcServer, err := startGRPC(cfg, configPath, ds, sched, store, appLogger)
	if err != nil {
		return err
	}

	// 5. Run until signalled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipe.Run(ctx, sched.Updates())
	if err := sched.Start(ctx); err != nil {
		return err
	}
	go runRetention(ctx, archive, cfg, appLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()
	sched.Wait()
	pipe.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown: %v", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return nil
}
