package main

import (
	"market-pulse/src/cache"
	"market-pulse/src/config"
	datasource "market-pulse/src/data_source"
	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/metrics"
	"market-pulse/src/network"
	"market-pulse/src/scheduler"
	"market-pulse/src/storage"

	"github.com/juju/clock"
)

// -----------------------------------------------------------------------------

// setupArchive opens the optional history archive. A nil archive means
// storage is disabled.
func setupArchive(cfg *config.Config, appLogger *logger.Logger) (interfaces.IHistoryArchive, error) {
	archive, err := storage.NewArchive(cfg.MConfig, logger.NewLogger(cfg.MConfig, "HistoryArchive"))
	if err != nil {
		return nil, err
	}
	if archive == nil {
		appLogger.Info("History archive disabled")
		return nil, nil
	}
	if err := archive.Initialize(); err != nil {
		return nil, err
	}
	return archive, nil
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(cfg *config.Config) interfaces.INetworkManager {
	return network.NewNetworkManager(cfg.MConfig, logger.NewLogger(cfg.MConfig, "NetworkManager"))
}

// -----------------------------------------------------------------------------

// setupDataSources builds one adapter per configured source
func setupDataSources(cfg *config.Config, netMgr interfaces.INetworkManager) (*datasource.MultiSourceManager, error) {
	return datasource.BuildFromConfig(cfg.MConfig, netMgr, clock.WallClock, logger.NewLogger(cfg.MConfig, "MultiSourceManager"))
}

// -----------------------------------------------------------------------------

// setupScheduler gives every source its own timer with the configured
// retry policy.
func setupScheduler(cfg *config.Config, ds *datasource.MultiSourceManager, m *metrics.Collector) (*scheduler.Scheduler, error) {
	var specs []scheduler.SourceSpec
	for _, e := range ds.GetAllSources() {
		specs = append(specs, scheduler.SourceSpec{Adapter: e.Adapter, Interval: e.Interval})
	}

	return scheduler.New(specs, scheduler.Config{
		Policy: helpers.RetryPolicy{
			Attempts:       cfg.Scheduler.MaxAttempts,
			BaseDelay:      cfg.BackoffBase(),
			MaxDelay:       cfg.BackoffMax(),
			AttemptTimeout: cfg.FetchTimeout(),
		},
		Clock:   clock.WallClock,
		Metrics: m,
	})
}

// -----------------------------------------------------------------------------

// setupCache registers every source as unknown and declares the configured
// instruments so charts can answer pending before the first quote.
func setupCache(cfg *config.Config, ds *datasource.MultiSourceManager) *cache.Cache {
	c := cache.New(cfg.History.Capacity)
	for _, e := range ds.GetAllSources() {
		c.Register(e.Adapter.ID(), e.Adapter.Kind())
	}
	for _, sym := range ds.Instruments() {
		c.TrackInstrument(sym)
	}
	return c
}
