package cli

import (
	"context"
	"fmt"

	"github.com/anstrom/netenum/internal/config"
	"github.com/anstrom/netenum/internal/discovery"
	"github.com/anstrom/netenum/internal/engine"
	"github.com/anstrom/netenum/internal/enrich"
	"github.com/anstrom/netenum/internal/logging"
	"github.com/anstrom/netenum/internal/metrics"
	"github.com/anstrom/netenum/internal/probe"
	"github.com/anstrom/netenum/internal/scanning"
	"github.com/anstrom/netenum/internal/services"
	"github.com/anstrom/netenum/internal/store"
)

// app holds the services shared by the server and scan commands.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	store      store.ResultStore
	closeStore func() error
	orch       *engine.Orchestrator
	networks   *services.NetworkService
	graph      *services.GraphService
}

type appOptions struct {
	// ScanLogger is the base logger of scan runs. Defaults to the app logger.
	ScanLogger *logging.Logger
	Metrics    metrics.Recorder
	// BaseContext bounds every scan.
	BaseContext context.Context
}

// newApp wires the store, the scan stages and the read-side services.
func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts appOptions) (*app, error) {
	resultStore, closeStore, err := store.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}

	enrichers, err := enrich.FromConfig(cfg.Enrich)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("failed to configure enrichers: %w", err)
	}

	scanLogger := opts.ScanLogger
	if scanLogger == nil {
		scanLogger = logger
	}

	prober := scanning.NewNmapProber(cfg.Scanning, logger)
	var renderer probe.PageRenderer
	if cfg.Probe.Render.Enabled {
		renderer = probe.NewChromeRenderer(cfg.Probe.Render)
	}

	orch := engine.New(engine.Options{
		Discovery:   discovery.NewStage(prober, enrichers, logger),
		PortScan:    scanning.NewPortScanStage(prober, cfg.Scanning.PortRange, cfg.Scanning.PortWorkers),
		Probe:       probe.NewStage(probe.NewNetHTTPFetcher(cfg.Probe.HTTPTimeout, cfg.Probe.MaxBodyBytes), renderer),
		Store:       resultStore,
		Metrics:     opts.Metrics,
		Logger:      scanLogger,
		LogPath:     cfg.Storage.LogPath,
		BaseContext: opts.BaseContext,
	})

	networks := services.NewNetworkService(cfg.Scanning.NmapPath, nil, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		store:      resultStore,
		closeStore: closeStore,
		orch:       orch,
		networks:   networks,
		graph:      services.NewGraphService(resultStore, networks, logger),
	}, nil
}

// Close waits for the active scan and releases the store.
func (a *app) Close() error {
	a.orch.Wait()
	return a.closeStore()
}
