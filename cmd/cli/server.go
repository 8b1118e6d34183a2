package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anstrom/netenum/internal/api"
	"github.com/anstrom/netenum/internal/api/handlers"
	"github.com/anstrom/netenum/internal/auth"
	"github.com/anstrom/netenum/internal/config"
	"github.com/anstrom/netenum/internal/logging"
	"github.com/anstrom/netenum/internal/metrics"
	"github.com/anstrom/netenum/internal/scheduler"
)

const systemMetricsInterval = 15 * time.Second

// serverCmd runs the API server in the foreground.
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the API server",
	Long: `Run the NetEnum API server in the foreground until interrupted.

On first start a bearer token is generated and written to the token file.
When scheduling is enabled in the configuration, the configured network is
also scanned on its cron schedule.`,
	Example: `  netenum server
  netenum server --host 127.0.0.1 --port 8080
  NETENUM_SERVER_PORT=9000 netenum server`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().String("host", "", "Override server host")
	serverCmd.Flags().Int("port", 0, "Override server port")

	for key, flag := range map[string]string{"server.host": "host", "server.port": "port"} {
		if err := viper.BindPFlag(key, serverCmd.Flags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", flag, err)
		}
	}
}

func runServer(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := initLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := loadTokens(cfg, logger)
	if err != nil {
		return err
	}

	var prom *metrics.PrometheusMetrics
	var recorder metrics.Recorder = metrics.Nop{}
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheusMetrics()
		go prom.StartPeriodicUpdates(ctx, systemMetricsInterval)
		recorder = prom
	}

	a, err := newApp(ctx, cfg, logger, appOptions{Metrics: recorder, BaseContext: ctx})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Failed to close result store", "error", err)
		}
	}()

	hub := handlers.NewHub(logger)
	defer hub.Close()

	if cfg.Schedule.Enabled {
		sched, err := startScheduler(cfg, a, hub, logger)
		if err != nil {
			return err
		}
		defer sched.Stop()
	}

	server, err := api.New(cfg, api.Dependencies{
		Scans:    a.orch,
		Hub:      hub,
		State:    a.orch.State(),
		Networks: a.networks,
		Graph:    a.graph,
		Store:    a.store,
		Tokens:   tokens,
		Metrics:  prom,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	return server.Start(ctx)
}

// loadTokens returns the token file's token plus the configured extras.
func loadTokens(cfg *config.Config, logger *logging.Logger) (*auth.TokenSet, error) {
	token, created, err := auth.LoadOrCreateToken(cfg.API.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load API token: %w", err)
	}
	if created {
		logger.Info("Generated and saved new API token", "path", cfg.API.TokenFile)
		fmt.Fprintf(os.Stderr, "API TOKEN: %s\n", token)
	} else {
		logger.Debug("Using existing API token", "path", cfg.API.TokenFile)
	}
	logger.Info("API authentication enabled",
		"token_prefix", auth.DisplayPrefix(token),
		"extra_tokens", len(cfg.API.Tokens))

	return auth.NewTokenSet(append([]string{token}, cfg.API.Tokens...)...), nil
}

func startScheduler(cfg *config.Config, a *app, hub *handlers.Hub, logger *logging.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.NewScheduler(a.orch, hub.Broadcast, logger)
	if _, err := sched.AddScanJob("configured", cfg.Schedule.Cron, cfg.Schedule.Network); err != nil {
		return nil, fmt.Errorf("failed to schedule scan: %w", err)
	}
	if err := sched.Start(); err != nil {
		return nil, err
	}
	return sched, nil
}
