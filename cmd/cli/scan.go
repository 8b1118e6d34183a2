package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anstrom/netenum/internal/logging"
)

// scanCmd runs one scan locally.
var scanCmd = &cobra.Command{
	Use:   "scan <cidr>",
	Short: "Scan a network and print the progress log",
	Long: `Run a single scan of an IPv4 network without starting the API server.
The progress log is printed to stdout as it is produced, and the results are
persisted to the configured store exactly as an API scan would.`,
	Example: `  netenum scan 192.168.1.0/24
  netenum scan 10.0.0.0/30 --ports 1-1024 --no-screenshots`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var (
	scanPorts         string
	scanNoScreenshots bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanPorts, "ports", "p", "", "Port range to scan (default from config)")
	scanCmd.Flags().BoolVar(&scanNoScreenshots, "no-screenshots", false, "Skip headless browser screenshots")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if scanPorts != "" {
		cfg.Scanning.PortRange = scanPorts
	}
	if scanNoScreenshots {
		cfg.Probe.Render.Enabled = false
	}

	// The stream already carries every Info line, so the process log only
	// goes to stderr when asked for.
	logger := logging.NewWithWriter(cfg.Logging, io.Discard)
	if verbose {
		logger = logging.NewWithWriter(cfg.Logging, os.Stderr)
	}
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, appOptions{BaseContext: ctx})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	out := cmd.OutOrStdout()
	scan, err := a.orch.Run(ctx, args[0], func(line string) {
		fmt.Fprintln(out, line)
	})
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Scan %s finished: %d hosts\n", scan.ID, len(scan.Hosts))
	}
	return nil
}
