// Package cli provides the command-line interface of netenum.
// This package implements the Cobra-based CLI with commands for running the
// API server, one-off scans, and inspecting networks, results and tokens.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anstrom/netenum/internal/config"
	"github.com/anstrom/netenum/internal/logging"
)

const envPrefix = "NETENUM"

var (
	cfgFile string
	verbose bool
)

// Build information, overridden by SetVersion.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "netenum",
	Short: "Network enumeration service",
	Long: `NetEnum discovers hosts on a network, scans their open ports, probes
HTTP services and takes screenshots of them. Results are persisted after
every step and can be served over a token-protected HTTP API.`,
	Version:       getVersion(),
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind verbose flag: %v\n", err)
	}
}

// initConfig locates the config file and enables NETENUM_* overrides.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads the config file found by viper and applies flag and
// environment overrides on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides copies the keys set in v onto cfg. Only the settings that
// are commonly changed per deployment can be overridden.
func applyOverrides(cfg *config.Config, v *viper.Viper) {
	if v.IsSet("server.host") {
		cfg.Server.Host = v.GetString("server.host")
	}
	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("api.token_file") {
		cfg.API.TokenFile = v.GetString("api.token_file")
	}
	if v.IsSet("scanning.nmap_path") {
		cfg.Scanning.NmapPath = v.GetString("scanning.nmap_path")
	}
	if v.IsSet("scanning.port_range") {
		cfg.Scanning.PortRange = v.GetString("scanning.port_range")
	}
	if v.IsSet("probe.render.enabled") {
		cfg.Probe.Render.Enabled = v.GetBool("probe.render.enabled")
	}
	if v.IsSet("storage.driver") {
		cfg.Storage.Driver = v.GetString("storage.driver")
	}
	if v.IsSet("storage.path") {
		cfg.Storage.Path = v.GetString("storage.path")
	}
	if v.IsSet("storage.database.password") {
		cfg.Storage.Database.Password = v.GetString("storage.database.password")
	}
	if v.IsSet("logging.level") {
		cfg.Logging.Level = logging.LogLevel(v.GetString("logging.level"))
	}
	if v.GetBool("verbose") {
		cfg.Logging.Level = logging.LevelDebug
	}
}

// initLogging builds the process logger and installs it as the default.
func initLogging(cfg *config.Config) *logging.Logger {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
		logger = logging.NewDefault()
	}
	logging.SetDefault(logger)
	return logger
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}
