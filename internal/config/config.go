// Package config loads and validates the netenum configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anstrom/netenum/internal/db"
	"github.com/anstrom/netenum/internal/logging"
)

const (
	// MaxPortWorkers caps concurrent per-host port scans so targets are not flooded.
	MaxPortWorkers = 2

	defaultRateLimitRequests = 250
	defaultServerPort        = 8000
	defaultMaxBodyBytes      = 1 << 20
	defaultRenderWidth       = 1280
	defaultRenderHeight      = 720
	defaultVersionIntensity  = 3
	defaultDiscoveryRetries  = 5
	defaultSNMPPort          = 161
)

// Config represents the complete service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	API      APIConfig      `yaml:"api" json:"api"`
	Scanning ScanningConfig `yaml:"scanning" json:"scanning"`
	Probe    ProbeConfig    `yaml:"probe" json:"probe"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Enrich   EnrichConfig   `yaml:"enrich" json:"enrich"`
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Logging  logging.Config `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// APIConfig holds authentication, rate limiting and CORS settings.
type APIConfig struct {
	// TokenFile stores the generated bearer token between restarts.
	TokenFile string `yaml:"token_file" json:"token_file"`
	// Tokens are accepted in addition to the one in TokenFile.
	Tokens []string `yaml:"tokens" json:"tokens"`
	// ExcludePaths bypass authentication. Entries ending in "/" match by prefix.
	ExcludePaths []string        `yaml:"exclude_paths" json:"exclude_paths"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	CORSOrigins  []string        `yaml:"cors_origins" json:"cors_origins"`
}

// RateLimitConfig holds sliding window settings.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Requests int           `yaml:"requests" json:"requests"`
	Window   time.Duration `yaml:"window" json:"window"`
}

// ScanningConfig holds nmap driven discovery and port scan settings.
type ScanningConfig struct {
	NmapPath    string          `yaml:"nmap_path" json:"nmap_path"`
	PortRange   string          `yaml:"port_range" json:"port_range"`
	PortWorkers int             `yaml:"port_workers" json:"port_workers"`
	Discovery   DiscoveryConfig `yaml:"discovery" json:"discovery"`
	PortScan    PortScanConfig  `yaml:"port_scan" json:"port_scan"`
}

// DiscoveryConfig tunes the ping sweep.
type DiscoveryConfig struct {
	Timing      int           `yaml:"timing" json:"timing"`
	MaxRetries  int           `yaml:"max_retries" json:"max_retries"`
	HostTimeout time.Duration `yaml:"host_timeout" json:"host_timeout"`
}

// PortScanConfig tunes per-host service detection.
type PortScanConfig struct {
	Timing           int           `yaml:"timing" json:"timing"`
	VersionIntensity int           `yaml:"version_intensity" json:"version_intensity"`
	HostTimeout      time.Duration `yaml:"host_timeout" json:"host_timeout"`
	OSDetection      bool          `yaml:"os_detection" json:"os_detection"`
}

// ProbeConfig holds HTTP probe and screenshot settings.
type ProbeConfig struct {
	HTTPTimeout  time.Duration `yaml:"http_timeout" json:"http_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	Render       RenderConfig  `yaml:"render" json:"render"`
}

// RenderConfig holds headless browser settings.
type RenderConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	Width      int           `yaml:"width" json:"width"`
	Height     int           `yaml:"height" json:"height"`
	ChromePath string        `yaml:"chrome_path" json:"chrome_path"`
}

// StorageConfig selects and configures the result store.
type StorageConfig struct {
	// Driver is "file" or "postgres".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the snapshot file used by the file driver and by /download.
	Path string `yaml:"path" json:"path"`
	// LogPath receives the transcript of the last run. Empty disables it.
	LogPath  string    `yaml:"log_path" json:"log_path"`
	Database db.Config `yaml:"database" json:"database"`
}

// EnrichConfig holds optional host enrichment settings.
type EnrichConfig struct {
	DNS  DNSConfig  `yaml:"dns" json:"dns"`
	SNMP SNMPConfig `yaml:"snmp" json:"snmp"`
}

// DNSConfig configures reverse lookups for hosts without a hostname.
type DNSConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Server is host:port. Empty uses the first resolver in /etc/resolv.conf.
	Server  string        `yaml:"server" json:"server"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// SNMPConfig configures sysDescr lookups for hosts without an OS.
type SNMPConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Community string        `yaml:"community" json:"community"`
	Port      int           `yaml:"port" json:"port"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// ScheduleConfig configures recurring scans in server mode.
type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Cron    string `yaml:"cron" json:"cron"`
	Network string `yaml:"network" json:"network"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            defaultServerPort,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0, // scan streams outlive any fixed write deadline
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		API: APIConfig{
			TokenFile:    "api_token.txt",
			ExcludePaths: []string{"/", "/api/v1/health", "/swagger/"},
			RateLimit: RateLimitConfig{
				Enabled:  true,
				Requests: defaultRateLimitRequests,
				Window:   60 * time.Second,
			},
			CORSOrigins: []string{"*"},
		},
		Scanning: ScanningConfig{
			PortRange:   "1-65535",
			PortWorkers: MaxPortWorkers,
			Discovery: DiscoveryConfig{
				Timing:      4,
				MaxRetries:  defaultDiscoveryRetries,
				HostTimeout: 30 * time.Second,
			},
			PortScan: PortScanConfig{
				Timing:           3,
				VersionIntensity: defaultVersionIntensity,
				HostTimeout:      600 * time.Second,
				OSDetection:      true,
			},
		},
		Probe: ProbeConfig{
			HTTPTimeout:  5 * time.Second,
			MaxBodyBytes: defaultMaxBodyBytes,
			Render: RenderConfig{
				Enabled: true,
				Timeout: 10 * time.Second,
				Width:   defaultRenderWidth,
				Height:  defaultRenderHeight,
			},
		},
		Storage: StorageConfig{
			Driver:   "file",
			Path:     "scan_results.json",
			LogPath:  "scan_log.txt",
			Database: db.DefaultConfig(),
		},
		Enrich: EnrichConfig{
			DNS: DNSConfig{
				Enabled: true,
				Timeout: 2 * time.Second,
			},
			SNMP: SNMPConfig{
				Community: "public",
				Port:      defaultSNMPPort,
				Timeout:   2 * time.Second,
			},
		},
		Schedule: ScheduleConfig{
			Cron: "0 3 * * *",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		return config, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// yaml.v3 parses JSON documents as well.
	switch filepath.Ext(path) {
	case ".json":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if c.API.RateLimit.Enabled {
		if c.API.RateLimit.Requests <= 0 {
			return fmt.Errorf("rate limit requests must be positive")
		}
		if c.API.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}

	if c.Scanning.PortRange == "" {
		return fmt.Errorf("scanning port range is required")
	}
	if c.Scanning.PortWorkers < 1 || c.Scanning.PortWorkers > MaxPortWorkers {
		return fmt.Errorf("scanning port workers must be between 1 and %d", MaxPortWorkers)
	}
	if c.Scanning.Discovery.Timing < 0 || c.Scanning.Discovery.Timing > 5 ||
		c.Scanning.PortScan.Timing < 0 || c.Scanning.PortScan.Timing > 5 {
		return fmt.Errorf("timing templates must be between 0 and 5")
	}
	if c.Scanning.PortScan.VersionIntensity < 0 || c.Scanning.PortScan.VersionIntensity > 9 {
		return fmt.Errorf("version intensity must be between 0 and 9")
	}

	if c.Probe.HTTPTimeout <= 0 {
		return fmt.Errorf("probe http timeout must be positive")
	}
	if c.Probe.Render.Enabled {
		if c.Probe.Render.Timeout <= 0 {
			return fmt.Errorf("render timeout must be positive")
		}
		if c.Probe.Render.Width <= 0 || c.Probe.Render.Height <= 0 {
			return fmt.Errorf("render viewport must be positive")
		}
	}

	switch c.Storage.Driver {
	case "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the file driver")
		}
	case "postgres":
		if c.Storage.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Storage.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Storage.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s", c.Storage.Driver)
	}

	if c.Schedule.Enabled && (c.Schedule.Cron == "" || c.Schedule.Network == "") {
		return fmt.Errorf("schedule requires both cron and network")
	}

	validLogLevels := map[logging.LogLevel]bool{
		logging.LevelDebug: true,
		logging.LevelInfo:  true,
		logging.LevelWarn:  true,
		logging.LevelError: true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != logging.FormatText && c.Logging.Format != logging.FormatJSON {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// Address returns the listen address of the API server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
