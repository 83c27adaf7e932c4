package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scottjudy/deepcell-label/errors"
)

// Config is the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Service ServiceConfig `yaml:"service"`
	Project ProjectConfig `yaml:"project"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig sizes the gateway's HTTP listener
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080"
	Addr string `yaml:"addr"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ServiceConfig points at the labeling service
type ServiceConfig struct {
	// URL is the service base URL, e.g. "http://localhost:5000/api"
	URL string `yaml:"url"`
	// Timeout bounds one edit request
	Timeout time.Duration `yaml:"timeout"`
	// Bucket is the default export destination
	Bucket string `yaml:"bucket"`
}

// ProjectConfig sizes new projects
type ProjectConfig struct {
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
	Frames   int `yaml:"frames"`
	Features int `yaml:"features"`
	Channels int `yaml:"channels"`
	// SettleDelay is the canvas movement debounce
	SettleDelay time.Duration `yaml:"settle_delay"`
	// SpotThreshold caps mid-movement spot overlay repaints
	SpotThreshold int `yaml:"spot_threshold"`
}

// LoggingConfig shapes the structured logger
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is "json" or "text"
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Service: ServiceConfig{
			URL:     "http://localhost:5000/api",
			Timeout: 30 * time.Second,
			Bucket:  "deepcell-output",
		},
		Project: ProjectConfig{
			Width:         512,
			Height:        512,
			Frames:        1,
			Features:      1,
			Channels:      1,
			SettleDelay:   200 * time.Millisecond,
			SpotThreshold: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML configuration file, layers environment overrides on
// top, and validates the result. An empty path loads defaults plus
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "parse config file")
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers DEEPCELL_* environment variables over the loaded file
func (c *Config) applyEnv() {
	envString("DEEPCELL_ADDR", &c.Server.Addr)
	envString("DEEPCELL_SERVICE_URL", &c.Service.URL)
	envString("DEEPCELL_BUCKET", &c.Service.Bucket)
	envDuration("DEEPCELL_SERVICE_TIMEOUT", &c.Service.Timeout)
	envInt("DEEPCELL_SPOT_THRESHOLD", &c.Project.SpotThreshold)
	envDuration("DEEPCELL_SETTLE_DELAY", &c.Project.SettleDelay)
	envString("DEEPCELL_LOG_LEVEL", &c.Logging.Level)
	envString("DEEPCELL_LOG_FORMAT", &c.Logging.Format)
}

// Validate checks the configuration for values no component can run with
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return invalid("server.addr is required")
	}
	if c.Service.URL == "" {
		return invalid("service.url is required")
	}
	if c.Service.Timeout <= 0 {
		return invalid("service.timeout must be positive")
	}
	if c.Project.Width <= 0 || c.Project.Height <= 0 {
		return invalid("project dimensions must be positive")
	}
	if c.Project.Frames <= 0 || c.Project.Features <= 0 || c.Project.Channels <= 0 {
		return invalid("project axes must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid(fmt.Sprintf("unknown logging.level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return invalid(fmt.Sprintf("unknown logging.format %q", c.Logging.Format))
	}
	return nil
}

func invalid(msg string) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrInvalidConfig, msg),
		"Config", "Validate", "field validation")
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
