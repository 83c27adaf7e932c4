package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottjudy/deepcell-label/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:5000/api", cfg.Service.URL)
	assert.Equal(t, 30*time.Second, cfg.Service.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Project.SettleDelay)
	assert.Equal(t, 1000, cfg.Project.SpotThreshold)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
service:
  url: "http://labels.internal/api"
  timeout: 5s
project:
  width: 1024
  height: 768
logging:
  level: debug
  format: text
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "http://labels.internal/api", cfg.Service.URL)
	assert.Equal(t, 5*time.Second, cfg.Service.Timeout)
	assert.Equal(t, 1024, cfg.Project.Width)
	assert.Equal(t, 768, cfg.Project.Height)
	// untouched fields keep their defaults
	assert.Equal(t, 1, cfg.Project.Frames)
	assert.Equal(t, 1000, cfg.Project.SpotThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("DEEPCELL_ADDR", ":7000")
	t.Setenv("DEEPCELL_SERVICE_TIMEOUT", "2s")
	t.Setenv("DEEPCELL_SPOT_THRESHOLD", "50")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Service.Timeout)
	assert.Equal(t, 50, cfg.Project.SpotThreshold)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"empty addr":      func(c *Config) { c.Server.Addr = "" },
		"empty url":       func(c *Config) { c.Service.URL = "" },
		"zero timeout":    func(c *Config) { c.Service.Timeout = 0 },
		"zero width":      func(c *Config) { c.Project.Width = 0 },
		"zero frames":     func(c *Config) { c.Project.Frames = 0 },
		"bad level":       func(c *Config) { c.Logging.Level = "verbose" },
		"bad format":      func(c *Config) { c.Logging.Format = "xml" },
		"negative height": func(c *Config) { c.Project.Height = -1 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		})
	}
}

func TestLoadRejectsMissingAndMalformedFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))
	_, err = Load(path)
	require.Error(t, err)
}
