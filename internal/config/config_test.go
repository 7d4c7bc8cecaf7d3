package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	// A named but missing config file is an error; defaults only apply when
	// no file is named at all.
	require.Error(t, err)

	viper.Reset()
	cfg, err = Load("")
	require.NoError(t, err)

	assert.Equal(t, "log-monitor", cfg.App.Name)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 64, cfg.Hub.SubscriberBuffer)
	assert.Greater(t, cfg.Storage.ConnectTimeout.Seconds(), 0.0)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9999
hub:
  subscriber_buffer: 8
storage:
  type: "postgres"
  connection_string: "postgres://localhost/logs"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Hub.SubscriberBuffer)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	// Unset keys fall back to defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestDatabaseURLOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("DATABASE_URL", "postgres://override/logs")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://override/logs", cfg.Storage.ConnectionString)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Storage: StorageConfig{
				ConnectionString: "./logs.db",
				ConnectTimeout:   1,
			},
			Hub:    HubConfig{SubscriberBuffer: 64},
			Server: ServerConfig{Port: 8000},
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Storage.ConnectionString = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.ConnectTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Hub.SubscriberBuffer = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}
