package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/joyce/pkg/models"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "joyce",
			Mode:     "test",
			LogLevel: "info",
		},
		Zabbix: ZabbixConfig{
			Server:  "http://zabbix.local",
			Timeout: 10 * time.Second,
		},
		Pipeline: PipelineConfig{
			Path:           "/tmp/joyce",
			HistorySeconds: 3600,
			RollingMean:    5,
			HorizonHours:   24,
			Seasons:        12,
			Precision:      2,
			Metrics:        []string{"CPU user"},
			Workers:        1,
			Timezone:       "UTC",
		},
		Store: StoreConfig{
			Enabled:        true,
			Driver:         "postgres",
			Host:           "localhost",
			Port:           5432,
			MaxConnections: 2,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectErr   bool
		errContains string
	}{
		{
			name:       "valid config",
			modifyFunc: func(c *Config) {},
		},
		{
			name: "bucket width out of range",
			modifyFunc: func(c *Config) {
				c.Pipeline.RollingMean = 0
			},
			expectErr:   true,
			errContains: "rolling_mean",
		},
		{
			name: "unknown driver",
			modifyFunc: func(c *Config) {
				c.Store.Driver = "influx"
			},
			expectErr:   true,
			errContains: "store.driver",
		},
		{
			name: "sqlite without dsn",
			modifyFunc: func(c *Config) {
				c.Store.Driver = "sqlite"
			},
			expectErr:   true,
			errContains: "store.dsn",
		},
		{
			name: "disabled store skips store checks",
			modifyFunc: func(c *Config) {
				c.Store = StoreConfig{Enabled: false}
			},
		},
		{
			name: "bad timezone",
			modifyFunc: func(c *Config) {
				c.Pipeline.Timezone = "Mars/Olympus"
			},
			expectErr:   true,
			errContains: "timezone",
		},
		{
			name: "unmapped label with underscore",
			modifyFunc: func(c *Config) {
				c.Pipeline.Metrics = []string{"CPU user", "vfs_free"}
			},
			expectErr:   true,
			errContains: "vfs_free",
		},
		{
			name: "catalog maps label to bad metric",
			modifyFunc: func(c *Config) {
				c.Pipeline.Catalog = []CatalogEntry{{Label: "CPU user", Metric: "cpu_user"}}
			},
			expectErr:   true,
			errContains: "cpu_user",
		},
		{
			name: "default catalog maps underscore label",
			modifyFunc: func(c *Config) {
				c.Pipeline.Metrics = []string{"svmon_pavailable"}
			},
		},
		{
			name: "zero horizon is allowed",
			modifyFunc: func(c *Config) {
				c.Pipeline.HorizonHours = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)

			err := cfg.Validate()

			if tt.expectErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrContractViolation)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStoreConfig_DSNString(t *testing.T) {
	store := StoreConfig{
		Host:     "localhost",
		Port:     5432,
		Name:     "joyce",
		User:     "admin",
		Password: "secret",
	}

	expected := "host=localhost port=5432 user=admin password=secret dbname=joyce sslmode=disable"
	assert.Equal(t, expected, store.DSNString())

	store.DSN = "file:joyce.db"
	assert.Equal(t, "file:joyce.db", store.DSNString())
}

func TestLoad_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "joyce.yaml")
	content := `
app:
  mode: development
pipeline:
  path: /data/joyce
  rolling_mean: 10
  seasons: 144
zabbix:
  group_ids: ["12", "15"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Mode)
	assert.Equal(t, 10, cfg.Pipeline.RollingMean)
	assert.Equal(t, 144, cfg.Pipeline.Seasons)
	assert.Equal(t, 24, cfg.Pipeline.HorizonHours)
	assert.Equal(t, []string{"12", "15"}, cfg.Zabbix.GroupIDs)
	assert.Equal(t, []string{"memory", "swap"}, cfg.Pipeline.InvertMetrics)
	assert.Equal(t, DefaultCatalog(), cfg.Pipeline.Catalog)
	assert.Equal(t, 30*time.Second, cfg.Zabbix.Timeout)
	assert.Equal(t, "/data/joyce/logs", cfg.Pipeline.SnapshotDir())
	assert.Equal(t, "/data/joyce/hostname.clusters", cfg.Pipeline.ClustersPath())
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.BucketWidth())
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "joyce.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  precision: 2\n"), 0o644))

	t.Setenv("JOYCE_PIPELINE_PRECISION", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Pipeline.Precision)
}
