package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/joyce")
	}

	v.SetEnvPrefix("JOYCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Pipeline.Catalog) == 0 {
		cfg.Pipeline.Catalog = DefaultCatalog()
	}

	return &cfg, nil
}

// DefaultCatalog maps the Zabbix item names of the AIX templates to canonical metrics.
func DefaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{Label: "svmon_pavailable", Metric: "memory"},
		{Label: "CPU user", Metric: "user"},
		{Label: "CPU system", Metric: "system"},
		{Label: "Swap file free (percent)", Metric: "swap"},
	}
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "joyce")
	v.SetDefault("app.mode", "production")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("logger.file", "")

	// Zabbix defaults
	v.SetDefault("zabbix.server", "http://localhost/zabbix")
	v.SetDefault("zabbix.user", "Admin")
	v.SetDefault("zabbix.password_env", "JOYCE_PASSWORD")
	v.SetDefault("zabbix.use_keyring", false)
	v.SetDefault("zabbix.group_ids", []string{})
	v.SetDefault("zabbix.subgroup", "")
	v.SetDefault("zabbix.timeout", "30s")
	v.SetDefault("zabbix.circuit_breaker.max_failures", 5)
	v.SetDefault("zabbix.circuit_breaker.timeout", "1m")

	// Pipeline defaults
	v.SetDefault("pipeline.path", "/joyce/app")
	v.SetDefault("pipeline.history_seconds", 7*24*3600)
	v.SetDefault("pipeline.rolling_mean", 5)
	v.SetDefault("pipeline.horizon_hours", 24)
	v.SetDefault("pipeline.seasons", 288)
	v.SetDefault("pipeline.precision", 2)
	v.SetDefault("pipeline.metrics", []string{"svmon_pavailable", "CPU user", "CPU system", "Swap file free (percent)"})
	v.SetDefault("pipeline.invert_metrics", []string{"memory", "swap"})
	v.SetDefault("pipeline.merge_metrics", []string{"memory", "user", "system", "swap"})
	v.SetDefault("pipeline.clusters_file", "hostname.clusters")
	v.SetDefault("pipeline.timezone", "Local")
	v.SetDefault("pipeline.workers", 1)

	// Store defaults
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", 5432)
	v.SetDefault("store.name", "joyce")
	v.SetDefault("store.user", "joyce")
	v.SetDefault("store.ssl_mode", "disable")
	v.SetDefault("store.max_connections", 4)

	// Events defaults
	v.SetDefault("events.buffer_size", 256)
	v.SetDefault("events.subject_prefix", "joyce.events")
}
