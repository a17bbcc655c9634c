package config

import (
	"fmt"
	"path/filepath"
	"time"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Zabbix   ZabbixConfig   `mapstructure:"zabbix"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Store    StoreConfig    `mapstructure:"store"`
	Events   EventsConfig   `mapstructure:"events"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`
}

type LoggerConfig struct {
	File string `mapstructure:"file"`
}

type ZabbixConfig struct {
	Server         string               `mapstructure:"server"`
	User           string               `mapstructure:"user"`
	Password       string               `mapstructure:"password"`
	PasswordEnv    string               `mapstructure:"password_env"`
	UseKeyring     bool                 `mapstructure:"use_keyring"`
	GroupIDs       []string             `mapstructure:"group_ids"`
	Subgroup       string               `mapstructure:"subgroup"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type CatalogEntry struct {
	Label  string `mapstructure:"label"`
	Metric string `mapstructure:"metric"`
}

type PipelineConfig struct {
	Path           string         `mapstructure:"path"`
	HistorySeconds int            `mapstructure:"history_seconds"`
	RollingMean    int            `mapstructure:"rolling_mean"`
	HorizonHours   int            `mapstructure:"horizon_hours"`
	Seasons        int            `mapstructure:"seasons"`
	Precision      int            `mapstructure:"precision"`
	Metrics        []string       `mapstructure:"metrics"`
	InvertMetrics  []string       `mapstructure:"invert_metrics"`
	MergeMetrics   []string       `mapstructure:"merge_metrics"`
	Catalog        []CatalogEntry `mapstructure:"catalog"`
	ClustersFile   string         `mapstructure:"clusters_file"`
	Timezone       string         `mapstructure:"timezone"`
	Workers        int            `mapstructure:"workers"`
}

// SnapshotDir is where per-series CSV snapshots live.
func (p PipelineConfig) SnapshotDir() string {
	return filepath.Join(p.Path, "logs")
}

func (p PipelineConfig) ClustersPath() string {
	if filepath.IsAbs(p.ClustersFile) {
		return p.ClustersFile
	}
	return filepath.Join(p.Path, p.ClustersFile)
}

func (p PipelineConfig) BucketWidth() time.Duration {
	return time.Duration(p.RollingMean) * time.Minute
}

func (p PipelineConfig) HistoryWindow() time.Duration {
	return time.Duration(p.HistorySeconds) * time.Second
}

// Location resolves the wall-clock zone used for naive timestamps.
func (p PipelineConfig) Location() (*time.Location, error) {
	if p.Timezone == "" || p.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline.timezone %q: %w", p.Timezone, err)
	}
	return loc, nil
}

type StoreConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Driver         string `mapstructure:"driver"`
	DSN            string `mapstructure:"dsn"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

func (s StoreConfig) DSNString() string {
	if s.DSN != "" {
		return s.DSN
	}
	sslMode := s.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.User, s.Password, s.Name, sslMode,
	)
}

type EventsConfig struct {
	BufferSize    int    `mapstructure:"buffer_size"`
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}
