package config

import (
	"errors"
	"fmt"

	"github.com/OldStager01/joyce/pkg/models"
	"github.com/OldStager01/joyce/pkg/validation"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Zabbix validation
	if c.Zabbix.Server == "" {
		errs = append(errs, errors.New("zabbix.server is required"))
	}
	if c.Zabbix.Timeout <= 0 {
		errs = append(errs, errors.New("zabbix.timeout must be positive"))
	}

	// Pipeline validation
	p := c.Pipeline
	if p.Path == "" {
		errs = append(errs, errors.New("pipeline.path is required"))
	}
	if p.HistorySeconds <= 0 {
		errs = append(errs, errors.New("pipeline.history_seconds must be positive"))
	}
	if p.RollingMean <= 0 || p.RollingMean > 60 {
		errs = append(errs, errors.New("pipeline.rolling_mean must be between 1 and 60 minutes"))
	}
	if p.HorizonHours < 0 {
		errs = append(errs, errors.New("pipeline.horizon_hours must not be negative"))
	}
	if p.Seasons <= 0 {
		errs = append(errs, errors.New("pipeline.seasons must be positive"))
	}
	if p.Precision < 0 || p.Precision > 10 {
		errs = append(errs, errors.New("pipeline.precision must be between 0 and 10"))
	}
	if len(p.Metrics) == 0 {
		errs = append(errs, errors.New("pipeline.metrics must list at least one item name"))
	}
	if p.Workers <= 0 {
		errs = append(errs, errors.New("pipeline.workers must be positive"))
	}
	if _, err := p.Location(); err != nil {
		errs = append(errs, err)
	}
	for _, entry := range p.Catalog {
		if entry.Label == "" || entry.Metric == "" {
			errs = append(errs, errors.New("pipeline.catalog entries need label and metric"))
			break
		}
	}
	errs = append(errs, validateMetricNames(p)...)

	// Store validation
	if c.Store.Enabled {
		validDrivers := map[string]bool{"postgres": true, "sqlite": true}
		if !validDrivers[c.Store.Driver] {
			errs = append(errs, errors.New("store.driver must be one of: postgres, sqlite"))
		}
		if c.Store.Driver == "sqlite" && c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for sqlite"))
		}
		if c.Store.Driver == "postgres" && c.Store.DSN == "" {
			if c.Store.Host == "" {
				errs = append(errs, errors.New("store.host is required"))
			}
			if c.Store.Port <= 0 || c.Store.Port > 65535 {
				errs = append(errs, errors.New("store.port must be between 1 and 65535"))
			}
		}
		if c.Store.MaxConnections <= 0 {
			errs = append(errs, errors.New("store.max_connections must be positive"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: config validation failed: %v", models.ErrContractViolation, errs)
	}

	return nil
}

// validateMetricNames rejects labels whose canonical metric cannot be part of a
// snapshot file name. Unmapped labels are used as the metric verbatim.
func validateMetricNames(p PipelineConfig) []error {
	entries := p.Catalog
	if len(entries) == 0 {
		entries = DefaultCatalog()
	}
	canonical := make(map[string]string, len(entries))
	for _, e := range entries {
		canonical[e.Label] = e.Metric
	}

	var errs []error
	for _, label := range p.Metrics {
		metric, ok := canonical[label]
		if !ok {
			metric = label
		}
		if err := validation.ValidateMetric(metric); err != nil {
			errs = append(errs, fmt.Errorf("pipeline.metrics %q maps to metric %q: %v", label, metric, err))
		}
	}
	return errs
}
