package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/OldStager01/joyce/internal/collector"
	"github.com/OldStager01/joyce/internal/credentials"
	"github.com/OldStager01/joyce/internal/events"
	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/internal/metrics"
	"github.com/OldStager01/joyce/internal/orchestrator"
	"github.com/OldStager01/joyce/internal/resilience"
	"github.com/OldStager01/joyce/internal/simulator"
	"github.com/OldStager01/joyce/internal/writer"
	"github.com/OldStager01/joyce/pkg/config"
	"github.com/OldStager01/joyce/pkg/database"
	"github.com/OldStager01/joyce/pkg/database/queries"
	"github.com/OldStager01/joyce/pkg/models"
)

// app holds everything one command invocation opens and must close.
type app struct {
	cfg       *config.Config
	dryRun    bool
	runID     string
	db        *database.DB
	collector collector.Collector
	metrics   *metrics.Metrics
	bus       *events.EventBus
	eventLog  *events.EventLogger
	forwarder *events.Forwarder
	logFile   io.Closer
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.dryRun {
		cfg.Store.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	return cfg, nil
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		dryRun:  opts.dryRun,
		runID:   models.NewRunID(),
		metrics: metrics.New(),
	}

	if cfg.Logger.File != "" {
		path := cfg.Logger.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Pipeline.Path, path)
		}
		closer, err := logger.SetupFile(path)
		if err != nil {
			return nil, err
		}
		a.logFile = closer
	}
	logger.Infof("Starting %s in %s mode (run %s)", cfg.App.Name, cfg.App.Mode, a.runID)

	a.bus = events.NewEventBus(cfg.Events.BufferSize)
	a.eventLog = events.NewEventLogger(a.bus.SubscribeAll())
	a.eventLog.Start()

	if cfg.Events.NATSURL != "" {
		forwarder, err := events.ConnectNATS(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, a.bus.SubscribeAll())
		if err != nil {
			// events are informational, the run goes on without them
			logger.Warnf("Event forwarding disabled: %v", err)
		} else {
			forwarder.Start()
			a.forwarder = forwarder
		}
	}

	if opts.dryRun {
		a.collector = simulator.New(simulator.Config{
			Hosts:   opts.simHosts,
			Labels:  cfg.Pipeline.Metrics,
			Pattern: simulator.ParsePattern(opts.simPattern),
			Seed:    1,
		})
		logger.Infof("Dry run: %d simulated hosts, store disabled", opts.simHosts)
	} else {
		c, err := newZabbix(cfg, a.metrics)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.collector = c
	}

	if cfg.Store.Enabled {
		db, err := database.New(cfg.Store.ToDBConfig())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to store: %w", err)
		}
		a.db = db
		if err := db.HealthCheck(context.Background()); err != nil {
			a.Close()
			return nil, fmt.Errorf("store is unreachable: %w", err)
		}
		logger.Infof("Store connection established (%s)", db.Driver())
	}

	return a, nil
}

func newZabbix(cfg *config.Config, m *metrics.Metrics) (collector.Collector, error) {
	password, err := credentials.Resolve(cfg.Zabbix, credentials.NewKeyringStore(credentials.ServiceName))
	if err != nil {
		return nil, err
	}

	zabbix := collector.NewZabbixCollector(collector.ZabbixConfig{
		Server:   cfg.Zabbix.Server,
		User:     cfg.Zabbix.User,
		Password: password,
		GroupIDs: cfg.Zabbix.GroupIDs,
		Subgroup: cfg.Zabbix.Subgroup,
		Timeout:  cfg.Zabbix.Timeout,
	})

	return collector.NewResilientCollector(collector.ResilientCollectorConfig{
		Collector:   zabbix,
		MaxFailures: cfg.Zabbix.CircuitBreaker.MaxFailures,
		Timeout:     cfg.Zabbix.CircuitBreaker.Timeout,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
			m.SetCircuitBreakerState(name, int(to))
		},
	}), nil
}

func (a *app) context(ctx context.Context) context.Context {
	return logger.WithRunID(ctx, a.runID)
}

func (a *app) orchestrator() (*orchestrator.Orchestrator, error) {
	var store writer.Store
	if a.db != nil {
		store = queries.NewSeriesRepository(a.db)
	}

	return orchestrator.New(a.cfg, orchestrator.Options{
		Collector: a.collector,
		Store:     store,
		Metrics:   a.metrics,
		Publisher: events.NewPublisher(a.bus).WithRunID(a.runID),
	})
}

// Close flushes events before releasing the connections they may need.
func (a *app) Close() {
	a.bus.Close()
	a.eventLog.Wait()
	if a.forwarder != nil {
		a.forwarder.Wait()
	}

	if a.collector != nil {
		if err := a.collector.Close(); err != nil {
			logger.Warnf("Failed to close monitoring source: %v", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}
