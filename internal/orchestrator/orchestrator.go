package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/OldStager01/joyce/internal/catalog"
	"github.com/OldStager01/joyce/internal/collector"
	"github.com/OldStager01/joyce/internal/events"
	"github.com/OldStager01/joyce/internal/index"
	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/internal/metrics"
	"github.com/OldStager01/joyce/internal/prospector"
	"github.com/OldStager01/joyce/internal/quacksalver"
	"github.com/OldStager01/joyce/internal/resilience"
	"github.com/OldStager01/joyce/internal/snapshot"
	"github.com/OldStager01/joyce/internal/storekeeper"
	"github.com/OldStager01/joyce/internal/writer"
	"github.com/OldStager01/joyce/pkg/config"
	"github.com/OldStager01/joyce/pkg/models"
	"github.com/OldStager01/joyce/pkg/validation"
)

var ErrDiscoveryFailed = errors.New("host discovery failed")

type Options struct {
	Collector collector.Collector
	// Store defaults to writer.NopStore.
	Store     writer.Store
	Metrics   *metrics.Metrics
	Publisher *events.Publisher
	Now       func() time.Time
}

type Orchestrator struct {
	config      *config.Config
	collector   collector.Collector
	writer      writer.SeriesWriter
	index       *index.Index
	prospector  *prospector.Prospector
	quacksalver *quacksalver.Quacksalver
	metrics     *metrics.Metrics
	publisher   *events.Publisher
	now         func() time.Time
	workers     int
}

func New(cfg *config.Config, opts Options) (*Orchestrator, error) {
	if opts.Collector == nil {
		return nil, fmt.Errorf("%w: no monitoring source", models.ErrContractViolation)
	}
	loc, err := cfg.Pipeline.Location()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrContractViolation, err)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	idx := index.New()
	w := index.NewRecorder(writer.New(cfg.Pipeline.SnapshotDir(), opts.Store), idx)

	workers := cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}

	return &Orchestrator{
		config:    cfg,
		collector: opts.Collector,
		writer:    w,
		index:     idx,
		prospector: prospector.New(opts.Collector, w, catalog.FromConfig(cfg.Pipeline), prospector.Config{
			History:   cfg.Pipeline.HistoryWindow(),
			Width:     cfg.Pipeline.BucketWidth(),
			Precision: cfg.Pipeline.Precision,
			Location:  loc,
			Now:       opts.Now,
		}),
		quacksalver: quacksalver.New(w, quacksalver.Config{
			HorizonHours: cfg.Pipeline.HorizonHours,
			Width:        cfg.Pipeline.BucketWidth(),
			Seasons:      cfg.Pipeline.Seasons,
			Precision:    cfg.Pipeline.Precision,
		}),
		metrics:   opts.Metrics,
		publisher: opts.Publisher,
		now:       opts.Now,
		workers:   workers,
	}, nil
}

func (o *Orchestrator) newReport(ctx context.Context) *Report {
	return &Report{
		RunID:     logger.RunIDFromContext(ctx),
		StartedAt: o.now(),
	}
}

// Run drives load, merge and forecast with a barrier between phases.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := o.newReport(ctx)
	o.publisher.RunStarted("run")
	logger.InfoCtx(ctx, "Run started")

	hosts, err := o.discoverHosts(ctx)
	if err != nil {
		return o.finish(ctx, report, err)
	}
	report.Hosts = len(hosts)

	load := report.newPhase(PhaseLoad)
	if err := o.runPhase(ctx, load, o.loadTasks(ctx, load, hosts)); err != nil {
		return o.finish(ctx, report, err)
	}

	if err := o.merge(ctx, report, hosts, o.index); err != nil {
		return o.finish(ctx, report, err)
	}

	tasks := make([]task, 0, o.index.Len())
	for _, series := range o.index.Originals() {
		tasks = append(tasks, o.forecastTask(series))
	}
	err = o.runPhase(ctx, report.newPhase(PhaseForecast), tasks)
	return o.finish(ctx, report, err)
}

// MergeSnapshots reconciles cluster pairs from snapshot files of an earlier run.
func (o *Orchestrator) MergeSnapshots(ctx context.Context) (*Report, error) {
	report := o.newReport(ctx)
	o.publisher.RunStarted("merge")

	hosts, err := o.discoverHosts(ctx)
	if err != nil {
		return o.finish(ctx, report, err)
	}
	report.Hosts = len(hosts)

	err = o.merge(ctx, report, hosts, snapshot.NewFileLocator(o.config.Pipeline.SnapshotDir()))
	return o.finish(ctx, report, err)
}

// ForecastSnapshots forecasts every original snapshot in the snapshot directory.
func (o *Orchestrator) ForecastSnapshots(ctx context.Context) (*Report, error) {
	report := o.newReport(ctx)
	o.publisher.RunStarted("forecast")

	dir := o.config.Pipeline.SnapshotDir()
	keys, err := snapshot.List(dir, models.SourceOriginal)
	if err != nil {
		return o.finish(ctx, report, err)
	}

	tasks := make([]task, 0, len(keys))
	for _, key := range keys {
		key := key
		path := key.Path(dir)
		tasks = append(tasks, task{
			hostname: key.Hostname,
			run: func(ctx context.Context) models.UnitResult {
				series, err := snapshot.Read(path)
				if err != nil {
					logger.WithHost(ctx, key.Hostname).WithError(err).Warn("Snapshot unreadable")
					return models.Classify("forecast "+filepath.Base(path), err)
				}
				return o.quacksalver.Forecast(ctx, series)
			},
		})
	}

	err = o.runPhase(ctx, report.newPhase(PhaseForecast), tasks)
	return o.finish(ctx, report, err)
}

func (o *Orchestrator) discoverHosts(ctx context.Context) ([]models.Host, error) {
	hosts, err := o.collector.Hosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscoveryFailed, err)
	}
	logger.InfoCtxf(ctx, "Discovered %d hosts", len(hosts))
	return hosts, nil
}

// loadTasks discovers items per host. A host whose name cannot be used in
// snapshot file names or whose items cannot be listed is skipped.
func (o *Orchestrator) loadTasks(ctx context.Context, phase *PhaseReport, hosts []models.Host) []task {
	var tasks []task
	for _, host := range hosts {
		host := host
		if err := validation.ValidateHostname(host.Name); err != nil {
			logger.WithHost(ctx, host.Name).WithError(err).Warn("Unusable host name, host skipped")
			o.skipHost(phase, host, fmt.Errorf("%w: %v", writer.ErrInvalidKey, err))
			continue
		}

		items, err := o.collector.Items(ctx, host, o.config.Pipeline.Metrics)
		if err != nil {
			logger.WithHost(ctx, host.Name).WithError(err).Warn("Item discovery failed, host skipped")
			o.skipHost(phase, host, err)
			continue
		}

		for _, item := range items {
			item := item
			tasks = append(tasks, task{
				hostname: host.Name,
				run: func(ctx context.Context) models.UnitResult {
					return o.prospector.Load(ctx, host.Name, item.ID, item.Name)
				},
			})
		}
	}
	return tasks
}

func (o *Orchestrator) skipHost(phase *PhaseReport, host models.Host, err error) {
	result := models.Classify("discover "+host.Name, err)
	phase.add(result)
	o.observe(PhaseLoad, host.Name, result)
}

func (o *Orchestrator) forecastTask(series *models.Series) task {
	return task{
		hostname: series.Hostname,
		run: func(ctx context.Context) models.UnitResult {
			return o.quacksalver.Forecast(ctx, series)
		},
	}
}

// merge runs sequentially: pairs may share snapshot files through the locator.
func (o *Orchestrator) merge(ctx context.Context, report *Report, hosts []models.Host, locator storekeeper.Locator) error {
	phase := report.newPhase(PhaseMerge)
	started := time.Now()

	pairs, err := storekeeper.LoadClusters(o.config.Pipeline.ClustersPath())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.WarnCtxf(ctx, "Cluster table %s not found, nothing to merge", o.config.Pipeline.ClustersPath())
		pairs = nil
	case err != nil:
		return err
	}

	sk := storekeeper.New(pairs, models.HostNames(hosts), locator, o.writer, storekeeper.Config{
		Metrics:   o.config.Pipeline.MergeMetrics,
		Precision: o.config.Pipeline.Precision,
	})

	for _, result := range sk.Merge(ctx) {
		phase.add(result)
		o.observe(PhaseMerge, "", result)
	}
	phase.Duration = time.Since(started)
	o.metrics.ObservePhase(PhaseMerge, phase.Duration)

	return models.FirstFailure(phase.Results)
}

func (o *Orchestrator) finish(ctx context.Context, report *Report, err error) (*Report, error) {
	report.FinishedAt = o.now()

	if cs, ok := o.collector.(interface{ CircuitState() resilience.State }); ok {
		o.metrics.SetCircuitBreakerState("zabbix", int(cs.CircuitState()))
	}
	o.metrics.RunFinished(report.FinishedAt, err == nil)
	if path := o.textfilePath(); path != "" {
		if werr := o.metrics.WriteTextfile(path); werr != nil {
			logger.WarnCtxf(ctx, "Metrics textfile not written: %v", werr)
		}
	}

	if err != nil {
		o.publisher.RunFailed(err)
		logger.ErrorCtxf(ctx, "Run aborted: %v", err)
		return report, err
	}

	o.publisher.RunCompleted(report.Summary())
	logger.WithFields(report.Summary()).Info("Run completed")
	return report, nil
}

func (o *Orchestrator) textfilePath() string {
	path := o.config.Metrics.Textfile
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(o.config.Pipeline.Path, path)
}
