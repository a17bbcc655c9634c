package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/joyce/internal/collector"
	"github.com/OldStager01/joyce/internal/events"
	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/internal/metrics"
	"github.com/OldStager01/joyce/internal/snapshot"
	"github.com/OldStager01/joyce/internal/writer"
	"github.com/OldStager01/joyce/pkg/config"
	"github.com/OldStager01/joyce/pkg/models"
)

var (
	start  = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	now    = start.Add(4 * time.Hour)
	lpar01 = models.Host{ID: "10101", Name: "lpar01"}
	lpar02 = models.Host{ID: "10102", Name: "lpar02"}
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			Path:           dir,
			HistorySeconds: 4 * 3600,
			RollingMean:    5,
			HorizonHours:   1,
			Seasons:        12,
			Precision:      2,
			Metrics:        []string{"CPU user", "svmon_pavailable"},
			InvertMetrics:  []string{"memory", "swap"},
			MergeMetrics:   []string{"memory", "user"},
			Catalog:        config.DefaultCatalog(),
			ClustersFile:   "hostname.clusters",
			Timezone:       "UTC",
			Workers:        2,
		},
	}
}

// hourly returns one sample per minute whose 5 minute means repeat every hour.
func hourly(base float64) []models.RawSample {
	var out []models.RawSample
	for minute := 0; minute < 240; minute++ {
		bucket := minute / 5
		value := base + float64(bucket%12)
		out = append(out, models.RawSample{
			Clock: start.Add(time.Duration(minute) * time.Minute).Unix(),
			Value: strconv.FormatFloat(value, 'f', 2, 64),
		})
	}
	return out
}

func newFake() *collector.FakeCollector {
	fake := collector.NewFakeCollector()
	fake.AddItem(lpar01, models.Item{ID: "1001", Name: "svmon_pavailable"}, hourly(40))
	fake.AddItem(lpar01, models.Item{ID: "1002", Name: "CPU user"}, hourly(10))
	fake.AddItem(lpar02, models.Item{ID: "2001", Name: "svmon_pavailable"}, hourly(50))
	fake.AddItem(lpar02, models.Item{ID: "2002", Name: "CPU user"}, hourly(5))
	return fake
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, c collector.Collector, opts ...func(*Options)) *Orchestrator {
	o := Options{
		Collector: c,
		Now:       func() time.Time { return now },
	}
	for _, fn := range opts {
		fn(&o)
	}
	orch, err := New(cfg, o)
	require.NoError(t, err)
	return orch
}

func writeClusters(t *testing.T, dir, content string) {
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hostname.clusters"), []byte(content), 0o644))
}

func snapshotFiles(t *testing.T, dir string) map[string][]byte {
	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)

	files := make(map[string][]byte, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, "logs", e.Name()))
		require.NoError(t, err)
		files[e.Name()] = data
	}
	return files
}

func TestNew_RequiresCollector(t *testing.T) {
	_, err := New(testConfig(t.TempDir()), Options{})
	assert.ErrorIs(t, err, models.ErrContractViolation)
}

func TestNew_BadTimezone(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Pipeline.Timezone = "Mars/Olympus"

	_, err := New(cfg, Options{Collector: collector.NewFakeCollector()})
	assert.ErrorIs(t, err, models.ErrContractViolation)
}

func TestRun_AllPhases(t *testing.T) {
	dir := t.TempDir()
	writeClusters(t, dir, "lpar01 lpar02 : g1 1\n")

	report, err := newTestOrchestrator(t, testConfig(dir), newFake()).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Phases, 3)
	assert.Equal(t, []string{PhaseLoad, PhaseMerge, PhaseForecast},
		[]string{report.Phases[0].Name, report.Phases[1].Name, report.Phases[2].Name})
	assert.Equal(t, 2, report.Hosts)
	assert.Equal(t, 4, report.Phase(PhaseLoad).Written)
	assert.Equal(t, 2, report.Phase(PhaseMerge).Written)
	assert.Equal(t, 4, report.Phase(PhaseForecast).Written)

	files := snapshotFiles(t, dir)
	for _, name := range []string{
		"lpar01_1001_memory_original.csv",
		"lpar01_1002_user_original.csv",
		"lpar02_2001_memory_original.csv",
		"lpar02_2002_user_original.csv",
		"lpar01__memory_cluster.csv",
		"lpar02__user_cluster.csv",
		"lpar01_1001_memory_prediction.csv",
		"lpar02_2002_user_prediction.csv",
	} {
		assert.Contains(t, files, name)
	}

	prediction, err := snapshot.Read(filepath.Join(dir, "logs", "lpar01_1002_user_prediction.csv"))
	require.NoError(t, err)
	require.Equal(t, 12, prediction.Len())
	assert.Equal(t, "2024-03-01 04:00:00", prediction.Samples[0].Time.Format(models.ClockLayout))
}

func TestRun_MergedOriginalsAreForecast(t *testing.T) {
	dir := t.TempDir()
	writeClusters(t, dir, "lpar01 lpar02 : g1 1\n")

	_, err := newTestOrchestrator(t, testConfig(dir), newFake()).Run(context.Background())
	require.NoError(t, err)

	first, err := snapshot.Read(filepath.Join(dir, "logs", "lpar01_1001_memory_original.csv"))
	require.NoError(t, err)
	second, err := snapshot.Read(filepath.Join(dir, "logs", "lpar02_2001_memory_original.csv"))
	require.NoError(t, err)
	assert.Equal(t, first.Values(), second.Values())

	// memory is inverted, so the larger side comes from lpar01 (100-40-x > 100-50-x)
	assert.Equal(t, 60.0, first.Samples[0].Value)
}

func TestRun_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeClusters(t, dir, "lpar01 lpar02 : g1 1\n")
	cfg := testConfig(dir)

	_, err := newTestOrchestrator(t, cfg, newFake()).Run(context.Background())
	require.NoError(t, err)
	first := snapshotFiles(t, dir)

	_, err = newTestOrchestrator(t, cfg, newFake()).Run(context.Background())
	require.NoError(t, err)
	second := snapshotFiles(t, dir)

	require.Equal(t, len(first), len(second))
	for name, data := range first {
		assert.Equal(t, string(data), string(second[name]), name)
	}
}

func TestRun_UnitFailureIsIsolated(t *testing.T) {
	dir := t.TempDir()
	writeClusters(t, dir, "lpar01 lpar02 : g1 1\n")

	fake := newFake()
	fake.FailHistory("1002", errors.New("connection reset"))

	report, err := newTestOrchestrator(t, testConfig(dir), fake).Run(context.Background())
	require.NoError(t, err)

	load := report.Phase(PhaseLoad)
	assert.Equal(t, 3, load.Written)
	assert.Equal(t, 1, load.Skipped)

	merge := report.Phase(PhaseMerge)
	assert.Equal(t, 1, merge.Written)
	assert.Equal(t, 1, merge.Skipped)

	assert.Equal(t, 3, report.Phase(PhaseForecast).Written)
	assert.NoFileExists(t, filepath.Join(dir, "logs", "lpar01_1002_user_original.csv"))
}

func TestRun_ItemDiscoveryFailureSkipsHost(t *testing.T) {
	dir := t.TempDir()

	fake := newFake()
	fake.FailItems(lpar02.ID, errors.New("timeout"))

	report, err := newTestOrchestrator(t, testConfig(dir), fake).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Phase(PhaseLoad).Written)
	assert.Equal(t, 1, report.Phase(PhaseLoad).Skipped)
	assert.Equal(t, 2, report.Phase(PhaseForecast).Written)
}

func TestRun_UnusableHostnameSkipped(t *testing.T) {
	dir := t.TempDir()
	writeClusters(t, dir, "lpar01 lpar02 : g1 1\n")
	cfg := testConfig(dir)
	cfg.Pipeline.Workers = 1

	fake := newFake()
	fake.AddItem(models.Host{ID: "10199", Name: "aaa[test]"}, models.Item{ID: "9901", Name: "CPU user"}, hourly(20))

	report, err := newTestOrchestrator(t, cfg, fake).Run(context.Background())
	require.NoError(t, err)

	load := report.Phase(PhaseLoad)
	assert.Equal(t, 4, load.Written)
	require.Equal(t, 1, load.Skipped)
	for _, r := range load.Results {
		if r.Status == models.UnitSkipped {
			assert.ErrorIs(t, r.Err, writer.ErrInvalidKey)
			assert.NotErrorIs(t, r.Err, models.ErrContractViolation)
		}
	}
	assert.Equal(t, 2, report.Phase(PhaseMerge).Written)
	assert.Equal(t, 4, report.Phase(PhaseForecast).Written)

	for name := range snapshotFiles(t, dir) {
		assert.NotContains(t, name, "aaa")
	}
}

func TestRun_SameMetricTwoItems(t *testing.T) {
	dir := t.TempDir()
	writeClusters(t, dir, "lpar01 lpar02 : g1 1\n")

	fake := newFake()
	fake.AddItem(lpar01, models.Item{ID: "1003", Name: "CPU user"}, hourly(12))

	report, err := newTestOrchestrator(t, testConfig(dir), fake).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Phase(PhaseLoad).Written)

	merge := report.Phase(PhaseMerge)
	assert.Equal(t, 1, merge.Written)
	require.Equal(t, 1, merge.Skipped)
	for _, r := range merge.Results {
		if r.Status == models.UnitSkipped {
			assert.ErrorIs(t, r.Err, snapshot.ErrSnapshotAmbiguous)
		}
	}

	assert.Equal(t, 5, report.Phase(PhaseForecast).Written)
	logs := filepath.Join(dir, "logs")
	assert.FileExists(t, filepath.Join(logs, "lpar01_1002_user_prediction.csv"))
	assert.FileExists(t, filepath.Join(logs, "lpar01_1003_user_prediction.csv"))
	assert.FileExists(t, filepath.Join(logs, "lpar01__memory_cluster.csv"))
	assert.NoFileExists(t, filepath.Join(logs, "lpar02__user_cluster.csv"))
}

func TestRun_MissingClusterTable(t *testing.T) {
	report, err := newTestOrchestrator(t, testConfig(t.TempDir()), newFake()).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Phase(PhaseMerge).Results)
	assert.Equal(t, 4, report.Phase(PhaseForecast).Written)
}

func TestRun_HostDiscoveryFailure(t *testing.T) {
	fake := newFake()
	fake.SetHostsError(fmt.Errorf("%w: 502", collector.ErrRequestFailed))

	report, err := newTestOrchestrator(t, testConfig(t.TempDir()), fake).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDiscoveryFailed)
	assert.Empty(t, report.Phases)
}

func TestRun_ContractViolationAborts(t *testing.T) {
	dir := t.TempDir()
	writeClusters(t, dir, "lpar01 lpar01 : g1 1\n")

	report, err := newTestOrchestrator(t, testConfig(dir), newFake()).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrContractViolation)

	assert.NotNil(t, report.Phase(PhaseLoad))
	assert.Nil(t, report.Phase(PhaseForecast))

	files := snapshotFiles(t, dir)
	assert.NotContains(t, files, "lpar01_1001_memory_prediction.csv")
}

func TestRun_NoHorizonSkipsForecast(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Pipeline.HorizonHours = 0

	report, err := newTestOrchestrator(t, cfg, newFake()).Run(context.Background())
	require.NoError(t, err)

	forecast := report.Phase(PhaseForecast)
	assert.Equal(t, 0, forecast.Written)
	assert.Equal(t, 4, forecast.Skipped)
}

func TestMergeSnapshots_UsesFilesOfEarlierRun(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)

	_, err := newTestOrchestrator(t, cfg, newFake()).Run(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "logs", "lpar01__memory_cluster.csv"))

	writeClusters(t, dir, "lpar01 lpar02 : g1 1\n")
	report, err := newTestOrchestrator(t, cfg, newFake()).MergeSnapshots(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Phase(PhaseMerge).Written)
	assert.FileExists(t, filepath.Join(dir, "logs", "lpar01__memory_cluster.csv"))
	assert.FileExists(t, filepath.Join(dir, "logs", "lpar02__user_cluster.csv"))
}

func TestForecastSnapshots_ReadsOriginals(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)

	_, err := newTestOrchestrator(t, cfg, newFake()).Run(context.Background())
	require.NoError(t, err)

	logs := filepath.Join(dir, "logs")
	predictions, err := snapshot.List(logs, models.SourcePrediction)
	require.NoError(t, err)
	require.Len(t, predictions, 4)
	for _, k := range predictions {
		require.NoError(t, os.Remove(k.Path(logs)))
	}

	report, err := newTestOrchestrator(t, cfg, collector.NewFakeCollector()).ForecastSnapshots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Phase(PhaseForecast).Written)

	predictions, err = snapshot.List(logs, models.SourcePrediction)
	require.NoError(t, err)
	assert.Len(t, predictions, 4)
}

func TestRun_PublishesEventsAndMetrics(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Metrics.Textfile = "metrics/joyce.prom"

	bus := events.NewEventBus(1024)
	all := bus.SubscribeAll()
	publisher := events.NewPublisher(bus).WithRunID("run-1")

	ctx := logger.WithRunID(context.Background(), "run-1")
	report, err := newTestOrchestrator(t, cfg, newFake(), func(o *Options) {
		o.Publisher = publisher
		o.Metrics = metrics.New()
	}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)

	counts := make(map[models.EventType]int)
	for len(all) > 0 {
		event := <-all
		assert.Equal(t, "run-1", event.RunID)
		counts[event.Type]++
	}
	assert.Equal(t, 1, counts[models.EventTypeRunStarted])
	assert.Equal(t, 4, counts[models.EventTypeSeriesLoaded])
	assert.Equal(t, 4, counts[models.EventTypeSeriesForecast])
	assert.Equal(t, 1, counts[models.EventTypeRunCompleted])

	data, err := os.ReadFile(filepath.Join(dir, "metrics", "joyce.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "joyce_last_run_success 1")
	assert.Contains(t, string(data), `joyce_units_total{phase="load",status="written"} 4`)
}
