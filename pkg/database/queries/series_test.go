package queries

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/joyce/pkg/database"
	"github.com/OldStager01/joyce/pkg/models"
)

func newTestRepository(t *testing.T) *SeriesRepository {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "series.db") + "?_time_format=sqlite"
	db, err := database.New(database.Config{Driver: database.DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db).Run(context.Background()))
	return NewSeriesRepository(db)
}

func TestSeriesRepository_WriteAndRead(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	series := &models.Series{
		Hostname: "lpar01",
		Metric:   "memory",
		Source:   models.SourceOriginal,
		Samples: []models.Sample{
			{Time: base, Value: 41.5},
			{Time: base.Add(5 * time.Minute), Value: math.NaN()},
			{Time: base.Add(10 * time.Minute), Value: 43},
		},
	}

	require.NoError(t, repo.WriteSeries(ctx, series))

	points, err := repo.GetPoints(ctx, "memory", "lpar01", models.SourceOriginal, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, base, points[0].Time)
	assert.Equal(t, 41.5, points[0].Value)
	assert.True(t, points[1].Missing())
	assert.Equal(t, 43.0, points[2].Value)
}

func TestSeriesRepository_OverwritesExistingPoints(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first := &models.Series{Hostname: "lpar01", Metric: "user", Source: models.SourceCluster,
		Samples: []models.Sample{{Time: base, Value: 1}}}
	second := &models.Series{Hostname: "lpar01", Metric: "user", Source: models.SourceCluster,
		Samples: []models.Sample{{Time: base, Value: 7}}}

	require.NoError(t, repo.WriteSeries(ctx, first))
	require.NoError(t, repo.WriteSeries(ctx, second))

	count, err := repo.CountPoints(ctx, "user", "lpar01", models.SourceCluster)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	points, err := repo.GetPoints(ctx, "user", "lpar01", models.SourceCluster, base, base)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 7.0, points[0].Value)
}

func TestSeriesRepository_TagsAreIsolated(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for _, src := range []models.Source{models.SourceOriginal, models.SourcePrediction} {
		require.NoError(t, repo.WriteSeries(ctx, &models.Series{
			Hostname: "lpar02", Metric: "swap", Source: src,
			Samples: []models.Sample{{Time: base, Value: 3}},
		}))
	}

	count, err := repo.CountPoints(ctx, "swap", "lpar02", models.SourcePrediction)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
