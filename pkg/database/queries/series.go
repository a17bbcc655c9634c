package queries

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/OldStager01/joyce/pkg/database"
	"github.com/OldStager01/joyce/pkg/models"
)

// SeriesRepository stores series points keyed by measurement and the
// hostname/source tags. Writing a point that already exists overwrites it.
type SeriesRepository struct {
	db *database.DB
}

func NewSeriesRepository(db *database.DB) *SeriesRepository {
	return &SeriesRepository{db: db}
}

const upsertPoint = `
	INSERT INTO series_points (measurement, hostname, source, time, value)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (measurement, hostname, source, time)
	DO UPDATE SET value = EXCLUDED.value`

func (r *SeriesRepository) WriteSeries(ctx context.Context, series *models.Series) error {
	if len(series.Samples) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertPoint)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, s := range series.Samples {
			value := sql.NullFloat64{Float64: s.Value, Valid: !math.IsNaN(s.Value)}
			_, err := stmt.ExecContext(ctx, series.Metric, series.Hostname, string(series.Source), s.Time.UTC(), value)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SeriesRepository) GetPoints(ctx context.Context, measurement, hostname string, source models.Source, from, to time.Time) ([]models.Sample, error) {
	query := `
		SELECT time, value
		FROM series_points
		WHERE measurement = $1 AND hostname = $2 AND source = $3 AND time >= $4 AND time <= $5
		ORDER BY time ASC`

	rows, err := r.db.QueryContext(ctx, query, measurement, hostname, string(source), from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.Sample
	for rows.Next() {
		var ts time.Time
		var value sql.NullFloat64
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, err
		}
		v := math.NaN()
		if value.Valid {
			v = value.Float64
		}
		samples = append(samples, models.Sample{Time: ts.UTC(), Value: v})
	}

	return samples, rows.Err()
}

func (r *SeriesRepository) CountPoints(ctx context.Context, measurement, hostname string, source models.Source) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM series_points WHERE measurement = $1 AND hostname = $2 AND source = $3`,
		measurement, hostname, string(source),
	).Scan(&count)
	return count, err
}
