package quacksalver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/internal/sarima"
	"github.com/OldStager01/joyce/internal/writer"
	"github.com/OldStager01/joyce/pkg/models"
)

var (
	ErrUnordered = errors.New("series timestamps are not strictly increasing")
	ErrNoHorizon = errors.New("forecast horizon is zero")
	ErrNoData    = errors.New("series has no observed values")
)

// degenerateRange is the max-min spread below which the mean is forecast.
const degenerateRange = 2.0

// Config holds the forecast horizon and the seasonal model shape.
type Config struct {
	HorizonHours int
	Width        time.Duration
	Seasons      int
	Precision    int
}

// Steps is the number of forecast points covering the horizon.
func (c Config) Steps() int {
	if c.Width <= 0 {
		return 0
	}
	return int(time.Duration(c.HorizonHours) * time.Hour / c.Width)
}

// Quacksalver fits a seasonal model per series and writes its prediction.
type Quacksalver struct {
	writer writer.SeriesWriter
	config Config
}

// New creates a Quacksalver writing predictions through w.
func New(w writer.SeriesWriter, cfg Config) *Quacksalver {
	if cfg.Width <= 0 {
		cfg.Width = 5 * time.Minute
	}
	return &Quacksalver{writer: w, config: cfg}
}

func (q *Quacksalver) Forecast(ctx context.Context, series *models.Series) models.UnitResult {
	unit := fmt.Sprintf("forecast %s/%s/%s", series.Hostname, series.ItemID, series.Metric)
	log := logger.WithHost(ctx, series.Hostname).WithFields(map[string]interface{}{
		"item_id": series.ItemID,
		"metric":  series.Metric,
	})

	prediction, err := q.predict(series)
	if err != nil {
		if errors.Is(err, ErrNoHorizon) {
			log.Debug("Forecast horizon is zero, nothing to do")
		} else {
			log.WithError(err).Warn("Forecast skipped")
		}
		return models.Classify(unit, err)
	}

	path, err := q.writer.Write(ctx, prediction)
	if err != nil {
		result := models.Classify(unit, err)
		if result.Failed() {
			log.WithError(err).Error("Forecast failed")
		} else {
			log.WithError(err).Warn("Forecast skipped")
		}
		return result
	}

	log.WithField("points", prediction.Len()).Debug("Forecast data")
	return models.Written(unit, path)
}

func (q *Quacksalver) predict(series *models.Series) (*models.Series, error) {
	steps := q.config.Steps()
	if steps <= 0 {
		return nil, ErrNoHorizon
	}

	last, ok := series.Last()
	if !ok {
		return nil, ErrNoData
	}
	if !series.Ascending() {
		return nil, fmt.Errorf("%w: %s", ErrUnordered, series)
	}

	values, err := Predict(series.Values(), steps, q.config.Seasons)
	if err != nil {
		return nil, err
	}
	values = Clip(values, q.config.Precision)

	window := Window(last.Time, q.config.Width, steps)
	samples := make([]models.Sample, steps)
	for i := range samples {
		samples[i] = models.Sample{Time: window[i], Value: values[i]}
	}

	return &models.Series{
		Hostname: series.Hostname,
		ItemID:   series.ItemID,
		Metric:   series.Metric,
		Source:   models.SourcePrediction,
		Samples:  samples,
	}, nil
}

// Window returns steps timestamps starting one width after last.
func Window(last time.Time, width time.Duration, steps int) []time.Time {
	window := make([]time.Time, steps)
	for i := range window {
		window[i] = last.Add(time.Duration(i+1) * width)
	}
	return window
}

// Predict forecasts steps values after values, which may contain NaN gaps.
// A spread below degenerateRange yields the mean for every step.
func Predict(values []float64, steps, seasons int) ([]float64, error) {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return nil, ErrNoData
	}

	if floats.Max(present)-floats.Min(present) < degenerateRange {
		mean := stat.Mean(present, nil)
		out := make([]float64, steps)
		for i := range out {
			out[i] = mean
		}
		return out, nil
	}

	clean, _, trail := sarima.Interpolate(values)
	model, err := sarima.Fit(clean, seasons)
	if err != nil {
		return nil, err
	}
	// trimmed trailing gaps still occupy slots before the forecast window
	return model.Forecast(trail + steps)[trail:], nil
}

// Clip replaces negative forecasts with zero and rounds to precision.
func Clip(values []float64, precision int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = models.Round(math.Max(v, 0), precision)
	}
	return out
}
