package prospector

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/OldStager01/joyce/pkg/models"
)

// Normalize converts raw history into naive wall-clock samples in loc. When
// invert is set each value becomes 100 - round(value, precision).
func Normalize(raw []models.RawSample, loc *time.Location, invert bool, precision int) ([]models.Sample, error) {
	samples := make([]models.Sample, 0, len(raw))
	for _, r := range raw {
		value, err := strconv.ParseFloat(strings.TrimSpace(r.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %q at clock %d", ErrUnparseable, r.Value, r.Clock)
		}
		if invert {
			value = 100 - models.Round(value, precision)
		}
		samples = append(samples, models.Sample{
			Time:  models.NaiveTime(time.Unix(r.Clock, 0), loc),
			Value: value,
		})
	}
	return samples, nil
}

// Resample averages samples into half-open buckets of the given width, aligned
// to midnight of the first sample's day. Empty buckets between the first and
// the last populated one are kept as missing values.
func Resample(samples []models.Sample, width time.Duration, precision int) []models.Sample {
	if len(samples) == 0 || width <= 0 {
		return nil
	}

	first := samples[0].Time
	for _, s := range samples[1:] {
		if s.Time.Before(first) {
			first = s.Time
		}
	}
	origin := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, first.Location())

	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[int64]*bucket)
	minIdx, maxIdx := int64(math.MaxInt64), int64(math.MinInt64)

	for _, s := range samples {
		if s.Missing() {
			continue
		}
		idx := int64(s.Time.Sub(origin) / width)
		b, ok := buckets[idx]
		if !ok {
			b = &bucket{}
			buckets[idx] = b
		}
		b.sum += s.Value
		b.count++
		if idx < minIdx {
			minIdx = idx
		}
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	if len(buckets) == 0 {
		return nil
	}

	out := make([]models.Sample, 0, maxIdx-minIdx+1)
	for idx := minIdx; idx <= maxIdx; idx++ {
		value := math.NaN()
		if b, ok := buckets[idx]; ok {
			value = models.Round(b.sum/float64(b.count), precision)
		}
		out = append(out, models.Sample{
			Time:  origin.Add(time.Duration(idx) * width),
			Value: value,
		})
	}
	return out
}
