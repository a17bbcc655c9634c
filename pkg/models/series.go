package models

import (
	"fmt"
	"math"
	"time"
)

// ClockLayout is the naive wall-clock layout used in snapshots.
const ClockLayout = "2006-01-02 15:04:05"

type Source string

const (
	SourceOriginal   Source = "original"
	SourcePrediction Source = "prediction"
	SourceCluster    Source = "cluster"
)

func (s Source) Valid() bool {
	switch s {
	case SourceOriginal, SourcePrediction, SourceCluster:
		return true
	}
	return false
}

// ParseSource returns ErrContractViolation for anything but the three known kinds.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	if !src.Valid() {
		return "", fmt.Errorf("%w: unknown source %q", ErrContractViolation, s)
	}
	return src, nil
}

// Sample is one point of a series. Time holds naive wall-clock fields in UTC.
// A NaN Value marks a bucket without data.
type Sample struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

func (s Sample) Missing() bool {
	return math.IsNaN(s.Value)
}

// Series is an ascending sequence of samples tagged with its origin.
type Series struct {
	Hostname string   `json:"hostname"`
	ItemID   string   `json:"item_id,omitempty"`
	Metric   string   `json:"metric"`
	Source   Source   `json:"source"`
	Samples  []Sample `json:"samples"`
}

func (s *Series) Len() int {
	return len(s.Samples)
}

func (s *Series) Last() (Sample, bool) {
	if len(s.Samples) == 0 {
		return Sample{}, false
	}
	return s.Samples[len(s.Samples)-1], true
}

// Values returns the value column, NaN included.
func (s *Series) Values() []float64 {
	values := make([]float64, len(s.Samples))
	for i, sample := range s.Samples {
		values[i] = sample.Value
	}
	return values
}

// Present returns only the non-missing values.
func (s *Series) Present() []float64 {
	values := make([]float64, 0, len(s.Samples))
	for _, sample := range s.Samples {
		if !sample.Missing() {
			values = append(values, sample.Value)
		}
	}
	return values
}

// Ascending reports whether timestamps are unique and strictly increasing.
func (s *Series) Ascending() bool {
	for i := 1; i < len(s.Samples); i++ {
		if !s.Samples[i].Time.After(s.Samples[i-1].Time) {
			return false
		}
	}
	return true
}

// WithSource returns a copy of the series tagged with another source.
func (s *Series) WithSource(source Source, itemID string) *Series {
	samples := make([]Sample, len(s.Samples))
	copy(samples, s.Samples)
	return &Series{
		Hostname: s.Hostname,
		ItemID:   itemID,
		Metric:   s.Metric,
		Source:   source,
		Samples:  samples,
	}
}

// Round rounds every present value to the given number of decimals.
func (s *Series) Round(precision int) {
	for i := range s.Samples {
		s.Samples[i].Value = Round(s.Samples[i].Value, precision)
	}
}

func (s *Series) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", s.Hostname, s.ItemID, s.Metric, s.Source)
}

// Round rounds half away from zero. NaN and infinities pass through.
func Round(v float64, precision int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	pow := math.Pow(10, float64(precision))
	return math.Round(v*pow) / pow
}

// NaiveTime converts an instant to naive wall-clock fields in loc, truncated to seconds.
func NaiveTime(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), 0, time.UTC)
}
