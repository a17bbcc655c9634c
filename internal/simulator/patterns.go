package simulator

import (
	"math"
	"time"
)

// Pattern shapes a base level over wall-clock time.
type Pattern interface {
	Apply(base float64, at time.Time) float64
	Name() string
}

var (
	PatternSteady Pattern = &SteadyPattern{}
	PatternDaily  Pattern = &DailyPattern{}
	PatternWeekly Pattern = &WeeklyPattern{}
	PatternSine   Pattern = &SineWavePattern{Period: 24 * time.Hour, Amplitude: 15}
)

func ParsePattern(name string) Pattern {
	switch name {
	case "daily":
		return PatternDaily
	case "weekly":
		return PatternWeekly
	case "sine_wave":
		return PatternSine
	default:
		return PatternSteady
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// SteadyPattern - constant load
type SteadyPattern struct{}

func (p *SteadyPattern) Apply(base float64, at time.Time) float64 {
	return base
}

func (p *SteadyPattern) Name() string {
	return "steady"
}

// DailyPattern - business hours peak, night trough
type DailyPattern struct{}

func dailyModifier(hour int) float64 {
	switch {
	case hour >= 9 && hour <= 11:
		return 1.4
	case hour >= 14 && hour <= 16:
		return 1.3
	case hour >= 17 && hour <= 20:
		return 1.1
	case hour >= 0 && hour <= 6:
		return 0.6
	default:
		return 1.0
	}
}

func (p *DailyPattern) Apply(base float64, at time.Time) float64 {
	return clamp(base * dailyModifier(at.Hour()))
}

func (p *DailyPattern) Name() string {
	return "daily"
}

// WeeklyPattern - daily cycle on weekdays, halved on weekends
type WeeklyPattern struct{}

func (p *WeeklyPattern) Apply(base float64, at time.Time) float64 {
	if at.Weekday() == time.Saturday || at.Weekday() == time.Sunday {
		return clamp(base * 0.5)
	}
	return clamp(base * dailyModifier(at.Hour()))
}

func (p *WeeklyPattern) Name() string {
	return "weekly"
}

// SineWavePattern - smooth oscillation
type SineWavePattern struct {
	Period    time.Duration
	Amplitude float64
}

func (p *SineWavePattern) Apply(base float64, at time.Time) float64 {
	phase := float64(at.UnixNano()) / float64(p.Period.Nanoseconds()) * 2 * math.Pi
	return clamp(base + math.Sin(phase)*p.Amplitude)
}

func (p *SineWavePattern) Name() string {
	return "sine_wave"
}
