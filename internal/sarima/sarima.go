// Package sarima fits a seasonal ARIMA (1,1,1)(0,1,1,s) model without trend by
// conditional sum of squares and produces multi-step forecasts.
//
// With w = (1-B)(1-B^s)y the model is
//
//	(1 - phi B) w_t = (1 + theta B)(1 + Theta B^s) e_t
//
// Stationarity and invertibility are not enforced. Parameter sets that make
// the residual recursion diverge are rejected by the optimizer.
package sarima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

var (
	ErrInsufficientData = errors.New("insufficient data for seasonal differencing")
	ErrFitFailed        = errors.New("model fit failed")
)

// penalty replaces non-finite objective values so Nelder-Mead moves away from them.
const penalty = 1e300

type Model struct {
	Phi           float64
	Theta         float64
	SeasonalTheta float64
	// Sigma2 is the conditional residual variance at the optimum.
	Sigma2 float64

	seasons int
	y       []float64
	w       []float64
	e       []float64
}

// MinObservations is the shortest series Fit accepts: one full season of
// differenced values on top of the s+1 points consumed by differencing.
func MinObservations(seasons int) int {
	return 2*seasons + 2
}

// Fit estimates the model on y, which must not contain NaN.
func Fit(y []float64, seasons int) (*Model, error) {
	if seasons < 2 {
		return nil, fmt.Errorf("%w: seasonal period %d", ErrFitFailed, seasons)
	}
	if len(y) < MinObservations(seasons) {
		return nil, fmt.Errorf("%w: %d observations, need %d for period %d",
			ErrInsufficientData, len(y), MinObservations(seasons), seasons)
	}
	if floats.HasNaN(y) {
		return nil, fmt.Errorf("%w: input contains missing values", ErrFitFailed)
	}

	m := &Model{
		seasons: seasons,
		y:       append([]float64(nil), y...),
		w:       difference(y, seasons),
	}
	m.e = make([]float64, len(m.w))

	scratch := make([]float64, len(m.w))
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			v := m.css(x[0], x[1], x[2], scratch)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return penalty
			}
			return v
		},
	}
	settings := &optimize.Settings{
		MajorIterations: 2000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-10,
			Iterations: 100,
		},
	}

	result, err := optimize.Minimize(problem, []float64{0, 0, 0}, settings, &optimize.NelderMead{})
	if result == nil {
		return nil, fmt.Errorf("%w: %v", ErrFitFailed, err)
	}
	// hitting the iteration limit still leaves a usable estimate
	if result.F >= penalty || !finite(result.X) {
		return nil, fmt.Errorf("%w: no finite estimate (%v)", ErrFitFailed, err)
	}

	m.Phi, m.Theta, m.SeasonalTheta = result.X[0], result.X[1], result.X[2]
	m.Sigma2 = m.css(m.Phi, m.Theta, m.SeasonalTheta, m.e)
	return m, nil
}

// difference applies (1-B)(1-B^s). Index j of the result matches y[j+s+1].
func difference(y []float64, s int) []float64 {
	w := make([]float64, 0, len(y)-s-1)
	for t := s + 1; t < len(y); t++ {
		w = append(w, y[t]-y[t-1]-y[t-s]+y[t-s-1])
	}
	return w
}

// css fills e with the conditional residuals and returns their mean square.
// Pre-sample residuals and differences are taken as zero.
func (m *Model) css(phi, theta, stheta float64, e []float64) float64 {
	var sse float64
	for j, wj := range m.w {
		e[j] = wj - m.predict(j, phi, theta, stheta, m.w, e)
		if j > 0 {
			sse += e[j] * e[j]
		}
	}
	return sse / float64(len(m.w)-1)
}

func (m *Model) predict(j int, phi, theta, stheta float64, w, e []float64) float64 {
	s := m.seasons
	var pred float64
	if j >= 1 {
		pred += phi*w[j-1] + theta*e[j-1]
	}
	if j >= s {
		pred += stheta * e[j-s]
	}
	if j >= s+1 {
		pred += theta * stheta * e[j-s-1]
	}
	return pred
}

// Forecast returns the next steps values after the fitted sample. Future
// shocks are zero, so each step feeds on the previous predictions.
func (m *Model) Forecast(steps int) []float64 {
	if steps <= 0 {
		return nil
	}
	s := m.seasons
	n := len(m.y)

	y := append(append(make([]float64, 0, n+steps), m.y...), make([]float64, steps)...)
	w := append(append(make([]float64, 0, len(m.w)+steps), m.w...), make([]float64, steps)...)
	e := append(append(make([]float64, 0, len(m.e)+steps), m.e...), make([]float64, steps)...)

	for h := 0; h < steps; h++ {
		j := len(m.w) + h
		w[j] = m.predict(j, m.Phi, m.Theta, m.SeasonalTheta, w, e)
		t := j + s + 1
		y[t] = w[j] + y[t-1] + y[t-s] - y[t-s-1]
	}
	return y[n:]
}

func finite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Interpolate fills interior NaN runs linearly and trims leading and trailing
// NaN runs. It returns the cleaned values and how many were trimmed at each end.
func Interpolate(values []float64) (clean []float64, lead, trail int) {
	first, last := -1, -1
	for i, v := range values {
		if !math.IsNaN(v) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil, len(values), 0
	}

	clean = append([]float64(nil), values[first:last+1]...)
	prev := 0
	for i := 1; i < len(clean); i++ {
		if math.IsNaN(clean[i]) {
			continue
		}
		if gap := i - prev; gap > 1 {
			step := (clean[i] - clean[prev]) / float64(gap)
			for k := 1; k < gap; k++ {
				clean[prev+k] = clean[prev] + step*float64(k)
			}
		}
		prev = i
	}
	return clean, first, len(values) - 1 - last
}
