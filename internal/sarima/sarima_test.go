package sarima

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seasonal(n, period int, offset int) []float64 {
	y := make([]float64, n)
	for i := range y {
		t := float64(i + offset)
		y[i] = 50 + 10*math.Sin(2*math.Pi*t/float64(period)) + 0.05*t
	}
	return y
}

func TestFit_NoiselessSeasonalSignal(t *testing.T) {
	const period = 12
	y := seasonal(8*period, period, 0)

	model, err := Fit(y, period)
	require.NoError(t, err)

	forecast := model.Forecast(2 * period)
	want := seasonal(2*period, period, len(y))

	require.Len(t, forecast, 2*period)
	for i := range want {
		assert.InDelta(t, want[i], forecast[i], 1e-6, "step %d", i)
	}
}

func TestFit_NoisySeries(t *testing.T) {
	const period = 12
	rng := rand.New(rand.NewSource(42))
	y := seasonal(20*period, period, 0)
	for i := range y {
		y[i] += rng.NormFloat64()
	}

	model, err := Fit(y, period)
	require.NoError(t, err)

	assert.False(t, math.IsNaN(model.Phi))
	assert.Greater(t, model.Sigma2, 0.0)

	forecast := model.Forecast(period)
	want := seasonal(period, period, len(y))
	for i := range want {
		assert.InDelta(t, want[i], forecast[i], 5, "step %d", i)
	}
}

func TestFit_InsufficientData(t *testing.T) {
	_, err := Fit(seasonal(MinObservations(12)-1, 12, 0), 12)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestFit_RejectsBadInput(t *testing.T) {
	y := seasonal(48, 12, 0)
	y[10] = math.NaN()
	_, err := Fit(y, 12)
	assert.ErrorIs(t, err, ErrFitFailed)

	_, err = Fit(seasonal(48, 12, 0), 1)
	assert.ErrorIs(t, err, ErrFitFailed)
}

func TestForecast_ZeroSteps(t *testing.T) {
	model, err := Fit(seasonal(48, 12, 0), 12)
	require.NoError(t, err)
	assert.Empty(t, model.Forecast(0))
}

func TestInterpolate(t *testing.T) {
	nan := math.NaN()

	clean, lead, trail := Interpolate([]float64{nan, 1, nan, nan, 4, 5, nan})
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, clean)
	assert.Equal(t, 1, lead)
	assert.Equal(t, 1, trail)

	clean, lead, trail = Interpolate([]float64{nan, nan})
	assert.Empty(t, clean)
	assert.Equal(t, 2, lead)
	assert.Zero(t, trail)

	clean, _, _ = Interpolate([]float64{3})
	assert.Equal(t, []float64{3}, clean)
}
