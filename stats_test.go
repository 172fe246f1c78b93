package busmetrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, mean(nil))
	assert.Equal(t, 7.0, mean([]float64{7}))
	assert.Equal(t, 25.0, mean([]float64{10, 20, 30, 40}))
}

func TestPercentile(t *testing.T) {
	values := []float64{40, 10, 30, 20}

	assert.Equal(t, 0.0, percentile(nil, 50))
	assert.Equal(t, 10.0, percentile(values, 0))
	assert.Equal(t, 40.0, percentile(values, 100))
	assert.Equal(t, 25.0, percentile(values, 50))

	// Between ranks: interpolated, not nearest.
	assert.InDelta(t, 13.0, percentile(values, 10), 1e-9)
	assert.InDelta(t, 37.0, percentile(values, 90), 1e-9)

	// Input order must not matter and the input must not be mutated.
	assert.Equal(t, []float64{40, 10, 30, 20}, values)

	assert.Equal(t, 5.0, percentile([]float64{5}, 90))
}

func TestPopulationStdDev(t *testing.T) {
	assert.Equal(t, 0.0, populationStdDev(nil))
	assert.Equal(t, 0.0, populationStdDev([]float64{600, 600, 600}))
	assert.Equal(t, 300.0, populationStdDev([]float64{600, 1200}))
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 18.3, round1(18.25))
	assert.Equal(t, 18.2, round1(18.24))
	assert.Equal(t, -2.5, round1(-2.45))
}
