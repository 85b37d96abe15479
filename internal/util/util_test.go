package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUsable(t *testing.T) {
	assert.True(t, IsUsable(0.001))
	assert.True(t, IsUsable(60))
	assert.False(t, IsUsable(0))
	assert.False(t, IsUsable(-1))
	assert.False(t, IsUsable(math.NaN()))
	assert.False(t, IsUsable(math.Inf(1)))
	assert.False(t, IsUsable(math.Inf(-1)))
}

func TestRate(t *testing.T) {
	rate, ok := Rate(0.05)
	assert.True(t, ok)
	assert.InDelta(t, 20.0, rate, 1e-9)

	for _, delta := range []float64{0, -0.1, math.NaN(), math.Inf(1), math.SmallestNonzeroFloat64} {
		_, ok := Rate(delta)
		assert.False(t, ok, "delta %v", delta)
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, uint(0), Percent(0, 0))
	assert.Equal(t, uint(0), Percent(0, 10))
	assert.Equal(t, uint(33), Percent(1, 3))
	assert.Equal(t, uint(67), Percent(2, 3))
	assert.Equal(t, uint(100), Percent(4, 4))
}
