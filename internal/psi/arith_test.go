package psi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeltaU64_SaturatesAtZeroOnWraparound(t *testing.T) {
	assert.Equal(t, uint64(50), DeltaU64(150, 100))
	assert.Equal(t, uint64(0), DeltaU64(100, 150))
	assert.Equal(t, uint64(0), DeltaU64(100, 100))
}

func TestSafeDiv_GuardsNearZeroDenominator(t *testing.T) {
	assert.InDelta(t, 2.0, SafeDiv(10, 5), 1e-12)
	assert.Equal(t, float64(0), SafeDiv(10, 0))
	assert.Equal(t, float64(0), SafeDiv(10, 1e-13))
}
