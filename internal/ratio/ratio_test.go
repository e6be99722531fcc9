package ratio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDivide_GuardsZeroDenominator(t *testing.T) {
	assert.Equal(t, 0.0, Divide(10, 0))
	assert.Equal(t, 0.0, Divide(0, 0))
	assert.Equal(t, 2.5, Divide(5, 2))
	assert.Equal(t, 0.0, Divide(math.Inf(1), 1))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 50.0, Percent(1, 2))
	assert.Equal(t, 0.0, Percent(1, 0))
}

func TestChange(t *testing.T) {
	assert.Equal(t, 100.0, Change(5, 0))
	assert.Equal(t, 0.0, Change(0, 0))
	assert.Equal(t, 0.0, Change(7, 7))
	assert.Equal(t, 50.0, Change(150, 100))
	assert.Equal(t, -25.0, Change(75, 100))
}

func TestTop_BreaksTiesByKeyAndSkipsZero(t *testing.T) {
	m := map[string]int{"b": 3, "a": 3, "c": 1, "z": 0}

	got := Top(m, 2, true, false)
	assert.Equal(t, []Entry[string, int]{{"a", 3}, {"b", 3}}, got)

	low := Top(m, 3, false, true)
	assert.Equal(t, []Entry[string, int]{{"c", 1}, {"a", 3}, {"b", 3}}, low)
}

func TestTop_EmptyMap(t *testing.T) {
	got := Top(map[int]float64{}, 3, true, true)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestSum_IndependentOfInsertionOrder(t *testing.T) {
	a := map[string]float64{"a": 0.1, "b": 0.2, "c": 0.3, "d": 19.99, "e": 1e-3}
	b := map[string]float64{"e": 1e-3, "d": 19.99, "c": 0.3, "b": 0.2, "a": 0.1}

	want := Sum(a)
	for i := 0; i < 100; i++ {
		assert.Equal(t, want, Sum(a))
		assert.Equal(t, want, Sum(b))
	}
	assert.Equal(t, 0.0, Sum(map[string]float64{}))
	assert.Equal(t, 6, Sum(map[int]int{1: 1, 2: 2, 3: 3}))
}
