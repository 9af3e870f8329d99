package film

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilterType(t *testing.T) {
	for _, name := range []string{"NONE", "box", "Gaussian", "MITCHELL"} {
		ft, err := ParseFilterType(name)
		require.NoError(t, err)
		assert.Equal(t, ft.String(), map[string]string{"NONE": "NONE", "box": "BOX", "Gaussian": "GAUSSIAN", "MITCHELL": "MITCHELL"}[name])
	}
	_, err := ParseFilterType("LANCZOS")
	assert.ErrorIs(t, err, ErrUnknownFilter)
}

func TestNewFilterRejectsBadWidth(t *testing.T) {
	_, err := NewFilter(FilterGaussian, 0, 1)
	assert.Error(t, err)
	_, err = NewFilter(FilterBox, 1, MaxFilterWidth+1)
	assert.Error(t, err)
}

func TestFilterEvaluate(t *testing.T) {
	box, _ := NewFilter(FilterBox, 1, 1)
	gauss, _ := NewFilter(FilterGaussian, 1.5, 1.5)
	mitchell, _ := NewFilter(FilterMitchell, 2, 2)

	tests := []struct {
		name   string
		filter *Filter
		dx, dy float64
		check  func(t *testing.T, w float64)
	}{
		{"box inside", box, 0.9, -0.9, func(t *testing.T, w float64) { assert.Equal(t, 1.0, w) }},
		{"box outside", box, 1.1, 0, func(t *testing.T, w float64) { assert.Equal(t, 0.0, w) }},
		{"gaussian center is max", gauss, 0, 0, func(t *testing.T, w float64) {
			assert.Greater(t, w, gauss.Evaluate(0.5, 0))
		}},
		{"gaussian zero at edge", gauss, 1.5, 0, func(t *testing.T, w float64) { assert.InDelta(t, 0, w, 1e-12) }},
		{"mitchell center positive", mitchell, 0, 0, func(t *testing.T, w float64) { assert.Greater(t, w, 0.0) }},
		{"mitchell lobe clamped", mitchell, 1.5, 0, func(t *testing.T, w float64) { assert.GreaterOrEqual(t, w, 0.0) }},
		{"mitchell outside", mitchell, 2.5, 0, func(t *testing.T, w float64) { assert.Equal(t, 0.0, w) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tt.filter.Evaluate(tt.dx, tt.dy))
		})
	}
}
