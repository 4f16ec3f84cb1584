package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dem-terrain-render/internal/catalog"
	"dem-terrain-render/internal/coordparse"
	"dem-terrain-render/internal/demio"
	"dem-terrain-render/internal/gradient"
	"dem-terrain-render/internal/rendererr"
)

func TestClampToCoverageClampsPartialOverlap(t *testing.T) {
	cov := catalog.Envelope{West: 10, North: 50, East: 12, South: 48}
	w := coordparse.Window{West: 9, North: 49, East: 11, South: 47}

	got, err := clampToCoverage(w, cov)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.West)
	assert.Equal(t, 48.0, got.South)
	assert.Equal(t, 49.0, got.North)
	assert.Equal(t, 11.0, got.East)
}

func TestClampToCoverageRejectsDisjointWindow(t *testing.T) {
	cov := catalog.Envelope{West: 10, North: 50, East: 12, South: 48}
	w := coordparse.Window{West: 20, North: 30, East: 22, South: 28}

	_, err := clampToCoverage(w, cov)
	require.Error(t, err)
	re, ok := err.(*rendererr.Error)
	require.True(t, ok)
	assert.Equal(t, rendererr.WindowOutsideCoverage, re.Kind)
}

func TestEffectiveGradientRangeOverrideWins(t *testing.T) {
	g := &gradient.Gradient{MinElev: 0, MaxElev: 100}
	grid := demio.NewGrid(2, 2, 0, 0, 1, 1, 1)
	grid.Set(0, 0, 500)

	req := Request{Gradient: g, RangeOverride: &RangeOverride{Min: 10, Max: 20}}
	eff := effectiveGradient(req, grid)
	assert.Equal(t, 10.0, eff.MinElev)
	assert.Equal(t, 20.0, eff.MaxElev)
	assert.Equal(t, 100.0, g.MaxElev) // original untouched
}

func TestEffectiveGradientScansGridWhenScaleToCropArea(t *testing.T) {
	g := &gradient.Gradient{MinElev: 0, MaxElev: 100}
	grid := demio.NewGrid(2, 2, 0, 0, 1, 1, 1)
	grid.Set(0, 0, 5)
	grid.Set(1, 1, 55)

	req := Request{Gradient: g, ScaleToCropArea: true}
	eff := effectiveGradient(req, grid)
	assert.Equal(t, 5.0, eff.MinElev)
	assert.Equal(t, 55.0, eff.MaxElev)
}

func TestEffectiveTimeoutDefaultsWhenUnset(t *testing.T) {
	assert.Equal(t, DefaultTimeout, effectiveTimeout(0))
}
