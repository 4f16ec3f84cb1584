package assembly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dem-terrain-render/internal/catalog"
	"dem-terrain-render/internal/rendererr"
)

func TestPreflightAcceptsExactlyMaxPixels(t *testing.T) {
	budget := Budget{MaxOutputPixels: 100, MaxMemoryPercent: 1.0}
	_, err := preflight(10, 10, 0, budget) // exactly 100 pixels
	assert.NoError(t, err)
}

func TestPreflightRejectsOnePixelOverMax(t *testing.T) {
	budget := Budget{MaxOutputPixels: 99, MaxMemoryPercent: 1.0}
	_, err := preflight(10, 10, 0, budget) // 100 pixels, limit 99
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "OutputTooLarge")
	}
}

func TestPreflightRecommendedScaleApproximatesSqrtRatio(t *testing.T) {
	budget := Budget{MaxOutputPixels: 500_000_000, MaxMemoryPercent: 1.0}
	// 6e8 pixels at scale 1.0 -> recommended scale ~= sqrt(5e8/6e8) ~= 0.91
	side := 24495 // ~24495^2 ~= 6e8
	_, err := preflight(side, side, 0, budget)
	require.Error(t, err)
	re, ok := err.(*rendererr.Error)
	require.True(t, ok)
	assert.Equal(t, rendererr.OutputTooLarge, re.Kind)
	assert.InDelta(t, 0.91, re.RecommendedScale, 0.01)
}

func TestPaintOrderByResolutionPlacesHigherPPDLast(t *testing.T) {
	// lowRes sorts before highRes in sortTiles' north/west/path order (it's
	// further west), but the higher-ppd tile must still paint last so it
	// wins the overlap (spec.md §4.3/§4.5).
	lowRes := catalog.TileRecord{Path: "a.tif", West: 0, PixelsPerDegree: 30}
	highRes := catalog.TileRecord{Path: "b.tif", West: 1, PixelsPerDegree: 90}

	ordered := paintOrderByResolution([]catalog.TileRecord{highRes, lowRes})
	require.Len(t, ordered, 2)
	assert.Equal(t, highRes, ordered[len(ordered)-1])
}

func TestPaintOrderByResolutionBreaksTiesByLexicographicPathLast(t *testing.T) {
	// equal ppd: the lexicographically smaller path wins the tie and must
	// paint last, regardless of input order.
	tileA := catalog.TileRecord{Path: "a.tif", PixelsPerDegree: 30}
	tileZ := catalog.TileRecord{Path: "z.tif", PixelsPerDegree: 30}

	ordered := paintOrderByResolution([]catalog.TileRecord{tileA, tileZ})
	assert.Equal(t, tileA, ordered[len(ordered)-1])

	ordered2 := paintOrderByResolution([]catalog.TileRecord{tileZ, tileA})
	assert.Equal(t, tileA, ordered2[len(ordered2)-1])
}
