package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTiles() []TileRecord {
	return []TileRecord{
		{Path: "b.tif", West: 0, North: 10, East: 10, South: 0, PixelsPerDegree: 100},
		{Path: "a.tif", West: 10, North: 10, East: 20, South: 0, PixelsPerDegree: 100},
	}
}

func TestSortTilesDeterministic(t *testing.T) {
	tiles := sampleTiles()
	sortTiles(tiles)
	require.Len(t, tiles, 2)
	assert.Equal(t, "b.tif", tiles[0].Path)
	assert.Equal(t, "a.tif", tiles[1].Path)
}

func TestTilesForWindowIntersectsOnly(t *testing.T) {
	c := &Catalog{Tiles: sampleTiles(), Coverage: coverageOf(sampleTiles())}
	got := c.TilesForWindow(5, 10, 15, 0)
	assert.Len(t, got, 2)

	got = c.TilesForWindow(-20, 10, -10, 0)
	assert.Empty(t, got)
}

func TestWinningTilePrefersHigherResolution(t *testing.T) {
	a := TileRecord{Path: "a", PixelsPerDegree: 100}
	b := TileRecord{Path: "b", PixelsPerDegree: 200}
	assert.Equal(t, b, WinningTile(a, b))
	assert.Equal(t, b, WinningTile(b, a))
}

func TestWinningTileTiesBreakOnPath(t *testing.T) {
	a := TileRecord{Path: "z", PixelsPerDegree: 100}
	b := TileRecord{Path: "a", PixelsPerDegree: 100}
	assert.Equal(t, b, WinningTile(a, b))
}

func TestCoverageOfUnion(t *testing.T) {
	env := coverageOf(sampleTiles())
	assert.Equal(t, Envelope{West: 0, North: 10, East: 20, South: 0}, env)
}
