package trackprofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tkrajina/gpxgo/gpx"

	"dem-terrain-render/internal/demio"
)

func point(ele float64) gpx.GPXPoint {
	p := gpx.GPXPoint{}
	p.Elevation.SetValue(ele)
	return p
}

func TestUphillDownhillUnfilteredAccumulatesBothDirections(t *testing.T) {
	points := []gpx.GPXPoint{point(100), point(150), point(120), point(140)}
	up, down := uphillDownhillUnfiltered(points)
	assert.Equal(t, 70.0, up)   // 100->150 (+50), 120->140 (+20)
	assert.Equal(t, 30.0, down) // 150->120 (-30)
}

func TestSampleWithFallbackUsesDirectBilinearWhenValid(t *testing.T) {
	g := demio.NewGrid(4, 4, 0, 4, 4, 0, 1)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			g.Set(r, c, float32(100+r+c))
		}
	}
	v, ok := sampleWithFallback(g, 1.5, 1.5)
	assert.True(t, ok)
	assert.InDelta(t, 103.0, v, 0.5)
}

func TestSampleWithFallbackUsesNeighborWhenCenterAllNaN(t *testing.T) {
	g := demio.NewGrid(5, 5, 0, 5, 5, 0, 1)
	g.Set(2, 3, 250) // one valid cell adjacent to the all-NaN target cluster
	v, ok := sampleWithFallback(g, 2, 2)
	assert.True(t, ok)
	assert.Equal(t, 250.0, v)
}

func TestSampleWithFallbackFailsWhenNoValidNeighbor(t *testing.T) {
	g := demio.NewGrid(10, 10, 0, 10, 10, 0, 1) // all NaN
	_, ok := sampleWithFallback(g, 5, 5)
	assert.False(t, ok)
}
