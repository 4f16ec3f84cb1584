package hillshade

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dem-terrain-render/internal/demio"
)

func TestComputeFlatGridIsNeutral(t *testing.T) {
	g := demio.NewGrid(5, 5, 0, 5, 5, 0, 1)
	for i := range g.Data {
		g.Data[i] = 100
	}
	out := Compute(g, 0, 100, nil)
	for _, v := range out.Data {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
}

func TestComputeSimpleRampFromNorth(t *testing.T) {
	// 3x3 grid [[0,0,0],[100,100,100],[200,200,200]], light from north (0deg),
	// intensity 100 (so relief = 200 after clamping to max(50, 200)).
	g := demio.NewGrid(3, 3, 0, 3, 3, 0, 1)
	rows := [][3]float32{{0, 0, 0}, {100, 100, 100}, {200, 200, 200}}
	for y, row := range rows {
		for x, v := range row {
			g.Set(y, x, v)
		}
	}
	out := Compute(g, 0, 100, nil)
	// Interior pixel (1,1): neighbor to the north = 0, diff=100,
	// shade = 0.5 + (100/200)*1*1.2 = 1.1 -> clamp 1.0
	assert.InDelta(t, 1.0, out.At(1, 1), 1e-6)
}

func TestComputeNeutralWhenNeighborNaN(t *testing.T) {
	g := demio.NewGrid(3, 3, 0, 3, 3, 0, 1)
	g.Set(1, 1, 50)
	// all neighbors remain NaN
	out := Compute(g, 0, 100, nil)
	assert.InDelta(t, 0.5, out.At(1, 1), 1e-6)
}
