package shadow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dem-terrain-render/internal/demio"
)

func flatGrid(n int, v float32) *demio.Grid {
	g := demio.NewGrid(n, n, 0, float64(n), float64(n), 0, 1)
	for i := range g.Data {
		g.Data[i] = v
	}
	return g
}

func TestComputeFlatGridHasNoShadow(t *testing.T) {
	g := flatGrid(10, 100)
	out := Compute(g, 45, 5, 0)
	for _, v := range out.Data {
		assert.Equal(t, float32(0), v)
	}
}

func TestComputeShadowIsBoundedZeroOne(t *testing.T) {
	g := demio.NewGrid(10, 10, 0, 10, 10, 0, 1)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			g.Set(y, x, float32(y*10))
		}
	}
	out := Compute(g, 0, 5, 1)
	for _, v := range out.Data {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}
