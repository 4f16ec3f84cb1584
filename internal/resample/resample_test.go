package resample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dem-terrain-render/internal/demio"
)

func flatGrid(h, w int, v float32) *demio.Grid {
	g := demio.NewGrid(w, h, 0, float64(h), float64(w), 0, 1)
	for i := range g.Data {
		g.Data[i] = v
	}
	return g
}

func TestResizeShapeMatchesRequest(t *testing.T) {
	src := flatGrid(10, 10, 5)
	for _, m := range []Method{Nearest, Bilinear, Bicubic, Lanczos} {
		dst := Resize(src, 4, 6, m)
		require.Equal(t, 4, dst.Height, "method=%v", m)
		require.Equal(t, 6, dst.Width, "method=%v", m)
	}
}

func TestResizeFlatGridStaysFlat(t *testing.T) {
	src := flatGrid(10, 10, 42)
	dst := Resize(src, 5, 5, Bilinear)
	for _, v := range dst.Data {
		assert.InDelta(t, 42, v, 1e-4)
	}
}

func TestResizeAllNaNStaysAllNaN(t *testing.T) {
	src := demio.NewGrid(8, 8, 0, 8, 8, 0, 1)
	dst := Resize(src, 4, 4, Bilinear)
	for _, v := range dst.Data {
		assert.True(t, math.IsNaN(float64(v)))
	}
}

func TestResizeNeverBleedsNaNIntoValid(t *testing.T) {
	src := demio.NewGrid(4, 4, 0, 4, 4, 0, 1)
	// top-left quadrant valid, rest NaN
	src.Set(0, 0, 10)
	src.Set(0, 1, 10)
	src.Set(1, 0, 10)
	src.Set(1, 1, 10)

	dst := Resize(src, 4, 4, Bilinear)
	// a pixel surrounded entirely by NaN neighbors must remain NaN
	assert.True(t, math.IsNaN(float64(dst.At(3, 3))))
	// a pixel with at least one valid neighbor must be finite, not NaN
	assert.False(t, math.IsNaN(float64(dst.At(0, 0))))
}

func TestResizeStrideSubsampleLargeDownscale(t *testing.T) {
	src := flatGrid(100, 100, 7)
	dst := Resize(src, 10, 10, Bilinear)
	for _, v := range dst.Data {
		assert.InDelta(t, 7, v, 1e-4)
	}
}
