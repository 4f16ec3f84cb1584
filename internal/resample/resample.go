// Package resample implements C4: resizing an elevation grid to a target
// shape while treating no-data as an explicit mask. No kernel is ever
// allowed to blend a valid sample with a NaN neighbor into a fabricated
// finite value, and no kernel is allowed to blend a NaN neighbor's absence
// into a fake zero elevation.
package resample

import (
	"math"

	"dem-terrain-render/internal/demio"
)

// Method selects the interpolation kernel.
type Method string

const (
	Nearest  Method = "nearest"
	Bilinear Method = "bilinear"
	Bicubic  Method = "bicubic"
	Lanczos  Method = "lanczos"
)

// Resize produces a new grid of shape (targetH, targetW) covering the same
// geographic bounds as src, resampled with method. Guarantees (spec.md §4.4):
// an output pixel is NaN iff every contributing input sample is NaN; if any
// contributing sample is valid, the output uses only the valid samples with
// kernel weights renormalized over them.
func Resize(src *demio.Grid, targetH, targetW int, method Method) *demio.Grid {
	dst := demio.NewGrid(targetW, targetH, src.West, src.North, src.East, src.South,
		src.PixelsPerDegree*float64(targetW)/float64(src.Width))

	// Downsampling by a factor >= 2 may use stride subsampling as a
	// correctness-preserving shortcut (spec.md §4.4).
	if targetW*2 <= src.Width && targetH*2 <= src.Height && method != Nearest {
		strideSubsample(src, dst)
		return dst
	}

	scaleY := float64(src.Height) / float64(targetH)
	scaleX := float64(src.Width) / float64(targetW)

	for row := 0; row < targetH; row++ {
		srcY := (float64(row)+0.5)*scaleY - 0.5
		for col := 0; col < targetW; col++ {
			srcX := (float64(col)+0.5)*scaleX - 0.5
			var v float32
			switch method {
			case Nearest:
				v = src.At(int(math.Round(srcY)), int(math.Round(srcX)))
			case Bicubic:
				v = sampleKernel(src, srcY, srcX, 2, cubicWeight)
			case Lanczos:
				v = sampleKernel(src, srcY, srcX, 3, lanczosWeight)
			default: // Bilinear
				v = sampleBilinear(src, srcY, srcX)
			}
			dst.Set(row, col, v)
		}
	}
	return dst
}

// strideSubsample implements the nearest-neighbor stride fallback: always
// correct (never averages), used for large downsampling ratios.
func strideSubsample(src *demio.Grid, dst *demio.Grid) {
	scaleY := float64(src.Height) / float64(dst.Height)
	scaleX := float64(src.Width) / float64(dst.Width)
	for row := 0; row < dst.Height; row++ {
		sy := int(float64(row) * scaleY)
		for col := 0; col < dst.Width; col++ {
			sx := int(float64(col) * scaleX)
			dst.Set(row, col, src.At(sy, sx))
		}
	}
}

// PointSample bilinearly samples a single point at fractional (row, col),
// the same NaN-renormalizing kernel Resize uses internally, exported so
// point-sampling callers (track elevation profiles) can reuse it directly.
func PointSample(src *demio.Grid, row, col float64) (float32, bool) {
	v := sampleBilinear(src, row, col)
	return v, !isNaN(v)
}

func sampleBilinear(src *demio.Grid, y, x float64) float32 {
	y0, x0 := int(math.Floor(y)), int(math.Floor(x))
	fy, fx := y-float64(y0), x-float64(x0)

	corners := [4]weighted{
		{w: (1 - fy) * (1 - fx)},
		{w: (1 - fy) * fx},
		{w: fy * (1 - fx)},
		{w: fy * fx},
	}
	coords := [4][2]int{{y0, x0}, {y0, x0 + 1}, {y0 + 1, x0}, {y0 + 1, x0 + 1}}
	for i, c := range coords {
		v := src.At(c[0], c[1])
		if !isNaN(v) {
			corners[i].v = float64(v)
			corners[i].ok = true
		}
	}
	return weightedAverage(corners[:])
}

type weighted struct {
	v, w float64
	ok   bool
}

func weightedAverage(samples []weighted) float32 {
	var sumW, sumV float64
	anyValid := false
	for _, s := range samples {
		if !s.ok {
			continue
		}
		anyValid = true
		sumW += s.w
		sumV += s.w * s.v
	}
	if !anyValid || sumW == 0 {
		return float32(math.NaN())
	}
	return float32(sumV / sumW)
}

// sampleKernel evaluates a separable kernel of given radius (cubic=2,
// lanczos=3) around (y, x), renormalizing weights over the valid subset.
func sampleKernel(src *demio.Grid, y, x float64, radius int, weightFn func(float64) float64) float32 {
	y0, x0 := int(math.Floor(y)), int(math.Floor(x))
	var samples []weighted
	for dy := -radius + 1; dy <= radius; dy++ {
		wy := weightFn(y - float64(y0+dy))
		for dx := -radius + 1; dx <= radius; dx++ {
			wx := weightFn(x - float64(x0+dx))
			v := src.At(y0+dy, x0+dx)
			s := weighted{w: wy * wx}
			if !isNaN(v) {
				s.v = float64(v)
				s.ok = true
			}
			samples = append(samples, s)
		}
	}
	return weightedAverage(samples)
}

func cubicWeight(t float64) float64 {
	t = math.Abs(t)
	const a = -0.5
	switch {
	case t <= 1:
		return (a+2)*t*t*t - (a+3)*t*t + 1
	case t < 2:
		return a*t*t*t - 5*a*t*t + 8*a*t - 4*a
	default:
		return 0
	}
}

func lanczosWeight(t float64) float64 {
	const a = 3.0
	t = math.Abs(t)
	if t == 0 {
		return 1
	}
	if t >= a {
		return 0
	}
	piT := math.Pi * t
	return a * math.Sin(piT) * math.Sin(piT/a) / (piT * piT)
}

func isNaN(v float32) bool { return v != v }
