// Package hillshade implements C7: a 360-degree light-direction hillshade
// from elevation differences with bilinear neighbor sampling, ported from
// original_source/terrain_renderer.py's calculate_hillshade (the
// elevation-difference formulation, not a surface-normal Lambertian model).
package hillshade

import (
	"math"
	"sync/atomic"

	"dem-terrain-render/internal/demio"
	"dem-terrain-render/internal/workerpool"
)

// MinRelief is the floor applied to the relief reference so that near-flat
// grids don't produce an exaggerated, noisy shade (spec.md §4.7). Compute
// takes the reference from the grid's own finite elevation range (max minus
// min); a gradient's MinElev/MaxElev are not used.
const MinRelief = 50.0

// Compute returns a grid of shade values in [0,1] (0.5 = neutral, no
// diff-based brightening/darkening), the same shape as elev.
// lightDirDeg: compass bearing (0 = north, 90 = east). intensityPercent may
// be signed and range beyond +-100 to allow exaggerated shading.
func Compute(elev *demio.Grid, lightDirDeg, intensityPercent float64, progress func(done, total int)) *demio.Grid {
	out := demio.NewGrid(elev.Width, elev.Height, elev.West, elev.North, elev.East, elev.South, elev.PixelsPerDegree)

	minE, maxE, ok := elev.MinMax()
	relief := float64(maxE - minE)
	if !ok || relief < MinRelief {
		relief = MinRelief
	}

	// theta is a compass bearing (0=north, 90=east); rows increase southward
	// (row 0 is the northern edge per the grid's data model) so the
	// north-up cartesian offset (cos theta, sin theta) maps to row offset
	// -cos(theta) and column offset sin(theta).
	theta := lightDirDeg * math.Pi / 180.0
	dy := -math.Cos(theta)
	dx := math.Sin(theta)
	intensity := intensityPercent / 100.0

	var doneRows int64
	tick := max(1, elev.Height/10)
	workerpool.Run(elev.Height, workerpool.DefaultWorkers, func(r workerpool.RowRange) {
		for y := r.Start; y < r.End; y++ {
			for x := 0; x < elev.Width; x++ {
				out.Set(y, x, float32(shadeAt(elev, y, x, dy, dx, relief, intensity)))
			}
			if progress != nil {
				d := atomic.AddInt64(&doneRows, 1)
				if d%int64(tick) == 0 {
					progress(int(d), elev.Height)
				}
			}
		}
	})
	if progress != nil {
		progress(elev.Height, elev.Height)
	}
	return out
}

func shadeAt(elev *demio.Grid, y, x int, dy, dx, relief, intensity float64) float64 {
	current := elev.At(y, x)
	if isNaN(current) {
		return 0.5
	}
	ny := float64(y) + dy
	nx := float64(x) + dx
	neighbor, ok := bilinear(elev, ny, nx)
	if !ok {
		return 0.5
	}
	diff := float64(current) - neighbor
	shade := 0.5 + (diff/relief)*intensity*1.2
	return clamp(shade, 0, 1)
}

// bilinear samples the 4 surrounding cells; ok is false if any is NaN or
// out of range (spec.md §4.7: "if any of the 4 cells is NaN, the pixel's
// hillshade is set to neutral").
func bilinear(g *demio.Grid, y, x float64) (float64, bool) {
	y0, x0 := math.Floor(y), math.Floor(x)
	iy0, ix0 := int(y0), int(x0)
	if iy0 < 0 || ix0 < 0 || iy0+1 >= g.Height || ix0+1 >= g.Width {
		return 0, false
	}
	fy, fx := y-y0, x-x0
	v00, v01 := g.At(iy0, ix0), g.At(iy0, ix0+1)
	v10, v11 := g.At(iy0+1, ix0), g.At(iy0+1, ix0+1)
	if isNaN(v00) || isNaN(v01) || isNaN(v10) || isNaN(v11) {
		return 0, false
	}
	top := float64(v00)*(1-fx) + float64(v01)*fx
	bot := float64(v10)*(1-fx) + float64(v11)*fx
	return top*(1-fy) + bot*fy, true
}

func isNaN(v float32) bool { return v != v }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
