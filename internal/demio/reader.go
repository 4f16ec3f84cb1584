package demio

import "dem-terrain-render/internal/rendererr"

// Window is a geographic selection in decimal degrees (spec.md §3).
type Window struct {
	West, North, East, South float64
}

// Reader is the polymorphic DEM reader contract (spec.md §4.2): a single
// elevation raster file, opened once, exposing cheap metadata plus eager or
// windowed loads.
type Reader interface {
	Bounds() (west, north, east, south float64)
	WidthPx() int
	HeightPx() int
	PixelsPerDegree() float64
	NoDataSentinel() float64

	// Load performs an eager full read, substituting NaN for the sentinel.
	Load() (*Grid, error)

	// LoadSubset crops to window; the default behavior (used by the
	// band-interleaved reader) is Load-then-crop. Tagged-image readers may
	// override with a true windowed read.
	LoadSubset(window Window) (*Grid, error)
}

// Open detects the container variant by file extension/content and returns
// the matching Reader. Supported variants: band-interleaved (".bil"/".flt"
// paired with a ".hdr" text header) and tagged-image (".tif"/".tiff").
func Open(path string) (Reader, error) {
	switch {
	case hasAnySuffix(path, ".tif", ".tiff"):
		return openTaggedImage(path)
	case hasAnySuffix(path, ".bil", ".flt", ".bin"):
		return openBandInterleaved(path)
	default:
		// Probe: a sibling header selects the band-interleaved reader;
		// otherwise the tagged-image opener is used, since godal can sniff
		// the format from content.
		if hasHeaderSibling(path) {
			return openBandInterleaved(path)
		}
		return openTaggedImage(path)
	}
}

func hasAnySuffix(path string, suffixes ...string) bool {
	for _, s := range suffixes {
		if len(path) >= len(s) && path[len(path)-len(s):] == s {
			return true
		}
	}
	return false
}

// cropGrid implements the default LoadSubset behavior: full load, then crop
// to the requested window via nearest-enclosing pixel bounds. No-data
// outside the grid's own bounds remains NaN.
func cropGrid(g *Grid, w Window) (*Grid, error) {
	if w.North <= g.South || w.South >= g.North || w.East <= g.West || w.West >= g.East {
		return nil, rendererr.New(rendererr.WindowOutsideCoverage, "window does not intersect tile bounds")
	}
	degPerPxLat := (g.North - g.South) / float64(g.Height)
	degPerPxLon := (g.East - g.West) / float64(g.Width)

	r0 := int((g.North - w.North) / degPerPxLat)
	r1 := int((g.North - w.South) / degPerPxLat)
	c0 := int((w.West - g.West) / degPerPxLon)
	c1 := int((w.East - g.West) / degPerPxLon)

	if r0 < 0 {
		r0 = 0
	}
	if c0 < 0 {
		c0 = 0
	}
	if r1 > g.Height {
		r1 = g.Height
	}
	if c1 > g.Width {
		c1 = g.Width
	}
	if r1 <= r0 || c1 <= c0 {
		return nil, rendererr.New(rendererr.WindowOutsideCoverage, "window crop produced empty grid")
	}

	out := NewGrid(c1-c0, r1-r0,
		g.West+float64(c0)*degPerPxLon, g.North-float64(r0)*degPerPxLat,
		g.West+float64(c1)*degPerPxLon, g.North-float64(r1)*degPerPxLat,
		g.PixelsPerDegree)
	for row := r0; row < r1; row++ {
		for col := c0; col < c1; col++ {
			out.Set(row-r0, col-c0, g.At(row, col))
		}
	}
	return out, nil
}
