// Package assembly implements C5: combining multiple tiles, a geographic
// window, and an export scale into one coherent elevation grid, choosing an
// in-memory or chunked-to-disk strategy by a pre-flight memory budget.
package assembly

import (
	"encoding/binary"
	"math"
	"os"
	"sort"

	"dem-terrain-render/internal/catalog"
	"dem-terrain-render/internal/demio"
	"dem-terrain-render/internal/meridian"
	"dem-terrain-render/internal/rendererr"
	"dem-terrain-render/internal/resample"
)

// Budget carries the environment knobs from spec.md §6.
type Budget struct {
	ChunkSizeMB      int
	MaxMemoryPercent float64
	MaxOutputPixels  int64
}

// DefaultBudget matches spec.md §6's stated defaults.
func DefaultBudget() Budget {
	return Budget{ChunkSizeMB: 200, MaxMemoryPercent: 0.85, MaxOutputPixels: 500_000_000}
}

// Window is a geographic selection in decimal degrees, possibly exceeding
// [-180,180] on East to encode an antimeridian-crossing drag (spec.md §3).
type Window struct {
	West, North, East, South float64
}

// Result is the uniform output of an assembly run: either an in-memory grid
// or a path to a temporary on-disk raster. The controller owns Cleanup.
type Result struct {
	Grid       *demio.Grid // non-nil for the in-memory path
	OnDiskPath string      // non-empty for the chunked-to-disk path

	Width, Height            int
	West, North, East, South float64
	PixelsPerDegree          float64
}

// Load returns the assembled grid regardless of which path produced the
// Result, reading the temp raster back for the on-disk case.
func (r *Result) Load() (*demio.Grid, error) {
	if r.Grid != nil {
		return r.Grid, nil
	}
	return readOnDiskGrid(r)
}

// Cleanup deletes any temporary on-disk raster. Safe to call on an
// in-memory Result.
func (r *Result) Cleanup() {
	if r.OnDiskPath != "" {
		_ = os.Remove(r.OnDiskPath)
	}
}

// Assemble is C5's entry point (spec.md §4.5).
func Assemble(cat *catalog.Catalog, window Window, scale float64, budget Budget, progress func(rowsDone, rowsTotal int)) (*Result, error) {
	parts := meridian.SplitMeridianCrossing(window.West, window.North, window.East, window.South)

	strips := make([]*Result, 0, len(parts))
	for _, part := range parts {
		w, n, e, s := part[0], part[1], part[2], part[3]
		strip, err := assembleStrip(cat, w, n, e, s, scale, budget, progress)
		if err != nil {
			return nil, err
		}
		strips = append(strips, strip)
	}
	if len(strips) == 1 {
		return strips[0], nil
	}
	return concatStrips(strips)
}

func assembleStrip(cat *catalog.Catalog, west, north, east, south, scale float64, budget Budget, progress func(int, int)) (*Result, error) {
	tiles := cat.TilesForWindow(west, north, east, south)
	if len(tiles) == 0 {
		return nil, rendererr.New(rendererr.WindowOutsideCoverage, "no tiles intersect window")
	}

	ppd := 0.0
	largestTileInteriorPixels := int64(0)
	for _, t := range tiles {
		if t.PixelsPerDegree > ppd {
			ppd = t.PixelsPerDegree
		}
		interior := int64(t.WidthPx) * int64(t.HeightPx)
		if interior > largestTileInteriorPixels {
			largestTileInteriorPixels = interior
		}
	}

	span := meridian.LongitudeSpan(west, east)
	hOut := int(math.Round((north - south) * ppd * scale))
	wOut := int(math.Round(span.WidthDegrees * ppd * scale))
	if hOut < 1 {
		hOut = 1
	}
	if wOut < 1 {
		wOut = 1
	}

	inMemory, err := preflight(hOut, wOut, largestTileInteriorPixels, budget)
	if err != nil {
		return nil, err
	}

	if inMemory {
		grid := demio.NewGrid(wOut, hOut, west, north, east, south, ppd*scale)
		pasteAllTiles(grid, tiles, west, north, east, south, scale, span.CrossesMeridian, progress)
		return &Result{
			Grid: grid, Width: wOut, Height: hOut,
			West: west, North: north, East: east, South: south, PixelsPerDegree: ppd * scale,
		}, nil
	}

	path, err := assembleChunkedToDisk(tiles, west, north, east, south, scale, ppd, hOut, wOut, budget, span.CrossesMeridian, progress)
	if err != nil {
		return nil, err
	}
	return &Result{
		OnDiskPath: path, Width: wOut, Height: hOut,
		West: west, North: north, East: east, South: south, PixelsPerDegree: ppd * scale,
	}, nil
}

// preflight implements spec.md §4.5 rules 2-6.
func preflight(hOut, wOut int, largestTileInteriorPixels int64, budget Budget) (inMemory bool, err error) {
	totalPixels := int64(hOut) * int64(wOut)
	if budget.MaxOutputPixels > 0 && totalPixels > budget.MaxOutputPixels {
		safeScale := math.Sqrt(float64(budget.MaxOutputPixels) / float64(totalPixels))
		return false, rendererr.TooLarge("output pixel count exceeds max_output_pixels", safeScale)
	}

	estimated := 4*totalPixels + 4*largestTileInteriorPixels
	total := totalMemoryBytes()
	if budget.MaxMemoryPercent > 0 && float64(estimated) > budget.MaxMemoryPercent*float64(total) {
		maxSafeBytes := budget.MaxMemoryPercent * float64(total)
		safeScale := math.Sqrt(maxSafeBytes / float64(estimated))
		return false, rendererr.TooLarge("estimated memory exceeds max_memory_percent of system RAM", safeScale)
	}

	available := availableMemoryBytes()
	return float64(estimated) <= 0.5*float64(available), nil
}

func pasteAllTiles(dst *demio.Grid, tiles []catalog.TileRecord, west, north, east, south, scale float64, crosses bool, progress func(int, int)) {
	paintOrder := paintOrderByResolution(tiles)
	for _, t := range paintOrder {
		overlapW := maxf(west, t.West)
		overlapN := minf(north, t.North)
		overlapE := minf(east, t.East)
		overlapS := maxf(south, t.South)
		if overlapE <= overlapW || overlapN <= overlapS {
			continue
		}
		reader, err := openTileForPaste(t.Path)
		if err != nil {
			continue // per-tile failures are recovered locally (spec.md §7)
		}
		src, err := reader.LoadSubset(demio.Window{West: overlapW, North: overlapN, East: overlapE, South: overlapS})
		if err != nil {
			continue
		}

		dstR0 := int(math.Round((north - overlapN) * dst.PixelsPerDegree))
		dstC0 := int(math.Round((overlapW - west) * dst.PixelsPerDegree))
		dstH := int(math.Round((overlapN - overlapS) * dst.PixelsPerDegree))
		dstW := int(math.Round((overlapE - overlapW) * dst.PixelsPerDegree))
		if dstH <= 0 || dstW <= 0 {
			continue
		}
		resized := resample.Resize(src, dstH, dstW, resample.Bilinear)

		for r := 0; r < dstH; r++ {
			for c := 0; c < dstW; c++ {
				v := resized.At(r, c)
				if isNaN(v) {
					continue // NaN source leaves the destination as it is; valid samples overwrite it
				}
				dst.Set(dstR0+r, dstC0+c, v)
			}
		}
	}
	if progress != nil {
		progress(dst.Height, dst.Height)
	}
}

// paintOrderByResolution reorders tiles so that within any overlap, the
// tile catalog.WinningTile would pick is the last one painted: pasteAllTiles
// writes every non-NaN source pixel over whatever the destination holds, so
// "last painted" is "wins the overlap" (spec.md §4.3/§4.5). A stable sort by ascending pixels_per_degree,
// then descending path, puts every pairwise winner after its loser: higher
// ppd always sorts later regardless of path, and within an equal-ppd run the
// lexicographically smaller path (the tie-break winner) sorts last.
func paintOrderByResolution(tiles []catalog.TileRecord) []catalog.TileRecord {
	ordered := make([]catalog.TileRecord, len(tiles))
	copy(ordered, tiles)
	sort.SliceStable(ordered, func(i, j int) bool {
		return catalog.WinningTile(ordered[i], ordered[j]) == ordered[j]
	})
	return ordered
}

func openTileForPaste(path string) (demio.Reader, error) {
	return demio.Open(path)
}

func concatStrips(strips []*Result) (*Result, error) {
	totalW := 0
	h := strips[0].Height
	for _, s := range strips {
		totalW += s.Width
	}
	// the eastern strip starts at -180; its East is carried on past +180 so
	// the joined bounds stay west-to-east
	east := strips[len(strips)-1].East + 360
	out := demio.NewGrid(totalW, h, strips[0].West, strips[0].North,
		east, strips[0].South, strips[0].PixelsPerDegree)

	colOffset := 0
	for _, s := range strips {
		g, err := s.Load()
		if err != nil {
			return nil, err
		}
		for r := 0; r < h; r++ {
			for c := 0; c < s.Width; c++ {
				out.Set(r, colOffset+c, g.At(r, c))
			}
		}
		colOffset += s.Width
		s.Cleanup()
	}
	return &Result{
		Grid: out, Width: totalW, Height: h,
		West: strips[0].West, North: strips[0].North,
		East: east, South: strips[0].South,
		PixelsPerDegree: strips[0].PixelsPerDegree,
	}, nil
}

// --- chunked-to-disk path ---

// scratchSentinel marks no-data cells in the temp raster, which uses the
// same big-endian int16 row layout as demio's band-interleaved tiles. No
// companion header is written; readOnDiskGrid decodes the rows directly.
const scratchSentinel = -9999

func assembleChunkedToDisk(tiles []catalog.TileRecord, west, north, east, south, scale, ppd float64, hOut, wOut int, budget Budget, crosses bool, progress func(int, int)) (string, error) {
	f, err := os.CreateTemp("", "dem-assembly-*.scratch")
	if err != nil {
		return "", rendererr.Wrap(rendererr.IoError, "assembly scratch", err)
	}
	defer f.Close()

	rowsPerChunk := budget.ChunkSizeMB * 1024 * 1024 / (2 * wOut)
	if rowsPerChunk < 1 {
		rowsPerChunk = 1
	}

	buf := make([]byte, 2*wOut)
	for r0 := 0; r0 < hOut; r0 += rowsPerChunk {
		r1 := r0 + rowsPerChunk
		if r1 > hOut {
			r1 = hOut
		}
		chunkN := north - float64(r0)/ppd/scale
		chunkS := north - float64(r1)/ppd/scale
		chunk := demio.NewGrid(wOut, r1-r0, west, chunkN, east, chunkS, ppd*scale)
		pasteAllTiles(chunk, tiles, west, chunkN, east, chunkS, scale, crosses, nil)

		for row := 0; row < chunk.Height; row++ {
			for col := 0; col < wOut; col++ {
				v := chunk.At(row, col)
				var raw int16
				if isNaN(v) {
					raw = scratchSentinel
				} else {
					raw = int16(v)
				}
				binary.BigEndian.PutUint16(buf[2*col:], uint16(raw))
			}
			if _, err := f.Write(buf); err != nil {
				return "", rendererr.Wrap(rendererr.WriteError, f.Name(), err)
			}
		}
		if progress != nil {
			progress(r1, hOut)
		}
	}
	return f.Name(), nil
}

func readOnDiskGrid(r *Result) (*demio.Grid, error) {
	f, err := os.Open(r.OnDiskPath)
	if err != nil {
		return nil, rendererr.Wrap(rendererr.IoError, r.OnDiskPath, err)
	}
	defer f.Close()

	g := demio.NewGrid(r.Width, r.Height, r.West, r.North, r.East, r.South, r.PixelsPerDegree)
	buf := make([]byte, 2*r.Width)
	for row := 0; row < r.Height; row++ {
		if _, err := readFull(f, buf); err != nil {
			return nil, rendererr.Wrap(rendererr.IoError, r.OnDiskPath, err)
		}
		for col := 0; col < r.Width; col++ {
			raw := int16(binary.BigEndian.Uint16(buf[2*col:]))
			if raw == scratchSentinel {
				continue
			}
			g.Set(row, col, float32(raw))
		}
	}
	return g, nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

func isNaN(v float32) bool { return v != v }
func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
