package demio

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dem-terrain-render/internal/rendererr"
)

// header carries the key-value pairs from the companion text header
// (spec.md §6: BYTEORDER, LAYOUT, NROWS, NCOLS, NBANDS, NBITS, NODATA,
// ULXMAP, ULYMAP, XDIM, YDIM).
type header struct {
	byteOrder string
	rows, cols int
	bands, bits int
	noData     float64
	ulx, uly   float64
	xdim, ydim float64
}

func headerPath(dataPath string) string {
	ext := filepath.Ext(dataPath)
	return strings.TrimSuffix(dataPath, ext) + ".hdr"
}

func hasHeaderSibling(path string) bool {
	_, err := os.Stat(headerPath(path))
	return err == nil
}

func parseHeader(path string) (*header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rendererr.Wrap(rendererr.UnreadableHeader, path, err)
	}
	defer f.Close()

	h := &header{byteOrder: "M", bands: 1, bits: 16, xdim: 1, ydim: 1}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		key, val := strings.ToUpper(fields[0]), fields[1]
		switch key {
		case "BYTEORDER":
			h.byteOrder = val
		case "NROWS":
			h.rows, _ = strconv.Atoi(val)
		case "NCOLS":
			h.cols, _ = strconv.Atoi(val)
		case "NBANDS":
			h.bands, _ = strconv.Atoi(val)
		case "NBITS":
			h.bits, _ = strconv.Atoi(val)
		case "NODATA":
			h.noData, _ = strconv.ParseFloat(val, 64)
		case "ULXMAP":
			h.ulx, _ = strconv.ParseFloat(val, 64)
		case "ULYMAP":
			h.uly, _ = strconv.ParseFloat(val, 64)
		case "XDIM":
			h.xdim, _ = strconv.ParseFloat(val, 64)
		case "YDIM":
			h.ydim, _ = strconv.ParseFloat(val, 64)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, rendererr.Wrap(rendererr.UnreadableHeader, path, err)
	}
	if h.rows <= 0 || h.cols <= 0 {
		return nil, rendererr.New(rendererr.UnreadableHeader, "missing NROWS/NCOLS")
	}
	if h.bands != 1 {
		return nil, rendererr.New(rendererr.NotElevationData, fmt.Sprintf("NBANDS=%d, elevation rasters must be single-band", h.bands))
	}
	if h.bits != 16 {
		return nil, rendererr.New(rendererr.UnsupportedFormat, fmt.Sprintf("NBITS=%d, only 16-bit samples supported", h.bits))
	}
	return h, nil
}

type bandInterleavedReader struct {
	path   string
	header *header
}

func openBandInterleaved(path string) (Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, rendererr.Wrap(rendererr.FileNotFound, path, err)
	}
	h, err := parseHeader(headerPath(path))
	if err != nil {
		return nil, err
	}
	return &bandInterleavedReader{path: path, header: h}, nil
}

func (r *bandInterleavedReader) Bounds() (west, north, east, south float64) {
	h := r.header
	west = h.ulx - h.xdim/2
	north = h.uly + h.ydim/2
	east = west + h.xdim*float64(h.cols)
	south = north - h.ydim*float64(h.rows)
	return
}

func (r *bandInterleavedReader) WidthPx() int  { return r.header.cols }
func (r *bandInterleavedReader) HeightPx() int { return r.header.rows }
func (r *bandInterleavedReader) PixelsPerDegree() float64 {
	if r.header.xdim == 0 {
		return 0
	}
	return 1.0 / r.header.xdim
}
func (r *bandInterleavedReader) NoDataSentinel() float64 { return r.header.noData }

func (r *bandInterleavedReader) Load() (*Grid, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, rendererr.Wrap(rendererr.IoError, r.path, err)
	}
	defer f.Close()

	h := r.header
	west, north, east, south := r.Bounds()
	g := NewGrid(h.cols, h.rows, west, north, east, south, r.PixelsPerDegree())

	buf := make([]byte, 2*h.cols)
	bigEndian := strings.HasPrefix(strings.ToUpper(h.byteOrder), "M")
	for row := 0; row < h.rows; row++ {
		if _, err := readFull(f, buf); err != nil {
			return nil, rendererr.Wrap(rendererr.IoError, r.path, err)
		}
		for col := 0; col < h.cols; col++ {
			var raw int16
			if bigEndian {
				raw = int16(uint16(buf[2*col])<<8 | uint16(buf[2*col+1]))
			} else {
				raw = int16(uint16(buf[2*col]) | uint16(buf[2*col+1])<<8)
			}
			v := float64(raw)
			if v == h.noData {
				continue // leave NaN
			}
			g.Set(row, col, float32(v))
		}
	}
	return g, nil
}

func (r *bandInterleavedReader) LoadSubset(w Window) (*Grid, error) {
	g, err := r.Load()
	if err != nil {
		return nil, err
	}
	return cropGrid(g, w)
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
