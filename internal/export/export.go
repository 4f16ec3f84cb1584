// Package export implements C10: writing a rendered image or an assembled
// elevation grid to one of the output kinds spec.md §4.10 defines. Grounded
// on the teacher's rawtif.go (raw byte passthrough pattern) for the raw
// elevation writer and gdal.go for the georeferenced writers.
package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/godal"

	"dem-terrain-render/internal/demio"
	"dem-terrain-render/internal/rendererr"
)

// Kind is one of the six output kinds spec.md §4.10 names.
type Kind string

const (
	KindImage                   Kind = "image"
	KindGeoreferencedImage       Kind = "georeferenced_image"
	KindFlatGeoImage             Kind = "flat_geo_image"
	KindRawElevation             Kind = "raw_elevation"
	KindGeoreferencedElevation   Kind = "georeferenced_elevation"
	KindLayeredSidecar           Kind = "layered_sidecar"
)

// Bounds is the final window a render covers, possibly extending past
// +/-180 degrees when it crossed the antimeridian (spec.md §4.10).
type Bounds struct {
	West, North, East, South float64
}

// DeriveFilename applies spec.md §4.10's filename discipline: "_map" for
// image outputs, "_db" for elevation outputs, when auto-derived from a
// source database name.
func DeriveFilename(sourceName string, kind Kind) string {
	switch kind {
	case KindRawElevation, KindGeoreferencedElevation:
		return sourceName + "_db"
	default:
		return sourceName + "_map"
	}
}

// writeAtomic writes data to a temp file in the same directory, then
// renames over path, so a write failure never leaves a half-valid output
// (spec.md §7: "write to temp name then rename").
func writeAtomic(path string, write func(f *os.File) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*"+filepath.Ext(path))
	if err != nil {
		return rendererr.Wrap(rendererr.WriteError, path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return rendererr.Wrap(rendererr.WriteError, path, err)
	}
	if err := tmp.Close(); err != nil {
		return rendererr.Wrap(rendererr.WriteError, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return rendererr.Wrap(rendererr.WriteError, path, err)
	}
	return nil
}

// WriteImage writes an untagged compressed bitmap (PNG or JPEG, by path
// extension). JPEG has no alpha channel, so transparency is flattened to
// white (spec.md §4.10).
func WriteImage(img *image.RGBA, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	return writeAtomic(path, func(f *os.File) error {
		w := bufio.NewWriter(f)
		var err error
		switch ext {
		case ".jpg", ".jpeg":
			flattened := flattenToWhite(img)
			err = jpeg.Encode(w, flattened, &jpeg.Options{Quality: 92})
		default:
			err = png.Encode(w, img)
		}
		if err != nil {
			return err
		}
		return w.Flush()
	})
}

func flattenToWhite(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	for i := 0; i < len(img.Pix); i += 4 {
		a := float64(img.Pix[i+3]) / 255
		out.Pix[i] = blendWhite(img.Pix[i], a)
		out.Pix[i+1] = blendWhite(img.Pix[i+1], a)
		out.Pix[i+2] = blendWhite(img.Pix[i+2], a)
		out.Pix[i+3] = 255
	}
	return out
}

func blendWhite(c uint8, alpha float64) uint8 {
	v := float64(c)*alpha + 255*(1-alpha)
	return uint8(math.Round(v))
}

// WriteGeoreferencedImage writes a tagged raster (GeoTIFF) with an affine
// transform and EPSG:4326 CRS computed from bounds.
func WriteGeoreferencedImage(img *image.RGBA, bounds Bounds, path string) error {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	ds, err := godal.Create(godal.GTiff, path, 4, godal.Byte, w, h,
		godal.CreationOption("COMPRESS=LZW", "TILED=YES"))
	if err != nil {
		return rendererr.Wrap(rendererr.WriteError, path, err)
	}
	defer ds.Close()

	if err := ds.SetGeoTransform(geoTransform(bounds, w, h)); err != nil {
		return rendererr.Wrap(rendererr.WriteError, path, err)
	}
	sr, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return rendererr.Wrap(rendererr.WriteError, path, err)
	}
	defer sr.Close()
	if err := ds.SetSpatialRef(sr); err != nil {
		return rendererr.Wrap(rendererr.WriteError, path, err)
	}

	bands := ds.Bands()
	planes := [4][]byte{make([]byte, w*h), make([]byte, w*h), make([]byte, w*h), make([]byte, w*h)}
	for i := 0; i < w*h; i++ {
		planes[0][i] = img.Pix[4*i]
		planes[1][i] = img.Pix[4*i+1]
		planes[2][i] = img.Pix[4*i+2]
		planes[3][i] = img.Pix[4*i+3]
	}
	for i, band := range bands {
		if i >= 4 {
			break
		}
		if err := band.Write(0, 0, planes[i], w, h); err != nil {
			return rendererr.Wrap(rendererr.WriteError, path, err)
		}
	}
	return nil
}

func geoTransform(b Bounds, w, h int) [6]float64 {
	return [6]float64{
		b.West, (b.East - b.West) / float64(w), 0,
		b.North, 0, (b.South - b.North) / float64(h),
	}
}

// --- flat-file with geo header ("GeoCart" format, spec.md §6) ---

const geoCartMagic = "GeoR"
const geoCartHeaderSize = 128

// WriteFlatGeoImage writes raw RGB bytes prefixed by the 128-byte GeoCart
// header (spec.md §4.10, §6). No alpha channel.
func WriteFlatGeoImage(img *image.RGBA, bounds Bounds, path string) error {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	return writeAtomic(path, func(f *os.File) error {
		header := make([]byte, geoCartHeaderSize)
		copy(header[0:4], geoCartMagic)
		binary.BigEndian.PutUint16(header[4:6], 0) // version
		binary.BigEndian.PutUint16(header[6:8], 0) // content
		putF64(header[8:16], bounds.West)
		putF64(header[16:24], bounds.North)
		putF64(header[24:32], bounds.East)
		putF64(header[32:40], bounds.South)
		binary.BigEndian.PutUint32(header[40:44], uint32(w))
		binary.BigEndian.PutUint32(header[44:48], uint32(h))
		// bytes 48:128 are zero padding
		if _, err := f.Write(header); err != nil {
			return err
		}

		row := make([]byte, w*3)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := img.PixOffset(x, y)
				row[3*x], row[3*x+1], row[3*x+2] = img.Pix[i], img.Pix[i+1], img.Pix[i+2]
			}
			if _, err := f.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadFlatGeoImageHeader parses a GeoCart header and returns its bounds and
// pixel dimensions, for the round-trip test in spec.md §8.
func ReadFlatGeoImageHeader(path string) (Bounds, int, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Bounds{}, 0, 0, rendererr.Wrap(rendererr.IoError, path, err)
	}
	if len(data) < geoCartHeaderSize || string(data[0:4]) != geoCartMagic {
		return Bounds{}, 0, 0, rendererr.New(rendererr.UnreadableHeader, path+": bad GeoCart magic")
	}
	b := Bounds{
		West:  getF64(data[8:16]),
		North: getF64(data[16:24]),
		East:  getF64(data[24:32]),
		South: getF64(data[32:40]),
	}
	w := int(binary.BigEndian.Uint32(data[40:44]))
	h := int(binary.BigEndian.Uint32(data[44:48]))
	return b, w, h, nil
}

func putF64(b []byte, v float64) { binary.BigEndian.PutUint64(b, math.Float64bits(v)) }
func getF64(b []byte) float64    { return math.Float64frombits(binary.BigEndian.Uint64(b)) }

// --- raw elevation (int16 band-interleaved + text header) ---

// WriteRawElevation writes a big-endian int16 grid plus a companion text
// header, .prj projection stub, and .stx statistics record, matching the
// band-interleaved layout spec.md §6 defines. NaN maps to the -9999
// sentinel.
func WriteRawElevation(g *demio.Grid, path string) error {
	if err := writeAtomic(path, func(f *os.File) error {
		buf := make([]byte, 2*g.Width)
		for row := 0; row < g.Height; row++ {
			for col := 0; col < g.Width; col++ {
				v := g.At(row, col)
				var raw int16
				if isNaN(v) {
					raw = -9999
				} else {
					raw = int16(v)
				}
				binary.BigEndian.PutUint16(buf[2*col:], uint16(raw))
			}
			if _, err := f.Write(buf); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	hdrPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".hdr"
	pixelSize := 1.0 / g.PixelsPerDegree
	hdr := fmt.Sprintf(
		"BYTEORDER M\nLAYOUT BIL\nNROWS %d\nNCOLS %d\nNBANDS 1\nNBITS 16\n"+
			"BANDROWBYTES %d\nTOTALROWBYTES %d\nBANDGAPBYTES 0\nNODATA -9999\n"+
			"ULXMAP %v\nULYMAP %v\nXDIM %v\nYDIM %v\n",
		g.Height, g.Width, 2*g.Width, 2*g.Width,
		g.West+pixelSize/2, g.North-pixelSize/2, pixelSize, pixelSize,
	)
	if err := os.WriteFile(hdrPath, []byte(hdr), 0o644); err != nil {
		return rendererr.Wrap(rendererr.WriteError, hdrPath, err)
	}

	prjPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
	if err := os.WriteFile(prjPath, []byte(wgs84WKT), 0o644); err != nil {
		return rendererr.Wrap(rendererr.WriteError, prjPath, err)
	}

	min, max, ok := g.MinMax()
	mean, stddev := statistics(g)
	if !ok {
		min, max = 0, 0
	}
	stxPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".stx"
	stx := fmt.Sprintf("1 %v %v %v %v\n", min, max, mean, stddev)
	if err := os.WriteFile(stxPath, []byte(stx), 0o644); err != nil {
		return rendererr.Wrap(rendererr.WriteError, stxPath, err)
	}
	return nil
}

func statistics(g *demio.Grid) (mean, stddev float64) {
	var sum, sumSq float64
	var n int
	for _, v := range g.Data {
		if isNaN(v) {
			continue
		}
		sum += float64(v)
		sumSq += float64(v) * float64(v)
		n++
	}
	if n == 0 {
		return 0, 0
	}
	mean = sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

const wgs84WKT = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]]`

// WriteGeoreferencedElevation writes a single-band float32 GeoTIFF,
// LZW-compressed, tiled 512x512, CRS EPSG:4326 (spec.md §4.10, §6). NaN is
// preserved, not remapped to a sentinel.
func WriteGeoreferencedElevation(g *demio.Grid, path string) error {
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, g.Width, g.Height,
		godal.CreationOption("COMPRESS=LZW", "TILED=YES", "BLOCKXSIZE=512", "BLOCKYSIZE=512"))
	if err != nil {
		return rendererr.Wrap(rendererr.WriteError, path, err)
	}
	defer ds.Close()

	bounds := Bounds{West: g.West, North: g.North, East: g.East, South: g.South}
	if err := ds.SetGeoTransform(geoTransform(bounds, g.Width, g.Height)); err != nil {
		return rendererr.Wrap(rendererr.WriteError, path, err)
	}
	sr, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return rendererr.Wrap(rendererr.WriteError, path, err)
	}
	defer sr.Close()
	if err := ds.SetSpatialRef(sr); err != nil {
		return rendererr.Wrap(rendererr.WriteError, path, err)
	}

	bands := ds.Bands()
	if len(bands) == 0 {
		return rendererr.New(rendererr.WriteError, path+": dataset has no bands")
	}
	if err := bands[0].Write(0, 0, g.Data, g.Width, g.Height); err != nil {
		return rendererr.Wrap(rendererr.WriteError, path, err)
	}
	return nil
}

// LayeredSidecar names the five per-layer rasters written alongside the
// composite (spec.md §4.10 "Layered sidecar"): normalized elevation, base
// color, hillshade, shadow, composite.
type LayeredSidecar struct {
	NormalizedElevation *image.RGBA
	BaseColor           *image.RGBA
	Hillshade           *image.RGBA
	Shadow              *image.RGBA
	Composite           *image.RGBA
}

// WriteLayeredSidecar writes each layer with the base filename plus a
// suffix.
func WriteLayeredSidecar(layers LayeredSidecar, basePath string) error {
	ext := filepath.Ext(basePath)
	stem := strings.TrimSuffix(basePath, ext)
	named := map[string]*image.RGBA{
		"_elevation": layers.NormalizedElevation,
		"_base":      layers.BaseColor,
		"_hillshade": layers.Hillshade,
		"_shadow":    layers.Shadow,
		"_composite": layers.Composite,
	}
	for suffix, img := range named {
		if img == nil {
			continue
		}
		if err := WriteImage(img, stem+suffix+ext); err != nil {
			return err
		}
	}
	return nil
}

func isNaN(v float32) bool { return v != v }
