package demio

import (
	"fmt"

	"github.com/airbusgeo/godal"

	"dem-terrain-render/internal/rendererr"
)

// taggedImageReader wraps a godal.Dataset (GeoTIFF with embedded affine
// transform + CRS). Adapted from the teacher's gdal.go, which opened
// datasets the same way for CRS-transform and pixel-lookup purposes; here
// the dataset is read as a full elevation grid instead.
type taggedImageReader struct {
	path       string
	west, north, east, south float64
	width, height            int
	ppd                      float64
	noData                   float64
	hasNoData                bool
}

func openTaggedImage(path string) (Reader, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, rendererr.Wrap(rendererr.FileNotFound, path, err)
	}
	defer ds.Close()

	structure := ds.Structure()
	if structure.NBands != 1 {
		return nil, rendererr.New(rendererr.NotElevationData,
			fmt.Sprintf("%s: %d bands, elevation rasters must be single-band", path, structure.NBands))
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, rendererr.Wrap(rendererr.NotElevationData, path+": missing geotransform", err)
	}
	if ds.SpatialRef() == nil {
		return nil, rendererr.New(rendererr.NotElevationData, path+": missing CRS")
	}

	width, height := structure.SizeX, structure.SizeY
	west := gt[0]
	north := gt[3]
	east := west + gt[1]*float64(width)
	south := north + gt[5]*float64(height) // gt[5] is negative for north-up rasters
	ppd := 1.0 / gt[1]

	r := &taggedImageReader{
		path: path, west: west, north: north, east: east, south: south,
		width: width, height: height, ppd: ppd,
	}
	bands := ds.Bands()
	if len(bands) == 1 {
		if nd, ok := bands[0].NoData(); ok {
			r.noData = nd
			r.hasNoData = true
		}
	}
	return r, nil
}

func (r *taggedImageReader) Bounds() (west, north, east, south float64) {
	return r.west, r.north, r.east, r.south
}
func (r *taggedImageReader) WidthPx() int             { return r.width }
func (r *taggedImageReader) HeightPx() int             { return r.height }
func (r *taggedImageReader) PixelsPerDegree() float64  { return r.ppd }
func (r *taggedImageReader) NoDataSentinel() float64   { return r.noData }

func (r *taggedImageReader) Load() (*Grid, error) {
	ds, err := godal.Open(r.path)
	if err != nil {
		return nil, rendererr.Wrap(rendererr.IoError, r.path, err)
	}
	defer ds.Close()

	g := NewGrid(r.width, r.height, r.west, r.north, r.east, r.south, r.ppd)
	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, rendererr.New(rendererr.NotElevationData, r.path+": no raster bands")
	}
	buf := make([]float32, r.width*r.height)
	if err := bands[0].Read(0, 0, buf, r.width, r.height); err != nil {
		return nil, rendererr.Wrap(rendererr.IoError, r.path, err)
	}
	for i, v := range buf {
		if r.hasNoData && float64(v) == r.noData {
			continue
		}
		g.Data[i] = v
	}
	return g, nil
}

func (r *taggedImageReader) LoadSubset(w Window) (*Grid, error) {
	g, err := r.Load()
	if err != nil {
		return nil, err
	}
	return cropGrid(g, w)
}
