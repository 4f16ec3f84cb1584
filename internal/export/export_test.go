package export

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dem-terrain-render/internal/demio"
)

func TestDeriveFilenameSuffixes(t *testing.T) {
	assert.Equal(t, "tile_map", DeriveFilename("tile", KindImage))
	assert.Equal(t, "tile_map", DeriveFilename("tile", KindGeoreferencedImage))
	assert.Equal(t, "tile_db", DeriveFilename("tile", KindRawElevation))
	assert.Equal(t, "tile_db", DeriveFilename("tile", KindGeoreferencedElevation))
}

func TestFlatGeoImageHeaderRoundTrips(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 5, A: 255})
		}
	}
	bounds := Bounds{West: 11.5, North: 48.25, East: 11.75, South: 48.0}
	path := filepath.Join(t.TempDir(), "out.geo")

	require.NoError(t, WriteFlatGeoImage(img, bounds, path))

	gotBounds, w, h, err := ReadFlatGeoImageHeader(path)
	require.NoError(t, err)
	assert.Equal(t, 4, w)
	assert.Equal(t, 3, h)
	assert.InDelta(t, bounds.West, gotBounds.West, 1e-12)
	assert.InDelta(t, bounds.North, gotBounds.North, 1e-12)
	assert.InDelta(t, bounds.East, gotBounds.East, 1e-12)
	assert.InDelta(t, bounds.South, gotBounds.South, 1e-12)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, geoCartHeaderSize+4*3*3, len(data))
}

func TestWriteRawElevationProducesHeaderAndStats(t *testing.T) {
	g := demio.NewGrid(3, 2, 10.0, 50.0, 10.03, 49.98, 100)
	g.Set(0, 0, 100)
	g.Set(0, 1, 200)
	g.Set(0, 2, 300)
	// row 1 left as NaN (no-data)

	dir := t.TempDir()
	path := filepath.Join(dir, "tile.bil")
	require.NoError(t, WriteRawElevation(g, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2*3*2, len(raw)) // 2 rows * 3 cols * 2 bytes

	_, err = os.Stat(filepath.Join(dir, "tile.hdr"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "tile.prj"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "tile.stx"))
	assert.NoError(t, err)
}

func TestWriteImageFlattensJPEGTransparencyToWhite(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 0, G: 0, B: 0, A: 0}) // fully transparent black
	flattened := flattenToWhite(img)
	assert.Equal(t, uint8(255), flattened.Pix[0])
	assert.Equal(t, uint8(255), flattened.Pix[1])
	assert.Equal(t, uint8(255), flattened.Pix[2])
	assert.Equal(t, uint8(255), flattened.Pix[3])
}

func TestWriteLayeredSidecarSkipsNilLayers(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "run.png")
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))

	err := WriteLayeredSidecar(LayeredSidecar{BaseColor: img, Composite: img}, base)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "run_base.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "run_composite.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "run_hillshade.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteLayeredSidecarWritesAllFiveLayers(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "run.png")
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))

	err := WriteLayeredSidecar(LayeredSidecar{
		NormalizedElevation: img,
		BaseColor:           img,
		Hillshade:           img,
		Shadow:              img,
		Composite:           img,
	}, base)
	require.NoError(t, err)

	for _, suffix := range []string{"_elevation", "_base", "_hillshade", "_shadow", "_composite"} {
		_, err := os.Stat(filepath.Join(dir, "run"+suffix+".png"))
		assert.NoError(t, err, suffix)
	}
}
