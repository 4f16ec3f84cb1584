package compositor

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"dem-terrain-render/internal/demio"
	"dem-terrain-render/internal/gradient"
)

func solidImage(w, h int, c [4]uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c[0], c[1], c[2], c[3]
	}
	return img
}

func TestHardLightBlendZeroStrengthIsIdentity(t *testing.T) {
	base := solidImage(4, 4, [4]uint8{100, 150, 200, 255})
	shade := demio.NewGrid(4, 4, 0, 4, 4, 0, 1)
	for i := range shade.Data {
		shade.Data[i] = 0.9 // strongly non-neutral overlay
	}
	out := Composite(base, Options{Hillshade: shade, BlendingStrength: 0})
	assert.Equal(t, base.Pix, out.Pix)
}

func TestHardLightBlendFullStrengthMatchesFormula(t *testing.T) {
	base := solidImage(1, 1, [4]uint8{100, 100, 100, 255})
	shade := demio.NewGrid(1, 1, 0, 1, 1, 0, 1)
	shade.Data[0] = 0.8 // overlay >= 0.5 branch
	out := Composite(base, Options{Hillshade: shade, BlendingStrength: 100})

	b := 100.0 / 255
	o := 0.8
	want := 1 - 2*(1-b)*(1-o)
	assert.InDelta(t, want*255, float64(out.Pix[0]), 1.0)
}

func TestShadowDarkensTowardShadowColor(t *testing.T) {
	base := solidImage(1, 1, [4]uint8{200, 200, 200, 255})
	mask := demio.NewGrid(1, 1, 0, 1, 1, 0, 1)
	mask.Data[0] = 1.0 // full shadow
	shadowColor := gradient.Color{R: 0, G: 0, B: 0, A: 255}
	out := Composite(base, Options{ShadowMask: mask, ShadowColor: shadowColor})
	assert.Equal(t, uint8(0), out.Pix[0])
}

func TestPreserveAboveColorUnaffectedByHillshade(t *testing.T) {
	preserve := gradient.Color{R: 255, G: 255, B: 255, A: 255}
	base := solidImage(1, 1, [4]uint8{255, 255, 255, 255})
	shade := demio.NewGrid(1, 1, 0, 1, 1, 0, 1)
	shade.Data[0] = 0.0
	out := Composite(base, Options{Hillshade: shade, BlendingStrength: 100, PreserveAboveColor: &preserve})
	assert.Equal(t, base.Pix, out.Pix)
}

func TestNormalizedElevationImageScalesIntoRange(t *testing.T) {
	elev := demio.NewGrid(2, 1, 0, 1, 2, 0, 1)
	elev.Data[0] = 0   // min
	elev.Data[1] = 100 // max
	img := NormalizedElevationImage(elev, 0, 100)
	assert.Equal(t, uint8(0), img.Pix[0])
	assert.Equal(t, uint8(255), img.Pix[0+4])
}

func TestNormalizedElevationImageTransparentOnNaN(t *testing.T) {
	elev := demio.NewGrid(1, 1, 0, 1, 1, 0, 1)
	elev.Data[0] = float32(math.NaN())
	img := NormalizedElevationImage(elev, 0, 100)
	assert.Equal(t, uint8(0), img.Pix[3])
}

func TestHillshadeImageIsOpaqueGray(t *testing.T) {
	hs := demio.NewGrid(1, 1, 0, 1, 1, 0, 1)
	hs.Data[0] = 0.5
	img := HillshadeImage(hs)
	assert.Equal(t, img.Pix[0], img.Pix[1])
	assert.Equal(t, img.Pix[1], img.Pix[2])
	assert.Equal(t, uint8(255), img.Pix[3])
}

func TestShadowImageCarriesIntensityInAlpha(t *testing.T) {
	mask := demio.NewGrid(1, 1, 0, 1, 1, 0, 1)
	mask.Data[0] = 0.5
	shadowColor := gradient.Color{R: 10, G: 20, B: 30, A: 255}
	img := ShadowImage(mask, shadowColor)
	assert.Equal(t, uint8(10), img.Pix[0])
	assert.Equal(t, uint8(20), img.Pix[1])
	assert.Equal(t, uint8(30), img.Pix[2])
	assert.InDelta(t, 128, int(img.Pix[3]), 1)
}
