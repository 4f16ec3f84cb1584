// Package compositor implements C9: the four-layer compositing pipeline
// (normalized elevation -> base color -> hillshade -> shadows -> final
// RGBA), ported from original_source/terrain_renderer.py's
// composite_layers (exact Hard Light formula, above-range color
// preservation, shadow-darkening formula).
package compositor

import (
	"image"
	"math"

	"dem-terrain-render/internal/demio"
	"dem-terrain-render/internal/gradient"
	"dem-terrain-render/internal/workerpool"
)

// Options carries everything the compositor needs beyond the base layer.
type Options struct {
	Hillshade          *demio.Grid // 0..1, optional
	ShadowMask         *demio.Grid // 0..1, optional
	ShadowColor        gradient.Color
	BlendingStrength   float64 // percent, signed
	PreserveAboveColor *gradient.Color
}

// Composite runs the full pipeline and returns the final RGBA image.
func Composite(base *image.RGBA, opt Options) *image.RGBA {
	bounds := base.Bounds()
	out := image.NewRGBA(bounds)
	copy(out.Pix, base.Pix)

	if opt.Hillshade != nil {
		applyHillshade(out, opt.Hillshade, opt.BlendingStrength, opt.PreserveAboveColor)
	}
	if opt.ShadowMask != nil {
		applyShadow(out, opt.ShadowMask, opt.ShadowColor)
	}
	return out
}

func applyHillshade(img *image.RGBA, shade *demio.Grid, strengthPercent float64, preserve *gradient.Color) {
	k := strengthPercent / 100.0
	h := img.Bounds().Dy()

	workerpool.Run(h, workerpool.DefaultWorkers, func(r workerpool.RowRange) {
		for y := r.Start; y < r.End; y++ {
			for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
				i := img.PixOffset(x, y)
				rC, gC, bC, aC := img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]

				preserved := preserve != nil && rC == preserve.R && gC == preserve.G && bC == preserve.B
				if preserved {
					continue
				}

				o := float64(shade.At(y-img.Bounds().Min.Y, x-img.Bounds().Min.X))
				nr := hardLightBlend(float64(rC)/255, o, k)
				ng := hardLightBlend(float64(gC)/255, o, k)
				nb := hardLightBlend(float64(bC)/255, o, k)

				img.Pix[i] = to8(nr)
				img.Pix[i+1] = to8(ng)
				img.Pix[i+2] = to8(nb)
				img.Pix[i+3] = aC
			}
		}
	})
}

// hardLightBlend implements spec.md §4.9 step 2: Hard Light blend
// interpolated by strength k, clamped at the output stage (k may be <0 or
// >100%/1.0, extrapolating past the blend).
func hardLightBlend(base, overlay, k float64) float64 {
	var blended float64
	if overlay < 0.5 {
		blended = 2 * base * overlay
	} else {
		blended = 1 - 2*(1-base)*(1-overlay)
	}
	out := base + k*(blended-base)
	return clamp(out, 0, 1)
}

func applyShadow(img *image.RGBA, mask *demio.Grid, shadowColor gradient.Color) {
	h := img.Bounds().Dy()
	workerpool.Run(h, workerpool.DefaultWorkers, func(r workerpool.RowRange) {
		for y := r.Start; y < r.End; y++ {
			for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
				s := float64(mask.At(y-img.Bounds().Min.Y, x-img.Bounds().Min.X))
				if s <= 0 {
					continue
				}
				i := img.PixOffset(x, y)
				img.Pix[i] = darken(img.Pix[i], shadowColor.R, s)
				img.Pix[i+1] = darken(img.Pix[i+1], shadowColor.G, s)
				img.Pix[i+2] = darken(img.Pix[i+2], shadowColor.B, s)
			}
		}
	})
}

// darken implements spec.md §4.9 step 3's shadow-darkening formula:
// scale = (1-s)*(1-shadow/255) + shadow/255; out = round(out*scale).
func darken(channel, shadowChannel uint8, s float64) uint8 {
	scale := (1-s)*(1-float64(shadowChannel)/255) + float64(shadowChannel)/255
	return to8(float64(channel) / 255 * scale)
}

func to8(v float64) uint8 {
	v = clamp(v, 0, 1)
	return uint8(math.Round(v * 255))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BaseFromGradient renders the base color layer from the gradient
// (Continuous/Posterized variants). For ShadedRelief, which produces no
// color (spec.md §4.6 rule 4), it fills each cell with a grayscale of the
// elevation scaled from MinElev (black) to MaxElev (white) for the
// hillshade to tint.
func BaseFromGradient(elev *demio.Grid, g *gradient.Gradient) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, elev.Width, elev.Height))
	for y := 0; y < elev.Height; y++ {
		for x := 0; x < elev.Width; x++ {
			e := elev.At(y, x)
			i := img.PixOffset(x, y)
			if isNaN(e) {
				c := g.NoDataColor
				img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
				continue
			}
			if c, ok := g.Sample(float64(e)); ok {
				img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
			} else {
				gray := grayFromElevation(e, g)
				img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = gray, gray, gray, 255
			}
		}
	}
	return img
}

func grayFromElevation(e float32, g *gradient.Gradient) uint8 {
	span := g.MaxElev - g.MinElev
	if span == 0 {
		return 128
	}
	p := (float64(e) - g.MinElev) / span
	return to8(p)
}

// NormalizedElevationImage renders the raw elevation grid as a standalone
// grayscale image scaled into [minElev,maxElev], independent of any
// gradient's color ramp (spec.md §4.10's "normalized elevation" sidecar
// layer). NaN cells are transparent.
func NormalizedElevationImage(elev *demio.Grid, minElev, maxElev float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, elev.Width, elev.Height))
	span := maxElev - minElev
	for y := 0; y < elev.Height; y++ {
		for x := 0; x < elev.Width; x++ {
			e := elev.At(y, x)
			i := img.PixOffset(x, y)
			if isNaN(e) || span == 0 {
				img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 0, 0, 0, 0
				continue
			}
			gray := to8((float64(e) - minElev) / span)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = gray, gray, gray, 255
		}
	}
	return img
}

// HillshadeImage renders a hillshade intensity grid (0..1) as an opaque
// grayscale image for the layered-sidecar output (spec.md §4.10).
func HillshadeImage(hs *demio.Grid) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, hs.Width, hs.Height))
	for y := 0; y < hs.Height; y++ {
		for x := 0; x < hs.Width; x++ {
			gray := to8(float64(hs.At(y, x)))
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = gray, gray, gray, 255
		}
	}
	return img
}

// ShadowImage renders a shadow-intensity grid (0..1) as the shadow color in
// RGB with intensity carried in alpha (spec.md §4.10), so the sidecar shadow
// layer composites cleanly over any background.
func ShadowImage(mask *demio.Grid, shadowColor gradient.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, mask.Width, mask.Height))
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = shadowColor.R, shadowColor.G, shadowColor.B
			img.Pix[i+3] = to8(float64(mask.At(y, x)))
		}
	}
	return img
}

func isNaN(v float32) bool { return v != v }
