// Package meridian implements the longitude normalization and
// antimeridian-splitting math every geographic operation in the pipeline
// must agree on (spec.md §4.1, C1).
package meridian

import "math"

// NormalizeLongitude wraps lon into [-180, +180] modulo 360 degrees.
func NormalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// Span describes the eastward extent of a west->east window.
type Span struct {
	WidthDegrees    float64
	CrossesMeridian bool
}

// LongitudeSpan computes the signed eastward span from west to east,
// reporting whether traversing it requires wrapping past +/-180 degrees.
func LongitudeSpan(west, east float64) Span {
	width := east - west
	if width < 0 {
		width += 360
	}
	crosses := east < west || east > 180 || west < -180
	return Span{WidthDegrees: width, CrossesMeridian: crosses}
}

// SplitMeridianCrossing splits a window that crosses the antimeridian into
// two non-crossing windows in west-to-east order; returns a single-element
// slice when the window does not cross.
func SplitMeridianCrossing(west, north, east, south float64) [][4]float64 {
	span := LongitudeSpan(west, east)
	if !span.CrossesMeridian {
		return [][4]float64{{west, north, east, south}}
	}
	if east > 180 {
		east -= 360
	}
	if west < -180 {
		west += 360
	}
	return [][4]float64{
		{west, north, 180, south},
		{-180, north, east, south},
	}
}

// MapLongitudeToArrayX maps a longitude to a column index within a tile
// spanning [tileW, tileE) at the given pixel width, correctly handling tiles
// that themselves wrap across +/-180 (crossesMeridian true).
func MapLongitudeToArrayX(lon, tileW, tileE float64, widthPx int, crossesMeridian bool) int {
	span := tileE - tileW
	if crossesMeridian {
		span += 360
		if lon < tileW {
			lon += 360
		}
	}
	if span <= 0 {
		return 0
	}
	frac := (lon - tileW) / span
	x := int(math.Floor(frac * float64(widthPx)))
	if x < 0 {
		x = 0
	}
	if x >= widthPx {
		x = widthPx - 1
	}
	return x
}
