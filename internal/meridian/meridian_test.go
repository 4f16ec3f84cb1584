package meridian

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLongitudeIsIdempotent(t *testing.T) {
	for _, lon := range []float64{0, 179.9, -179.9, 180, -180, 360, -360, 540, -540, 123.456} {
		once := NormalizeLongitude(lon)
		twice := NormalizeLongitude(once)
		assert.InDelta(t, once, twice, 1e-9, "lon=%v", lon)
		assert.GreaterOrEqual(t, once, -180.0)
		assert.LessOrEqual(t, once, 180.0)
	}
}

func TestLongitudeSpanNonCrossing(t *testing.T) {
	span := LongitudeSpan(-10, 10)
	assert.False(t, span.CrossesMeridian)
	assert.InDelta(t, 20.0, span.WidthDegrees, 1e-9)
}

func TestLongitudeSpanCrossing(t *testing.T) {
	span := LongitudeSpan(175, -175)
	assert.True(t, span.CrossesMeridian)
	assert.InDelta(t, 10.0, span.WidthDegrees, 1e-9)
}

func TestSplitMeridianCrossingNoop(t *testing.T) {
	parts := SplitMeridianCrossing(-10, 5, 10, -5)
	assert.Len(t, parts, 1)
	assert.Equal(t, [4]float64{-10, 5, 10, -5}, parts[0])
}

func TestSplitMeridianCrossingSplits(t *testing.T) {
	parts := SplitMeridianCrossing(175, 10, -175, 0)
	if assert.Len(t, parts, 2) {
		assert.Equal(t, [4]float64{175, 10, 180, 0}, parts[0])
		assert.Equal(t, [4]float64{-180, 10, -175, 0}, parts[1])
	}
}

func TestMapLongitudeToArrayX(t *testing.T) {
	x := MapLongitudeToArrayX(5, 0, 10, 100, false)
	assert.Equal(t, 50, x)

	// tile spans the antimeridian: 170..-170 (i.e. 20 deg wide)
	x = MapLongitudeToArrayX(-175, 170, -170, 200, true)
	assert.Equal(t, 150, x)
}
