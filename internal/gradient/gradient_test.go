package gradient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classicElevation() *Gradient {
	return &Gradient{
		Name: "Classic Elevation", RenderType: Continuous, MinElev: 0, MaxElev: 3000,
		Stops: []Stop{
			{Position: 0.0, Color: Color{255, 255, 255, 255}},
			{Position: 1.0, Color: Color{0, 128, 0, 255}},
		},
	}
}

func TestSampleContinuousFlatOceanScenario(t *testing.T) {
	g := classicElevation()
	c := g.SampleContinuous(-1.0) // below MinElev, clamps to position 1.0 stop
	assert.Equal(t, Color{0, 128, 0, 255}, c)
}

func TestSampleContinuousLiesOnBracketingLine(t *testing.T) {
	g := &Gradient{
		RenderType: Continuous, MinElev: 0, MaxElev: 100,
		Stops: []Stop{
			{Position: 0, Color: Color{0, 0, 0, 255}},
			{Position: 1, Color: Color{100, 200, 50, 255}},
		},
	}
	c := g.SampleContinuous(50) // position = 0.5
	assert.Equal(t, uint8(50), c.R)
	assert.Equal(t, uint8(100), c.G)
	assert.Equal(t, uint8(25), c.B)
}

func TestSamplePosterizedAboveAndBelowRange(t *testing.T) {
	white := Color{255, 255, 255, 255}
	g := &Gradient{
		RenderType: Posterized, MinElev: 0, MaxElev: 100,
		AboveGradientColor: &white,
		Stops: []Stop{
			{Position: 0.0, Color: Color{255, 0, 0, 255}}, // red, high elevations
			{Position: 0.5, Color: Color{255, 255, 0, 255}}, // yellow
			{Position: 1.0, Color: Color{0, 0, 255, 255}},   // blue, delimiter
		},
	}
	elevations := []float64{-10, 0, 25, 60, 110}
	expect := []Color{
		{0, 0, 255, 255},   // blue
		{255, 255, 0, 255}, // yellow
		{255, 255, 0, 255}, // yellow
		{255, 0, 0, 255},   // red
		white,
	}
	for i, e := range elevations {
		got := g.SamplePosterized(e)
		assert.Equal(t, expect[i], got, "elevation=%v", e)
	}
}

func TestLoadMigratesLegacyBelowGradientColorKey(t *testing.T) {
	data := []byte(`{
		"name":"legacy","units":"meters","type":"posterized","min_elev":0,"max_elev":100,
		"stops":[{"position":0,"r":1,"g":2,"b":3,"a":255},{"position":1,"r":4,"g":5,"b":6,"a":255}],
		"no_data_color":[0,0,0,0],"shadow_color":[0,0,0,0],
		"below_gradient_color":[9,9,9,255]
	}`)
	g, err := Load(data)
	require.NoError(t, err)
	require.NotNil(t, g.AboveGradientColor)
	assert.Equal(t, Color{9, 9, 9, 255}, *g.AboveGradientColor)
}

func TestLoadMigratesLegacyFeetUnits(t *testing.T) {
	data := []byte(`{
		"name":"legacy feet","units":"feet","type":"continuous","min_elev":0,"max_elev":1000,
		"stops":[{"position":0,"r":1,"g":2,"b":3,"a":255},{"position":1,"r":4,"g":5,"b":6,"a":255}],
		"no_data_color":[0,0,0,0],"shadow_color":[0,0,0,0]
	}`)
	g, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, Meters, g.Units)
	assert.InDelta(t, 304.8, g.MaxElev, 1e-6)
}

func TestShadedReliefProducesNoColor(t *testing.T) {
	g := &Gradient{RenderType: ShadedRelief}
	_, ok := g.Sample(500)
	assert.False(t, ok)
	assert.True(t, g.NeedsHillshade())
}
