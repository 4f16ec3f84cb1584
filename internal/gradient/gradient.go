// Package gradient implements C6: the ordered color-stop model and its
// sampling variants (continuous, posterized, shaded-relief, combined),
// ported from the semantics of original_source/gradient_system.py.
package gradient

import (
	"encoding/json"
	"math"
	"sort"

	"dem-terrain-render/internal/rendererr"
)

// Type is the gradient's rendering mode (spec.md §3).
type Type string

const (
	Continuous         Type = "continuous"
	Posterized         Type = "posterized"
	ShadedRelief       Type = "shaded_relief"
	ShadingContinuous  Type = "shading+continuous"
	ShadingPosterized  Type = "shading+posterized"
)

// Units is the gradient's elevation unit (persisted; legacy "feet" is
// migrated to meters on load per spec.md §9).
type Units string

const (
	Meters  Units = "meters"
	Percent Units = "percent"
)

// Color is an 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

// Stop is one color stop in [0,1] position space; position 0 corresponds to
// MaxElev, 1 to MinElev (spec.md §3).
type Stop struct {
	Position float64
	Color    Color
}

// Gradient is the full persisted/rendered color model (spec.md §3).
type Gradient struct {
	Name             string
	Units            Units
	RenderType       Type
	MinElev          float64
	MaxElev          float64
	Stops            []Stop
	NoDataColor      Color
	ShadowColor      Color
	AboveGradientColor *Color // nil means unset
	LightDirDeg      float64
	ShadingIntensity float64 // percent, signed, [-1000,1000]
	CastShadows      bool
	ShadowDrop       float64
	ShadowSoftEdge   int
	BlendingStrength float64 // percent, signed, [-1000,1000]
}

// persisted mirrors the on-disk JSON shape, including the legacy
// below_gradient_color key and feet units that must migrate on load.
type persisted struct {
	Name       string  `json:"name"`
	Units      string  `json:"units"`
	RenderType string  `json:"type"`
	MinElev    float64 `json:"min_elev"`
	MaxElev    float64 `json:"max_elev"`
	Stops      []struct {
		Position float64 `json:"position"`
		R        uint8   `json:"r"`
		G        uint8   `json:"g"`
		B        uint8   `json:"b"`
		A        uint8   `json:"a"`
	} `json:"stops"`
	NoDataColor      [4]uint8 `json:"no_data_color"`
	ShadowColor      [4]uint8 `json:"shadow_color"`
	AboveGradientColor *[4]uint8 `json:"above_gradient_color,omitempty"`
	BelowGradientColor *[4]uint8 `json:"below_gradient_color,omitempty"` // legacy key
	LightDirDeg      float64 `json:"light_dir_deg"`
	ShadingIntensity float64 `json:"shading_intensity"`
	CastShadows      bool    `json:"cast_shadows"`
	ShadowDrop       float64 `json:"shadow_drop"`
	ShadowSoftEdge   int     `json:"shadow_soft_edge"`
	BlendingStrength float64 `json:"blending_strength"`
}

// Load parses a persisted gradient document, migrating legacy
// units="feet" to meters and the legacy below_gradient_color key to
// AboveGradientColor (spec.md §9 open questions).
func Load(data []byte) (*Gradient, error) {
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, rendererr.Wrap(rendererr.UnreadableHeader, "gradient", err)
	}

	g := &Gradient{
		Name:             p.Name,
		Units:            Units(p.Units),
		RenderType:       Type(p.RenderType),
		MinElev:          p.MinElev,
		MaxElev:          p.MaxElev,
		NoDataColor:      colorFromArray(p.NoDataColor),
		ShadowColor:      colorFromArray(p.ShadowColor),
		LightDirDeg:      p.LightDirDeg,
		ShadingIntensity: p.ShadingIntensity,
		CastShadows:      p.CastShadows,
		ShadowDrop:       p.ShadowDrop,
		ShadowSoftEdge:   p.ShadowSoftEdge,
		BlendingStrength: p.BlendingStrength,
	}
	for _, s := range p.Stops {
		g.Stops = append(g.Stops, Stop{Position: s.Position, Color: Color{s.R, s.G, s.B, s.A}})
	}
	sort.Slice(g.Stops, func(i, j int) bool { return g.Stops[i].Position < g.Stops[j].Position })

	if p.AboveGradientColor != nil {
		c := colorFromArray(*p.AboveGradientColor)
		g.AboveGradientColor = &c
	} else if p.BelowGradientColor != nil {
		c := colorFromArray(*p.BelowGradientColor)
		g.AboveGradientColor = &c
	}

	if Units(p.Units) == "feet" {
		const feetPerMeter = 0.3048
		g.MinElev *= feetPerMeter
		g.MaxElev *= feetPerMeter
		g.Units = Meters
	}

	if len(g.Stops) == 0 {
		return nil, rendererr.New(rendererr.UnreadableHeader, "gradient has no color stops")
	}
	return g, nil
}

// Save serializes the gradient, always writing the current
// above_gradient_color key (one-way migration; never writes the legacy key).
func Save(g *Gradient) ([]byte, error) {
	p := persisted{
		Name: g.Name, Units: string(g.Units), RenderType: string(g.RenderType),
		MinElev: g.MinElev, MaxElev: g.MaxElev,
		NoDataColor: arrayFromColor(g.NoDataColor), ShadowColor: arrayFromColor(g.ShadowColor),
		LightDirDeg: g.LightDirDeg, ShadingIntensity: g.ShadingIntensity,
		CastShadows: g.CastShadows, ShadowDrop: g.ShadowDrop,
		ShadowSoftEdge: g.ShadowSoftEdge, BlendingStrength: g.BlendingStrength,
	}
	for _, s := range g.Stops {
		p.Stops = append(p.Stops, struct {
			Position float64 `json:"position"`
			R        uint8   `json:"r"`
			G        uint8   `json:"g"`
			B        uint8   `json:"b"`
			A        uint8   `json:"a"`
		}{Position: s.Position, R: s.Color.R, G: s.Color.G, B: s.Color.B, A: s.Color.A})
	}
	if g.AboveGradientColor != nil {
		a := arrayFromColor(*g.AboveGradientColor)
		p.AboveGradientColor = &a
	}
	return json.MarshalIndent(p, "", "  ")
}

func colorFromArray(a [4]uint8) Color { return Color{a[0], a[1], a[2], a[3]} }
func arrayFromColor(c Color) [4]uint8 { return [4]uint8{c.R, c.G, c.B, c.A} }

// IsDelimiter reports whether the stop at stopIndex is the posterization's silent
// final-stop delimiter (spec.md §9: it produces no visible band).
func (g *Gradient) IsDelimiter(stopIndex int) bool {
	return stopIndex == len(g.Stops)-1
}

// position maps an elevation to the gradient's normalized [0,1] space:
// position 0 = MaxElev (highest), 1 = MinElev (lowest).
func (g *Gradient) position(elev float64) float64 {
	span := g.MaxElev - g.MinElev
	if span == 0 {
		return 0
	}
	p := 1 - (elev-g.MinElev)/span
	return clamp(p, 0, 1)
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

// SampleContinuous implements spec.md §4.6 rule 2: linear interpolation
// between the two bracketing stops, clamped to the end stops outside range.
func (g *Gradient) SampleContinuous(elev float64) Color {
	p := g.position(elev)
	stops := g.Stops
	if p <= stops[0].Position {
		return stops[0].Color
	}
	if p >= stops[len(stops)-1].Position {
		return stops[len(stops)-1].Color
	}
	for i := 0; i < len(stops)-1; i++ {
		a, b := stops[i], stops[i+1]
		if p >= a.Position && p <= b.Position {
			t := 0.0
			if b.Position != a.Position {
				t = (p - a.Position) / (b.Position - a.Position)
			}
			return lerpColor(a.Color, b.Color, t)
		}
	}
	return stops[len(stops)-1].Color
}

func lerpColor(a, b Color, t float64) Color {
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + t*(float64(y)-float64(x))))
	}
	return Color{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), lerp(a.A, b.A)}
}

// SamplePosterized implements spec.md §4.6 rule 3.
func (g *Gradient) SamplePosterized(elev float64) Color {
	if g.AboveGradientColor != nil {
		if elev > g.MaxElev {
			return *g.AboveGradientColor
		}
		if elev < g.MinElev {
			return g.Stops[len(g.Stops)-1].Color
		}
	}
	p := g.position(elev)
	stops := g.Stops
	best := stops[0]
	for i, s := range stops {
		if g.IsDelimiter(i) {
			continue
		}
		if s.Position <= p {
			best = s
		}
	}
	return best.Color
}

// Sample dispatches on RenderType for the color-producing variants
// (ShadedRelief produces no color of its own — spec.md §4.6 rule 4).
func (g *Gradient) Sample(elev float64) (Color, bool) {
	switch g.RenderType {
	case Continuous, ShadingContinuous:
		return g.SampleContinuous(elev), true
	case Posterized, ShadingPosterized:
		return g.SamplePosterized(elev), true
	case ShadedRelief:
		return Color{}, false
	default:
		return g.SampleContinuous(elev), true
	}
}

// NeedsHillshade reports whether this gradient's RenderType composites
// hillshade at all.
func (g *Gradient) NeedsHillshade() bool {
	switch g.RenderType {
	case ShadedRelief, ShadingContinuous, ShadingPosterized:
		return true
	default:
		return false
	}
}
