// Package mapstyle maps normalized basket costs to visual attributes: point
// color and size on the map, and heat-map cell colors in the summary table.
package mapstyle

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// MinRadius is the point radius, in metres, of a zero-cost region
	MinRadius = 5000
	// RadiusRange is added to MinRadius in proportion to the scale
	RadiusRange = 100000
	// PointAlpha is the opacity of every map point
	PointAlpha = 160

	// darkCellLuminance is the relative luminance below which cell text
	// switches to white
	darkCellLuminance = 0.408
)

// RGBA is a color as deck.gl expects it
type RGBA [4]uint8

// PointColor blends from blue (cheapest) to red (most expensive)
func PointColor(scale float64) RGBA {
	s := clamp01(scale)
	return RGBA{
		uint8(math.Round(255 * s)),
		0,
		uint8(math.Round(255 * (1 - s))),
		PointAlpha,
	}
}

// PointRadius sizes a map point by its scale
func PointRadius(scale float64) float64 {
	return clamp01(scale)*RadiusRange + MinRadius
}

// ylOrRd is the 9-class ColorBrewer YlOrRd ramp, light to dark
var ylOrRd = []colorful.Color{
	mustHex("#ffffcc"),
	mustHex("#ffeda0"),
	mustHex("#fed976"),
	mustHex("#feb24c"),
	mustHex("#fd8d3c"),
	mustHex("#fc4e2a"),
	mustHex("#e31a1c"),
	mustHex("#bd0026"),
	mustHex("#800026"),
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// YlOrRd samples the ramp at t in [0,1]
func YlOrRd(t float64) colorful.Color {
	t = clamp01(t)
	pos := t * float64(len(ylOrRd)-1)
	i := int(math.Floor(pos))
	if i >= len(ylOrRd)-1 {
		return ylOrRd[len(ylOrRd)-1]
	}
	return ylOrRd[i].BlendRgb(ylOrRd[i+1], pos-float64(i)).Clamped()
}

// CellStyle colors one table cell
type CellStyle struct {
	Background string `json:"background"`
	Color      string `json:"color"`
}

// ColumnStyles colors each value relative to the column's min and max. A
// column where every value is equal gets the lightest color.
func ColumnStyles(values []float64) []CellStyle {
	styles := make([]CellStyle, len(values))
	if len(values) == 0 {
		return styles
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	for i, v := range values {
		t := 0.0
		if hi > lo {
			t = (v - lo) / (hi - lo)
		}
		styles[i] = Style(YlOrRd(t))
	}
	return styles
}

// Style picks readable text for a background color
func Style(bg colorful.Color) CellStyle {
	text := "#000000"
	if Luminance(bg) < darkCellLuminance {
		text = "#f1f1f1"
	}
	return CellStyle{Background: bg.Hex(), Color: text}
}

// Luminance is the WCAG relative luminance of a color
func Luminance(c colorful.Color) float64 {
	r, g, b := c.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
