// Package plot draws BIOPERIANT12 maps and time series with gonum/plot.
package plot

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/plot/vg"

	"github.com/bioperiant/bp12-tools/internal/analysis"
	"github.com/bioperiant/bp12-tools/internal/domain"
)

// UnitLabel returns the bracketed display string of a unit tag.
func UnitLabel(unit string) string {
	switch unit {
	case "cm2s2":
		return "[cm² s⁻²]"
	case "degC":
		return "[°C]"
	case "jm2":
		return "[10⁹ J m⁻²]"
	case "mgm3":
		return "[mg m⁻³]"
	case "mmolperl":
		return "[mmol l⁻¹]"
	case "molm2peryr":
		return "[mol m⁻² yr⁻¹]"
	case "uatm":
		return "[μatm]"
	case "umolperl":
		return "[μmol l⁻¹]"
	case "nmolperl":
		return "[nmol l⁻¹]"
	case "umolkg":
		return "[μmol kg⁻¹]"
	case "mgm2perd":
		return "[mgC m⁻² d⁻¹]"
	case "percent":
		return "[%]"
	}
	return "[" + unit + "]"
}

// NameLabel returns the display name of a variable, with chemical subscripts.
func NameLabel(name string) string {
	switch name {
	case "pco2", "PCO2", "pCO2":
		return "pCO₂"
	case "fco2", "FCO2":
		return "FCO₂"
	case "no3", "NO3":
		return "NO₃"
	case "po4", "PO4":
		return "PO₄"
	case "o2", "O2":
		return "O₂"
	}
	return name
}

// Label returns "<name> [<unit>]" for a variable.
func Label(name string) string {
	return NameLabel(name) + " " + UnitLabel(domain.VariableString(name, domain.FieldUnit))
}

// MonthTitles returns month abbreviations starting in January for "JFM",
// otherwise starting in July (austral year).
func MonthTitles(startSeason string) []string {
	if strings.EqualFold(startSeason, "jfm") {
		return []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	}
	return []string{"Jul", "Aug", "Sep", "Oct", "Nov", "Dec", "Jan", "Feb", "Mar", "Apr", "May", "Jun"}
}

// AxisLimits returns whole-number limits around [minVal, maxVal] when the
// range exceeds 1.5, otherwise limits rounded outward to one decimal.
func AxisLimits(minVal, maxVal float64) (lo, hi float64) {
	if math.Abs(maxVal-minVal) > 1.5 {
		return math.Floor(minVal), math.Ceil(maxVal)
	}
	return AxisLimitsPrec(minVal, maxVal, 1)
}

// AxisLimitsPrec rounds the limits outward to prec decimals.
func AxisLimitsPrec(minVal, maxVal float64, prec int) (lo, hi float64) {
	return analysis.PFloor(minVal, prec), analysis.PCeil(maxVal, prec)
}

var (
	biomeNumbers  = []int{7, 13, 14, 15, 16, 17, 18}
	biomeColors   = []string{"#003a7d", "#f9e858", "#c701ff", "#ff9d3a", "#ff73b6", "#008dff", "#008dff"}
	fm2014RGB     = [][3]uint8{{110, 39, 73}, {236, 49, 76}, {233, 228, 0}, {0, 160, 77}, {0, 157, 215}, {67, 102, 180}, {67, 102, 180}}
	lineStyleKeys = []string{"-", "--", ":", "-.", "-", "--", ":", "-."}
)

// BiomeColor returns the color of a biome number. fm2014 selects the Fay &
// McKinley (2014) palette. Unknown biomes are black.
func BiomeColor(biome int, fm2014 bool) string {
	for i, b := range biomeNumbers {
		if b != biome {
			continue
		}
		if fm2014 {
			c := fm2014RGB[i]
			return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
		}
		return biomeColors[i]
	}
	return "k"
}

// SelectColors returns exactly n colors from colors. A single color is
// repeated, a short list is padded with black and a nil or empty list
// gives all black.
func SelectColors(colors []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		switch {
		case len(colors) == 1:
			out[i] = colors[0]
		case i < len(colors):
			out[i] = colors[i]
		default:
			out[i] = "k"
		}
	}
	return out
}

// NamedRGB returns the hex code of the red, blue and green used for model
// and observation overlays; anything else is black.
func NamedRGB(c string) string {
	switch c {
	case "r", "R":
		return "#cc2d35"
	case "b", "B":
		return "#0063c5"
	case "g", "G":
		return "#4cb23b"
	}
	return "k"
}

// LineStylesFor returns n distinct line style keys ("-", "--", ":", "-.").
func LineStylesFor(n int) []string {
	if n > len(lineStyleKeys) {
		n = len(lineStyleKeys)
	}
	if n < 0 {
		n = 0
	}
	return append([]string(nil), lineStyleKeys[:n]...)
}

var namedColors = map[string]color.NRGBA{
	"k": {A: 255}, "black": {A: 255},
	"w": {R: 255, G: 255, B: 255, A: 255}, "white": {R: 255, G: 255, B: 255, A: 255},
	"r": {R: 255, A: 255}, "red": {R: 255, A: 255},
	"g": {G: 128, A: 255}, "green": {G: 128, A: 255},
	"b": {B: 255, A: 255}, "blue": {B: 255, A: 255},
	"c": {G: 191, B: 191, A: 255},
	"m": {R: 191, B: 191, A: 255},
	"y": {R: 191, G: 191, A: 255},
	"grey": {R: 128, G: 128, B: 128, A: 255}, "gray": {R: 128, G: 128, B: 128, A: 255},
	"darkgrey": {R: 169, G: 169, B: 169, A: 255}, "darkgray": {R: 169, G: 169, B: 169, A: 255},
}

// ParseColor parses a named color or #rgb / #rrggbb hex code. Malformed
// input is black.
func ParseColor(s string) color.NRGBA {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c
	}
	hex := strings.TrimPrefix(s, "#")
	if hex == s {
		return namedColors["k"]
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return namedColors["k"]
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return namedColors["k"]
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255} //nolint:gosec // Masked to 8 bits by the shifts.
}

// WithAlpha returns c with opacity alpha in [0, 1].
func WithAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(math.Round(math.Max(0, math.Min(1, alpha)) * 255))
	return c
}

// ParseLineStyle returns the dash pattern of a style key. Malformed input
// is solid.
func ParseLineStyle(s string) []vg.Length {
	switch strings.TrimSpace(s) {
	case "--", "dashed":
		return []vg.Length{vg.Points(6), vg.Points(3)}
	case ":", "dotted":
		return []vg.Length{vg.Points(1.5), vg.Points(2.5)}
	case "-.", "dashdot":
		return []vg.Length{vg.Points(6), vg.Points(2.5), vg.Points(1.5), vg.Points(2.5)}
	}
	return nil
}
