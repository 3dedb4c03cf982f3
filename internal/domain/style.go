package domain

import (
	"math"
	"regexp"
	"slices"
)

// DefaultRadiusScale converts one unit of magnitude into marker radius pixels.
const DefaultRadiusScale = 5.0

// Fixed stroke styling applied to every earthquake marker.
const (
	MarkerStrokeColor   = "white"
	MarkerStrokeWeight  = 1
	MarkerStrokeOpacity = 1.0
	MarkerFillOpacity   = 0.75
)

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Breakpoint is the lower bound of a magnitude bucket and the color drawn for it.
type Breakpoint struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Color     string  `json:"color" yaml:"color"`
}

// BreakpointTable partitions magnitude into half-open buckets [t_i, t_i+1)
// plus an open-ended top bucket. Thresholds must be strictly ascending.
type BreakpointTable []Breakpoint

var defaultBreakpoints = BreakpointTable{
	{Threshold: 0, Color: "#00ff00"},
	{Threshold: 1, Color: "#adff2f"},
	{Threshold: 2, Color: "#ffff00"},
	{Threshold: 3, Color: "#ff8000"},
	{Threshold: 4, Color: "#e7552c"},
	{Threshold: 5, Color: "#ff0000"},
}

// DefaultBreakpoints returns a copy of the six-bucket magnitude table.
func DefaultBreakpoints() BreakpointTable {
	return slices.Clone(defaultBreakpoints)
}

// Validate checks that the table is usable for styling markers: ordered as
// ValidateOrder requires, with hex colors.
func (t BreakpointTable) Validate() error {
	if err := t.ValidateOrder(); err != nil {
		return err
	}
	for i, bp := range t {
		if !hexColorRe.MatchString(bp.Color) {
			return invalidInput("breakpoints", "color %q at index %d is not a hex color", bp.Color, i)
		}
	}
	return nil
}

// ValidateOrder checks that the table is non-empty with finite, strictly
// ascending thresholds. Colors are not inspected.
func (t BreakpointTable) ValidateOrder() error {
	if len(t) == 0 {
		return invalidInput("breakpoints", "table is empty")
	}
	for i, bp := range t {
		if math.IsNaN(bp.Threshold) || math.IsInf(bp.Threshold, 0) {
			return invalidInput("breakpoints", "threshold %d is not finite", i)
		}
		if i > 0 && bp.Threshold <= t[i-1].Threshold {
			return invalidInput("breakpoints", "threshold %g at index %d does not exceed %g", bp.Threshold, i, t[i-1].Threshold)
		}
	}
	return nil
}

// ColorFor returns the color of the highest bucket whose threshold is <= m.
// Values below the second threshold, NaN included, fall into the lowest bucket,
// which makes the lookup total. An empty table yields "".
func (t BreakpointTable) ColorFor(m float64) string {
	if len(t) == 0 {
		return ""
	}
	for i := len(t) - 1; i > 0; i-- {
		if m >= t[i].Threshold {
			return t[i].Color
		}
	}
	return t[0].Color
}

// MarkerStyle is the per-marker path style handed to the map widget.
type MarkerStyle struct {
	Radius      float64 `json:"radius"`
	FillColor   string  `json:"fillColor"`
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
}

// Styler resolves marker styles and the legend from one shared breakpoint
// table, so the map and its legend cannot disagree.
type Styler struct {
	table BreakpointTable
	scale float64
}

var defaultStyler = &Styler{table: defaultBreakpoints, scale: DefaultRadiusScale}

// NewStyler validates the table and radius scale. The table is copied.
func NewStyler(table BreakpointTable, scale float64) (*Styler, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return nil, invalidInput("scale", "must be a positive finite number, got %g", scale)
	}
	return &Styler{table: slices.Clone(table), scale: scale}, nil
}

// DefaultStyler returns the styler for the default table and scale.
func DefaultStyler() *Styler { return defaultStyler }

// Table returns a copy of the styler's breakpoint table.
func (s *Styler) Table() BreakpointTable { return slices.Clone(s.table) }

// Scale returns the radius scale factor.
func (s *Styler) Scale() float64 { return s.scale }

// Radius scales magnitude into a marker radius. Negative magnitudes clamp to
// zero. NaN, infinities, and magnitudes whose radius overflows are rejected.
func (s *Styler) Radius(m float64) (float64, error) {
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return 0, invalidInput("magnitude", "%g is not a finite number", m)
	}
	if m <= 0 {
		return 0, nil
	}
	r := m * s.scale
	if math.IsInf(r, 0) {
		return 0, invalidInput("magnitude", "radius overflows for %g", m)
	}
	return r, nil
}

// Color buckets magnitude against the table. Never fails.
func (s *Styler) Color(m float64) string {
	return s.table.ColorFor(m)
}

// Marker combines radius, fill color, and the fixed stroke styling.
func (s *Styler) Marker(m float64) (MarkerStyle, error) {
	r, err := s.Radius(m)
	if err != nil {
		return MarkerStyle{}, err
	}
	return MarkerStyle{
		Radius:      r,
		FillColor:   s.Color(m),
		Color:       MarkerStrokeColor,
		Weight:      MarkerStrokeWeight,
		Opacity:     MarkerStrokeOpacity,
		FillOpacity: MarkerFillOpacity,
	}, nil
}

// Legend builds legend entries from the styler's table.
func (s *Styler) Legend() []LegendEntry {
	entries, err := BuildLegend(s.table)
	if err != nil {
		// The table was validated in NewStyler.
		panic(err)
	}
	return entries
}

// ResolveRadius scales magnitude with the default scale.
func ResolveRadius(m float64) (float64, error) {
	return defaultStyler.Radius(m)
}

// ResolveColor buckets magnitude against the default table.
func ResolveColor(m float64) string {
	return defaultStyler.Color(m)
}
