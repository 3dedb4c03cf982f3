package domain

import (
	"strconv"
)

// LegendEntry is one labeled swatch covering [LowerBound, UpperBound).
// A nil UpperBound marks the open-ended top bucket.
type LegendEntry struct {
	LowerBound  float64  `json:"lower_bound"`
	UpperBound  *float64 `json:"upper_bound"`
	SwatchColor string   `json:"swatch_color"`
	Label       string   `json:"label"`
}

// Unbounded reports whether the entry has no upper bound.
func (e LegendEntry) Unbounded() bool { return e.UpperBound == nil }

// BuildLegend emits one entry per breakpoint in ascending order. Consecutive
// thresholds are labeled "lower–upper" and the last one "lower+". Swatch
// colors are passed through as given.
func BuildLegend(table BreakpointTable) ([]LegendEntry, error) {
	if err := table.ValidateOrder(); err != nil {
		return nil, err
	}

	entries := make([]LegendEntry, len(table))
	for i, bp := range table {
		entry := LegendEntry{
			LowerBound:  bp.Threshold,
			SwatchColor: bp.Color,
		}
		if i+1 < len(table) {
			upper := table[i+1].Threshold
			entry.UpperBound = &upper
			entry.Label = formatThreshold(bp.Threshold) + "–" + formatThreshold(upper)
		} else {
			entry.Label = formatThreshold(bp.Threshold) + "+"
		}
		entries[i] = entry
	}
	return entries, nil
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
