// Command validate checks a marker style configuration end to end: the
// breakpoint table invariants, the color resolver at every boundary, the
// legend's agreement with the resolver, and optionally every record of a
// saved earthquake feed.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -style configs/style.yaml \
//	  -scale 5 \
//	  -feed testdata/all_day.geojson
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/quake-map-service/internal/config"
	"github.com/couchcryptid/quake-map-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name     string
	errors   []string
	warnings []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	stylePath := flag.String("style", "", "path to a YAML breakpoint table (default: built-in table)")
	scale := flag.Float64("scale", domain.DefaultRadiusScale, "marker radius scale")
	feedPath := flag.String("feed", "", "optional path to a saved GeoJSON earthquake feed")
	flag.Parse()

	if code := run(*stylePath, *scale, *feedPath); code != 0 {
		os.Exit(code)
	}
}

func run(stylePath string, scale float64, feedPath string) int {
	fmt.Println("=== Marker Style Validation ===")
	fmt.Println()

	table := domain.DefaultBreakpoints()
	source := "built-in"
	if stylePath != "" {
		var err error
		table, err = loadTable(stylePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load style: %v\n", err)
			return 1
		}
		source = stylePath
	}

	tablePhase := validateTable(table, scale)
	phases := []*phase{tablePhase}

	// Later phases need a usable Styler.
	if styler, err := domain.NewStyler(table, scale); err == nil {
		phases = append(phases,
			validateResolver(styler),
			validateLegend(styler),
		)
		if feedPath != "" {
			phases = append(phases, validateFeed(styler, feedPath))
		}
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Table: %d breakpoints from %s, radius scale %g\n", len(table), source, scale)

	for _, p := range phases {
		if len(p.errors) == 0 && len(p.warnings) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
		for _, w := range p.warnings {
			fmt.Printf("  (warn) %s\n", w)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadTable(path string) (domain.BreakpointTable, error) {
	table, err := config.LoadStyleFile(path)
	var invalid *domain.InvalidInputError
	if errors.As(err, &invalid) {
		// Report table problems through Phase 1 instead of aborting.
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, readErr
		}
		return decodeUnvalidated(data)
	}
	return table, err
}

// ── Phase 1: Table Invariants ──

func validateTable(table domain.BreakpointTable, scale float64) *phase {
	p := &phase{name: "Phase 1: Breakpoint Table"}
	if err := table.Validate(); err != nil {
		p.errorf("%v", err)
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		p.errorf("radius scale %g must be a positive finite number", scale)
	}
	seen := make(map[string]float64, len(table))
	for _, bp := range table {
		if prev, ok := seen[bp.Color]; ok {
			p.warnf("color %s used for both %g and %g; buckets are indistinguishable", bp.Color, prev, bp.Threshold)
		}
		seen[bp.Color] = bp.Threshold
	}
	return p
}

// ── Phase 2: Resolver Boundaries ──
// Probes each threshold, the value just below it, and the midpoint of each bucket.

func validateResolver(s *domain.Styler) *phase {
	p := &phase{name: "Phase 2: Resolver Boundaries"}
	table := s.Table()

	for i, bp := range table {
		if got := s.Color(bp.Threshold); got != bp.Color {
			p.errorf("color(%g) = %s, want %s", bp.Threshold, got, bp.Color)
		}
		if i > 0 {
			below := math.Nextafter(bp.Threshold, math.Inf(-1))
			if got, want := s.Color(below), table[i-1].Color; got != want {
				p.errorf("color(just below %g) = %s, want %s", bp.Threshold, got, want)
			}
		}
		if i+1 < len(table) {
			mid := bp.Threshold + (table[i+1].Threshold-bp.Threshold)/2
			if got := s.Color(mid); got != bp.Color {
				p.errorf("color(%g) = %s, want %s", mid, got, bp.Color)
			}
		}
	}

	first, last := table[0], table[len(table)-1]
	for _, m := range []float64{first.Threshold - 1, math.NaN(), math.Inf(-1)} {
		if got := s.Color(m); got != first.Color {
			p.errorf("color(%g) = %s, want lowest bucket %s", m, got, first.Color)
		}
	}
	if got := s.Color(last.Threshold + 100); got != last.Color {
		p.errorf("color(%g) = %s, want top bucket %s", last.Threshold+100, got, last.Color)
	}

	radiusCases := []struct {
		mag  float64
		want float64
	}{
		{0, 0},
		{-3, 0},
		{1, s.Scale()},
		{2, 2 * s.Scale()},
		{4.5, 4.5 * s.Scale()},
	}
	for _, tc := range radiusCases {
		got, err := s.Radius(tc.mag)
		if err != nil {
			p.errorf("radius(%g): unexpected error %v", tc.mag, err)
			continue
		}
		if math.Abs(got-tc.want) > 1e-9 {
			p.errorf("radius(%g) = %g, want %g", tc.mag, got, tc.want)
		}
	}
	if _, err := s.Radius(math.NaN()); err == nil {
		p.errorf("radius(NaN) should be rejected")
	}
	if _, err := s.Radius(math.MaxFloat64); err == nil && math.IsInf(math.MaxFloat64*s.Scale(), 1) {
		p.errorf("radius(%g) overflows and should be rejected", math.MaxFloat64)
	}
	return p
}

// ── Phase 3: Legend Agreement ──
// Every legend swatch must match the resolver at its lower bound, and the
// bounds must tile the magnitude axis without gaps.

func validateLegend(s *domain.Styler) *phase {
	p := &phase{name: "Phase 3: Legend Agreement"}
	table := s.Table()
	legend := s.Legend()

	if len(legend) != len(table) {
		p.errorf("legend has %d entries, table has %d", len(legend), len(table))
		return p
	}
	for i, e := range legend {
		if got := s.Color(e.LowerBound); got != e.SwatchColor {
			p.errorf("legend %q swatch %s, resolver gives %s", e.Label, e.SwatchColor, got)
		}
		if e.Label == "" {
			p.errorf("legend entry %d has an empty label", i)
		}
		last := i == len(legend)-1
		switch {
		case last && !e.Unbounded():
			p.errorf("last legend entry %q should be unbounded", e.Label)
		case !last && e.Unbounded():
			p.errorf("legend entry %q is unbounded but not last", e.Label)
		case !last && *e.UpperBound != legend[i+1].LowerBound:
			p.errorf("gap between %q and %q", e.Label, legend[i+1].Label)
		}
	}
	return p
}

// ── Phase 4: Feed Records ──
// Parses and styles every record of a saved feed. Unparseable records are
// warnings (the service skips them); styling disagreements are errors.

func validateFeed(s *domain.Styler, path string) *phase {
	p := &phase{name: "Phase 4: Feed Records"}

	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("read feed: %v", err)
		return p
	}
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		p.errorf("decode feed: %v", err)
		return p
	}
	if fc.Type != "FeatureCollection" {
		p.errorf("feed type %q, want FeatureCollection", fc.Type)
		return p
	}

	colors := make(map[string]bool, len(s.Table()))
	for _, bp := range s.Table() {
		colors[bp.Color] = true
	}

	styled, skipped := 0, 0
	for i, raw := range fc.Features {
		q, err := domain.ParseQuake(raw)
		if err != nil {
			p.warnf("feature %d skipped: %v", i, err)
			skipped++
			continue
		}
		sq, err := domain.StyleQuake(s, q)
		if err != nil {
			p.errorf("%s: style: %v", q.ID, err)
			continue
		}
		if !colors[sq.Style.FillColor] {
			p.errorf("%s: fill color %s not in table", q.ID, sq.Style.FillColor)
		}
		if sq.Style.Radius < 0 {
			p.errorf("%s: negative radius %g", q.ID, sq.Style.Radius)
		}
		styled++
	}
	fmt.Printf("Feed: %d features, %d styled, %d skipped\n", len(fc.Features), styled, skipped)
	return p
}
