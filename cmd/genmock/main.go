// Command genmock reads a USGS earthquake CSV export and generates mock
// fixtures: a GeoJSON feed in the USGS summary format, and the styled
// markers the service renders from it. It runs the real domain parsing and
// styling so the styled fixture matches pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv testdata/all_day.csv \
//	  -feed-out testdata/all_day.geojson \
//	  -styled-out testdata/all_day_styled.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

// generatedAt stamps the fixture feed so output is reproducible.
var generatedAt = time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "USGS earthquake CSV export")
	feedOut := flag.String("feed-out", "", "output path for the GeoJSON feed fixture")
	styledOut := flag.String("styled-out", "", "output path for the styled marker fixture")
	flag.Parse()

	if *csvPath == "" || *feedOut == "" || *styledOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -feed-out, -styled-out")
	}

	domain.SetClock(clockwork.NewFakeClockAt(generatedAt))
	defer domain.SetClock(nil)

	features, err := readCSV(*csvPath)
	if err != nil {
		return fmt.Errorf("processing %s: %w", *csvPath, err)
	}
	log.Printf("read %d records", len(features))

	feed, err := buildFeed(features)
	if err != nil {
		return err
	}
	if err := writeJSON(*feedOut, feed); err != nil {
		return fmt.Errorf("writing feed fixture: %w", err)
	}
	log.Printf("wrote feed fixture: %s", *feedOut)

	styled, skipped := styleFeed(feed.Features)
	if err := writeJSON(*styledOut, styled); err != nil {
		return fmt.Errorf("writing styled fixture: %w", err)
	}
	log.Printf("wrote styled fixture: %s (%d markers, %d skipped)", *styledOut, len(styled), skipped)

	printStats(styled)
	return nil
}

// readCSV converts USGS CSV rows into GeoJSON features. Rows with an empty
// mag column keep a null magnitude so the fixture exercises the skip path.
func readCSV(path string) ([]*geojson.Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[h] = i
	}

	features := make([]*geojson.Feature, 0, len(rows)-1)
	for n, row := range rows[1:] {
		lat, errLat := strconv.ParseFloat(get(row, colIdx, "latitude"), 64)
		lon, errLon := strconv.ParseFloat(get(row, colIdx, "longitude"), 64)
		if errLat != nil || errLon != nil {
			log.Printf("line %d: bad coordinates, dropped", n+2)
			continue
		}
		depth, _ := strconv.ParseFloat(get(row, colIdx, "depth"), 64)

		props := map[string]any{
			"mag":     nil,
			"place":   get(row, colIdx, "place"),
			"time":    epochMillis(get(row, colIdx, "time")),
			"updated": epochMillis(get(row, colIdx, "updated")),
			"status":  get(row, colIdx, "status"),
			"magType": get(row, colIdx, "magType"),
			"type":    get(row, colIdx, "type"),
		}
		if mag, err := strconv.ParseFloat(get(row, colIdx, "mag"), 64); err == nil {
			props["mag"] = mag
		}

		features = append(features, &geojson.Feature{
			ID:         get(row, colIdx, "id"),
			Geometry:   geom.NewPoint(geom.XYZ).MustSetCoords(geom.Coord{lon, lat, depth}),
			Properties: props,
		})
	}
	return features, nil
}

// fixtureFeed mirrors the USGS summary envelope.
type fixtureFeed struct {
	Type     string            `json:"type"`
	Metadata map[string]any    `json:"metadata"`
	Features []json.RawMessage `json:"features"`
}

func buildFeed(features []*geojson.Feature) (fixtureFeed, error) {
	raw := make([]json.RawMessage, len(features))
	for i, f := range features {
		data, err := json.Marshal(f)
		if err != nil {
			return fixtureFeed{}, fmt.Errorf("encode feature %s: %w", f.ID, err)
		}
		raw[i] = data
	}
	return fixtureFeed{
		Type: "FeatureCollection",
		Metadata: map[string]any{
			"generated": domain.Now().UnixMilli(),
			"title":     "USGS All Earthquakes, Past Day",
			"count":     len(raw),
		},
		Features: raw,
	}, nil
}

// styleFeed runs the real parse and style path over the fixture features.
func styleFeed(features []json.RawMessage) ([]domain.StyledQuake, int) {
	styler := domain.DefaultStyler()
	styled := make([]domain.StyledQuake, 0, len(features))
	skipped := 0
	for _, raw := range features {
		q, err := domain.ParseQuake(raw)
		if err != nil {
			skipped++
			continue
		}
		sq, err := domain.StyleQuake(styler, q)
		if err != nil {
			skipped++
			continue
		}
		styled = append(styled, sq)
	}
	return styled, skipped
}

// epochMillis converts a USGS ISO-8601 timestamp to Unix milliseconds.
func epochMillis(s string) any {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return t.UnixMilli()
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(styled []domain.StyledQuake) {
	counts := map[string]int{}
	for _, sq := range styled {
		counts[sq.Style.FillColor]++
	}

	fmt.Println("\nMarkers per legend bucket:")
	for _, e := range domain.DefaultStyler().Legend() {
		fmt.Printf("  %-6s %s  %d\n", e.Label, e.SwatchColor, counts[e.SwatchColor])
	}
}
