// Package mapview assembles a render Snapshot into the map document served
// to browsers: GeoJSON overlays, base layers, and the magnitude legend.
package mapview

import (
	"fmt"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

// Overlay names as shown in the layer control.
const (
	OverlayEarthquakes = "Earthquakes"
	OverlayFaultLines  = "Fault lines"
)

// FaultLineColor is the stroke color of plate boundary lines.
const FaultLineColor = "orange"

const (
	osmTileURL         = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	osmAttribution     = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
	mapboxAttribution  = `Map data &copy; <a href="https://www.openstreetmap.org/">OpenStreetMap</a> contributors, Imagery &copy; <a href="https://www.mapbox.com/">Mapbox</a>`
	defaultMaxZoom     = 18
	defaultCenterLat   = 37.09
	defaultCenterLon   = -95.71
	defaultZoom        = 3
	tileProxyURLFormat = "/tiles/%s/{z}/{x}/{y}.png"
)

// TileLayer is one selectable base map.
type TileLayer struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"maxZoom"`
	Default     bool   `json:"default,omitempty"`
}

// BaseStyle names a base map and the tile proxy style key that serves it.
type BaseStyle struct {
	Name  string
	Style string
}

// MapboxBaseStyles are the proxied base maps, dark first.
var MapboxBaseStyles = []BaseStyle{
	{Name: "Dark Map", Style: "dark"},
	{Name: "Satellite Map", Style: "satellite"},
	{Name: "Greyscale Map", Style: "light"},
}

// BaseLayers returns the proxied Mapbox base maps when enabled, otherwise a
// single OpenStreetMap layer. The first layer is shown by default.
func BaseLayers(mapboxEnabled bool, styles []BaseStyle) []TileLayer {
	if !mapboxEnabled || len(styles) == 0 {
		return []TileLayer{{
			Name:        "Street Map",
			URL:         osmTileURL,
			Attribution: osmAttribution,
			MaxZoom:     defaultMaxZoom,
			Default:     true,
		}}
	}

	layers := make([]TileLayer, len(styles))
	for i, s := range styles {
		layers[i] = TileLayer{
			Name:        s.Name,
			URL:         fmt.Sprintf(tileProxyURLFormat, s.Style),
			Attribution: mapboxAttribution,
			MaxZoom:     defaultMaxZoom,
			Default:     i == 0,
		}
	}
	return layers
}

// Options controls the initial view and available base maps.
type Options struct {
	Center     domain.Geo
	Zoom       int
	BaseLayers []TileLayer
}

// DefaultOptions centers on the contiguous United States over OpenStreetMap.
func DefaultOptions() Options {
	return Options{
		Center:     domain.Geo{Lat: defaultCenterLat, Lon: defaultCenterLon},
		Zoom:       defaultZoom,
		BaseLayers: BaseLayers(false, nil),
	}
}

// LineStyle is the Leaflet path style applied to fault lines.
type LineStyle struct {
	Color  string `json:"color"`
	Weight int    `json:"weight"`
}

// Document is everything the map page needs for one render pass.
type Document struct {
	RenderID       string                     `json:"render_id"`
	GeneratedAt    time.Time                  `json:"generated_at"`
	Title          string                     `json:"title"`
	Center         domain.Geo                 `json:"center"`
	Zoom           int                        `json:"zoom"`
	BaseLayers     []TileLayer                `json:"base_layers"`
	Overlays       []string                   `json:"overlays"`
	Earthquakes    *geojson.FeatureCollection `json:"earthquakes"`
	FaultLines     *geojson.FeatureCollection `json:"fault_lines"`
	FaultLineStyle LineStyle                  `json:"fault_line_style"`
	Legend         []domain.LegendEntry       `json:"legend"`
	Skipped        int                        `json:"skipped"`
}

// NewDocument converts a snapshot into a map document.
func NewDocument(snap domain.Snapshot, opts Options) (Document, error) {
	if len(opts.BaseLayers) == 0 {
		return Document{}, fmt.Errorf("build map document: no base layers")
	}

	title := snap.FeedTitle
	if title == "" {
		title = "Earthquakes"
	}

	return Document{
		RenderID:       snap.RenderID,
		GeneratedAt:    snap.GeneratedAt,
		Title:          title,
		Center:         opts.Center,
		Zoom:           opts.Zoom,
		BaseLayers:     opts.BaseLayers,
		Overlays:       []string{OverlayEarthquakes, OverlayFaultLines},
		Earthquakes:    QuakeCollection(snap.Quakes),
		FaultLines:     PlateCollection(snap.Plates),
		FaultLineStyle: LineStyle{Color: FaultLineColor, Weight: 2},
		Legend:         snap.Legend,
		Skipped:        snap.Skipped,
	}, nil
}

// QuakeCollection encodes styled quakes as GeoJSON points whose properties
// carry the marker style and popup markup.
func QuakeCollection(quakes []domain.StyledQuake) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(quakes))}
	for i := range quakes {
		q := &quakes[i]
		pt := geom.NewPoint(geom.XYZ).MustSetCoords(geom.Coord{q.Geo.Lon, q.Geo.Lat, q.DepthKm})
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       q.ID,
			Geometry: pt,
			Properties: map[string]any{
				"mag":   q.Magnitude,
				"place": q.Place,
				"time":  q.Time.UnixMilli(),
				"url":   q.URL,
				"style": q.Style,
				"popup": q.Popup,
			},
		})
	}
	return fc
}

// PlateCollection encodes plate boundaries as GeoJSON line features.
func PlateCollection(plates []domain.PlateBoundary) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(plates))}
	for _, p := range plates {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: p.Geometry,
			Properties: map[string]any{
				"Name":   p.Name,
				"PlateA": p.PlateA,
				"PlateB": p.PlateB,
			},
		})
	}
	return fc
}
