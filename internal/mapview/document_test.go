package mapview

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

func testSnapshot(t *testing.T) domain.Snapshot {
	t.Helper()
	styler := domain.DefaultStyler()

	quakes := []domain.Quake{
		{ID: "us1", Magnitude: 4.5, Place: "Somewhere <Ridge>", Time: time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC), Geo: domain.Geo{Lat: 35.7, Lon: -117.5}, DepthKm: 8.2},
		{ID: "nc2", Magnitude: -1.2, Place: "The Geysers", Geo: domain.Geo{Lat: 38.79, Lon: -122.77}, DepthKm: 1.9},
	}
	styled := make([]domain.StyledQuake, len(quakes))
	for i, q := range quakes {
		sq, err := domain.StyleQuake(styler, q)
		require.NoError(t, err)
		styled[i] = sq
	}

	line := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{-0.4, -54.8}, {0.1, -54.6}})

	return domain.Snapshot{
		RenderID:    "render-1",
		GeneratedAt: time.Date(2024, 4, 26, 16, 0, 0, 0, time.UTC),
		FeedTitle:   "USGS All Earthquakes, Past Day",
		Quakes:      styled,
		Plates:      []domain.PlateBoundary{{Name: "AF-AN", PlateA: "AF", PlateB: "AN", Geometry: line}},
		Skipped:     1,
		Legend:      styler.Legend(),
	}
}

func TestBaseLayers_Mapbox(t *testing.T) {
	layers := BaseLayers(true, MapboxBaseStyles)
	require.Len(t, layers, 3)

	names := []string{layers[0].Name, layers[1].Name, layers[2].Name}
	if diff := cmp.Diff([]string{"Dark Map", "Satellite Map", "Greyscale Map"}, names); diff != "" {
		t.Errorf("base layer names mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, layers[0].Default)
	assert.False(t, layers[1].Default)
	assert.False(t, layers[2].Default)
	assert.Equal(t, "/tiles/dark/{z}/{x}/{y}.png", layers[0].URL)
	assert.Equal(t, "/tiles/light/{z}/{x}/{y}.png", layers[2].URL)
	assert.NotContains(t, layers[0].URL, "access_token", "token never reaches the browser")
}

func TestBaseLayers_OpenStreetMapFallback(t *testing.T) {
	for _, layers := range [][]TileLayer{BaseLayers(false, MapboxBaseStyles), BaseLayers(true, nil)} {
		require.Len(t, layers, 1)
		assert.Equal(t, "Street Map", layers[0].Name)
		assert.True(t, layers[0].Default)
		assert.Contains(t, layers[0].URL, "openstreetmap.org")
	}
}

func TestNewDocument(t *testing.T) {
	snap := testSnapshot(t)
	doc, err := NewDocument(snap, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "render-1", doc.RenderID)
	assert.Equal(t, "USGS All Earthquakes, Past Day", doc.Title)
	assert.InDelta(t, 37.09, doc.Center.Lat, 1e-9)
	assert.InDelta(t, -95.71, doc.Center.Lon, 1e-9)
	assert.Equal(t, 3, doc.Zoom)
	assert.Equal(t, []string{"Earthquakes", "Fault lines"}, doc.Overlays)
	assert.Equal(t, "orange", doc.FaultLineStyle.Color)
	assert.Equal(t, 1, doc.Skipped)
	assert.Len(t, doc.Earthquakes.Features, 2)
	assert.Len(t, doc.FaultLines.Features, 1)
	assert.Equal(t, snap.Legend, doc.Legend)
}

func TestNewDocument_DefaultTitle(t *testing.T) {
	doc, err := NewDocument(domain.Snapshot{}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Earthquakes", doc.Title)
}

func TestNewDocument_NoBaseLayers(t *testing.T) {
	_, err := NewDocument(domain.Snapshot{}, Options{})
	require.Error(t, err)
}

func TestQuakeCollection_GeoJSON(t *testing.T) {
	snap := testSnapshot(t)
	data, err := json.Marshal(QuakeCollection(snap.Quakes))
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties struct {
				Mag   float64            `json:"mag"`
				Popup string             `json:"popup"`
				Style domain.MarkerStyle `json:"style"`
			} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	assert.Equal(t, "us1", first.ID)
	assert.Equal(t, "Point", first.Geometry.Type)
	assert.Equal(t, []float64{-117.5, 35.7, 8.2}, first.Geometry.Coordinates)
	assert.Equal(t, "#e7552c", first.Properties.Style.FillColor)
	assert.InDelta(t, 22.5, first.Properties.Style.Radius, 1e-9)
	assert.Equal(t, "white", first.Properties.Style.Color)
	assert.Contains(t, first.Properties.Popup, "Somewhere &lt;Ridge&gt;")

	second := fc.Features[1]
	assert.Equal(t, "#00ff00", second.Properties.Style.FillColor)
	assert.Zero(t, second.Properties.Style.Radius)
}

func TestQuakeCollection_EmptyEncodesEmptyArray(t *testing.T) {
	data, err := json.Marshal(QuakeCollection(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}

func TestPlateCollection_GeoJSON(t *testing.T) {
	snap := testSnapshot(t)
	data, err := json.Marshal(PlateCollection(snap.Plates))
	require.NoError(t, err)

	assert.Contains(t, string(data), `"LineString"`)
	assert.Contains(t, string(data), `"Name":"AF-AN"`)
	assert.NotContains(t, string(data), `"id"`)
}
