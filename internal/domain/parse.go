package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ParseQuake decodes one USGS GeoJSON feature into a Quake. The feature must
// carry a Point geometry and a numeric "mag" property; anything else is
// rejected with an *InvalidInputError so the record can be skipped.
func ParseQuake(raw json.RawMessage) (Quake, error) {
	f, err := decodeFeature(raw)
	if err != nil {
		return Quake{}, err
	}

	pt, ok := f.Geometry.(*geom.Point)
	if !ok {
		return Quake{}, invalidInput("geometry", "expected Point, got %T", f.Geometry)
	}

	mag, err := magnitudeProperty(f.Properties)
	if err != nil {
		return Quake{}, err
	}

	q := Quake{
		ID:            f.ID,
		Magnitude:     mag,
		MagnitudeType: stringProperty(f.Properties, "magType"),
		Place:         stringProperty(f.Properties, "place"),
		Title:         stringProperty(f.Properties, "title"),
		Time:          millisProperty(f.Properties, "time"),
		Updated:       millisProperty(f.Properties, "updated"),
		URL:           stringProperty(f.Properties, "url"),
		Geo:           Geo{Lat: pt.Y(), Lon: pt.X()},
		Tsunami:       numberProperty(f.Properties, "tsunami") != 0,
		Status:        stringProperty(f.Properties, "status"),
		EventType:     stringProperty(f.Properties, "type"),
		DepthKm:       pt.Z(),
	}
	return q, nil
}

// ParsePlate decodes one PB2002 boundary feature. Boundaries are LineString
// or MultiLineString geometries.
func ParsePlate(raw json.RawMessage) (PlateBoundary, error) {
	f, err := decodeFeature(raw)
	if err != nil {
		return PlateBoundary{}, err
	}

	switch f.Geometry.(type) {
	case *geom.LineString, *geom.MultiLineString:
	default:
		return PlateBoundary{}, invalidInput("geometry", "expected LineString or MultiLineString, got %T", f.Geometry)
	}

	return PlateBoundary{
		Name:     stringProperty(f.Properties, "Name"),
		PlateA:   stringProperty(f.Properties, "PlateA"),
		PlateB:   stringProperty(f.Properties, "PlateB"),
		Geometry: f.Geometry,
	}, nil
}

// decodeFeature unmarshals a GeoJSON feature, rejecting null geometries up
// front so callers always see a concrete geom.T.
func decodeFeature(raw json.RawMessage) (*geojson.Feature, error) {
	var envelope struct {
		Geometry json.RawMessage `json:"geometry"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("parse feature: %w", err)
	}
	if len(envelope.Geometry) == 0 || bytes.Equal(envelope.Geometry, []byte("null")) {
		return nil, invalidInput("geometry", "missing")
	}

	var f geojson.Feature
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse feature: %w", err)
	}
	return &f, nil
}

func magnitudeProperty(props map[string]any) (float64, error) {
	v, ok := props["mag"]
	if !ok || v == nil {
		return 0, invalidInput("magnitude", "missing")
	}
	mag, ok := v.(float64)
	if !ok {
		return 0, invalidInput("magnitude", "%v is not a number", v)
	}
	if math.IsNaN(mag) || math.IsInf(mag, 0) {
		return 0, invalidInput("magnitude", "%g is not a finite number", mag)
	}
	return mag, nil
}

func stringProperty(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return strings.TrimSpace(s)
}

func numberProperty(props map[string]any, key string) float64 {
	v, _ := props[key].(float64)
	return v
}

// millisProperty reads a Unix epoch in milliseconds, the USGS time encoding.
func millisProperty(props map[string]any, key string) time.Time {
	v, ok := props[key].(float64)
	if !ok {
		return time.Time{}
	}
	return time.UnixMilli(int64(v)).UTC()
}
