package domain

import (
	"encoding/json"
	"time"

	"github.com/twpayne/go-geom"
)

// RawFeed is a fetched GeoJSON FeatureCollection with its features left
// undecoded, so one malformed record cannot poison the whole feed.
type RawFeed struct {
	URL       string
	Title     string
	Generated time.Time
	FetchedAt time.Time
	Features  []json.RawMessage
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Quake is a typed earthquake record parsed from the USGS summary feed.
type Quake struct {
	ID            string    `json:"id"`
	Magnitude     float64   `json:"mag"`
	MagnitudeType string    `json:"mag_type,omitempty"`
	Place         string    `json:"place"`
	Title         string    `json:"title,omitempty"`
	Time          time.Time `json:"time"`
	Updated       time.Time `json:"updated,omitempty"`
	URL           string    `json:"url,omitempty"`
	Geo           Geo       `json:"geo"`
	DepthKm       float64   `json:"depth_km"`
	Tsunami       bool      `json:"tsunami,omitempty"`
	Status        string    `json:"status,omitempty"`
	EventType     string    `json:"type,omitempty"`
}

// StyledQuake is a quake with its resolved marker style and popup markup.
type StyledQuake struct {
	Quake
	Style MarkerStyle `json:"style"`
	Popup string      `json:"popup"`
}

// PlateBoundary is one segment of the PB2002 plate boundary model.
type PlateBoundary struct {
	Name     string
	PlateA   string
	PlateB   string
	Geometry geom.T
}

// Snapshot is the result of one render pass.
type Snapshot struct {
	RenderID    string
	GeneratedAt time.Time
	FeedTitle   string
	Quakes      []StyledQuake
	Plates      []PlateBoundary
	Skipped     int
	Legend      []LegendEntry
}
