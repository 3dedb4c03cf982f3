package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

const (
	defaultQuakeFeedURL  = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"
	defaultPlatesFeedURL = "https://raw.githubusercontent.com/fraxen/tectonicplates/master/GeoJSON/PB2002_boundaries.json"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Feed sources.
	QuakeFeedURL  string
	PlatesFeedURL string
	FeedTimeout   time.Duration

	// Marker styling. Breakpoints come from StyleFile when set.
	MarkerScale float64
	StyleFile   string
	Breakpoints domain.BreakpointTable

	// Initial map view.
	MapCenterLat float64
	MapCenterLon float64
	MapZoom      int

	// Mapbox base layer configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
	MapboxRateLimit float64

	// Optional Kafka sink for styled markers.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	feedTimeout, err := parsePositiveDuration("FEED_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	markerScale, err := parseFloat("MARKER_SCALE", domain.DefaultRadiusScale)
	if err != nil {
		return nil, err
	}
	if markerScale <= 0 {
		return nil, errors.New("invalid MARKER_SCALE: must be positive")
	}

	centerLat, err := parseFloat("MAP_CENTER_LAT", 37.09)
	if err != nil {
		return nil, err
	}
	centerLon, err := parseFloat("MAP_CENTER_LON", -95.71)
	if err != nil {
		return nil, err
	}
	zoom, err := parseInt("MAP_ZOOM", 3)
	if err != nil {
		return nil, err
	}

	rateLimit, err := parseFloat("MAPBOX_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	styleFile := os.Getenv("STYLE_FILE")
	breakpoints := domain.DefaultBreakpoints()
	if styleFile != "" {
		breakpoints, err = LoadStyleFile(styleFile)
		if err != nil {
			return nil, fmt.Errorf("invalid STYLE_FILE: %w", err)
		}
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		QuakeFeedURL:  sharedcfg.EnvOrDefault("QUAKE_FEED_URL", defaultQuakeFeedURL),
		PlatesFeedURL: sharedcfg.EnvOrDefault("PLATES_FEED_URL", defaultPlatesFeedURL),
		FeedTimeout:   feedTimeout,

		MarkerScale: markerScale,
		StyleFile:   styleFile,
		Breakpoints: breakpoints,

		MapCenterLat: centerLat,
		MapCenterLon: centerLon,
		MapZoom:      zoom,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
		MapboxRateLimit: rateLimit,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "styled-earthquakes"),
	}

	if cfg.MapZoom < 0 || cfg.MapZoom > 22 {
		return nil, errors.New("invalid MAP_ZOOM: must be between 0 and 22")
	}
	if cfg.MapCenterLat < -90 || cfg.MapCenterLat > 90 {
		return nil, errors.New("invalid MAP_CENTER_LAT: must be between -90 and 90")
	}
	if cfg.MapCenterLon < -180 || cfg.MapCenterLon > 180 {
		return nil, errors.New("invalid MAP_CENTER_LON: must be between -180 and 180")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.MapboxRateLimit <= 0 {
		return nil, errors.New("invalid MAPBOX_RATE_LIMIT: must be positive")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s: must be a finite number", key)
	}
	return v, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
