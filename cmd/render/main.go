// Command render runs a single fetch-style-render pass and writes the map
// page as a static HTML file, optionally with the styled earthquake GeoJSON
// alongside it. Feed URLs and styling come from the same environment as the
// service; flags override the feed URLs.
//
// Usage:
//
//	go run ./cmd/render -out quakes.html -geojson quakes.geojson
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/quake-map-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-map-service/internal/config"
	"github.com/couchcryptid/quake-map-service/internal/domain"
	"github.com/couchcryptid/quake-map-service/internal/mapview"
	"github.com/couchcryptid/quake-map-service/internal/observability"
	"github.com/couchcryptid/quake-map-service/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		slog.Error("render failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	out := flag.String("out", "quakes.html", "output path for the HTML map page")
	geoOut := flag.String("geojson", "", "optional output path for the styled earthquake GeoJSON")
	quakeURL := flag.String("quake-url", "", "override QUAKE_FEED_URL")
	platesURL := flag.String("plates-url", "", "override PLATES_FEED_URL (use \"none\" to skip fault lines)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *quakeURL != "" {
		cfg.QuakeFeedURL = *quakeURL
	}
	switch *platesURL {
	case "":
	case "none":
		cfg.PlatesFeedURL = ""
	default:
		cfg.PlatesFeedURL = *platesURL
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics := observability.NewMetricsForTesting()

	styler, err := domain.NewStyler(cfg.Breakpoints, cfg.MarkerScale)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feeds := usgs.NewClient(cfg.QuakeFeedURL, cfg.PlatesFeedURL, cfg.FeedTimeout, metrics, logger)
	p := pipeline.New(feeds, pipeline.NewTransformer(styler, logger), nil, logger, metrics)

	snap, err := p.Run(ctx)
	if err != nil {
		return err
	}

	// A static page cannot reach the tile proxy, so it always uses OpenStreetMap.
	view := mapview.Options{
		Center:     domain.Geo{Lat: cfg.MapCenterLat, Lon: cfg.MapCenterLon},
		Zoom:       cfg.MapZoom,
		BaseLayers: mapview.BaseLayers(false, nil),
	}
	doc, err := mapview.NewDocument(snap, view)
	if err != nil {
		return err
	}

	var page bytes.Buffer
	if err := mapview.Render(&page, doc); err != nil {
		return err
	}
	if err := os.WriteFile(*out, page.Bytes(), 0o644); err != nil { //nolint:gosec // public map page
		return fmt.Errorf("write %s: %w", *out, err)
	}
	logger.Info("map page written", "path", *out, "quakes", len(snap.Quakes), "skipped", snap.Skipped, "plates", len(snap.Plates))

	if *geoOut != "" {
		data, err := json.MarshalIndent(doc.Earthquakes, "", "  ")
		if err != nil {
			return fmt.Errorf("encode geojson: %w", err)
		}
		if err := os.WriteFile(*geoOut, data, 0o644); err != nil { //nolint:gosec // public feed data
			return fmt.Errorf("write %s: %w", *geoOut, err)
		}
		logger.Info("geojson written", "path", *geoOut)
	}
	return nil
}
