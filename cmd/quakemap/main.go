package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/quake-map-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/quake-map-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-map-service/internal/adapter/mapbox"
	"github.com/couchcryptid/quake-map-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-map-service/internal/config"
	"github.com/couchcryptid/quake-map-service/internal/domain"
	"github.com/couchcryptid/quake-map-service/internal/mapview"
	"github.com/couchcryptid/quake-map-service/internal/observability"
	"github.com/couchcryptid/quake-map-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()

	styler, err := domain.NewStyler(cfg.Breakpoints, cfg.MarkerScale)
	if err != nil {
		logger.Error("invalid marker style", "error", err)
		os.Exit(1)
	}

	// Base map tiles (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var tiles httpadapter.TileSource
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, cfg.MapboxRateLimit, metrics, logger)
		tiles = mapbox.NewCachedTileSource(client, cfg.MapboxCacheSize, metrics)
		metrics.TileProxyEnabled.Set(1)
		logger.Info("mapbox tile proxy enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout, "rate_limit", cfg.MapboxRateLimit)
	} else {
		logger.Info("mapbox tile proxy disabled, using OpenStreetMap")
	}

	// Styled marker publishing (feature-flagged via KAFKA_ENABLED).
	var loader pipeline.BatchLoader
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loader = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	feeds := usgs.NewClient(cfg.QuakeFeedURL, cfg.PlatesFeedURL, cfg.FeedTimeout, metrics, logger)
	transformer := pipeline.NewTransformer(styler, logger)
	p := pipeline.New(feeds, transformer, loader, logger, metrics)

	view := mapview.Options{
		Center:     domain.Geo{Lat: cfg.MapCenterLat, Lon: cfg.MapCenterLon},
		Zoom:       cfg.MapZoom,
		BaseLayers: mapview.BaseLayers(cfg.MapboxEnabled, mapview.MapboxBaseStyles),
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, tiles, view, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Warm up with one pass so /readyz reflects feed reachability.
	go func() {
		if _, err := p.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("initial render pass failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
