package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-map-service/internal/adapter/mapbox"
	"github.com/couchcryptid/quake-map-service/internal/domain"
	"github.com/couchcryptid/quake-map-service/internal/mapview"
)

const (
	contentTypeGeoJSON = "application/geo+json"
	contentTypeHTML    = "text/html; charset=utf-8"
	headerRenderID     = "X-Render-ID"
	tileCacheControl   = "public, max-age=86400"
)

// Renderer runs render passes and reports the active legend.
type Renderer interface {
	sharedobs.ReadinessChecker
	Run(ctx context.Context) (domain.Snapshot, error)
	Legend() []domain.LegendEntry
}

// TileSource serves base map tiles. A nil TileSource disables /tiles.
type TileSource interface {
	FetchTile(ctx context.Context, style string, z, x, y int) (mapbox.Tile, error)
}

// Server exposes the map page, the JSON APIs, the tile proxy, and the
// health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	renderer   Renderer
	tiles      TileSource
	view       mapview.Options
	logger     *slog.Logger
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(addr string, renderer Renderer, tiles TileSource, view mapview.Options, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		renderer: renderer,
		tiles:    tiles,
		view:     view,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(renderer))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /{$}", s.handlePage)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/earthquakes", s.handleEarthquakes)
	api.HandleFunc("GET /api/plates", s.handlePlates)
	api.HandleFunc("GET /api/legend", s.handleLegend)
	api.HandleFunc("GET /api/map", s.handleMap)
	mux.Handle("/api/", cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{headerRenderID},
		MaxAge:         300,
	})(api))

	if tiles != nil {
		mux.HandleFunc("GET /tiles/{style}/{z}/{x}/{y}", s.handleTile)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr, "tile_proxy", s.tiles != nil)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.render(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := mapview.Render(&buf, doc); err != nil {
		s.logger.Error("render map page failed", "error", err, "render_id", doc.RenderID)
		http.Error(w, "failed to render map", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set(headerRenderID, doc.RenderID)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleEarthquakes(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.render(w, r)
	if !ok {
		return
	}
	s.writeGeoJSON(w, doc.RenderID, doc.Earthquakes)
}

func (s *Server) handlePlates(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.render(w, r)
	if !ok {
		return
	}
	s.writeGeoJSON(w, doc.RenderID, doc.FaultLines)
}

func (s *Server) handleLegend(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.renderer.Legend())
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.render(w, r)
	if !ok {
		return
	}
	w.Header().Set(headerRenderID, doc.RenderID)
	sharedobs.WriteJSON(w, http.StatusOK, doc)
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	z, errZ := strconv.Atoi(r.PathValue("z"))
	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(strings.TrimSuffix(r.PathValue("y"), ".png"))
	if errZ != nil || errX != nil || errY != nil {
		http.Error(w, "invalid tile coordinates", http.StatusBadRequest)
		return
	}

	tile, err := s.tiles.FetchTile(r.Context(), r.PathValue("style"), z, x, y)
	switch {
	case errors.Is(err, mapbox.ErrUnknownStyle), errors.Is(err, mapbox.ErrTileNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, mapbox.ErrInvalidTile):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		if r.Context().Err() == nil {
			http.Error(w, "tile upstream unavailable", http.StatusBadGateway)
		}
		return
	}

	w.Header().Set("Content-Type", tile.ContentType)
	w.Header().Set("Cache-Control", tileCacheControl)
	_, _ = w.Write(tile.Data)
}

// render runs one pass and builds the map document. On failure it writes the
// error response and returns false.
func (s *Server) render(w http.ResponseWriter, r *http.Request) (mapview.Document, bool) {
	snap, err := s.renderer.Run(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			s.logger.Debug("client went away during render", "path", r.URL.Path)
			return mapview.Document{}, false
		}
		s.logger.Error("render pass failed", "error", err, "path", r.URL.Path)
		sharedobs.WriteJSON(w, http.StatusBadGateway, map[string]string{
			"error": "earthquake feed unavailable",
		})
		return mapview.Document{}, false
	}

	doc, err := mapview.NewDocument(snap, s.view)
	if err != nil {
		s.logger.Error("build map document failed", "error", err, "render_id", snap.RenderID)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to build map document",
		})
		return mapview.Document{}, false
	}
	return doc, true
}

func (s *Server) writeGeoJSON(w http.ResponseWriter, renderID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode geojson failed", "error", err, "render_id", renderID)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to encode geojson",
		})
		return
	}
	w.Header().Set("Content-Type", contentTypeGeoJSON)
	w.Header().Set(headerRenderID, renderID)
	_, _ = w.Write(data)
}
