package mapbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/quake-map-service/internal/observability"
)

const (
	maxZoom      = 22
	tileSize     = 256
	maxTileBytes = 4 << 20
)

var (
	// ErrUnknownStyle is returned for a style key with no Mapbox style behind it.
	ErrUnknownStyle = errors.New("unknown tile style")
	// ErrInvalidTile is returned for tile coordinates outside the zoom level's grid.
	ErrInvalidTile = errors.New("invalid tile coordinates")
	// ErrTileNotFound is returned when Mapbox has no tile at the coordinates.
	ErrTileNotFound = errors.New("tile not found")
)

// styleIDs maps the proxy's style keys to Mapbox style IDs.
var styleIDs = map[string]string{
	"dark":      "mapbox/dark-v11",
	"satellite": "mapbox/satellite-v9",
	"light":     "mapbox/light-v11",
}

// StyleID resolves a proxy style key to its Mapbox style ID.
func StyleID(style string) (string, bool) {
	id, ok := styleIDs[style]
	return id, ok
}

// Tile is one raster map tile.
type Tile struct {
	Data        []byte
	ContentType string
}

// TileSource fetches raster tiles by style key and slippy-map coordinates.
type TileSource interface {
	FetchTile(ctx context.Context, style string, z, x, y int) (Tile, error)
}

// Client fetches raster tiles from the Mapbox Static Tiles API. The access
// token stays server-side; browsers only see the proxy path.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox tile client limited to ratePerSec upstream requests.
func NewClient(token string, timeout time.Duration, ratePerSec float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com",
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		metrics: metrics,
		logger:  logger,
	}
}

// FetchTile downloads one 256px raster tile.
func (c *Client) FetchTile(ctx context.Context, style string, z, x, y int) (Tile, error) {
	styleID, ok := StyleID(style)
	if !ok {
		return Tile{}, fmt.Errorf("%w: %q", ErrUnknownStyle, style)
	}
	if err := validateTile(z, x, y); err != nil {
		return Tile{}, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.TileRequests.WithLabelValues("rate_limited").Inc()
		return Tile{}, fmt.Errorf("tile rate limit: %w", err)
	}

	u := fmt.Sprintf("%s/styles/v1/%s/tiles/%d/%d/%d/%d?%s",
		c.baseURL, styleID, tileSize, z, x, y, url.Values{"access_token": {c.token}}.Encode())

	start := time.Now()
	tile, err := c.doRequest(ctx, u)
	c.metrics.TileAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrTileNotFound):
		c.metrics.TileRequests.WithLabelValues("not_found").Inc()
		return Tile{}, err
	case err != nil:
		c.metrics.TileRequests.WithLabelValues("error").Inc()
		c.logger.Warn("mapbox tile request failed", "style", style, "z", z, "x", x, "y", y, "error", err)
		return Tile{}, err
	}

	c.metrics.TileRequests.WithLabelValues("success").Inc()
	return tile, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (Tile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return Tile{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The token is a query parameter; never echo the URL.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return Tile{}, fmt.Errorf("tile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Tile{}, ErrTileNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Tile{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return Tile{}, fmt.Errorf("read tile: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return Tile{Data: data, ContentType: contentType}, nil
}

func validateTile(z, x, y int) error {
	if z < 0 || z > maxZoom {
		return fmt.Errorf("%w: zoom %d", ErrInvalidTile, z)
	}
	n := 1 << z
	if x < 0 || x >= n || y < 0 || y >= n {
		return fmt.Errorf("%w: %d/%d/%d", ErrInvalidTile, z, x, y)
	}
	return nil
}
