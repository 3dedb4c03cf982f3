// Package usgs fetches GeoJSON FeatureCollections from public feeds: the
// USGS earthquake summary and the PB2002 plate boundary model.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-map-service/internal/domain"
	"github.com/couchcryptid/quake-map-service/internal/observability"
)

// Feed names used as metric labels.
const (
	FeedEarthquakes = "earthquakes"
	FeedPlates      = "plates"
)

// maxErrorBody bounds how much of a failed response body is echoed into errors.
const maxErrorBody = 512

// Client fetches the earthquake and plate boundary feeds over HTTP.
type Client struct {
	quakeURL   string
	platesURL  string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a feed client. Requests are unauthenticated and bounded by timeout.
func NewClient(quakeURL, platesURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		quakeURL:  quakeURL,
		platesURL: platesURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// FetchQuakes downloads the earthquake summary feed.
func (c *Client) FetchQuakes(ctx context.Context) (domain.RawFeed, error) {
	return c.fetch(ctx, FeedEarthquakes, c.quakeURL)
}

// FetchPlates downloads the plate boundary feed. An empty plates URL
// disables the overlay and yields an empty feed.
func (c *Client) FetchPlates(ctx context.Context) (domain.RawFeed, error) {
	if c.platesURL == "" {
		return domain.RawFeed{}, nil
	}
	return c.fetch(ctx, FeedPlates, c.platesURL)
}

func (c *Client) fetch(ctx context.Context, feed, url string) (domain.RawFeed, error) {
	start := time.Now()
	raw, err := c.doRequest(ctx, feed, url)
	c.metrics.FeedDuration.WithLabelValues(feed).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.FeedRequests.WithLabelValues(feed, "error").Inc()
		c.logger.Warn("feed fetch failed", "feed", feed, "url", url, "error", err)
		return domain.RawFeed{}, err
	}

	c.metrics.FeedRequests.WithLabelValues(feed, "success").Inc()
	c.logger.Debug("feed fetched", "feed", feed, "features", len(raw.Features))
	return raw, nil
}

func (c *Client) doRequest(ctx context.Context, feed, url string) (domain.RawFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.RawFeed{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RawFeed{}, fmt.Errorf("%s feed request: %w", feed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.RawFeed{}, fmt.Errorf("%s feed error: status %d: %s", feed, resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return domain.RawFeed{}, fmt.Errorf("decode %s feed: %w", feed, err)
	}
	if fc.Type != "FeatureCollection" {
		return domain.RawFeed{}, fmt.Errorf("decode %s feed: expected FeatureCollection, got %q", feed, fc.Type)
	}

	raw := domain.RawFeed{
		URL:       url,
		Title:     fc.Metadata.Title,
		FetchedAt: domain.Now(),
		Features:  fc.Features,
	}
	if fc.Metadata.Generated > 0 {
		raw.Generated = time.UnixMilli(fc.Metadata.Generated).UTC()
	}
	return raw, nil
}

// GeoJSON envelope. Features stay raw so each is parsed independently.

type featureCollection struct {
	Type     string            `json:"type"`
	Metadata metadata          `json:"metadata"`
	Features []json.RawMessage `json:"features"`
}

type metadata struct {
	Generated int64  `json:"generated"`
	Title     string `json:"title"`
	Count     int    `json:"count"`
}
