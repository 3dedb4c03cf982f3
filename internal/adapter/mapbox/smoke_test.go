//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-map-service/internal/observability"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(token, 10*time.Second, 5, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_FetchTile_AllStyles(t *testing.T) {
	c := smokeClient(t)

	for style := range styleIDs {
		t.Run(style, func(t *testing.T) {
			tile, err := c.FetchTile(context.Background(), style, 3, 1, 3)
			require.NoError(t, err)
			assert.NotEmpty(t, tile.Data)
			assert.Contains(t, []string{"image/png", "image/jpeg", "image/webp"}, http.DetectContentType(tile.Data))
		})
	}
}

func TestSmoke_FetchTile_WorldTile(t *testing.T) {
	c := smokeClient(t)

	tile, err := c.FetchTile(context.Background(), "dark", 0, 0, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, tile.ContentType)
}

func TestSmoke_CachedTileSource(t *testing.T) {
	c := smokeClient(t)
	cached := NewCachedTileSource(c, 10, observability.NewMetricsForTesting())

	// First call: cache miss, real API call.
	t1, err := cached.FetchTile(context.Background(), "light", 2, 1, 1)
	require.NoError(t, err)

	// Second call: cache hit, no API call.
	t2, err := cached.FetchTile(context.Background(), "light", 2, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, t1, t2)
}
