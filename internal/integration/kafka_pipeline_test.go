//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/quake-map-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-map-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-map-service/internal/config"
	"github.com/couchcryptid/quake-map-service/internal/domain"
	"github.com/couchcryptid/quake-map-service/internal/observability"
	"github.com/couchcryptid/quake-map-service/internal/pipeline"
)

const testTopic = "test-styled-earthquakes"

const quakeFeed = `{
  "type": "FeatureCollection",
  "metadata": {"generated": 1714123800000, "title": "USGS All Earthquakes, Past Day"},
  "features": [
    {"type":"Feature","id":"ci40000001","properties":{"mag":4.5,"place":"10 km SSW of Ridgecrest, CA","time":1714123800000},"geometry":{"type":"Point","coordinates":[-117.7,35.5,8.2]}},
    {"type":"Feature","id":"nc70000002","properties":{"mag":-0.4,"place":"3 km NW of The Geysers, CA","time":1714123900000},"geometry":{"type":"Point","coordinates":[-122.8,38.8,1.9]}},
    {"type":"Feature","id":"ak0000003","properties":{"mag":null,"place":"Unknown"},"geometry":{"type":"Point","coordinates":[-150.1,61.2,30.0]}}
  ]
}`

const platesFeed = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"Name":"NA-PA","PlateA":"NA","PlateB":"PA"},"geometry":{"type":"LineString","coordinates":[[-124.1,40.3],[-122.5,37.7]]}}
]}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/quakes.geojson", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(quakeFeed))
	})
	mux.HandleFunc("/plates.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(platesFeed))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type publishedMarker struct {
	Key     string
	Headers map[string]string
	Body    struct {
		RenderID string             `json:"render_id"`
		ID       string             `json:"id"`
		Mag      float64            `json:"mag"`
		Style    domain.MarkerStyle `json:"style"`
		Popup    string             `json:"popup"`
	}
}

func readMarker(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMarker {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from marker topic")

	pm := publishedMarker{Key: string(msg.Key), Headers: make(map[string]string, len(msg.Headers))}
	for _, h := range msg.Headers {
		pm.Headers[h.Key] = string(h.Value)
	}
	require.NoError(t, json.Unmarshal(msg.Value, &pm.Body), "unmarshal marker")
	return pm
}

// TestRenderPassPublishesMarkers runs one full render pass against a local
// feed server and verifies the styled markers arrive on the Kafka topic.
func TestRenderPassPublishesMarkers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	feeds := feedServer(t)
	metrics := observability.NewMetricsForTesting()

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	client := usgs.NewClient(feeds.URL+"/quakes.geojson", feeds.URL+"/plates.json", 5*time.Second, metrics, discardLogger())
	p := pipeline.New(client, pipeline.NewTransformer(domain.DefaultStyler(), discardLogger()), writer, discardLogger(), metrics)

	snap, err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Quakes, 2)
	assert.Equal(t, 1, snap.Skipped)
	assert.Len(t, snap.Plates, 1)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := map[string]publishedMarker{}
	for range 2 {
		pm := readMarker(ctx, t, consumer)
		got[pm.Key] = pm
	}

	big := got["ci40000001"]
	assert.Equal(t, "#e7552c", big.Headers[kafka.HeaderFillColor])
	assert.Equal(t, snap.RenderID, big.Headers[kafka.HeaderRenderID])
	assert.Equal(t, snap.RenderID, big.Body.RenderID)
	assert.InDelta(t, 22.5, big.Body.Style.Radius, 1e-9)
	assert.Contains(t, big.Body.Popup, "Ridgecrest")

	small := got["nc70000002"]
	assert.Equal(t, "#00ff00", small.Headers[kafka.HeaderFillColor])
	assert.Zero(t, small.Body.Style.Radius)

	require.NoError(t, p.CheckReadiness(ctx))
}

// TestRenderPassWithoutBroker verifies that a publish failure is counted
// but the render still succeeds.
func TestRenderPassWithoutBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	feeds := feedServer(t)
	metrics := observability.NewMetricsForTesting()

	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	client := usgs.NewClient(feeds.URL+"/quakes.geojson", feeds.URL+"/plates.json", 5*time.Second, metrics, discardLogger())
	p := pipeline.New(client, pipeline.NewTransformer(domain.DefaultStyler(), discardLogger()), writer, discardLogger(), metrics)

	snap, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Quakes, 2)
}
