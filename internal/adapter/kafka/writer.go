// Package kafka publishes styled earthquake markers to a Kafka topic so
// downstream consumers see exactly what the map rendered.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/quake-map-service/internal/config"
	"github.com/couchcryptid/quake-map-service/internal/domain"
)

// Header keys set on every published marker.
const (
	HeaderFillColor = "fill_color"
	HeaderRenderID  = "render_id"
)

// Writer produces messages to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured marker topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes the styled markers of one render pass
// in a single WriteMessages call. Markers are keyed by quake ID so updates
// to the same event land on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, renderID string, quakes []domain.StyledQuake) error {
	if len(quakes) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(quakes))
	for i := range quakes {
		msg, err := serializeToMessage(renderID, quakes[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish markers: %w", err)
	}
	w.logger.Debug("markers published", "render_id", renderID, "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// markerMessage is the wire form of one published marker.
type markerMessage struct {
	RenderID string `json:"render_id"`
	domain.StyledQuake
}

// serializeToMessage marshals a styled quake into a Kafka message.
func serializeToMessage(renderID string, q domain.StyledQuake) (kafkago.Message, error) {
	data, err := json.Marshal(markerMessage{RenderID: renderID, StyledQuake: q})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize marker: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(q.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderFillColor, Value: []byte(q.Style.FillColor)},
			{Key: HeaderRenderID, Value: []byte(renderID)},
		},
	}, nil
}
