package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/quake-map-service/internal/domain"
	"github.com/couchcryptid/quake-map-service/internal/observability"
)

// FeedExtractor fetches the raw earthquake and plate boundary feeds.
type FeedExtractor interface {
	FetchQuakes(ctx context.Context) (domain.RawFeed, error)
	FetchPlates(ctx context.Context) (domain.RawFeed, error)
}

// Transformer converts one raw earthquake feature into a styled marker and
// reports the legend for the table it styles with.
type Transformer interface {
	Transform(ctx context.Context, raw json.RawMessage) (domain.StyledQuake, error)
	Legend() []domain.LegendEntry
}

// BatchLoader publishes the styled markers of one render pass.
type BatchLoader interface {
	LoadBatch(ctx context.Context, renderID string, quakes []domain.StyledQuake) error
}

// Pipeline runs fetch-style-render passes. Each pass is independent: nothing
// is carried between passes except the readiness flag.
type Pipeline struct {
	extractor   FeedExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
}

// New creates a Pipeline with the given stages and observability. Pass a nil
// loader to skip publishing.
func New(e FeedExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once a render pass has succeeded,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no render pass has succeeded yet")
	}
	return nil
}

// Legend returns the legend for the active breakpoint table without fetching.
func (p *Pipeline) Legend() []domain.LegendEntry {
	return p.transformer.Legend()
}

// Run executes one render pass: both feeds are fetched concurrently, each
// earthquake is styled, invalid records are skipped, and the result is
// returned as a Snapshot. Only an earthquake feed failure fails the pass.
func (p *Pipeline) Run(ctx context.Context) (domain.Snapshot, error) {
	start := time.Now()

	quakeFeed, plateFeed, err := p.fetch(ctx)
	if err != nil {
		p.metrics.RendersTotal.WithLabelValues("error").Inc()
		return domain.Snapshot{}, err
	}

	snap := domain.Snapshot{
		RenderID:    uuid.NewString(),
		GeneratedAt: domain.Now(),
		FeedTitle:   quakeFeed.Title,
		Legend:      p.transformer.Legend(),
	}

	p.metrics.QuakesFetched.Add(float64(len(quakeFeed.Features)))
	snap.Quakes, snap.Skipped = p.transformQuakes(ctx, quakeFeed.Features)
	snap.Plates = p.parsePlates(plateFeed.Features)

	if err := ctx.Err(); err != nil {
		p.metrics.RendersTotal.WithLabelValues("error").Inc()
		return domain.Snapshot{}, err
	}

	p.publish(ctx, snap)

	p.metrics.QuakesRendered.Add(float64(len(snap.Quakes)))
	p.metrics.PlatesRendered.Set(float64(len(snap.Plates)))
	p.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	p.metrics.RendersTotal.WithLabelValues("success").Inc()

	if !p.ready.Swap(true) {
		p.metrics.PipelineReady.Set(1)
	}

	p.logger.Info("render pass complete",
		"render_id", snap.RenderID,
		"quakes", len(snap.Quakes),
		"skipped", snap.Skipped,
		"plates", len(snap.Plates),
		"duration", time.Since(start),
	)
	return snap, nil
}

// fetch downloads both feeds concurrently. A plate feed failure is logged
// and degrades to an empty overlay.
func (p *Pipeline) fetch(ctx context.Context) (domain.RawFeed, domain.RawFeed, error) {
	var quakes, plates domain.RawFeed

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := p.extractor.FetchQuakes(gctx)
		if err != nil {
			return fmt.Errorf("fetch earthquakes: %w", err)
		}
		quakes = f
		return nil
	})
	g.Go(func() error {
		f, err := p.extractor.FetchPlates(gctx)
		if err != nil {
			if gctx.Err() == nil {
				p.logger.Warn("plate feed unavailable, rendering without fault lines", "error", err)
			}
			return nil
		}
		plates = f
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.RawFeed{}, domain.RawFeed{}, err
	}
	return quakes, plates, nil
}

func (p *Pipeline) transformQuakes(ctx context.Context, features []json.RawMessage) ([]domain.StyledQuake, int) {
	styled := make([]domain.StyledQuake, 0, len(features))
	skipped := 0

	for i, raw := range features {
		if ctx.Err() != nil {
			break
		}
		sq, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("invalid earthquake record, skipping", "index", i, "error", err)
			p.metrics.QuakesSkipped.Inc()
			skipped++
			continue
		}
		p.metrics.MarkersByColor.WithLabelValues(sq.Style.FillColor).Inc()
		styled = append(styled, sq)
	}
	return styled, skipped
}

func (p *Pipeline) parsePlates(features []json.RawMessage) []domain.PlateBoundary {
	plates := make([]domain.PlateBoundary, 0, len(features))
	for i, raw := range features {
		pb, err := domain.ParsePlate(raw)
		if err != nil {
			p.logger.Debug("invalid plate boundary, skipping", "index", i, "error", err)
			continue
		}
		plates = append(plates, pb)
	}
	return plates
}

// publish hands the styled markers to the loader. A publish failure is
// logged and counted but does not fail the render.
func (p *Pipeline) publish(ctx context.Context, snap domain.Snapshot) {
	if p.loader == nil || len(snap.Quakes) == 0 {
		return
	}
	if err := p.loader.LoadBatch(ctx, snap.RenderID, snap.Quakes); err != nil {
		p.logger.Error("publish styled markers failed", "error", err, "render_id", snap.RenderID, "batch_size", len(snap.Quakes))
		p.metrics.PublishErrors.Inc()
		return
	}
	p.metrics.MarkersPublished.Add(float64(len(snap.Quakes)))
}
