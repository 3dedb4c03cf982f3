package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quake_map"

// Metrics holds the Prometheus counters, histograms, and gauges for the render pipeline.
type Metrics struct {
	QuakesFetched  prometheus.Counter
	QuakesRendered prometheus.Counter
	QuakesSkipped  prometheus.Counter
	PlatesRendered prometheus.Gauge
	RenderDuration prometheus.Histogram
	PipelineReady  prometheus.Gauge

	// MarkersByColor is labeled by fill_color.
	MarkersByColor *prometheus.CounterVec
	// RendersTotal is labeled by outcome={success,error}.
	RendersTotal *prometheus.CounterVec

	// Feed fetch metrics, labeled by feed={earthquakes,plates} and outcome.
	FeedRequests *prometheus.CounterVec
	FeedDuration *prometheus.HistogramVec

	// Kafka sink metrics.
	MarkersPublished prometheus.Counter
	PublishErrors    prometheus.Counter

	// Mapbox tile proxy metrics. TileRequests is labeled by outcome, TileCache by result={hit,miss}.
	TileRequests     *prometheus.CounterVec
	TileCache        *prometheus.CounterVec
	TileAPIDuration  prometheus.Histogram
	TileProxyEnabled prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		QuakesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quakes_fetched_total",
			Help:      "Total earthquake features read from the feed.",
		}),
		QuakesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quakes_rendered_total",
			Help:      "Total earthquake markers styled for rendering.",
		}),
		QuakesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quakes_skipped_total",
			Help:      "Total earthquake features rejected during parsing or styling.",
		}),
		MarkersByColor: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markers_by_color_total",
			Help:      "Styled markers by resolved fill color.",
		}, []string{"fill_color"}),
		PlatesRendered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plate_boundaries_rendered",
			Help:      "Plate boundary segments in the most recent render.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of a complete fetch-style-render pass.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RendersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Render passes by outcome.",
		}, []string{"outcome"}),
		PipelineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_ready",
			Help:      "1 once a render pass has succeeded, 0 before.",
		}),
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_requests_total",
			Help:      "Feed fetches by feed and outcome.",
		}, []string{"feed", "outcome"}),
		FeedDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_request_duration_seconds",
			Help:      "Feed fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"feed"}),
		MarkersPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markers_published_total",
			Help:      "Styled markers written to the Kafka sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed Kafka sink batch writes.",
		}),
		TileRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tile_requests_total",
			Help:      "Mapbox tile API requests by outcome.",
		}, []string{"outcome"}),
		TileCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tile_cache_total",
			Help:      "Tile cache lookups by result.",
		}, []string{"result"}),
		TileAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tile_api_duration_seconds",
			Help:      "Mapbox tile API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		TileProxyEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tile_proxy_enabled",
			Help:      "1 when Mapbox base layers are proxied, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.QuakesFetched,
		m.QuakesRendered,
		m.QuakesSkipped,
		m.MarkersByColor,
		m.PlatesRendered,
		m.RenderDuration,
		m.RendersTotal,
		m.PipelineReady,
		m.FeedRequests,
		m.FeedDuration,
		m.MarkersPublished,
		m.PublishErrors,
		m.TileRequests,
		m.TileCache,
		m.TileAPIDuration,
		m.TileProxyEnabled,
	}
}
