// Package metrics implements the observability hooks with Prometheus
// collectors.
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	m.Install()
//	http.Handle("/metrics", promhttp.Handler())
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/toucan4life/gamemap/pkg/observability"
)

const namespace = "gamemap"

// Metrics holds every collector. It implements all hook interfaces of
// package observability.
type Metrics struct {
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	builds            *prometheus.CounterVec
	buildDuration     prometheus.Histogram
	neighborhoodNodes prometheus.Histogram
	layouts           prometheus.Counter
	layoutSteps       prometheus.Histogram
	layoutDuration    prometheus.Histogram
	renders           *prometheus.CounterVec
	renderDuration    prometheus.Histogram

	viewerTransitions *prometheus.CounterVec
	viewersActive     prometheus.Gauge
	frameDuration     prometheus.Histogram

	cacheOps   *prometheus.CounterVec
	cacheBytes prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpErrors   *prometheus.CounterVec

	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cluster_fetches_total",
			Help: "Cluster graph fetches by source and result.",
		}, []string{"source", "result"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "cluster_fetch_duration_seconds",
			Help:    "Time to load a cluster graph.",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),

		builds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "neighborhood_builds_total",
			Help: "Neighborhood builds by result.",
		}, []string{"result"}),
		buildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "neighborhood_build_duration_seconds",
			Help: "Time to build a neighborhood.", Buckets: prometheus.DefBuckets,
		}),
		neighborhoodNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "neighborhood_nodes",
			Help: "Nodes per built neighborhood.", Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		layouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "layouts_total",
			Help: "Headless layouts started.",
		}),
		layoutSteps: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "layout_steps",
			Help: "Simulation steps per headless layout.", Buckets: prometheus.LinearBuckets(100, 100, 10),
		}),
		layoutDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "layout_duration_seconds",
			Help: "Time to settle a headless layout.", Buckets: prometheus.DefBuckets,
		}),
		renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "renders_total",
			Help: "Exports by format and result.",
		}, []string{"format", "result"}),
		renderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "render_duration_seconds",
			Help: "Time to write all requested exports.", Buckets: prometheus.DefBuckets,
		}),

		viewerTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "viewer_transitions_total",
			Help: "Viewer state machine transitions.",
		}, []string{"from", "to"}),
		viewersActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "viewers_laying_out",
			Help: "Viewers currently stepping their layout.",
		}),
		frameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "viewer_frame_duration_seconds",
			Help:    "Time spent in one animation frame.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.1},
		}),

		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_operations_total",
			Help: "Payload cache operations by key type and outcome.",
		}, []string{"key_type", "op"}),
		cacheBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_written_bytes_total",
			Help: "Bytes written to the payload cache.",
		}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "upstream_requests_total",
			Help: "Outgoing payload requests by host and status.",
		}, []string{"method", "host", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "upstream_request_duration_seconds",
			Help: "Outgoing payload request latency.", Buckets: prometheus.DefBuckets,
		}, []string{"method", "host"}),
		httpErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "upstream_errors_total",
			Help: "Outgoing requests that failed before a response.",
		}, []string{"method", "host"}),

		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "API requests by route and status.",
		}, []string{"method", "route", "status"}),
		apiDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help: "API request latency.", Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Install registers m as every observability hook.
func (m *Metrics) Install() {
	observability.SetFetchHooks(m)
	observability.SetPipelineHooks(m)
	observability.SetViewerHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// ObserveRequest records one API request. route is the matched route
// pattern, not the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.apiRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// =============================================================================
// Fetch
// =============================================================================

func (m *Metrics) OnFetchStart(context.Context, int64) {}

func (m *Metrics) OnFetchComplete(_ context.Context, _ int64, source string, _ int, d time.Duration, err error) {
	m.fetches.WithLabelValues(source, result(err)).Inc()
	if err == nil {
		m.fetchDuration.WithLabelValues(source).Observe(d.Seconds())
	}
}

// =============================================================================
// Pipeline
// =============================================================================

func (m *Metrics) OnBuildStart(context.Context, int64, int64, int) {}

func (m *Metrics) OnBuildComplete(_ context.Context, nodes, _ int, d time.Duration, err error) {
	m.builds.WithLabelValues(result(err)).Inc()
	if err != nil {
		return
	}
	m.buildDuration.Observe(d.Seconds())
	m.neighborhoodNodes.Observe(float64(nodes))
}

func (m *Metrics) OnLayoutStart(context.Context, int) {
	m.layouts.Inc()
}

func (m *Metrics) OnLayoutComplete(_ context.Context, steps int, d time.Duration) {
	m.layoutSteps.Observe(float64(steps))
	m.layoutDuration.Observe(d.Seconds())
}

func (m *Metrics) OnRenderStart(context.Context, []string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	for _, f := range formats {
		m.renders.WithLabelValues(f, result(err)).Inc()
	}
	m.renderDuration.Observe(d.Seconds())
}

// =============================================================================
// Viewer
// =============================================================================

const layingOut = "laying_out"

func (m *Metrics) OnStateChange(from, to string) {
	m.viewerTransitions.WithLabelValues(from, to).Inc()
	if to == layingOut {
		m.viewersActive.Inc()
	}
	if from == layingOut {
		m.viewersActive.Dec()
	}
}

func (m *Metrics) OnFrame(d time.Duration) {
	m.frameDuration.Observe(d.Seconds())
}

// =============================================================================
// Cache
// =============================================================================

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.Add(float64(size))
}

// =============================================================================
// HTTP client
// =============================================================================

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, host, _ string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, host, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, host).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, method, host, _ string, _ error) {
	m.httpErrors.WithLabelValues(method, host).Inc()
}
