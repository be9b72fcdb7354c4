package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/toucan4life/gamemap/pkg/observability"
)

func TestFetchAndCacheCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OnFetchComplete(ctx, 42, observability.SourceNetwork, 10, time.Second, nil)
	m.OnFetchComplete(ctx, 42, observability.SourceMemory, 10, 0, nil)
	m.OnFetchComplete(ctx, 7, observability.SourceNetwork, 0, 0, errors.New("boom"))
	m.OnCacheHit(ctx, "payload")
	m.OnCacheSet(ctx, "payload", 512)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"network ok", m.fetches.WithLabelValues("network", "ok"), 1},
		{"memory ok", m.fetches.WithLabelValues("memory", "ok"), 1},
		{"network error", m.fetches.WithLabelValues("network", "error"), 1},
		{"cache hit", m.cacheOps.WithLabelValues("payload", "hit"), 1},
		{"cache bytes", m.cacheBytes, 512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestViewersActiveGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.OnStateChange("initializing", "laying_out")
	m.OnStateChange("initializing", "laying_out")
	m.OnStateChange("laying_out", "settled")
	m.OnStateChange("settled", "disposed")

	if got := testutil.ToFloat64(m.viewersActive); got != 1 {
		t.Errorf("viewers_laying_out = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.viewerTransitions.WithLabelValues("initializing", "laying_out")); got != 2 {
		t.Errorf("transitions = %v, want 2", got)
	}
}

func TestInstall(t *testing.T) {
	t.Cleanup(observability.Reset)
	m := New(prometheus.NewRegistry())
	m.Install()

	observability.Pipeline().OnBuildComplete(context.Background(), 12, 20, time.Millisecond, nil)
	if got := testutil.ToFloat64(m.builds.WithLabelValues("ok")); got != 1 {
		t.Errorf("builds ok = %v, want 1", got)
	}
	observability.Viewer().OnFrame(time.Millisecond)
	if got := testutil.CollectAndCount(m.frameDuration); got != 1 {
		t.Errorf("frame histogram series = %d, want 1", got)
	}
}

func TestObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRequest("GET", "/api/viewers/{id}", 404, time.Millisecond)
	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("GET", "/api/viewers/{id}", "404")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
}

func TestRegisterTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("duplicate registration did not panic")
		}
	}()
	New(reg)
}
