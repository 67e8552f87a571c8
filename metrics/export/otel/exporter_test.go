package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/botauth"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot botauth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() botauth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := botauth.MetricsSnapshot{
		Counters:   make(map[botauth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[botauth.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) EventsDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findSum(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			}
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newTestMeter()

	src := &fakeSource{
		snapshot: botauth.MetricsSnapshot{
			Counters: map[botauth.MetricID]uint64{
				botauth.MetricSessionExchangeSuccess: 3,
			},
			Histograms: map[botauth.MetricID][]uint64{
				botauth.MetricExchangeLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporterFromSource(provider.Meter("botauth-test"), src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if v, ok := findSum(rm, "botauth_session_exchange_success_total"); !ok || v != 3 {
		t.Fatalf("session success = %d (%v), want 3", v, ok)
	}
	if v, ok := findSum(rm, "botauth_exchange_latency_seconds_bucket_le_inf"); !ok || v != 8 {
		t.Fatalf("+Inf bucket = %d (%v), want 8", v, ok)
	}
	if v, ok := findSum(rm, "botauth_events_dropped_total"); !ok || v != 1 {
		t.Fatalf("events dropped = %d (%v), want 1", v, ok)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newTestMeter()

	if _, err := NewExporterFromSource(provider.Meter("botauth-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporter(provider.Meter("botauth-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil authenticator, got %v", err)
	}
	if _, err := NewExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newTestMeter()

	src := &fakeSource{
		snapshot: botauth.MetricsSnapshot{
			Counters: map[botauth.MetricID]uint64{
				botauth.MetricCycleStarted: 1,
			},
			Histograms: map[botauth.MetricID][]uint64{
				botauth.MetricExchangeLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporterFromSource(provider.Meter("botauth-test"), src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[botauth.MetricCycleStarted] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
