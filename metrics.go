package botauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one authenticator counter or histogram.
type MetricID uint16

const (
	// MetricCycleStarted counts authentication cycles that passed the rate gate.
	MetricCycleStarted MetricID = iota
	// MetricCycleSuccess counts cycles that obtained both tokens.
	MetricCycleSuccess
	// MetricCycleFailure counts cycles that ended without both tokens.
	MetricCycleFailure
	// MetricRateGated counts gate passes that found the gate closed.
	MetricRateGated
	// MetricDeferredRetry counts callers parked for the deferred retry delay.
	MetricDeferredRetry
	// MetricSharedGateDenied counts passes denied by the cluster-wide gate.
	MetricSharedGateDenied
	// MetricSharedGateError counts shared gate lookups that failed open.
	MetricSharedGateError
	// MetricAssertionCreated counts signed assertions.
	MetricAssertionCreated
	// MetricAssertionFailure counts assertion construction failures.
	MetricAssertionFailure
	// MetricSessionExchangeSuccess counts session tokens obtained.
	MetricSessionExchangeSuccess
	// MetricSessionExchangeFailure counts failed session exchanges.
	MetricSessionExchangeFailure
	// MetricKeyManagerExchangeSuccess counts key-manager tokens obtained.
	MetricKeyManagerExchangeSuccess
	// MetricKeyManagerExchangeFailure counts failed key-manager exchanges.
	MetricKeyManagerExchangeFailure
	// MetricRetriesExhausted counts Authenticate calls that ran out of retry budget.
	MetricRetriesExhausted
	// MetricExchangeLatency is the token exchange latency histogram.
	MetricExchangeLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a lock-free set of authenticator counters. A nil or disabled
// Metrics ignores all updates.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a metrics set configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether latency histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in histogram id. Only [MetricExchangeLatency] is a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricExchangeLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and, when enabled, the latency histogram.
// Histogram buckets are non-cumulative.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricExchangeLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricExchangeLatency].buckets[i])
		}
		s.Histograms[MetricExchangeLatency] = buckets
	}

	return s
}

// Bucket upper bounds: 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s, +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 50:
		return 0
	case ms <= 100:
		return 1
	case ms <= 250:
		return 2
	case ms <= 500:
		return 3
	case ms <= 1000:
		return 4
	case ms <= 2500:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
