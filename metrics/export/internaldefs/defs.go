package internaldefs

import (
	"github.com/MrEthical07/botauth"
)

// CounterDef binds a counter id to its exported name.
type CounterDef struct {
	ID   botauth.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram id to its exported name.
type HistogramDef struct {
	ID   botauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: botauth.MetricCycleStarted, Name: "botauth_cycle_started_total", Help: "Authentication cycles that passed the rate gate."},
	{ID: botauth.MetricCycleSuccess, Name: "botauth_cycle_success_total", Help: "Cycles that obtained both tokens."},
	{ID: botauth.MetricCycleFailure, Name: "botauth_cycle_failure_total", Help: "Cycles that ended without both tokens."},
	{ID: botauth.MetricRateGated, Name: "botauth_rate_gated_total", Help: "Gate passes that found the gate closed."},
	{ID: botauth.MetricDeferredRetry, Name: "botauth_deferred_retry_total", Help: "Callers parked for the deferred retry delay."},
	{ID: botauth.MetricSharedGateDenied, Name: "botauth_shared_gate_denied_total", Help: "Gate passes denied by another replica."},
	{ID: botauth.MetricSharedGateError, Name: "botauth_shared_gate_error_total", Help: "Shared gate lookups that failed open."},
	{ID: botauth.MetricAssertionCreated, Name: "botauth_assertion_created_total", Help: "Signed assertions created."},
	{ID: botauth.MetricAssertionFailure, Name: "botauth_assertion_failure_total", Help: "Assertion construction failures."},
	{ID: botauth.MetricSessionExchangeSuccess, Name: "botauth_session_exchange_success_total", Help: "Session tokens obtained."},
	{ID: botauth.MetricSessionExchangeFailure, Name: "botauth_session_exchange_failure_total", Help: "Failed session token exchanges."},
	{ID: botauth.MetricKeyManagerExchangeSuccess, Name: "botauth_key_manager_exchange_success_total", Help: "Key-manager tokens obtained."},
	{ID: botauth.MetricKeyManagerExchangeFailure, Name: "botauth_key_manager_exchange_failure_total", Help: "Failed key-manager token exchanges."},
	{ID: botauth.MetricRetriesExhausted, Name: "botauth_retries_exhausted_total", Help: "Authenticate calls that ran out of retries."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: botauth.MetricExchangeLatency, Name: "botauth_exchange_latency_seconds", Help: "Token exchange latency histogram."},
}

// EventsDroppedName is the counter for auth events lost to a full buffer.
const (
	EventsDroppedName = "botauth_events_dropped_total"
	EventsDroppedHelp = "Dropped auth events due to dispatcher backpressure."
)

// HistogramBounds are the bucket upper bounds in seconds, as label values.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundValues are HistogramBounds without +Inf, as numbers.
var HistogramBoundValues = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// HistogramBoundSuffix is HistogramBounds in instrument-name form.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
