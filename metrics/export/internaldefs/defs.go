package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one goSession counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one goSession latency histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricSessionLoaded, Name: "gosession_session_loaded_total", Help: "Requests that materialized a stored session."},
	{ID: goSession.MetricSessionMiss, Name: "gosession_session_miss_total", Help: "Tokens unknown to the store."},
	{ID: goSession.MetricNoToken, Name: "gosession_no_token_total", Help: "Requests without a session token."},
	{ID: goSession.MetricSessionGenerated, Name: "gosession_session_generated_total", Help: "Sessions created with Generate."},
	{ID: goSession.MetricSessionSaved, Name: "gosession_session_saved_total", Help: "Successful session saves."},
	{ID: goSession.MetricSaveFailure, Name: "gosession_save_failure_total", Help: "Failed session saves."},
	{ID: goSession.MetricSessionReloaded, Name: "gosession_session_reloaded_total", Help: "Successful session reloads."},
	{ID: goSession.MetricReloadFailure, Name: "gosession_reload_failure_total", Help: "Failed session reloads."},
	{ID: goSession.MetricSessionDestroyed, Name: "gosession_session_destroyed_total", Help: "Destroyed sessions."},
	{ID: goSession.MetricStoreUnavailable, Name: "gosession_store_unavailable_total", Help: "Requests served without sessions while the store was down."},
	{ID: goSession.MetricStoreError, Name: "gosession_store_error_total", Help: "Lookups that failed with a store error."},
	{ID: goSession.MetricStoreDisconnect, Name: "gosession_store_disconnect_total", Help: "Store transitions to disconnected."},
	{ID: goSession.MetricStoreReconnect, Name: "gosession_store_reconnect_total", Help: "Store transitions back to connected."},
}

// HistogramDefs lists the latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricLoadLatency, Name: "gosession_load_latency_seconds", Help: "Store lookup latency."},
	{ID: goSession.MetricCommitLatency, Name: "gosession_commit_latency_seconds", Help: "Implicit session save latency."},
}

// StoreReadyName is the gauge reporting store availability as 0 or 1.
const (
	StoreReadyName = "gosession_store_ready"
	StoreReadyHelp = "Whether the session store is connected (1) or not (0)."
)

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that flatten
// buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero padding short input.
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
