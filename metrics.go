package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one built-in counter or histogram.
type MetricID uint16

const (
	// MetricSessionLoaded counts requests that materialized a stored session.
	MetricSessionLoaded MetricID = iota
	// MetricSessionMiss counts tokens the store did not know.
	MetricSessionMiss
	// MetricNoToken counts requests that carried no token.
	MetricNoToken
	// MetricSessionGenerated counts sessions created with Generate.
	MetricSessionGenerated
	// MetricSessionSaved counts successful saves, implicit and explicit.
	MetricSessionSaved
	// MetricSaveFailure counts failed saves.
	MetricSaveFailure
	// MetricSessionReloaded counts successful reloads.
	MetricSessionReloaded
	// MetricReloadFailure counts failed reloads.
	MetricReloadFailure
	// MetricSessionDestroyed counts destroyed sessions.
	MetricSessionDestroyed
	// MetricStoreUnavailable counts requests served without sessions because the store was down.
	MetricStoreUnavailable
	// MetricStoreError counts hard store errors surfaced to the pipeline.
	MetricStoreError
	// MetricStoreDisconnect counts transitions to disconnected reported by the store.
	MetricStoreDisconnect
	// MetricStoreReconnect counts transitions back to connected.
	MetricStoreReconnect
	// MetricLoadLatency is the store lookup latency histogram.
	MetricLoadLatency
	// MetricCommitLatency is the implicit save latency histogram.
	MetricCommitLatency
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

// Metrics holds lock-free counters shared by every request of one Manager.
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

// NewMetrics creates a metrics set. A disabled set ignores every update.
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

// LatencyEnabled reports whether histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Non-histogram ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || !isHistogram(id) {
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

// Snapshot copies every counter, and every histogram when latency is enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range [...]MetricID{MetricLoadLatency, MetricCommitLatency} {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func isHistogram(id MetricID) bool {
	return id == MetricLoadLatency || id == MetricCommitLatency
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
