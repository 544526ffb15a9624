package corert

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds,
// covering 1us to 10s with logarithmic spacing. Adapted from the teacher's
// block-device I/O histogram to the RPC/publish/lifecycle latencies this
// runtime actually observes.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks operational statistics for a daemon: core-bus requests,
// MQTT publishes/subscriptions, and health lookups all feed the same
// counters, distinguished by the caller using the matching Record* method.
type Metrics struct {
	Requests    atomic.Uint64 // core-bus requests served
	Publishes   atomic.Uint64 // MQTT publishes sent
	Deliveries  atomic.Uint64 // core-bus subscription events pushed to subscribers
	LookupsDone atomic.Uint64 // health/config lookups served

	RequestErrors  atomic.Uint64
	PublishErrors  atomic.Uint64
	DeliveryErrors atomic.Uint64
	LookupErrors   atomic.Uint64

	ActiveSubscriptions atomic.Uint32
	MaxSubscriptions    atomic.Uint32

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	// LatencyHist[i] is the count of operations observed with latency
	// <= LatencyBuckets[i].
	LatencyHist [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics returns a fresh Metrics with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

func (m *Metrics) RecordRequest(latencyNs uint64, success bool) {
	m.Requests.Add(1)
	if !success {
		m.RequestErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

func (m *Metrics) RecordPublish(success bool) {
	m.Publishes.Add(1)
	if !success {
		m.PublishErrors.Add(1)
	}
}

func (m *Metrics) RecordDelivery(success bool) {
	m.Deliveries.Add(1)
	if !success {
		m.DeliveryErrors.Add(1)
	}
}

func (m *Metrics) RecordLookup(latencyNs uint64, success bool) {
	m.LookupsDone.Add(1)
	if !success {
		m.LookupErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

func (m *Metrics) SetActiveSubscriptions(n uint32) {
	m.ActiveSubscriptions.Store(n)
	for {
		cur := m.MaxSubscriptions.Load()
		if n <= cur || m.MaxSubscriptions.CompareAndSwap(cur, n) {
			return
		}
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyHist[i].Add(1)
			return
		}
	}
}

// AvgLatencyNs returns the mean recorded latency in nanoseconds, or 0 if
// no operations have been recorded.
func (m *Metrics) AvgLatencyNs() uint64 {
	count := m.OpCount.Load()
	if count == 0 {
		return 0
	}
	return m.TotalLatencyNs.Load() / count
}
