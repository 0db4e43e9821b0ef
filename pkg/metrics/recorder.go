// Package metrics records client.Observer activity as Prometheus
// metrics: transaction counts by variant/outcome, round-trip latency,
// and free transaction-slot gauge.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacewire-tools/spwrmap/pkg/rmap"
)

// Recorder implements client.Observer (duck-typed) by feeding
// Prometheus collectors. Register it against a prometheus.Registerer of
// the caller's choosing.
type Recorder struct {
	allocated  *prometheus.CounterVec
	completed  *prometheus.CounterVec
	badFrames  prometheus.Counter
	timeCodes  *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	freeSlots  prometheus.Gauge
}

// NewRecorder builds and registers the collectors against reg.
func NewRecorder(reg prometheus.Registerer, namespace string) *Recorder {
	r := &Recorder{
		allocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_allocated_total",
			Help:      "Transaction ids allocated, by packet type.",
		}, []string{"type"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_completed_total",
			Help:      "Transactions completed, by packet type and outcome.",
		}, []string{"type", "outcome"}),
		badFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bad_frames_total",
			Help:      "SSDTP2/RMAP frames rejected as malformed.",
		}),
		timeCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timecodes_total",
			Help:      "SpaceWire time codes observed, by direction.",
		}, []string{"direction"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_latency_seconds",
			Help:      "Round-trip latency from send to reply, by packet type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		freeSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transaction_slots_free",
			Help:      "Transaction ids currently available for allocation.",
		}),
	}
	reg.MustRegister(r.allocated, r.completed, r.badFrames, r.timeCodes, r.latency, r.freeSlots)
	return r
}

func (r *Recorder) TransactionAllocated(id uint16, kind rmap.PacketType) {
	r.allocated.WithLabelValues(kind.String()).Inc()
}

func (r *Recorder) TransactionCompleted(id uint16, kind rmap.PacketType, ok bool, elapsed time.Duration) {
	outcome := "ok"
	if !ok {
		outcome = "aborted"
	}
	r.completed.WithLabelValues(kind.String(), outcome).Inc()
	r.latency.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

func (r *Recorder) BadFrame(error) {
	r.badFrames.Inc()
}

func (r *Recorder) TimeCodeEmitted(uint8) {
	r.timeCodes.WithLabelValues("emitted").Inc()
}

func (r *Recorder) TimeCodeReceived(uint8) {
	r.timeCodes.WithLabelValues("received").Inc()
}

// SetFreeSlots records the transaction table's current free-slot count,
// polled by the caller (e.g. periodically from Node.Free).
func (r *Recorder) SetFreeSlots(n int) {
	r.freeSlots.Set(float64(n))
}
