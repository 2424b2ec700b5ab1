package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the sync core. Constructed
// per server instance so tests get independent registries.
type Metrics struct {
	opsTotal            *prometheus.CounterVec
	opDuration          *prometheus.HistogramVec
	broadcastsTotal     prometheus.Counter
	broadcastRecipients prometheus.Counter
	activeSessions      prometheus.Gauge
	roomsGauge          prometheus.Gauge
	snapshotSaves       *prometheus.CounterVec
	snapshotDuration    prometheus.Histogram
	editingExpired      prometheus.Counter
	wsErrors            *prometheus.CounterVec
}

// NewMetrics registers the sync core metrics with the given registry.
// Namespace defaults to "corkboard".
func NewMetrics(registry prometheus.Registerer, namespace string) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "corkboard"
	}
	factory := promauto.With(registry)

	return &Metrics{
		opsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ops_total",
			Help:      "Total sync operations processed, by type and status",
		}, []string{"type", "status"}),

		opDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "op_duration_seconds",
			Help:      "Sync operation processing duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),

		broadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total broadcast messages fanned out",
		}),

		broadcastRecipients: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_recipients_total",
			Help:      "Total per-session broadcast deliveries",
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live WebSocket sessions",
		}),

		roomsGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Number of non-empty board groups",
		}),

		snapshotSaves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_saves_total",
			Help:      "Snapshot save attempts, by status",
		}, []string{"status"}),

		snapshotDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Snapshot serialization and write duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		}),

		editingExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "editing_expired_total",
			Help:      "Editing presence markers cleared by the TTL sweep",
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_errors_total",
			Help:      "WebSocket errors by type",
		}, []string{"type"}),
	}
}

// RecordOp records a completed operation.
func (m *Metrics) RecordOp(opType string, err error, start time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.opsTotal.WithLabelValues(opType, status).Inc()
	m.opDuration.WithLabelValues(opType).Observe(time.Since(start).Seconds())
}

// RecordBroadcast records one fan-out with its recipient count.
func (m *Metrics) RecordBroadcast(recipients int) {
	m.broadcastsTotal.Inc()
	m.broadcastRecipients.Add(float64(recipients))
}

// RecordSessionOpen and RecordSessionClose track the active session gauge.
func (m *Metrics) RecordSessionOpen()  { m.activeSessions.Inc() }
func (m *Metrics) RecordSessionClose() { m.activeSessions.Dec() }

// SetRooms updates the room gauge.
func (m *Metrics) SetRooms(n int) { m.roomsGauge.Set(float64(n)) }

// RecordSnapshot records a save attempt.
func (m *Metrics) RecordSnapshot(err error, start time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.snapshotSaves.WithLabelValues(status).Inc()
	m.snapshotDuration.Observe(time.Since(start).Seconds())
}

// RecordEditingExpired counts TTL-cleared presence markers.
func (m *Metrics) RecordEditingExpired(n int) {
	m.editingExpired.Add(float64(n))
}

// RecordWSError counts a WebSocket error by type.
func (m *Metrics) RecordWSError(errType string) {
	m.wsErrors.WithLabelValues(errType).Inc()
}
