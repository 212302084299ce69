package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks fan-out activity. All methods are nil-safe so components can
// run without a registry in tests.
type Metrics struct {
	notifications     *prometheus.CounterVec
	localDeliveries   prometheus.Counter
	transportFailures prometheus.Counter
	openChannels      prometheus.Gauge
	heartbeats        prometheus.Counter
	droppedEvents     prometheus.Counter
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parishd_notifications_total",
				Help: "Total notifications dispatched, by type and target kind",
			},
			[]string{"type", "target"},
		),
		localDeliveries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "parishd_local_deliveries_total",
				Help: "Total in-process subscriber callback invocations",
			},
		),
		transportFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "parishd_transport_send_failures_total",
				Help: "Total failed transport channel sends",
			},
		),
		openChannels: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "parishd_open_channels",
				Help: "Current number of open transport channels",
			},
		),
		heartbeats: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "parishd_heartbeats_total",
				Help: "Total heartbeat payloads sent on joined channels",
			},
		),
		droppedEvents: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "parishd_dropped_change_events_total",
				Help: "Total change-feed events dropped as malformed",
			},
		),
	}
}

func (m *Metrics) ObserveNotification(notificationType, target string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(notificationType, target).Inc()
}

func (m *Metrics) ObserveLocalDeliveries(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.localDeliveries.Add(float64(n))
}

func (m *Metrics) ObserveTransportFailure() {
	if m == nil {
		return
	}
	m.transportFailures.Inc()
}

func (m *Metrics) ObserveChannelOpened() {
	if m == nil {
		return
	}
	m.openChannels.Inc()
}

func (m *Metrics) ObserveChannelClosed() {
	if m == nil {
		return
	}
	m.openChannels.Dec()
}

func (m *Metrics) ObserveHeartbeat() {
	if m == nil {
		return
	}
	m.heartbeats.Inc()
}

func (m *Metrics) ObserveDroppedEvent() {
	if m == nil {
		return
	}
	m.droppedEvents.Inc()
}
