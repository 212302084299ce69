package realtime

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveNotification("INFO", "user")
	m.ObserveLocalDeliveries(3)
	m.ObserveTransportFailure()
	m.ObserveChannelOpened()
	m.ObserveChannelClosed()
	m.ObserveHeartbeat()
	m.ObserveDroppedEvent()
}

func TestMetrics_Registration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveNotification("INFO", "user")
	m.ObserveLocalDeliveries(2)
	m.ObserveLocalDeliveries(0)
	m.ObserveChannelOpened()
	m.ObserveHeartbeat()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]struct{}, len(families))
	for _, family := range families {
		names[family.GetName()] = struct{}{}
	}
	require.Contains(t, names, "parishd_notifications_total")
	require.Contains(t, names, "parishd_local_deliveries_total")
	require.Contains(t, names, "parishd_open_channels")
	require.Contains(t, names, "parishd_heartbeats_total")
}
