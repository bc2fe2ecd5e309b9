// Package metrics exposes Prometheus collectors for the hub and the
// presence state it owns.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "gochat"

// Collector groups the server's metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	connections   prometheus.Gauge
	presenceUsers *prometheus.GaugeVec
	inbound       *prometheus.CounterVec
	outbound      *prometheus.CounterVec
	dropped       prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of attached WebSocket connections.",
		}),
		presenceUsers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "presence_users",
			Help:      "Users in the latest presence snapshot, by status.",
		}, []string{"status"}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_total",
			Help:      "Events handled by the hub, by event name.",
		}, []string{"event"}),
		outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_frames_total",
			Help:      "Frames queued to connections, by event name.",
		}, []string{"event"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_deliveries_total",
			Help:      "Frames a connection could not accept.",
		}),
	}
	reg.MustRegister(c.connections, c.presenceUsers, c.inbound, c.outbound, c.dropped)
	return c
}

// SetConnections records the number of attached connections.
func (c *Collector) SetConnections(n int) {
	if c == nil {
		return
	}
	c.connections.Set(float64(n))
}

// ObservePresence records the online and offline user counts.
func (c *Collector) ObservePresence(online, offline int) {
	if c == nil {
		return
	}
	c.presenceUsers.WithLabelValues("online").Set(float64(online))
	c.presenceUsers.WithLabelValues("offline").Set(float64(offline))
}

// InboundEvent counts one handled event.
func (c *Collector) InboundEvent(event string) {
	if c == nil {
		return
	}
	c.inbound.WithLabelValues(event).Inc()
}

// OutboundFrames counts frames queued for one outbound event.
func (c *Collector) OutboundFrames(event string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.outbound.WithLabelValues(event).Add(float64(n))
}

// DroppedDeliveries counts frames that were not accepted.
func (c *Collector) DroppedDeliveries(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.dropped.Add(float64(n))
}
