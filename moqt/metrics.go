package moqt

import (
	"time"

	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for MOQ sessions.
// A nil *Metrics records nothing.
type Metrics struct {
	sessionsActive      prometheus.Gauge
	handshakeDuration   prometheus.Histogram
	handshakeFailures   prometheus.Counter
	subscriptionsActive prometheus.Gauge
	subscribeResults    *prometheus.CounterVec
	controlMessages     *prometheus.CounterVec
	objectsReceived     *prometheus.CounterVec
	objectBytesReceived prometheus.Counter
	objectsSent         *prometheus.CounterVec
	protocolViolations  prometheus.Counter
}

// NewMetrics registers the session collectors with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	const namespace = "moqt"

	return &Metrics{
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of established sessions",
		}),

		handshakeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handshake_duration_seconds",
			Help:      "Time from dialing to a completed setup exchange",
			Buckets:   prometheus.DefBuckets,
		}),

		handshakeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshake_failures_total",
			Help:      "Total number of failed setup exchanges",
		}),

		subscriptionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_active",
			Help:      "Number of registered subscriptions",
		}),

		subscribeResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscribe_results_total",
			Help:      "Total number of subscribe requests by outcome",
		}, []string{"result"}),

		controlMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_messages_total",
			Help:      "Total number of control messages by direction and type",
		}, []string{"direction", "type"}),

		objectsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_received_total",
			Help:      "Total number of objects routed to subscriptions",
		}, []string{"forwarding"}),

		objectBytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_bytes_received_total",
			Help:      "Total number of object payload bytes routed to subscriptions",
		}),

		objectsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_sent_total",
			Help:      "Total number of objects written",
		}, []string{"forwarding"}),

		protocolViolations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_violations_total",
			Help:      "Total number of object streams aborted for protocol violations",
		}),
	}
}

func (m *Metrics) sessionOpened(handshake time.Duration) {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
	m.handshakeDuration.Observe(handshake.Seconds())
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *Metrics) handshakeFailed() {
	if m == nil {
		return
	}
	m.handshakeFailures.Inc()
}

func (m *Metrics) subscriptionAdded() {
	if m == nil {
		return
	}
	m.subscriptionsActive.Inc()
}

func (m *Metrics) subscriptionRemoved() {
	if m == nil {
		return
	}
	m.subscriptionsActive.Dec()
}

func (m *Metrics) subscribeResult(result string) {
	if m == nil {
		return
	}
	m.subscribeResults.WithLabelValues(result).Inc()
}

func (m *Metrics) controlMessage(direction string, t message.MessageType) {
	if m == nil {
		return
	}
	m.controlMessages.WithLabelValues(direction, t.String()).Inc()
}

func (m *Metrics) objectReceived(obj ObjectMessage) {
	if m == nil {
		return
	}
	m.objectsReceived.WithLabelValues(obj.Forwarding.String()).Inc()
	m.objectBytesReceived.Add(float64(len(obj.Payload)))
}

func (m *Metrics) objectSent(f Forwarding) {
	if m == nil {
		return
	}
	m.objectsSent.WithLabelValues(f.String()).Inc()
}

func (m *Metrics) protocolViolation() {
	if m == nil {
		return
	}
	m.protocolViolations.Inc()
}
