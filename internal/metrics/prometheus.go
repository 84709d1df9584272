package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	pendingCalls     prometheus.Gauge
	calls            *prometheus.CounterVec
	callDuration     *prometheus.HistogramVec
	inboundMessages  *prometheus.CounterVec
	droppedMessages  *prometheus.CounterVec
	readyEvents      prometheus.Counter
	recoveries       prometheus.Counter
	events           *prometheus.CounterVec
	engineAttachment prometheus.Gauge
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		pendingCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "walletkit_bridge_pending_calls",
			Help: "The number of bridge calls awaiting a response",
		}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletkit_bridge_calls_total",
			Help: "The total number of bridge calls by method and outcome",
		}, []string{"method", "outcome"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "walletkit_bridge_call_duration_seconds",
			Help:    "Time from issuing a bridge call to its resolution",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		inboundMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletkit_bridge_inbound_messages_total",
			Help: "The total number of messages received from JavaScript by kind",
		}, []string{"kind"}),
		droppedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletkit_bridge_dropped_messages_total",
			Help: "The total number of inbound messages dropped by reason",
		}, []string{"reason"}),
		readyEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walletkit_bridge_ready_events_total",
			Help: "The total number of ready messages received",
		}),
		recoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walletkit_bridge_context_recoveries_total",
			Help: "The total number of JavaScript context losses recovered from",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletkit_bridge_events_total",
			Help: "The total number of events delivered to handlers by type",
		}, []string{"type"}),
		engineAttachment: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "walletkit_bridge_engine_attached",
			Help: "Whether a WebView is attached to the engine",
		}),
	}
	metrics.register()
	return metrics
}

func (m *Metrics) register() {
	prometheus.MustRegister(m.pendingCalls)
	prometheus.MustRegister(m.calls)
	prometheus.MustRegister(m.callDuration)
	prometheus.MustRegister(m.inboundMessages)
	prometheus.MustRegister(m.droppedMessages)
	prometheus.MustRegister(m.readyEvents)
	prometheus.MustRegister(m.recoveries)
	prometheus.MustRegister(m.events)
	prometheus.MustRegister(m.engineAttachment)
}

func (m *Metrics) SetPendingCalls(n int) {
	if m == nil {
		return
	}
	m.pendingCalls.Set(float64(n))
}

func (m *Metrics) ObserveCall(method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(method, outcome).Inc()
	m.callDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *Metrics) IncrementInbound(kind string) {
	if m == nil {
		return
	}
	m.inboundMessages.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementDropped(reason string) {
	if m == nil {
		return
	}
	m.droppedMessages.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementReadyEvents() {
	if m == nil {
		return
	}
	m.readyEvents.Inc()
}

func (m *Metrics) IncrementRecoveries() {
	if m == nil {
		return
	}
	m.recoveries.Inc()
}

func (m *Metrics) IncrementEvents(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

func (m *Metrics) SetEngineAttached(attached bool) {
	if m == nil {
		return
	}
	if attached {
		m.engineAttachment.Set(1)
		return
	}
	m.engineAttachment.Set(0)
}
