package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	namespace = "siteops"

	safetyTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "ticks_total",
			Help:      "Total number of safety monitor evaluations",
		},
	)

	safetyTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one safety monitor evaluation",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	safetyAlertsRaisedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "alerts_raised_total",
			Help:      "Total number of new alert conditions by type and severity",
		},
		[]string{"type", "severity"},
	)

	safetyActiveConditions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "active_conditions",
			Help:      "Number of alert conditions active after the last tick",
		},
	)

	safetyMonitoring = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "monitoring_enabled",
			Help:      "Whether periodic safety monitoring is running (0=stopped, 1=running)",
		},
	)

	cueDeliveryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "cue_delivery_total",
			Help:      "Total number of alert cue deliveries by sink and status",
		},
		[]string{"sink", "status"},
	)

	taskTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "status_transitions_total",
			Help:      "Total number of task status changes by source and destination",
		},
		[]string{"from", "to"},
	)

	externalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "call_duration_seconds",
			Help:      "Duration of calls to external tools and APIs",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"service", "status"},
	)

	telemetryMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "messages_total",
			Help:      "Total number of position telemetry messages by kind and status",
		},
		[]string{"kind", "status"},
	)

	websocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "clients",
			Help:      "Number of connected websocket clients",
		},
	)
)

func RecordSafetyTick(duration time.Duration, activeConditions int) {
	safetyTicksTotal.Inc()
	safetyTickDuration.Observe(duration.Seconds())
	safetyActiveConditions.Set(float64(activeConditions))
}

func RecordAlertRaised(alertType, severity string) {
	safetyAlertsRaisedTotal.WithLabelValues(alertType, severity).Inc()
}

func RecordMonitoring(running bool) {
	value := 0.0
	if running {
		value = 1.0
	}

	safetyMonitoring.Set(value)
}

func RecordCueDelivery(sink string, err error) {
	cueDeliveryTotal.WithLabelValues(sink, statusLabel(err)).Inc()
}

func RecordTaskTransition(from, to string) {
	taskTransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordExternalCall(service string, duration time.Duration, err error) {
	externalCallDuration.WithLabelValues(service, statusLabel(err)).Observe(duration.Seconds())
}

func RecordTelemetryMessage(kind string, err error) {
	telemetryMessagesTotal.WithLabelValues(kind, statusLabel(err)).Inc()
}

func RecordWebsocketClients(count int) {
	websocketClients.Set(float64(count))
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
