// Package metrics exposes seat-sensor counters and gauges for Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/seat-sensor/internal/logic"
)

const namespace = "seat_sensor"

// Metrics holds the collectors for one seat. Each instance owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	occupied      prometheus.Gauge
	emptySeconds  prometheus.Gauge
	samples       *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	readErrors    prometheus.Counter
	publishErrors *prometheus.CounterVec
	mqttConnected prometheus.Gauge
}

// New creates and registers the collectors, labelled with seat and channel.
func New(seatID string, channel int) *Metrics {
	labels := prometheus.Labels{"seat": seatID, "channel": strconv.Itoa(channel)}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		occupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "occupied",
			Help:        "Debounced seat status (1 = occupied, 0 = free).",
			ConstLabels: labels,
		}),
		emptySeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "empty_seconds",
			Help:        "Seconds the seat has continuously read empty.",
			ConstLabels: labels,
		}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "samples_total",
			Help:        "Raw presence samples by reading.",
			ConstLabels: labels,
		}, []string{"present"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "transitions_total",
			Help:        "Debounced status changes by new status.",
			ConstLabels: labels,
		}, []string{"status"}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "read_errors_total",
			Help:        "Failed sensor reads.",
			ConstLabels: labels,
		}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "publish_errors_total",
			Help:        "Failed MQTT publishes by message kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		mqttConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "mqtt_connected",
			Help:        "Whether the MQTT connection is open.",
			ConstLabels: labels,
		}),
	}

	m.registry.MustRegister(
		m.occupied,
		m.emptySeconds,
		m.samples,
		m.transitions,
		m.readErrors,
		m.publishErrors,
		m.mqttConnected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSample records a raw sample and the detector state after it.
func (m *Metrics) ObserveSample(present bool, st logic.Status, emptySeconds float64) {
	m.samples.WithLabelValues(strconv.FormatBool(present)).Inc()
	if st == logic.StatusOccupied {
		m.occupied.Set(1)
	} else {
		m.occupied.Set(0)
	}
	m.emptySeconds.Set(emptySeconds)
}

// ObserveTransition counts a debounced status change.
func (m *Metrics) ObserveTransition(event logic.Event) {
	m.transitions.WithLabelValues(string(event.Status)).Inc()
}

// ReadError counts a failed sensor read.
func (m *Metrics) ReadError() {
	m.readErrors.Inc()
}

// PublishError counts a failed publish of the given kind ("event" or "system").
func (m *Metrics) PublishError(kind string) {
	m.publishErrors.WithLabelValues(kind).Inc()
}

// SetMQTTConnected records the broker connection state.
func (m *Metrics) SetMQTTConnected(connected bool) {
	if connected {
		m.mqttConnected.Set(1)
	} else {
		m.mqttConnected.Set(0)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
