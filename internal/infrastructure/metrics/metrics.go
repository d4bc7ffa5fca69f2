// Package metrics expone las métricas Prometheus del pipeline de facturación.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics agrupa los colectores. Un *Metrics nil es válido y no registra nada,
// de modo que los tests pueden omitirlo.
type Metrics struct {
	// Latencia de cada llamada SOAP al SRI por operación y resultado.
	SRICallLatency *prometheus.HistogramVec

	// Transiciones de estado de comprobantes.
	Transitions *prometheus.CounterVec

	// Fallos de etapa por tipo de error (SCHEMA_VALIDATION, TRANSPORT_EXHAUSTED, ...).
	Failures *prometheus.CounterVec

	// Secuenciales reservados.
	SequenceReservations prometheus.Counter

	// Documentos procesados por el re-drive, por resultado.
	Redriven *prometheus.CounterVec

	// Duración total de Process por comprobante.
	ProcessLatency prometheus.Histogram
}

// New crea y registra las métricas en el registro por defecto.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registra las métricas en reg (tests usan prometheus.NewRegistry()).
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SRICallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sri_ws_request_duration_seconds",
			Help:    "Duración de llamadas a los servicios web del SRI",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation", "outcome"}), // operation: recepcion, autorizacion; outcome: ok, error

		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sri_pipeline_transitions_total",
			Help: "Transiciones de estado de comprobantes electrónicos",
		}, []string{"from", "to"}),

		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sri_pipeline_failures_total",
			Help: "Fallos de etapa del pipeline por tipo de error",
		}, []string{"kind"}),

		SequenceReservations: f.NewCounter(prometheus.CounterOpts{
			Name: "sri_sequence_reservations_total",
			Help: "Secuenciales reservados",
		}),

		Redriven: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sri_pipeline_redriven_total",
			Help: "Comprobantes re-procesados por el re-drive programado",
		}, []string{"result"}),

		ProcessLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sri_pipeline_process_duration_seconds",
			Help:    "Duración de Process por comprobante (incluye espera de autorización)",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
	}
}

// ObserveSRICall registra la duración de una llamada SOAP.
func (m *Metrics) ObserveSRICall(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SRICallLatency.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

// IncTransition cuenta una transición de estado.
func (m *Metrics) IncTransition(from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
	}
}

// IncRedriven cuenta un documento procesado por el re-drive.
func (m *Metrics) IncRedriven(result string) {
	if m != nil {
		m.Redriven.WithLabelValues(result).Inc()
	}
}

// ObserveProcess registra la duración de un Process completo.
func (m *Metrics) ObserveProcess(d time.Duration) {
	if m != nil {
		m.ProcessLatency.Observe(d.Seconds())
	}
}

// IncFailure cuenta un fallo de etapa por tipo de error.
func (m *Metrics) IncFailure(kind string) {
	if m != nil {
		m.Failures.WithLabelValues(kind).Inc()
	}
}

// IncReservation cuenta un secuencial reservado.
func (m *Metrics) IncReservation() {
	if m != nil {
		m.SequenceReservations.Inc()
	}
}
