package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics prometheus метрики сервиса.
// Все методы безопасны для nil-получателя: при выключенных метриках передается nil.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	dbQueryDuration   *prometheus.HistogramVec
	dbOpenConnections *prometheus.GaugeVec

	appointmentsCreated     *prometheus.CounterVec
	bookingConflicts        prometheus.Counter
	statusTransitions       *prometheus.CounterVec
	occurrencesMaterialized *prometheus.CounterVec
}

// New создает и регистрирует метрики в глобальном registry prometheus
func New(serviceName string) *Metrics {
	return NewWithRegisterer(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegisterer создает метрики в указанном registry
func NewWithRegisterer(serviceName string, reg prometheus.Registerer) *Metrics {
	ns := namespace(serviceName)
	f := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		dbQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "db_query_duration_seconds",
			Help:      "Database query latency.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation", "status"}),
		dbOpenConnections: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "db_connections",
			Help:      "Database connection pool state.",
		}, []string{"state"}),
		appointmentsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "appointments_created_total",
			Help:      "Appointments created, by initial status and origin.",
		}, []string{"status", "origin"}),
		bookingConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected because the slot was taken.",
		}),
		statusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "appointment_status_transitions_total",
			Help:      "Applied appointment status transitions.",
		}, []string{"from", "to", "actor"}),
		occurrencesMaterialized: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "recurrence_occurrences_total",
			Help:      "Processed recurring occurrences by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveHTTPRequest(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

func (m *Metrics) ObserveDBQuery(operation string, failed bool, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, status).Observe(seconds)
}

func (m *Metrics) SetDBConnections(open, inUse, idle int) {
	if m == nil {
		return
	}
	m.dbOpenConnections.WithLabelValues("open").Set(float64(open))
	m.dbOpenConnections.WithLabelValues("in_use").Set(float64(inUse))
	m.dbOpenConnections.WithLabelValues("idle").Set(float64(idle))
}

func (m *Metrics) IncAppointmentCreated(status, origin string) {
	if m == nil {
		return
	}
	m.appointmentsCreated.WithLabelValues(status, origin).Inc()
}

func (m *Metrics) IncBookingConflict() {
	if m == nil {
		return
	}
	m.bookingConflicts.Inc()
}

func (m *Metrics) IncStatusTransition(from, to, actor string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to, actor).Inc()
}

func (m *Metrics) IncOccurrence(result string) {
	if m == nil {
		return
	}
	m.occurrencesMaterialized.WithLabelValues(result).Inc()
}

func namespace(serviceName string) string {
	r := strings.NewReplacer("-", "_", ".", "_", " ", "_")
	return strings.ToLower(r.Replace(serviceName))
}
