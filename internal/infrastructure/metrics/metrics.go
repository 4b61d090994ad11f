package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters and histograms for the booking flows.
// A nil *BookingMetrics is valid and records nothing.
type BookingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	cancellationsTotal *prometheus.CounterVec
	cacheTotal         *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	remindersTotal     *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "appointments_total",
			Help:      "Appointment creation attempts by outcome",
		}, []string{"outcome"}),
		cancellationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "cancellations_total",
			Help:      "Cancellation attempts by actor and outcome",
		}, []string{"actor", "outcome"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "cache_lookups_total",
			Help:      "Availability cache lookups by kind and result",
		}, []string{"kind", "result"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Outbound notifications by channel, kind and status",
		}, []string{"channel", "kind", "status"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notify",
			Name:      "reminders_total",
			Help:      "Reminder dispatch results",
		}, []string{"status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status class",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.cancellationsTotal, m.cacheTotal, m.notificationsTotal, m.remindersTotal, m.httpLatency)
	return m
}

func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveCancellation(actor, outcome string) {
	if m == nil {
		return
	}
	m.cancellationsTotal.WithLabelValues(actor, outcome).Inc()
}

func (m *BookingMetrics) ObserveCache(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheTotal.WithLabelValues(kind, result).Inc()
}

func (m *BookingMetrics) ObserveNotification(channel, kind string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.notificationsTotal.WithLabelValues(channel, kind, status).Inc()
}

func (m *BookingMetrics) ObserveReminder(status string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, route, status).Observe(seconds)
}
