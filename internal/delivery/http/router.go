package http

import (
	"net/http"

	"clinic-booking/internal/delivery/http/handler"
	"clinic-booking/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth           *handler.AuthHandler
	Appointment    *handler.AppointmentHandler
	Availability   *handler.AvailabilityHandler
	WorkSchedule   *handler.WorkScheduleHandler
	Unavailability *handler.UnavailabilityHandler
	Catalog        *handler.CatalogHandler
	AuditLog       *handler.AuditLogHandler
	Cron           *handler.CronHandler
	Health         *handler.HealthHandler
}

type Middlewares struct {
	Auth    *middleware.AuthMiddleware
	CORS    *middleware.CORSMiddleware
	Cron    *middleware.CronMiddleware
	Logging *middleware.LoggingMiddleware
}

type Router struct {
	router      *mux.Router
	handlers    Handlers
	middlewares Middlewares
	gatherer    prometheus.Gatherer
}

// NewRouter builds the router. A nil gatherer leaves /metrics unmounted.
func NewRouter(handlers Handlers, middlewares Middlewares, gatherer prometheus.Gatherer) *Router {
	return &Router{
		router:      mux.NewRouter(),
		handlers:    handlers,
		middlewares: middlewares,
		gatherer:    gatherer,
	}
}

func (r *Router) Setup() *mux.Router {
	h := r.handlers

	// Health
	r.router.HandleFunc("/health", h.Health.Check).Methods(http.MethodGet)
	if r.gatherer != nil {
		r.router.Handle("/metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", h.Health.Check).Methods(http.MethodGet)

	// Booking form (public)
	api.HandleFunc("/providers/{provider}", h.Availability.GetProvider).Methods(http.MethodGet)
	api.HandleFunc("/providers/{provider}/available-times", h.Availability.GetAvailableTimes).Methods(http.MethodGet)
	api.HandleFunc("/providers/{provider}/work-schedule", h.Availability.GetWorkSchedule).Methods(http.MethodGet)
	api.HandleFunc("/appointments", h.Appointment.Create).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}", h.Appointment.GetDetail).Methods(http.MethodGet)
	api.HandleFunc("/appointments/{id}/cancel", h.Appointment.CancelByPatient).Methods(http.MethodPost)
	api.HandleFunc("/catalog/visit-types", h.Catalog.GetVisitTypes).Methods(http.MethodGet)
	api.HandleFunc("/catalog/health-insurances", h.Catalog.GetHealthInsurances).Methods(http.MethodGet)

	// Auth routes (public)
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", h.Auth.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", h.Auth.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh-token", h.Auth.RefreshToken).Methods(http.MethodPost)

	// Auth routes (protected)
	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.middlewares.Auth.Authenticate)
	authProtected.HandleFunc("/logout", h.Auth.Logout).Methods(http.MethodPost)
	authProtected.HandleFunc("/me", h.Auth.GetCurrentProvider).Methods(http.MethodGet)

	// Scheduler hook
	cron := api.PathPrefix("/cron").Subrouter()
	cron.Use(r.middlewares.Cron.Handle)
	cron.HandleFunc("/send-reminders", h.Cron.SendReminders).Methods(http.MethodGet, http.MethodPost)

	// Provider dashboard (protected)
	provider := api.PathPrefix("/provider").Subrouter()
	provider.Use(r.middlewares.Auth.Authenticate)

	provider.HandleFunc("/work-schedule", h.WorkSchedule.GetMySchedule).Methods(http.MethodGet)
	provider.HandleFunc("/work-schedule/ranges/{id:[0-9]+}", h.WorkSchedule.RemoveTimeRange).Methods(http.MethodDelete)
	provider.HandleFunc("/work-schedule/{weekday}", h.WorkSchedule.SetWorkingDay).Methods(http.MethodPut)
	provider.HandleFunc("/work-schedule/{weekday}/ranges", h.WorkSchedule.AddTimeRange).Methods(http.MethodPost)

	provider.HandleFunc("/unavailable-days", h.Unavailability.ListDays).Methods(http.MethodGet)
	provider.HandleFunc("/unavailable-days", h.Unavailability.AddDay).Methods(http.MethodPost)
	provider.HandleFunc("/unavailable-days/{date}", h.Unavailability.RemoveDay).Methods(http.MethodDelete)
	provider.HandleFunc("/unavailable-time-frames", h.Unavailability.ListTimeFrames).Methods(http.MethodGet)
	provider.HandleFunc("/unavailable-time-frames", h.Unavailability.AddTimeFrame).Methods(http.MethodPost)
	provider.HandleFunc("/unavailable-time-frames/{id:[0-9]+}", h.Unavailability.RemoveTimeFrame).Methods(http.MethodDelete)

	provider.HandleFunc("/appointments", h.Appointment.ListForProvider).Methods(http.MethodGet)
	provider.HandleFunc("/appointments/{id}/cancel", h.Appointment.CancelByProvider).Methods(http.MethodPost)
	provider.HandleFunc("/calendar", h.Appointment.GetCalendar).Methods(http.MethodGet)

	provider.HandleFunc("/health-insurances", h.Catalog.ReplaceHealthInsurances).Methods(http.MethodPut)

	provider.HandleFunc("/audit-logs", h.AuditLog.GetMyAuditLogs).Methods(http.MethodGet)
	provider.HandleFunc("/audit-logs/{id:[0-9]+}", h.AuditLog.GetAuditLog).Methods(http.MethodGet)

	// Preflight needs a matching route for the middleware chain to run.
	r.router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.router.Use(r.middlewares.CORS.Handle)
	r.router.Use(r.middlewares.Logging.Handle)

	return r.router
}
