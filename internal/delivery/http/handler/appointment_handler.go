package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/usecase"
	"clinic-booking/pkg/response"
	"clinic-booking/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	appointmentUsecase  usecase.AppointmentUsecase
	cancellationUsecase usecase.CancellationUsecase
	validator           *validator.CustomValidator
}

func NewAppointmentHandler(
	appointmentUsecase usecase.AppointmentUsecase,
	cancellationUsecase usecase.CancellationUsecase,
	validator *validator.CustomValidator,
) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase:  appointmentUsecase,
		cancellationUsecase: cancellationUsecase,
		validator:           validator,
	}
}

// Create handles a public booking
// @Summary Book an appointment
// @Description Book a 20 minute slot; returns the appointment and its cancellation token
// @Tags Appointments
// @Accept json
// @Produce json
// @Param request body dto.CreateAppointmentRequest true "Booking Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments [post]
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	created, err := h.appointmentUsecase.Create(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to create appointment")
		return
	}

	response.Success(w, http.StatusCreated, "Appointment booked successfully", created)
}

// GetDetail handles the patient's view of one appointment
// @Summary Get appointment detail
// @Description Requires the cancellation token issued at booking
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Param token query string true "Cancellation token"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) GetDetail(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}

	detail, err := h.appointmentUsecase.GetDetail(r.Context(), appointmentID, r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, err, "Failed to get appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", detail)
}

// CancelByPatient handles cancellation through the emailed/WhatsApp link
// @Summary Cancel with token
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param request body dto.CancelAppointmentRequest true "Cancellation token"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments/{id}/cancel [post]
func (h *AppointmentHandler) CancelByPatient(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}

	var req dto.CancelAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	cancelled, err := h.cancellationUsecase.CancelByPatient(r.Context(), appointmentID, req.Token)
	if err != nil {
		writeError(w, err, "Failed to cancel appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment cancelled successfully", cancelled)
}

func (h *AppointmentHandler) CancelByProvider(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}

	cancelled, err := h.cancellationUsecase.CancelByProvider(r.Context(), appointmentID)
	if err != nil {
		writeError(w, err, "Failed to cancel appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment cancelled successfully", cancelled)
}

// ListForProvider handles the provider dashboard list
// @Summary List my appointments
// @Tags Provider
// @Security BearerAuth
// @Produce json
// @Param status query string false "scheduled, cancelled or completed"
// @Param date query string false "Single date (YYYY-MM-DD), overrides from/to"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /provider/appointments [get]
func (h *AppointmentHandler) ListForProvider(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	query := &dto.AppointmentListQuery{
		Status: q.Get("status"),
		Date:   q.Get("date"),
		From:   q.Get("from"),
		To:     q.Get("to"),
		Page:   page,
		Limit:  limit,
	}
	if err := h.validator.Validate(query); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	list, err := h.appointmentUsecase.ListForProvider(r.Context(), query)
	if err != nil {
		writeError(w, err, "Failed to get appointments")
		return
	}

	response.SuccessWithMeta(w, http.StatusOK, "Appointments retrieved successfully",
		list.Appointments, response.NewMeta(query.Page, query.Limit, list.Total))
}

func (h *AppointmentHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid year", nil)
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid month", nil)
		return
	}

	calendar, err := h.appointmentUsecase.GetCalendar(r.Context(), year, month)
	if err != nil {
		writeError(w, err, "Failed to get calendar")
		return
	}

	response.Success(w, http.StatusOK, "Calendar retrieved successfully", calendar)
}

func parseAppointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	appointmentID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return uuid.Nil, false
	}
	return appointmentID, true
}
