package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/usecase"
	"clinic-booking/pkg/response"
	"clinic-booking/pkg/validator"

	"github.com/gorilla/mux"
)

type UnavailabilityHandler struct {
	unavailabilityUsecase usecase.UnavailabilityUsecase
	validator             *validator.CustomValidator
}

func NewUnavailabilityHandler(unavailabilityUsecase usecase.UnavailabilityUsecase, validator *validator.CustomValidator) *UnavailabilityHandler {
	return &UnavailabilityHandler{
		unavailabilityUsecase: unavailabilityUsecase,
		validator:             validator,
	}
}

// ListDays accepts optional from/to query dates.
func (h *UnavailabilityHandler) ListDays(w http.ResponseWriter, r *http.Request) {
	days, err := h.unavailabilityUsecase.ListDays(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, err, "Failed to get unavailable days")
		return
	}

	response.Success(w, http.StatusOK, "Unavailable days retrieved successfully", days)
}

func (h *UnavailabilityHandler) AddDay(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUnavailableDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	day, err := h.unavailabilityUsecase.AddDay(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to add unavailable day")
		return
	}

	response.Success(w, http.StatusCreated, "Unavailable day added successfully", day)
}

func (h *UnavailabilityHandler) RemoveDay(w http.ResponseWriter, r *http.Request) {
	if err := h.unavailabilityUsecase.RemoveDay(r.Context(), mux.Vars(r)["date"]); err != nil {
		writeError(w, err, "Failed to remove unavailable day")
		return
	}

	response.Success(w, http.StatusOK, "Unavailable day removed successfully", nil)
}

func (h *UnavailabilityHandler) ListTimeFrames(w http.ResponseWriter, r *http.Request) {
	frames, err := h.unavailabilityUsecase.ListTimeFrames(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, err, "Failed to get unavailable time frames")
		return
	}

	response.Success(w, http.StatusOK, "Unavailable time frames retrieved successfully", frames)
}

func (h *UnavailabilityHandler) AddTimeFrame(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTimeFrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	frame, err := h.unavailabilityUsecase.AddTimeFrame(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to add unavailable time frame")
		return
	}

	response.Success(w, http.StatusCreated, "Unavailable time frame added successfully", frame)
}

func (h *UnavailabilityHandler) RemoveTimeFrame(w http.ResponseWriter, r *http.Request) {
	frameID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid time frame ID", nil)
		return
	}

	if err := h.unavailabilityUsecase.RemoveTimeFrame(r.Context(), frameID); err != nil {
		writeError(w, err, "Failed to remove unavailable time frame")
		return
	}

	response.Success(w, http.StatusOK, "Unavailable time frame removed successfully", nil)
}
