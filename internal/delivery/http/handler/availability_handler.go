package handler

import (
	"net/http"

	"clinic-booking/internal/usecase"
	"clinic-booking/pkg/response"

	"github.com/gorilla/mux"
)

// AvailabilityHandler serves the public booking form reads. {provider} is a
// UUID or a username.
type AvailabilityHandler struct {
	availabilityUsecase usecase.AvailabilityUsecase
}

func NewAvailabilityHandler(availabilityUsecase usecase.AvailabilityUsecase) *AvailabilityHandler {
	return &AvailabilityHandler{
		availabilityUsecase: availabilityUsecase,
	}
}

func (h *AvailabilityHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	provider, err := h.availabilityUsecase.GetProvider(r.Context(), mux.Vars(r)["provider"])
	if err != nil {
		writeError(w, err, "Failed to get provider")
		return
	}

	response.Success(w, http.StatusOK, "Provider retrieved successfully", provider)
}

func (h *AvailabilityHandler) GetAvailableTimes(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		response.ValidationError(w, map[string]string{"date": "date is required"})
		return
	}

	times, err := h.availabilityUsecase.GetAvailableTimes(r.Context(), mux.Vars(r)["provider"], date)
	if err != nil {
		writeError(w, err, "Failed to get available times")
		return
	}

	response.Success(w, http.StatusOK, "Available times retrieved successfully", times)
}

func (h *AvailabilityHandler) GetWorkSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.availabilityUsecase.GetWorkSchedule(r.Context(), mux.Vars(r)["provider"])
	if err != nil {
		writeError(w, err, "Failed to get work schedule")
		return
	}

	response.Success(w, http.StatusOK, "Work schedule retrieved successfully", schedule)
}
