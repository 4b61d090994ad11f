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

type WorkScheduleHandler struct {
	workScheduleUsecase usecase.WorkScheduleUsecase
	validator           *validator.CustomValidator
}

func NewWorkScheduleHandler(workScheduleUsecase usecase.WorkScheduleUsecase, validator *validator.CustomValidator) *WorkScheduleHandler {
	return &WorkScheduleHandler{
		workScheduleUsecase: workScheduleUsecase,
		validator:           validator,
	}
}

func (h *WorkScheduleHandler) GetMySchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.workScheduleUsecase.GetMySchedule(r.Context())
	if err != nil {
		writeError(w, err, "Failed to get work schedule")
		return
	}

	response.Success(w, http.StatusOK, "Work schedule retrieved successfully", schedule)
}

func (h *WorkScheduleHandler) SetWorkingDay(w http.ResponseWriter, r *http.Request) {
	var req dto.SetWorkingDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	day, err := h.workScheduleUsecase.SetWorkingDay(r.Context(), mux.Vars(r)["weekday"], &req)
	if err != nil {
		writeError(w, err, "Failed to update working day")
		return
	}

	response.Success(w, http.StatusOK, "Working day updated successfully", day)
}

func (h *WorkScheduleHandler) AddTimeRange(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTimeRangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	created, err := h.workScheduleUsecase.AddTimeRange(r.Context(), mux.Vars(r)["weekday"], &req)
	if err != nil {
		writeError(w, err, "Failed to add time range")
		return
	}

	response.Success(w, http.StatusCreated, "Time range added successfully", created)
}

func (h *WorkScheduleHandler) RemoveTimeRange(w http.ResponseWriter, r *http.Request) {
	rangeID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid time range ID", nil)
		return
	}

	if err := h.workScheduleUsecase.RemoveTimeRange(r.Context(), rangeID); err != nil {
		writeError(w, err, "Failed to remove time range")
		return
	}

	response.Success(w, http.StatusOK, "Time range removed successfully", nil)
}
