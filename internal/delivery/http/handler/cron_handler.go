package handler

import (
	"net/http"

	"clinic-booking/internal/usecase"
	"clinic-booking/pkg/response"
)

// CronHandler exposes the reminder sweep to an external scheduler. It runs
// the same usecase as the in-process worker.
type CronHandler struct {
	reminderUsecase usecase.ReminderUsecase
}

func NewCronHandler(reminderUsecase usecase.ReminderUsecase) *CronHandler {
	return &CronHandler{
		reminderUsecase: reminderUsecase,
	}
}

func (h *CronHandler) SendReminders(w http.ResponseWriter, r *http.Request) {
	run, err := h.reminderUsecase.SendDueReminders(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to send reminders")
		return
	}

	response.Success(w, http.StatusOK, "Reminders processed", run)
}
