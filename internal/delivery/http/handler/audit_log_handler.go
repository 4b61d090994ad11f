package handler

import (
	"net/http"
	"strconv"

	"clinic-booking/internal/usecase"
	"clinic-booking/pkg/response"

	"github.com/gorilla/mux"
)

type AuditLogHandler struct {
	auditLogUsecase usecase.AuditLogUsecase
}

func NewAuditLogHandler(auditLogUsecase usecase.AuditLogUsecase) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUsecase: auditLogUsecase,
	}
}

func (h *AuditLogHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	auditLogID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid audit log ID", nil)
		return
	}

	auditLog, err := h.auditLogUsecase.GetAuditLog(r.Context(), auditLogID)
	if err != nil {
		writeError(w, err, "Failed to get audit log")
		return
	}

	response.Success(w, http.StatusOK, "Audit log retrieved successfully", auditLog)
}

func (h *AuditLogHandler) GetMyAuditLogs(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	auditLogs, err := h.auditLogUsecase.GetMyAuditLogs(r.Context(), page, limit)
	if err != nil {
		writeError(w, err, "Failed to get audit logs")
		return
	}

	response.SuccessWithMeta(w, http.StatusOK, "Audit logs retrieved successfully",
		auditLogs.Logs, response.NewMeta(page, limit, auditLogs.Total))
}
