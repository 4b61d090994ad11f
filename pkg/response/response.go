package response

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewMeta(page, limit int, total int64) *Meta {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &Meta{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

func JSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func Success(w http.ResponseWriter, statusCode int, message string, data any) {
	JSON(w, statusCode, Response{Success: true, Message: message, Data: data})
}

func SuccessWithMeta(w http.ResponseWriter, statusCode int, message string, data any, meta *Meta) {
	JSON(w, statusCode, Response{Success: true, Message: message, Data: data, Meta: meta})
}

func Error(w http.ResponseWriter, statusCode int, message string, detail any) {
	JSON(w, statusCode, Response{Message: message, Error: detail})
}

// Fail reports an error with a machine-readable code the UI can branch on.
func Fail(w http.ResponseWriter, statusCode int, code, message string) {
	JSON(w, statusCode, Response{Code: code, Message: message})
}

func ValidationError(w http.ResponseWriter, fields any) {
	JSON(w, http.StatusBadRequest, Response{
		Code:    "validation_error",
		Message: "Validation failed",
		Error:   fields,
	})
}

func Unauthorized(w http.ResponseWriter, message string) {
	status(w, http.StatusUnauthorized, message)
}

func Forbidden(w http.ResponseWriter, message string) {
	status(w, http.StatusForbidden, message)
}

func InternalServerError(w http.ResponseWriter, message string) {
	status(w, http.StatusInternalServerError, message)
}

// status falls back to the standard status text when message is empty.
func status(w http.ResponseWriter, code int, message string) {
	if message == "" {
		message = http.StatusText(code)
	}
	Error(w, code, message, nil)
}
