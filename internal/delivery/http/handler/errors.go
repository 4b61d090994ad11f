package handler

import (
	"errors"
	"net/http"

	"clinic-booking/internal/usecase"
	"clinic-booking/pkg/response"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// Checked in order with errors.Is; aliases such as ErrSlotNoLongerAvailable
// resolve to the first matching entry.
var errorMappings = []errorMapping{
	{usecase.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{usecase.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{usecase.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{usecase.ErrTokenRevoked, http.StatusUnauthorized, "token_revoked"},

	{usecase.ErrTokenInvalid, http.StatusForbidden, "token_invalid"},
	{usecase.ErrNotOwner, http.StatusForbidden, "not_owner"},
	{usecase.ErrProviderInactive, http.StatusForbidden, "provider_inactive"},

	{usecase.ErrProviderNotFound, http.StatusNotFound, "provider_not_found"},
	{usecase.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
	{usecase.ErrVisitTypeNotFound, http.StatusNotFound, "visit_type_not_found"},
	{usecase.ErrConsultTypeNotFound, http.StatusNotFound, "consult_type_not_found"},
	{usecase.ErrPracticeTypeNotFound, http.StatusNotFound, "practice_type_not_found"},
	{usecase.ErrAuditLogNotFound, http.StatusNotFound, "audit_log_not_found"},
	{usecase.ErrRangeNotFound, http.StatusNotFound, "range_not_found"},
	{usecase.ErrUnavailableDayNotFound, http.StatusNotFound, "unavailable_day_not_found"},
	{usecase.ErrTimeFrameNotFound, http.StatusNotFound, "time_frame_not_found"},

	{usecase.ErrDuplicateBooking, http.StatusConflict, "slot_unavailable"},
	{usecase.ErrOverlappingRange, http.StatusConflict, "overlapping_range"},
	{usecase.ErrRangeHasBookings, http.StatusConflict, "range_has_bookings"},
	{usecase.ErrAlreadyTerminal, http.StatusConflict, "already_terminal"},
	{usecase.ErrEmailAlreadyExists, http.StatusConflict, "email_taken"},
	{usecase.ErrUsernameTaken, http.StatusConflict, "username_taken"},

	{usecase.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{usecase.ErrInvalidClock, http.StatusBadRequest, "invalid_time"},
	{usecase.ErrInvalidWeekday, http.StatusBadRequest, "invalid_weekday"},
	{usecase.ErrInvalidVisitType, http.StatusBadRequest, "invalid_visit_type"},
	{usecase.ErrPastDate, http.StatusBadRequest, "past_date"},
	{usecase.ErrBeyondHorizon, http.StatusBadRequest, "beyond_horizon"},
	{usecase.ErrInvalidRange, http.StatusBadRequest, "invalid_range"},
	{usecase.ErrSlotNotOffered, http.StatusBadRequest, "slot_not_offered"},
	{usecase.ErrTokenRequired, http.StatusBadRequest, "token_required"},
	{usecase.ErrTokenExpired, http.StatusBadRequest, "token_expired"},
	{usecase.ErrCutoffPassed, http.StatusBadRequest, "cutoff_passed"},
	{usecase.ErrDuplicateInsurance, http.StatusBadRequest, "duplicate_insurance"},
	{usecase.ErrNegativeAmount, http.StatusBadRequest, "negative_amount"},
}

// writeError maps a usecase error to its HTTP status. Anything unknown is a 500
// carrying the fallback message, never the raw error text.
func writeError(w http.ResponseWriter, err error, fallback string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			response.Fail(w, m.status, m.code, err.Error())
			return
		}
	}
	response.InternalServerError(w, fallback)
}
