package usecase

import (
	"errors"
	"strings"

	"clinic-booking/internal/availability"
	"clinic-booking/internal/service"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProviderNotFound     = errors.New("provider not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrVisitTypeNotFound    = errors.New("visit type not found")
	ErrConsultTypeNotFound  = errors.New("consult type not found")
	ErrPracticeTypeNotFound = errors.New("practice type not found")
	ErrAuditLogNotFound     = errors.New("audit log not found")

	ErrInvalidDate      = availability.ErrInvalidDate
	ErrInvalidClock     = availability.ErrInvalidClock
	ErrInvalidWeekday   = errors.New("invalid day of week")
	ErrInvalidVisitType = errors.New("consult bookings need a consult type and practice bookings need a practice type, never both")
	ErrPastDate         = errors.New("date has already passed")
	ErrBeyondHorizon    = errors.New("date is beyond the booking horizon")

	ErrInvalidRange           = availability.ErrInvalidRange
	ErrOverlappingRange       = errors.New("time range overlaps an existing range for this day")
	ErrRangeHasBookings       = errors.New("time range has upcoming appointments")
	ErrRangeNotFound          = errors.New("time range not found")
	ErrUnavailableDayNotFound = errors.New("unavailable day not found")
	ErrTimeFrameNotFound      = errors.New("unavailable time frame not found")

	// ErrDuplicateBooking covers both the same patient re-booking a slot and
	// losing the insert race; callers see one outcome either way.
	ErrDuplicateBooking      = errors.New("this time slot is no longer available, please pick another")
	ErrSlotNoLongerAvailable = ErrDuplicateBooking
	ErrSlotNotOffered        = errors.New("the requested time is not offered on this date")

	ErrAlreadyTerminal = errors.New("appointment is already cancelled or completed")
	ErrTokenRequired   = errors.New("cancellation token is required")
	ErrTokenInvalid    = service.ErrTokenInvalid
	ErrTokenExpired    = service.ErrTokenExpired
	ErrCutoffPassed    = errors.New("appointments can only be cancelled at least 24 hours in advance")
	ErrNotOwner        = errors.New("appointment does not belong to this provider")
	ErrUnauthorized    = errors.New("provider not found in context")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrProviderInactive   = errors.New("provider account is disabled")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrUsernameTaken      = errors.New("username already taken")

	ErrDuplicateInsurance = errors.New("health insurance listed twice")
	ErrNegativeAmount     = errors.New("prices and deposits cannot be negative")
)

// isDuplicateKeyError checks if the error is a PostgreSQL unique violation
// containing the specified constraint name
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		if pgErr.Code == "23505" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}

// isForeignKeyError checks if the error is a PostgreSQL foreign key violation
// containing the specified constraint name
func isForeignKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23503 = foreign_key_violation
		if pgErr.Code == "23503" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}

// isCheckViolation reports a PostgreSQL check constraint failure (23514)
func isCheckViolation(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName))
	}
	return false
}
