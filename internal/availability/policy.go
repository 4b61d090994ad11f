// Package availability holds the scheduling policy constants and the pure
// slot derivation used by the booking flows.
package availability

import "time"

const (
	// SlotWidth is the fixed grid every bookable start time sits on.
	SlotWidth = 20 * time.Minute

	// CancellationCutoff is the minimum lead time for a patient-initiated cancellation.
	CancellationCutoff = 24 * time.Hour

	// TokenExpiryFloor is the expiry granted to a cancellation token minted
	// when the appointment is already inside the cutoff.
	TokenExpiryFloor = time.Hour

	// DefaultBookingHorizonDays bounds how far ahead patients may query or book.
	DefaultBookingHorizonDays = 30

	// DefaultReminderWindowStart and DefaultReminderWindowEnd bound the
	// lead time at which reminders go out.
	DefaultReminderWindowStart = 29 * time.Hour
	DefaultReminderWindowEnd   = 31 * time.Hour
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)
