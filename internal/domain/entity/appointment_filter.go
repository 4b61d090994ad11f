package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentFilter is a domain-level filter for listing a provider's appointments.
// Used by repository layer to avoid coupling with delivery DTOs.
type AppointmentFilter struct {
	ProviderID uuid.UUID
	Status     AppointmentStatus // empty means any
	From       *time.Time
	To         *time.Time
	Limit      int // zero means no limit
	Offset     int
}
