package repository

import (
	"context"
	"time"

	"clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	// InsertScheduled fails with a unique violation when the slot already
	// holds a scheduled appointment.
	InsertScheduled(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindScheduledForPatientSlot(ctx context.Context, db *gorm.DB, phone string, providerID uuid.UUID, date time.Time, at string) (*entity.Appointment, error)
	ListBookedTimes(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) ([]string, error)
	ListByFilter(ctx context.Context, db *gorm.DB, filter *entity.AppointmentFilter) ([]entity.Appointment, int64, error)
	ListScheduledFrom(ctx context.Context, db *gorm.DB, providerID uuid.UUID, from time.Time) ([]entity.Appointment, error)
	ListDueForReminder(ctx context.Context, db *gorm.DB, from, to time.Time) ([]entity.Appointment, error)
	// MarkCancelled only transitions scheduled rows. Zero affected rows means
	// the appointment was already terminal.
	MarkCancelled(ctx context.Context, db *gorm.DB, id uuid.UUID, by string, at time.Time) (int64, error)
	SetCancellationToken(ctx context.Context, db *gorm.DB, id uuid.UUID, token string) error
	MarkNotificationSent(ctx context.Context, db *gorm.DB, id uuid.UUID, messageID string, at time.Time) error
	ClaimReminder(ctx context.Context, db *gorm.DB, id uuid.UUID, at time.Time) (bool, error)
	ReleaseReminder(ctx context.Context, db *gorm.DB, id uuid.UUID, at time.Time) error
}
