package repository

import (
	"context"
	"errors"
	"time"

	"clinic-booking/internal/domain/entity"
	domainRepo "clinic-booking/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) InsertScheduled(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error {
	appointment.Status = entity.AppointmentStatusScheduled
	return db.WithContext(ctx).
		Omit("Provider", "Patient", "VisitType", "ConsultType", "PracticeType").
		Create(appointment).Error
}

func (r *appointmentRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.WithContext(ctx).
		Preload("Provider").Preload("Patient").Preload("VisitType").
		Preload("ConsultType").Preload("PracticeType").
		Where("id = ?", id).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindScheduledForPatientSlot(ctx context.Context, db *gorm.DB, phone string, providerID uuid.UUID, date time.Time, at string) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.WithContext(ctx).
		Joins("JOIN patients ON patients.id = appointments.patient_id").
		Where("patients.phone_number = ?", phone).
		Where("appointments.provider_id = ? AND appointments.appointment_date = ? AND appointments.appointment_time = ?", providerID, date, at).
		Where("appointments.status = ?", entity.AppointmentStatusScheduled).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) ListBookedTimes(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) ([]string, error) {
	var times []string
	err := db.WithContext(ctx).
		Model(&entity.Appointment{}).
		Where("provider_id = ? AND appointment_date = ? AND status = ?", providerID, date, entity.AppointmentStatusScheduled).
		Pluck("appointment_time", &times).Error
	if err != nil {
		return nil, err
	}
	return times, nil
}

func (r *appointmentRepository) ListByFilter(ctx context.Context, db *gorm.DB, filter *entity.AppointmentFilter) ([]entity.Appointment, int64, error) {
	var appointments []entity.Appointment
	var total int64

	query := db.WithContext(ctx).Model(&entity.Appointment{}).Where("provider_id = ?", filter.ProviderID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("appointment_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("appointment_date <= ?", *filter.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Patient").Preload("VisitType").Preload("ConsultType").Preload("PracticeType").
		Order("appointment_date ASC, appointment_time ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := query.Find(&appointments).Error; err != nil {
		return nil, 0, err
	}
	return appointments, total, nil
}

func (r *appointmentRepository) ListScheduledFrom(ctx context.Context, db *gorm.DB, providerID uuid.UUID, from time.Time) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.WithContext(ctx).
		Where("provider_id = ? AND appointment_date >= ? AND status = ?", providerID, from, entity.AppointmentStatusScheduled).
		Order("appointment_date ASC, appointment_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// ListDueForReminder narrows by date only; the caller filters on the exact instant.
func (r *appointmentRepository) ListDueForReminder(ctx context.Context, db *gorm.DB, from, to time.Time) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.WithContext(ctx).
		Preload("Provider").Preload("Patient").
		Where("status = ? AND reminder_sent_at IS NULL", entity.AppointmentStatusScheduled).
		Where("appointment_date BETWEEN ? AND ?", from, to).
		Order("appointment_date ASC, appointment_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) MarkCancelled(ctx context.Context, db *gorm.DB, id uuid.UUID, by string, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ? AND status = ?", id, entity.AppointmentStatusScheduled).
		Updates(map[string]interface{}{
			"status":       entity.AppointmentStatusCancelled,
			"cancelled_by": by,
			"cancelled_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) SetCancellationToken(ctx context.Context, db *gorm.DB, id uuid.UUID, token string) error {
	return db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ?", id).
		Update("cancellation_token", token).Error
}

func (r *appointmentRepository) MarkNotificationSent(ctx context.Context, db *gorm.DB, id uuid.UUID, messageID string, at time.Time) error {
	return db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"whatsapp_sent":       true,
			"whatsapp_sent_at":    at,
			"whatsapp_message_id": messageID,
		}).Error
}

// ClaimReminder stamps reminder_sent_at only if no other run got there first.
func (r *appointmentRepository) ClaimReminder(ctx context.Context, db *gorm.DB, id uuid.UUID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ? AND status = ? AND reminder_sent_at IS NULL", id, entity.AppointmentStatusScheduled).
		Update("reminder_sent_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseReminder undoes a claim whose send failed, so the next run retries it.
func (r *appointmentRepository) ReleaseReminder(ctx context.Context, db *gorm.DB, id uuid.UUID, at time.Time) error {
	return db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ? AND reminder_sent_at = ?", id, at).
		Update("reminder_sent_at", nil).Error
}
