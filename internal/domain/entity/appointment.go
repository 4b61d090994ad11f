package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus represents the lifecycle of a booked visit
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// CancelledBy records which side cancelled an appointment
const (
	CancelledByPatient  = "patient"
	CancelledByProvider = "provider"
)

// Appointment is one booked visit. At most one scheduled row may exist per
// (provider, date, time); the database enforces it with a partial unique index.
type Appointment struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProviderID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"provider_id"`
	PatientID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	AppointmentDate   time.Time         `gorm:"type:date;not null;index" json:"appointment_date"`
	AppointmentTime   string            `gorm:"type:time;not null" json:"appointment_time"`
	VisitTypeID       int               `gorm:"not null" json:"visit_type_id"`
	ConsultTypeID     *int              `json:"consult_type_id,omitempty"`
	PracticeTypeID    *int              `json:"practice_type_id,omitempty"`
	HealthInsurance   string            `gorm:"type:varchar(255);not null" json:"health_insurance"`
	Notes             string            `gorm:"type:text" json:"notes,omitempty"`
	Status            AppointmentStatus `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"status"`
	CancellationToken string            `gorm:"type:text" json:"-"`
	CancelledBy       string            `gorm:"type:varchar(20)" json:"cancelled_by,omitempty"`
	CancelledAt       *time.Time        `json:"cancelled_at,omitempty"`
	WhatsAppSent      bool              `gorm:"column:whatsapp_sent;not null;default:false" json:"whatsapp_sent"`
	WhatsAppSentAt    *time.Time        `gorm:"column:whatsapp_sent_at" json:"whatsapp_sent_at,omitempty"`
	WhatsAppMessageID string            `gorm:"column:whatsapp_message_id;type:varchar(255)" json:"whatsapp_message_id,omitempty"`
	ReminderSentAt    *time.Time        `json:"reminder_sent_at,omitempty"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Provider     Provider      `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
	Patient      Patient       `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	VisitType    VisitType     `gorm:"foreignKey:VisitTypeID" json:"visit_type,omitempty"`
	ConsultType  *ConsultType  `gorm:"foreignKey:ConsultTypeID" json:"consult_type,omitempty"`
	PracticeType *PracticeType `gorm:"foreignKey:PracticeTypeID" json:"practice_type,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// IsScheduled checks if the appointment is still active
func (a *Appointment) IsScheduled() bool {
	return a.Status == AppointmentStatusScheduled
}

// IsTerminal reports whether no further transition is allowed
func (a *Appointment) IsTerminal() bool {
	return a.Status == AppointmentStatusCancelled || a.Status == AppointmentStatusCompleted
}

// Cancel moves the appointment to cancelled
func (a *Appointment) Cancel(by string, at time.Time) {
	a.Status = AppointmentStatusCancelled
	a.CancelledBy = by
	a.CancelledAt = &at
}
