package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

// CreateAppointmentRequest is the single accepted booking shape.
type CreateAppointmentRequest struct {
	ProviderID      string `json:"provider_id" validate:"required"` // UUID or username
	FirstName       string `json:"first_name" validate:"required,min=2,max=100"`
	LastName        string `json:"last_name" validate:"required,min=2,max=100"`
	PhoneNumber     string `json:"phone_number" validate:"required,phone"`
	AppointmentDate string `json:"appointment_date" validate:"required,isodate"` // Format: YYYY-MM-DD
	AppointmentTime string `json:"appointment_time" validate:"required,hhmm"`    // Format: HH:MM
	VisitTypeID     int    `json:"visit_type_id" validate:"required,oneof=1 2"`
	ConsultTypeID   *int   `json:"consult_type_id" validate:"omitempty,min=1"`
	PracticeTypeID  *int   `json:"practice_type_id" validate:"omitempty,min=1"`
	HealthInsurance string `json:"health_insurance" validate:"required,max=255"`
	Notes           string `json:"notes" validate:"omitempty,max=2000"`
}

type CancelAppointmentRequest struct {
	Token string `json:"token"`
}

// AppointmentListQuery carries the provider dashboard filters.
type AppointmentListQuery struct {
	Status string `validate:"omitempty,oneof=scheduled cancelled completed"`
	Date   string `validate:"omitempty,isodate"`
	From   string `validate:"omitempty,isodate"`
	To     string `validate:"omitempty,isodate"`
	Page   int    `validate:"min=1"`
	Limit  int    `validate:"min=1,max=100"`
}

// Response DTOs

type PatientResponse struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	PhoneNumber string    `json:"phone_number"`
}

type AppointmentResponse struct {
	ID              uuid.UUID               `json:"id"`
	Provider        *PublicProviderResponse `json:"provider,omitempty"`
	Patient         *PatientResponse        `json:"patient,omitempty"`
	AppointmentDate string                  `json:"appointment_date"`
	AppointmentTime string                  `json:"appointment_time"`
	VisitType       *CatalogItemResponse    `json:"visit_type,omitempty"`
	ConsultType     *CatalogItemResponse    `json:"consult_type,omitempty"`
	PracticeType    *CatalogItemResponse    `json:"practice_type,omitempty"`
	HealthInsurance string                  `json:"health_insurance"`
	Notes           string                  `json:"notes,omitempty"`
	Status          string                  `json:"status"`
	CancelledBy     string                  `json:"cancelled_by,omitempty"`
	CancelledAt     *time.Time              `json:"cancelled_at,omitempty"`
	WhatsAppSent    bool                    `json:"whatsapp_sent"`
	CreatedAt       time.Time               `json:"created_at"`
}

type CreateAppointmentResponse struct {
	Appointment       *AppointmentResponse `json:"appointment"`
	CancellationToken string               `json:"cancellation_token"`
	IsExistingPatient bool                 `json:"is_existing_patient"`
	Deposit           *decimal.Decimal     `json:"deposit,omitempty"`
}

type AppointmentDetailResponse struct {
	Appointment *AppointmentResponse `json:"appointment"`
	CanCancel   bool                 `json:"can_cancel"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int64                 `json:"total"`
}

type CalendarDay struct {
	Date         string                `json:"date"`
	Unavailable  bool                  `json:"unavailable"`
	WorkingDay   bool                  `json:"working_day"`
	Appointments []AppointmentResponse `json:"appointments"`
}

type CalendarResponse struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []CalendarDay `json:"days"`
}

type ReminderRunResponse struct {
	Candidates int `json:"candidates"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}
