package converter

import (
	"clinic-booking/internal/availability"
	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO.
// Preloaded relations are included when present.
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	clock := appointment.AppointmentTime
	if normalized, err := availability.NormalizeClock(clock); err == nil {
		clock = normalized
	}

	response := &dto.AppointmentResponse{
		ID:              appointment.ID,
		AppointmentDate: availability.CivilDate(appointment.AppointmentDate),
		AppointmentTime: clock,
		HealthInsurance: appointment.HealthInsurance,
		Notes:           appointment.Notes,
		Status:          string(appointment.Status),
		CancelledBy:     appointment.CancelledBy,
		CancelledAt:     appointment.CancelledAt,
		WhatsAppSent:    appointment.WhatsAppSent,
		CreatedAt:       appointment.CreatedAt,
	}

	if appointment.Provider.ID != uuid.Nil {
		response.Provider = ProviderToPublicResponse(&appointment.Provider)
	}
	if appointment.Patient.ID != uuid.Nil {
		response.Patient = PatientToResponse(&appointment.Patient)
	}
	if appointment.VisitType.ID != 0 {
		response.VisitType = &dto.CatalogItemResponse{ID: appointment.VisitType.ID, Name: appointment.VisitType.Name}
	}
	if appointment.ConsultType != nil {
		response.ConsultType = &dto.CatalogItemResponse{ID: appointment.ConsultType.ID, Name: appointment.ConsultType.Name}
	}
	if appointment.PracticeType != nil {
		response.PracticeType = &dto.CatalogItemResponse{ID: appointment.PracticeType.ID, Name: appointment.PracticeType.Name}
	}

	return response
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}

func PatientToResponse(patient *entity.Patient) *dto.PatientResponse {
	if patient == nil {
		return nil
	}

	return &dto.PatientResponse{
		ID:          patient.ID,
		FirstName:   patient.FirstName,
		LastName:    patient.LastName,
		PhoneNumber: patient.PhoneNumber,
	}
}
