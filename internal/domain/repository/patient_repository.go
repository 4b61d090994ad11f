package repository

import (
	"context"

	"clinic-booking/internal/domain/entity"

	"gorm.io/gorm"
)

type PatientRepository interface {
	FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*entity.Patient, error)
	// Upsert inserts the patient or refreshes the name of the row holding the
	// same phone number. patient.ID is set to the stored row's ID.
	Upsert(ctx context.Context, db *gorm.DB, patient *entity.Patient) error
}
