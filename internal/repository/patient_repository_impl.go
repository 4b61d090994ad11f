package repository

import (
	"context"
	"errors"

	"clinic-booking/internal/domain/entity"
	domainRepo "clinic-booking/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type patientRepository struct{}

func NewPatientRepository() domainRepo.PatientRepository {
	return &patientRepository{}
}

func (r *patientRepository) FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*entity.Patient, error) {
	var patient entity.Patient
	err := db.WithContext(ctx).Where("phone_number = ?", phone).First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &patient, nil
}

// Upsert keys on phone_number; a repeat booking refreshes the stored name.
func (r *patientRepository) Upsert(ctx context.Context, db *gorm.DB, patient *entity.Patient) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "updated_at"}),
		}).
		Create(patient).Error
}
