package repository

import (
	"context"

	"clinic-booking/internal/domain/entity"

	"gorm.io/gorm"
)

type CatalogRepository interface {
	ListVisitTypes(ctx context.Context, db *gorm.DB) ([]entity.VisitType, error)
	ListConsultTypes(ctx context.Context, db *gorm.DB) ([]entity.ConsultType, error)
	ListPracticeTypes(ctx context.Context, db *gorm.DB) ([]entity.PracticeType, error)
	FindVisitType(ctx context.Context, db *gorm.DB, id int) (*entity.VisitType, error)
	FindConsultType(ctx context.Context, db *gorm.DB, id int) (*entity.ConsultType, error)
	FindPracticeType(ctx context.Context, db *gorm.DB, id int) (*entity.PracticeType, error)
	ListHealthInsurances(ctx context.Context, db *gorm.DB) ([]entity.HealthInsurance, error)
	FindHealthInsuranceByName(ctx context.Context, db *gorm.DB, name string) (*entity.HealthInsurance, error)
	// ReplaceHealthInsurances swaps the whole payer list; callers run it inside a transaction.
	ReplaceHealthInsurances(ctx context.Context, db *gorm.DB, items []entity.HealthInsurance) error
}
