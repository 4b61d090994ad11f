package repository

import (
	"context"
	"errors"

	"clinic-booking/internal/domain/entity"
	domainRepo "clinic-booking/internal/domain/repository"

	"gorm.io/gorm"
)

type catalogRepository struct{}

func NewCatalogRepository() domainRepo.CatalogRepository {
	return &catalogRepository{}
}

func (r *catalogRepository) ListVisitTypes(ctx context.Context, db *gorm.DB) ([]entity.VisitType, error) {
	var items []entity.VisitType
	if err := db.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *catalogRepository) ListConsultTypes(ctx context.Context, db *gorm.DB) ([]entity.ConsultType, error) {
	var items []entity.ConsultType
	if err := db.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *catalogRepository) ListPracticeTypes(ctx context.Context, db *gorm.DB) ([]entity.PracticeType, error) {
	var items []entity.PracticeType
	if err := db.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *catalogRepository) FindVisitType(ctx context.Context, db *gorm.DB, id int) (*entity.VisitType, error) {
	var item entity.VisitType
	if err := findOne(db.WithContext(ctx).Where("id = ?", id), &item); err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *catalogRepository) FindConsultType(ctx context.Context, db *gorm.DB, id int) (*entity.ConsultType, error) {
	var item entity.ConsultType
	if err := findOne(db.WithContext(ctx).Where("id = ?", id), &item); err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *catalogRepository) FindPracticeType(ctx context.Context, db *gorm.DB, id int) (*entity.PracticeType, error) {
	var item entity.PracticeType
	if err := findOne(db.WithContext(ctx).Where("id = ?", id), &item); err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *catalogRepository) ListHealthInsurances(ctx context.Context, db *gorm.DB) ([]entity.HealthInsurance, error) {
	var items []entity.HealthInsurance
	if err := db.WithContext(ctx).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *catalogRepository) FindHealthInsuranceByName(ctx context.Context, db *gorm.DB, name string) (*entity.HealthInsurance, error) {
	var item entity.HealthInsurance
	if err := findOne(db.WithContext(ctx).Where("name = ?", name), &item); err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *catalogRepository) ReplaceHealthInsurances(ctx context.Context, db *gorm.DB, items []entity.HealthInsurance) error {
	if err := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entity.HealthInsurance{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

// findOne leaves dest zero-valued when no row matches.
func findOne(query *gorm.DB, dest interface{}) error {
	err := query.First(dest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}
