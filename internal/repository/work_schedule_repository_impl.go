package repository

import (
	"context"
	"errors"

	"clinic-booking/internal/domain/entity"
	domainRepo "clinic-booking/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type workScheduleRepository struct{}

func NewWorkScheduleRepository() domainRepo.WorkScheduleRepository {
	return &workScheduleRepository{}
}

func (r *workScheduleRepository) FindByProvider(ctx context.Context, db *gorm.DB, providerID uuid.UUID) ([]entity.WorkSchedule, error) {
	var schedules []entity.WorkSchedule
	err := db.WithContext(ctx).
		Preload("Ranges", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_available = ?", true).Order("start_time ASC")
		}).
		Where("provider_id = ?", providerID).
		Order("id ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *workScheduleRepository) FindByProviderAndDay(ctx context.Context, db *gorm.DB, providerID uuid.UUID, day string) (*entity.WorkSchedule, error) {
	var schedule entity.WorkSchedule
	err := db.WithContext(ctx).
		Preload("Ranges", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_available = ?", true).Order("start_time ASC")
		}).
		Where("provider_id = ? AND day_of_week = ?", providerID, day).
		First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *workScheduleRepository) LockByProviderAndDay(ctx context.Context, db *gorm.DB, providerID uuid.UUID, day string) (*entity.WorkSchedule, error) {
	var schedule entity.WorkSchedule
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_id = ? AND day_of_week = ?", providerID, day).
		First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *workScheduleRepository) UpsertDay(ctx context.Context, db *gorm.DB, schedule *entity.WorkSchedule) error {
	return db.WithContext(ctx).
		Omit("Ranges").
		Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "provider_id"}, {Name: "day_of_week"}},
				DoUpdates: clause.AssignmentColumns([]string{"is_working_day", "updated_at"}),
			},
			clause.Returning{},
		).
		Create(schedule).Error
}

func (r *workScheduleRepository) CreateRange(ctx context.Context, db *gorm.DB, tr *entity.AvailableTimeRange) error {
	return db.WithContext(ctx).Omit("WorkSchedule").Create(tr).Error
}

func (r *workScheduleRepository) FindRangeByID(ctx context.Context, db *gorm.DB, providerID uuid.UUID, id int) (*entity.AvailableTimeRange, error) {
	var tr entity.AvailableTimeRange
	err := db.WithContext(ctx).
		Preload("WorkSchedule").
		Where("id = ? AND provider_id = ?", id, providerID).
		First(&tr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tr, nil
}

func (r *workScheduleRepository) DeleteRange(ctx context.Context, db *gorm.DB, providerID uuid.UUID, id int) (int64, error) {
	result := db.WithContext(ctx).Where("id = ? AND provider_id = ?", id, providerID).Delete(&entity.AvailableTimeRange{})
	return result.RowsAffected, result.Error
}
