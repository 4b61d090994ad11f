package repository

import (
	"context"
	"time"

	"clinic-booking/internal/domain/entity"
	domainRepo "clinic-booking/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type unavailabilityRepository struct{}

func NewUnavailabilityRepository() domainRepo.UnavailabilityRepository {
	return &unavailabilityRepository{}
}

func (r *unavailabilityRepository) IsDayUnavailable(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.UnavailableDay{}).
		Where("provider_id = ? AND unavailable_date = ?", providerID, date).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *unavailabilityRepository) ListDays(ctx context.Context, db *gorm.DB, providerID uuid.UUID, from, to *time.Time) ([]entity.UnavailableDay, error) {
	var days []entity.UnavailableDay
	query := db.WithContext(ctx).Where("provider_id = ?", providerID)
	if from != nil {
		query = query.Where("unavailable_date >= ?", *from)
	}
	if to != nil {
		query = query.Where("unavailable_date <= ?", *to)
	}
	if err := query.Order("unavailable_date ASC").Find(&days).Error; err != nil {
		return nil, err
	}
	return days, nil
}

// UpsertDay makes marking the same date twice idempotent; the reason is refreshed.
func (r *unavailabilityRepository) UpsertDay(ctx context.Context, db *gorm.DB, day *entity.UnavailableDay) error {
	return db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "provider_id"}, {Name: "unavailable_date"}},
				DoUpdates: clause.AssignmentColumns([]string{"reason", "is_confirmed"}),
			},
			clause.Returning{},
		).
		Create(day).Error
}

func (r *unavailabilityRepository) DeleteDay(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Where("provider_id = ? AND unavailable_date = ?", providerID, date).
		Delete(&entity.UnavailableDay{})
	return result.RowsAffected, result.Error
}

func (r *unavailabilityRepository) ListFrames(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) ([]entity.UnavailableTimeFrame, error) {
	var frames []entity.UnavailableTimeFrame
	err := db.WithContext(ctx).
		Where("provider_id = ? AND workday_date = ?", providerID, date).
		Order("start_time ASC").
		Find(&frames).Error
	if err != nil {
		return nil, err
	}
	return frames, nil
}

func (r *unavailabilityRepository) ListFramesBetween(ctx context.Context, db *gorm.DB, providerID uuid.UUID, from, to *time.Time) ([]entity.UnavailableTimeFrame, error) {
	var frames []entity.UnavailableTimeFrame
	query := db.WithContext(ctx).Where("provider_id = ?", providerID)
	if from != nil {
		query = query.Where("workday_date >= ?", *from)
	}
	if to != nil {
		query = query.Where("workday_date <= ?", *to)
	}
	if err := query.Order("workday_date ASC, start_time ASC").Find(&frames).Error; err != nil {
		return nil, err
	}
	return frames, nil
}

func (r *unavailabilityRepository) CreateFrame(ctx context.Context, db *gorm.DB, frame *entity.UnavailableTimeFrame) error {
	return db.WithContext(ctx).Create(frame).Error
}

func (r *unavailabilityRepository) DeleteFrame(ctx context.Context, db *gorm.DB, providerID uuid.UUID, id int) (int64, error) {
	result := db.WithContext(ctx).
		Where("id = ? AND provider_id = ?", id, providerID).
		Delete(&entity.UnavailableTimeFrame{})
	return result.RowsAffected, result.Error
}
