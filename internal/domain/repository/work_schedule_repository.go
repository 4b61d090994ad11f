package repository

import (
	"context"

	"clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkScheduleRepository interface {
	FindByProvider(ctx context.Context, db *gorm.DB, providerID uuid.UUID) ([]entity.WorkSchedule, error)
	FindByProviderAndDay(ctx context.Context, db *gorm.DB, providerID uuid.UUID, day string) (*entity.WorkSchedule, error)
	// LockByProviderAndDay takes a row lock so concurrent range edits of the
	// same weekday serialize.
	LockByProviderAndDay(ctx context.Context, db *gorm.DB, providerID uuid.UUID, day string) (*entity.WorkSchedule, error)
	UpsertDay(ctx context.Context, db *gorm.DB, schedule *entity.WorkSchedule) error
	CreateRange(ctx context.Context, db *gorm.DB, r *entity.AvailableTimeRange) error
	FindRangeByID(ctx context.Context, db *gorm.DB, providerID uuid.UUID, id int) (*entity.AvailableTimeRange, error)
	DeleteRange(ctx context.Context, db *gorm.DB, providerID uuid.UUID, id int) (int64, error)
}
