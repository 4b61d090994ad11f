package repository

import (
	"context"
	"time"

	"clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UnavailabilityRepository interface {
	IsDayUnavailable(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) (bool, error)
	ListDays(ctx context.Context, db *gorm.DB, providerID uuid.UUID, from, to *time.Time) ([]entity.UnavailableDay, error)
	UpsertDay(ctx context.Context, db *gorm.DB, day *entity.UnavailableDay) error
	DeleteDay(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) (int64, error)
	ListFrames(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) ([]entity.UnavailableTimeFrame, error)
	ListFramesBetween(ctx context.Context, db *gorm.DB, providerID uuid.UUID, from, to *time.Time) ([]entity.UnavailableTimeFrame, error)
	CreateFrame(ctx context.Context, db *gorm.DB, frame *entity.UnavailableTimeFrame) error
	DeleteFrame(ctx context.Context, db *gorm.DB, providerID uuid.UUID, id int) (int64, error)
}
