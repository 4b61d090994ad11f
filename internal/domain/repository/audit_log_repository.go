package repository

import (
	"context"

	"clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditLogRepository interface {
	Create(ctx context.Context, db *gorm.DB, log *entity.AuditLog) error
	FindByProvider(ctx context.Context, db *gorm.DB, providerID uuid.UUID, limit, offset int) ([]entity.AuditLog, int64, error)
	FindByID(ctx context.Context, db *gorm.DB, providerID uuid.UUID, id int64) (*entity.AuditLog, error)
}
