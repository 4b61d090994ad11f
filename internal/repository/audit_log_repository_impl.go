package repository

import (
	"context"
	"errors"

	"clinic-booking/internal/domain/entity"
	domainRepo "clinic-booking/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type auditLogRepository struct{}

func NewAuditLogRepository() domainRepo.AuditLogRepository {
	return &auditLogRepository{}
}

func (r *auditLogRepository) Create(ctx context.Context, db *gorm.DB, log *entity.AuditLog) error {
	return db.WithContext(ctx).Create(log).Error
}

func (r *auditLogRepository) FindByProvider(ctx context.Context, db *gorm.DB, providerID uuid.UUID, limit, offset int) ([]entity.AuditLog, int64, error) {
	var logs []entity.AuditLog
	var total int64

	query := db.WithContext(ctx).Model(&entity.AuditLog{}).Where("provider_id = ?", providerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *auditLogRepository) FindByID(ctx context.Context, db *gorm.DB, providerID uuid.UUID, id int64) (*entity.AuditLog, error) {
	var log entity.AuditLog
	err := db.WithContext(ctx).Where("id = ? AND provider_id = ?", id, providerID).First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}
