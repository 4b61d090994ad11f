package service

import (
	"context"

	"clinic-booking/internal/domain/entity"
	"clinic-booking/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuditService writes audit rows inside the caller's transaction so the
// trail commits or rolls back together with the change it describes.
type AuditService interface {
	LogCreate(ctx context.Context, tx *gorm.DB, providerID *uuid.UUID, actor, action, entityName, entityID string, newValue interface{}) error
	LogUpdate(ctx context.Context, tx *gorm.DB, providerID *uuid.UUID, actor, action, entityName, entityID string, oldValue, newValue interface{}) error
	LogDelete(ctx context.Context, tx *gorm.DB, providerID *uuid.UUID, actor, action, entityName, entityID string, oldValue interface{}) error
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

// LogCreate logs a create action
func (s *auditService) LogCreate(ctx context.Context, tx *gorm.DB, providerID *uuid.UUID, actor, action, entityName, entityID string, newValue interface{}) error {
	return s.write(ctx, tx, providerID, actor, action, entity.JSON{
		"entity":    entityName,
		"entity_id": entityID,
		"old_value": nil,
		"new_value": newValue,
	})
}

// LogUpdate logs an update action with old and new values
func (s *auditService) LogUpdate(ctx context.Context, tx *gorm.DB, providerID *uuid.UUID, actor, action, entityName, entityID string, oldValue, newValue interface{}) error {
	return s.write(ctx, tx, providerID, actor, action, entity.JSON{
		"entity":    entityName,
		"entity_id": entityID,
		"old_value": oldValue,
		"new_value": newValue,
	})
}

// LogDelete logs a delete action with old value
func (s *auditService) LogDelete(ctx context.Context, tx *gorm.DB, providerID *uuid.UUID, actor, action, entityName, entityID string, oldValue interface{}) error {
	return s.write(ctx, tx, providerID, actor, action, entity.JSON{
		"entity":    entityName,
		"entity_id": entityID,
		"old_value": oldValue,
		"new_value": nil,
	})
}

func (s *auditService) write(ctx context.Context, tx *gorm.DB, providerID *uuid.UUID, actor, action string, metadata entity.JSON) error {
	auditLog := &entity.AuditLog{
		ProviderID: providerID,
		ActorType:  actor,
		Action:     action,
		Metadata:   metadata,
	}

	if err := s.auditRepo.Create(ctx, tx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
		return err
	}

	return nil
}
