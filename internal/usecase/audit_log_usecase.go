package usecase

import (
	"context"

	"clinic-booking/internal/converter"
	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/delivery/http/middleware"
	"clinic-booking/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuditLogUsecase interface {
	GetMyAuditLogs(ctx context.Context, page, limit int) (*dto.AuditLogListResponse, error)
	GetAuditLog(ctx context.Context, id int64) (*dto.AuditLogResponse, error)
}

type auditLogUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	auditLogRepo repository.AuditLogRepository
}

func NewAuditLogUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	auditLogRepo repository.AuditLogRepository,
) AuditLogUsecase {
	return &auditLogUsecase{
		db:           db,
		log:          log,
		auditLogRepo: auditLogRepo,
	}
}

func (u *auditLogUsecase) GetMyAuditLogs(ctx context.Context, page, limit int) (*dto.AuditLogListResponse, error) {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	logs, total, err := u.auditLogRepo.FindByProvider(ctx, u.db, providerID, limit, (page-1)*limit)
	if err != nil {
		u.log.Warnf("Failed to find audit logs: %+v", err)
		return nil, err
	}

	return &dto.AuditLogListResponse{
		Logs:  converter.AuditLogsToResponses(logs),
		Total: total,
	}, nil
}

func (u *auditLogUsecase) GetAuditLog(ctx context.Context, id int64) (*dto.AuditLogResponse, error) {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	auditLog, err := u.auditLogRepo.FindByID(ctx, u.db, providerID, id)
	if err != nil {
		u.log.Warnf("Failed to find audit log: %+v", err)
		return nil, err
	}
	if auditLog == nil {
		return nil, ErrAuditLogNotFound
	}

	return converter.AuditLogToResponse(auditLog), nil
}
