package usecase

import (
	"context"
	"fmt"
	"strings"

	"clinic-booking/internal/converter"
	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/delivery/http/middleware"
	"clinic-booking/internal/domain/entity"
	"clinic-booking/internal/domain/repository"
	"clinic-booking/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CatalogUsecase interface {
	GetVisitTypes(ctx context.Context) (*dto.VisitTypesResponse, error)
	GetHealthInsurances(ctx context.Context) ([]dto.HealthInsuranceResponse, error)
	ReplaceHealthInsurances(ctx context.Context, req *dto.ReplaceHealthInsurancesRequest) ([]dto.HealthInsuranceResponse, error)
}

type catalogUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	catalogRepo  repository.CatalogRepository
	auditService service.AuditService
}

func NewCatalogUsecase(db *gorm.DB, log *logrus.Logger, catalogRepo repository.CatalogRepository, auditService service.AuditService) CatalogUsecase {
	return &catalogUsecase{
		db:           db,
		log:          log,
		catalogRepo:  catalogRepo,
		auditService: auditService,
	}
}

func (u *catalogUsecase) GetVisitTypes(ctx context.Context) (*dto.VisitTypesResponse, error) {
	visits, err := u.catalogRepo.ListVisitTypes(ctx, u.db)
	if err != nil {
		u.log.Warnf("Failed to list visit types: %+v", err)
		return nil, err
	}
	consults, err := u.catalogRepo.ListConsultTypes(ctx, u.db)
	if err != nil {
		u.log.Warnf("Failed to list consult types: %+v", err)
		return nil, err
	}
	practices, err := u.catalogRepo.ListPracticeTypes(ctx, u.db)
	if err != nil {
		u.log.Warnf("Failed to list practice types: %+v", err)
		return nil, err
	}

	return converter.VisitTypesToResponse(visits, consults, practices), nil
}

func (u *catalogUsecase) GetHealthInsurances(ctx context.Context) ([]dto.HealthInsuranceResponse, error) {
	items, err := u.catalogRepo.ListHealthInsurances(ctx, u.db)
	if err != nil {
		u.log.Warnf("Failed to list health insurances: %+v", err)
		return nil, err
	}
	return converter.HealthInsurancesToResponses(items), nil
}

// ReplaceHealthInsurances swaps the whole payer list in one transaction.
func (u *catalogUsecase) ReplaceHealthInsurances(ctx context.Context, req *dto.ReplaceHealthInsurancesRequest) ([]dto.HealthInsuranceResponse, error) {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	seen := make(map[string]bool, len(req.Items))
	for _, item := range req.Items {
		key := strings.ToLower(strings.TrimSpace(item.Name))
		if seen[key] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateInsurance, item.Name)
		}
		if item.Price.IsNegative() || (item.PracticeDeposit != nil && item.PracticeDeposit.IsNegative()) {
			return nil, ErrNegativeAmount
		}
		seen[key] = true
	}

	items := converter.HealthInsuranceRequestsToEntities(req.Items)

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.catalogRepo.ReplaceHealthInsurances(ctx, tx, items); err != nil {
		u.log.Warnf("Failed to replace health insurances: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogUpdate(ctx, tx, &providerID, entity.AuditActorProvider, entity.AuditActionHealthInsuranceReplace,
		"health_insurance", "*", nil, map[string]interface{}{"count": len(items)}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return converter.HealthInsurancesToResponses(items), nil
}
