package converter

import (
	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/domain/entity"

	"github.com/shopspring/decimal"
)

func nullDecimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func VisitTypesToResponse(visits []entity.VisitType, consults []entity.ConsultType, practices []entity.PracticeType) *dto.VisitTypesResponse {
	response := &dto.VisitTypesResponse{
		VisitTypes:    make([]dto.CatalogItemResponse, len(visits)),
		ConsultTypes:  make([]dto.ConsultTypeResponse, len(consults)),
		PracticeTypes: make([]dto.CatalogItemResponse, len(practices)),
	}
	for i, v := range visits {
		response.VisitTypes[i] = dto.CatalogItemResponse{ID: v.ID, Name: v.Name}
	}
	for i, c := range consults {
		response.ConsultTypes[i] = dto.ConsultTypeResponse{ID: c.ID, Name: c.Name, DepositAmount: nullDecimalPtr(c.DepositAmount)}
	}
	for i, p := range practices {
		response.PracticeTypes[i] = dto.CatalogItemResponse{ID: p.ID, Name: p.Name}
	}
	return response
}

func HealthInsurancesToResponses(items []entity.HealthInsurance) []dto.HealthInsuranceResponse {
	responses := make([]dto.HealthInsuranceResponse, len(items))
	for i, h := range items {
		responses[i] = dto.HealthInsuranceResponse{
			ID:              h.ID,
			Name:            h.Name,
			Price:           h.Price,
			PracticeDeposit: nullDecimalPtr(h.PracticeDeposit),
			Notes:           h.Notes,
		}
	}
	return responses
}

// HealthInsuranceRequestsToEntities maps the replacement payload, defaulting missing prices to zero
func HealthInsuranceRequestsToEntities(items []dto.HealthInsuranceRequest) []entity.HealthInsurance {
	out := make([]entity.HealthInsurance, len(items))
	for i, item := range items {
		out[i] = entity.HealthInsurance{
			Name:  item.Name,
			Price: item.Price,
			Notes: item.Notes,
		}
		if item.PracticeDeposit != nil {
			out[i].PracticeDeposit = decimal.NewNullDecimal(*item.PracticeDeposit)
		}
	}
	return out
}
