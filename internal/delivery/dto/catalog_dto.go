package dto

import (
	"github.com/shopspring/decimal"
)

// Request DTOs

type HealthInsuranceRequest struct {
	Name            string           `json:"name" validate:"required,max=255"`
	Price           decimal.Decimal  `json:"price"`
	PracticeDeposit *decimal.Decimal `json:"practice_deposit"`
	Notes           string           `json:"notes" validate:"omitempty,max=1000"`
}

type ReplaceHealthInsurancesRequest struct {
	Items []HealthInsuranceRequest `json:"items" validate:"required,min=1,dive"`
}

// Response DTOs

type CatalogItemResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ConsultTypeResponse struct {
	ID            int              `json:"id"`
	Name          string           `json:"name"`
	DepositAmount *decimal.Decimal `json:"deposit_amount,omitempty"`
}

type VisitTypesResponse struct {
	VisitTypes    []CatalogItemResponse `json:"visit_types"`
	ConsultTypes  []ConsultTypeResponse `json:"consult_types"`
	PracticeTypes []CatalogItemResponse `json:"practice_types"`
}

type HealthInsuranceResponse struct {
	ID              int              `json:"id"`
	Name            string           `json:"name"`
	Price           decimal.Decimal  `json:"price"`
	PracticeDeposit *decimal.Decimal `json:"practice_deposit,omitempty"`
	Notes           string           `json:"notes,omitempty"`
}
