package entity

import (
	"github.com/shopspring/decimal"
)

// Visit type IDs are fixed by the seed migration
const (
	VisitTypeConsult  = 1
	VisitTypePractice = 2
)

// PrivatePracticeInsurance is the payer label for procedures paid out of pocket
const PrivatePracticeInsurance = "Practica Particular"

type VisitType struct {
	ID   int    `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
}

func (VisitType) TableName() string {
	return "visit_types"
}

// ConsultType is a consult sub-category. DepositAmount is the advance
// payment requested when booking it, if any.
type ConsultType struct {
	ID            int                 `gorm:"primaryKey" json:"id"`
	Name          string              `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	DepositAmount decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"deposit_amount"`
}

func (ConsultType) TableName() string {
	return "consult_types"
}

type PracticeType struct {
	ID   int    `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
}

func (PracticeType) TableName() string {
	return "practice_types"
}

// HealthInsurance is a payer the clinic accepts, with its visit price.
// PracticeDeposit applies when a procedure is booked under this payer.
type HealthInsurance struct {
	ID              int                 `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string              `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Price           decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"price"`
	PracticeDeposit decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"practice_deposit"`
	Notes           string              `gorm:"type:text" json:"notes,omitempty"`
}

func (HealthInsurance) TableName() string {
	return "health_insurances"
}

// DepositFor returns the advance payment owed for a booking, zero when none applies
func DepositFor(visitTypeID int, consult *ConsultType, insurance *HealthInsurance) decimal.Decimal {
	switch visitTypeID {
	case VisitTypeConsult:
		if consult != nil && consult.DepositAmount.Valid {
			return consult.DepositAmount.Decimal
		}
	case VisitTypePractice:
		if insurance != nil && insurance.PracticeDeposit.Valid {
			return insurance.PracticeDeposit.Decimal
		}
	}
	return decimal.Zero
}
