package entity

import (
	"time"

	"github.com/google/uuid"
)

// Patient is keyed by a normalized phone number and upserted on every booking
type Patient struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	FirstName   string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName    string    `gorm:"type:varchar(100);not null" json:"last_name"`
	PhoneNumber string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone_number"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Patient) TableName() string {
	return "patients"
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}
