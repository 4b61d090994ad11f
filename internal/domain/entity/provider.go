package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider is the practitioner account that owns a schedule and receives bookings
type Provider struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Username    string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"type:text;not null" json:"-"`
	FirstName   string    `gorm:"type:varchar(100)" json:"first_name"`
	LastName    string    `gorm:"type:varchar(100)" json:"last_name"`
	PhoneNumber string    `gorm:"type:varchar(20)" json:"phone_number,omitempty"`
	IsActive    *bool     `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Provider) TableName() string {
	return "providers"
}

// DisplayName falls back to the username when no name is set
func (p *Provider) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if name == "" {
		return p.Username
	}
	return name
}

// Active treats a missing flag as active
func (p *Provider) Active() bool {
	return p.IsActive == nil || *p.IsActive
}
