package entity

import (
	"time"

	"github.com/google/uuid"
)

// UnavailableDay closes a whole calendar date regardless of the weekly schedule
type UnavailableDay struct {
	ID              int       `gorm:"primaryKey;autoIncrement" json:"id"`
	ProviderID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_unavailable_day_provider_date" json:"provider_id"`
	UnavailableDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_unavailable_day_provider_date" json:"unavailable_date"`
	Reason          string    `gorm:"type:text" json:"reason,omitempty"`
	IsConfirmed     bool      `gorm:"not null;default:true" json:"is_confirmed"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (UnavailableDay) TableName() string {
	return "unavailable_days"
}

// UnavailableTimeFrame blocks part of an otherwise open date
type UnavailableTimeFrame struct {
	ID          int       `gorm:"primaryKey;autoIncrement" json:"id"`
	ProviderID  uuid.UUID `gorm:"type:uuid;not null;index" json:"provider_id"`
	WorkdayDate time.Time `gorm:"type:date;not null;index" json:"workday_date"`
	StartTime   string    `gorm:"type:time;not null" json:"start_time"`
	EndTime     string    `gorm:"type:time;not null" json:"end_time"`
	Reason      string    `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (UnavailableTimeFrame) TableName() string {
	return "unavailable_time_frames"
}
