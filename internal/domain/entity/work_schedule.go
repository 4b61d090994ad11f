package entity

import (
	"time"

	"github.com/google/uuid"
)

// WorkSchedule states whether a weekday is a working day for a provider.
// A weekday without a row is closed.
type WorkSchedule struct {
	ID           int       `gorm:"primaryKey;autoIncrement" json:"id"`
	ProviderID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_work_schedule_provider_day" json:"provider_id"`
	DayOfWeek    string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_work_schedule_provider_day" json:"day_of_week"`
	IsWorkingDay bool      `gorm:"not null;default:false" json:"is_working_day"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Ranges []AvailableTimeRange `gorm:"foreignKey:WorkScheduleID" json:"ranges,omitempty"`
}

func (WorkSchedule) TableName() string {
	return "work_schedules"
}

// AvailableTimeRange is a bookable sub-interval of a working day
type AvailableTimeRange struct {
	ID             int       `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkScheduleID int       `gorm:"not null;index" json:"work_schedule_id"`
	ProviderID     uuid.UUID `gorm:"type:uuid;not null;index" json:"provider_id"`
	StartTime      string    `gorm:"type:time;not null" json:"start_time"`
	EndTime        string    `gorm:"type:time;not null" json:"end_time"`
	IsAvailable    bool      `gorm:"not null;default:true" json:"is_available"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	WorkSchedule *WorkSchedule `gorm:"foreignKey:WorkScheduleID" json:"work_schedule,omitempty"`
}

func (AvailableTimeRange) TableName() string {
	return "available_time_ranges"
}
