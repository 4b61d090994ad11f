package dto

import (
	"time"
)

// Request DTOs

type SetWorkingDayRequest struct {
	IsWorkingDay *bool `json:"is_working_day" validate:"required"`
}

type CreateTimeRangeRequest struct {
	StartTime string `json:"start_time" validate:"required,hhmm"` // Format: HH:MM
	EndTime   string `json:"end_time" validate:"required,hhmm"`   // Format: HH:MM
}

type CreateUnavailableDayRequest struct {
	Date   string `json:"date" validate:"required,isodate"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type CreateTimeFrameRequest struct {
	Date      string `json:"date" validate:"required,isodate"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm"`
	Reason    string `json:"reason" validate:"omitempty,max=500"`
}

// Response DTOs

type TimeRangeResponse struct {
	ID        int    `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type WorkScheduleResponse struct {
	ID           int                 `json:"id"`
	DayOfWeek    string              `json:"day_of_week"`
	IsWorkingDay bool                `json:"is_working_day"`
	Ranges       []TimeRangeResponse `json:"ranges"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

type WorkScheduleListResponse struct {
	Days []WorkScheduleResponse `json:"days"`
}

type UnavailableDayResponse struct {
	ID     int    `json:"id"`
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

type TimeFrameResponse struct {
	ID        int    `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason,omitempty"`
}

type AvailableTimesResponse struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}
