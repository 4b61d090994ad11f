package converter

import (
	"clinic-booking/internal/availability"
	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/domain/entity"
)

func clockOrRaw(s string) string {
	if c, err := availability.NormalizeClock(s); err == nil {
		return c
	}
	return s
}

// WorkScheduleToResponse converts a WorkSchedule entity with its ranges to WorkScheduleResponse DTO
func WorkScheduleToResponse(schedule *entity.WorkSchedule) *dto.WorkScheduleResponse {
	if schedule == nil {
		return nil
	}

	ranges := make([]dto.TimeRangeResponse, len(schedule.Ranges))
	for i, r := range schedule.Ranges {
		ranges[i] = TimeRangeToResponse(&r)
	}

	return &dto.WorkScheduleResponse{
		ID:           schedule.ID,
		DayOfWeek:    schedule.DayOfWeek,
		IsWorkingDay: schedule.IsWorkingDay,
		Ranges:       ranges,
		UpdatedAt:    schedule.UpdatedAt,
	}
}

// WorkSchedulesToResponses converts a slice of WorkSchedule entities
func WorkSchedulesToResponses(schedules []entity.WorkSchedule) []dto.WorkScheduleResponse {
	responses := make([]dto.WorkScheduleResponse, len(schedules))
	for i := range schedules {
		responses[i] = *WorkScheduleToResponse(&schedules[i])
	}
	return responses
}

func TimeRangeToResponse(r *entity.AvailableTimeRange) dto.TimeRangeResponse {
	return dto.TimeRangeResponse{
		ID:        r.ID,
		StartTime: clockOrRaw(r.StartTime),
		EndTime:   clockOrRaw(r.EndTime),
	}
}

func UnavailableDayToResponse(day *entity.UnavailableDay) dto.UnavailableDayResponse {
	return dto.UnavailableDayResponse{
		ID:     day.ID,
		Date:   availability.CivilDate(day.UnavailableDate),
		Reason: day.Reason,
	}
}

func UnavailableDaysToResponses(days []entity.UnavailableDay) []dto.UnavailableDayResponse {
	responses := make([]dto.UnavailableDayResponse, len(days))
	for i := range days {
		responses[i] = UnavailableDayToResponse(&days[i])
	}
	return responses
}

func TimeFrameToResponse(frame *entity.UnavailableTimeFrame) dto.TimeFrameResponse {
	return dto.TimeFrameResponse{
		ID:        frame.ID,
		Date:      availability.CivilDate(frame.WorkdayDate),
		StartTime: clockOrRaw(frame.StartTime),
		EndTime:   clockOrRaw(frame.EndTime),
		Reason:    frame.Reason,
	}
}

func TimeFramesToResponses(frames []entity.UnavailableTimeFrame) []dto.TimeFrameResponse {
	responses := make([]dto.TimeFrameResponse, len(frames))
	for i := range frames {
		responses[i] = TimeFrameToResponse(&frames[i])
	}
	return responses
}
