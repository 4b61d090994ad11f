package usecase

import (
	"context"
	"time"

	"clinic-booking/internal/availability"
	"clinic-booking/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// slotLoader reads one provider date from storage and hands it to the pure
// deriver. The booking path runs it on the open transaction; read paths run
// it on the pool behind the availability cache.
type slotLoader struct {
	workScheduleRepo   repository.WorkScheduleRepository
	unavailabilityRepo repository.UnavailabilityRepository
	appointmentRepo    repository.AppointmentRepository
}

func newSlotLoader(
	workScheduleRepo repository.WorkScheduleRepository,
	unavailabilityRepo repository.UnavailabilityRepository,
	appointmentRepo repository.AppointmentRepository,
) *slotLoader {
	return &slotLoader{
		workScheduleRepo:   workScheduleRepo,
		unavailabilityRepo: unavailabilityRepo,
		appointmentRepo:    appointmentRepo,
	}
}

// loadDay applies the whole-day overrides and returns the inputs for Derive.
// open is false when the date yields no slots at all.
func (l *slotLoader) loadDay(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date, today time.Time) (day availability.Day, open bool, err error) {
	if availability.IsBefore(date, today) {
		return day, false, nil
	}

	unavailable, err := l.unavailabilityRepo.IsDayUnavailable(ctx, db, providerID, date)
	if err != nil {
		return day, false, err
	}
	if unavailable {
		return day, false, nil
	}

	schedule, err := l.workScheduleRepo.FindByProviderAndDay(ctx, db, providerID, availability.WeekdayName(date))
	if err != nil {
		return day, false, err
	}
	if schedule == nil || !schedule.IsWorkingDay || len(schedule.Ranges) == 0 {
		return day, false, nil
	}

	for _, r := range schedule.Ranges {
		rng, err := availability.NewRange(r.StartTime, r.EndTime)
		if err != nil {
			// The schema forbids inverted ranges; skip anything unparseable.
			continue
		}
		day.Ranges = append(day.Ranges, rng)
	}

	booked, err := l.appointmentRepo.ListBookedTimes(ctx, db, providerID, date)
	if err != nil {
		return day, false, err
	}
	for _, b := range booked {
		if c, err := availability.ParseClock(b); err == nil {
			day.Booked = append(day.Booked, c)
		}
	}

	frames, err := l.unavailabilityRepo.ListFrames(ctx, db, providerID, date)
	if err != nil {
		return day, false, err
	}
	for _, f := range frames {
		if rng, err := availability.NewRange(f.StartTime, f.EndTime); err == nil {
			day.Blocked = append(day.Blocked, rng)
		}
	}

	return day, true, nil
}

// slots returns the bookable HH:MM list for (provider, date).
func (l *slotLoader) slots(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date, today time.Time) ([]string, error) {
	day, open, err := l.loadDay(ctx, db, providerID, date, today)
	if err != nil {
		return nil, err
	}
	if !open {
		return []string{}, nil
	}
	return availability.Derive(day), nil
}
