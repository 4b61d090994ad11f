package usecase

import (
	"context"
	"time"

	"clinic-booking/internal/availability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("clinic-booking/usecase")

// BookingPolicy carries the clinic calendar used for every date decision.
type BookingPolicy struct {
	Location    *time.Location
	HorizonDays int
	Now         func() time.Time
}

func NewBookingPolicy(loc *time.Location, horizonDays int, now func() time.Time) BookingPolicy {
	if loc == nil {
		loc = time.UTC
	}
	if horizonDays <= 0 {
		horizonDays = availability.DefaultBookingHorizonDays
	}
	if now == nil {
		now = time.Now
	}
	return BookingPolicy{Location: loc, HorizonDays: horizonDays, Now: now}
}

// Today is the clinic-local calendar date.
func (p BookingPolicy) Today() time.Time {
	return availability.Today(p.Now(), p.Location)
}

// LastBookableDate is the final date inside the booking horizon.
func (p BookingPolicy) LastBookableDate() time.Time {
	return p.Today().AddDate(0, 0, p.HorizonDays)
}

func (p BookingPolicy) BeyondHorizon(date time.Time) bool {
	return availability.IsBefore(p.LastBookableDate(), date)
}

func (p BookingPolicy) IsPast(date time.Time) bool {
	return availability.IsBefore(date, p.Today())
}

// Upcoming drops the slots of date that start at or before now. Only today
// is affected; later dates pass through unchanged.
func (p BookingPolicy) Upcoming(date time.Time, times []string) []string {
	if availability.CivilDate(date) != availability.CivilDate(p.Today()) {
		return times
	}
	now := p.Now()
	out := make([]string, 0, len(times))
	for _, t := range times {
		startsAt, err := p.StartsAt(date, t)
		if err != nil || !startsAt.After(now) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// StartsAt places a stored date and time of day in the clinic timezone.
func (p BookingPolicy) StartsAt(date time.Time, clock string) (time.Time, error) {
	at, err := availability.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return availability.Instant(date, at, p.Location), nil
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// endSpan records err on span, if any, and returns it unchanged.
func endSpan(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	return err
}
