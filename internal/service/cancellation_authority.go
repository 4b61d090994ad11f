package service

import (
	"errors"
	"time"

	"clinic-booking/internal/availability"
	"clinic-booking/internal/domain/entity"
	"clinic-booking/pkg/jwt"
)

var (
	ErrTokenInvalid = errors.New("cancellation link is invalid")
	ErrTokenExpired = errors.New("cancellation link has expired")
)

// CancellationAuthority mints and checks the capability tokens that let a
// patient cancel one appointment without logging in.
type CancellationAuthority struct {
	jwtService *jwt.JWTService
	loc        *time.Location
	now        func() time.Time
}

func NewCancellationAuthority(jwtService *jwt.JWTService, loc *time.Location, now func() time.Time) *CancellationAuthority {
	if now == nil {
		now = time.Now
	}
	return &CancellationAuthority{jwtService: jwtService, loc: loc, now: now}
}

// StartsAt is the appointment's start instant in the clinic timezone.
func (a *CancellationAuthority) StartsAt(date time.Time, clock string) (time.Time, error) {
	at, err := availability.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return availability.Instant(date, at, a.loc), nil
}

// ExpiryFor is the cutoff instant, or one hour from now when the cutoff has
// already passed, so a freshly issued token is never born expired.
func (a *CancellationAuthority) ExpiryFor(startsAt time.Time) time.Time {
	now := a.now()
	exp := startsAt.Add(-availability.CancellationCutoff)
	if !exp.After(now) {
		exp = now.Add(availability.TokenExpiryFloor)
	}
	return exp
}

// Issue signs a token bound to the appointment and its patient.
func (a *CancellationAuthority) Issue(appointment *entity.Appointment, patient *entity.Patient) (string, error) {
	startsAt, err := a.StartsAt(appointment.AppointmentDate, appointment.AppointmentTime)
	if err != nil {
		return "", err
	}
	clock, _ := availability.NormalizeClock(appointment.AppointmentTime)

	return a.jwtService.SignCancellation(jwt.CancellationClaims{
		AppointmentID:   appointment.ID,
		PatientID:       patient.ID,
		PatientPhone:    patient.PhoneNumber,
		AppointmentDate: availability.CivilDate(appointment.AppointmentDate),
		AppointmentTime: clock,
	}, a.ExpiryFor(startsAt))
}

// Verify returns the bound claims or ErrTokenInvalid / ErrTokenExpired.
func (a *CancellationAuthority) Verify(token string) (*jwt.CancellationClaims, error) {
	claims, err := a.jwtService.VerifyCancellation(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// OutsideCutoff reports whether at least the cutoff remains before startsAt.
// It is checked against the live clock on every call, independent of the token expiry.
func (a *CancellationAuthority) OutsideCutoff(startsAt time.Time) bool {
	return startsAt.Sub(a.now()) >= availability.CancellationCutoff
}

// CanCancel is true only when the token verifies and the live cutoff still holds.
func (a *CancellationAuthority) CanCancel(token string) bool {
	claims, err := a.Verify(token)
	if err != nil {
		return false
	}
	date, err := availability.ParseDate(claims.AppointmentDate)
	if err != nil {
		return false
	}
	startsAt, err := a.StartsAt(date, claims.AppointmentTime)
	if err != nil {
		return false
	}
	return a.OutsideCutoff(startsAt)
}
