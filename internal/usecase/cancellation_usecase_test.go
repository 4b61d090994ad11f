package usecase

import (
	"context"
	"testing"
	"time"

	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/delivery/http/middleware"
	"clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func book(t *testing.T, h *harness, phone, date, at string) *dto.CreateAppointmentResponse {
	t.Helper()
	h.expectCommit()
	resp, err := h.appointments().Create(context.Background(), bookingRequest(h, phone, date, at))
	require.NoError(t, err)
	return resp
}

func TestCancelByPatient_FreesTheSlot(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	booked := book(t, h, "5491155550001", "2025-06-02", "09:00")
	h.expectCommit()

	resp, err := h.cancellations().CancelByPatient(context.Background(), booked.Appointment.ID, booked.CancellationToken)
	require.NoError(t, err)
	assert.Equal(t, string(entity.AppointmentStatusCancelled), resp.Status)
	assert.Equal(t, entity.CancelledByPatient, resp.CancelledBy)
	require.NotNil(t, resp.CancelledAt)

	times, err := h.availableTimes().GetAvailableTimes(context.Background(), h.provider.Username, "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:20", "09:40"}, times.Times)

	h.verify(t)
	// Booking alert plus cancellation alert.
	assert.Equal(t, 2, h.email.count())
	assert.Contains(t, h.store.auditActions(), entity.AuditActionAppointmentCancel)
	assert.Equal(t, 1.0, h.counter("clinic_booking_cancellations_total", "outcome", "cancelled"))
}

func TestCancelByPatient_SecondCancelIsTerminal(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	booked := book(t, h, "5491155550001", "2025-06-02", "09:00")
	h.expectCommit()
	uc := h.cancellations()

	_, err := uc.CancelByPatient(context.Background(), booked.Appointment.ID, booked.CancellationToken)
	require.NoError(t, err)

	_, err = uc.CancelByPatient(context.Background(), booked.Appointment.ID, booked.CancellationToken)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	h.verify(t)
}

func TestCancelByPatient_TokenChecks(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	a := book(t, h, "5491155550001", "2025-06-02", "09:00")
	b := book(t, h, "5491155550002", "2025-06-02", "09:20")
	uc := h.cancellations()

	_, err := uc.CancelByPatient(context.Background(), uuid.New(), a.CancellationToken)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = uc.CancelByPatient(context.Background(), a.Appointment.ID, "")
	assert.ErrorIs(t, err, ErrTokenRequired)

	_, err = uc.CancelByPatient(context.Background(), a.Appointment.ID, b.CancellationToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = uc.CancelByPatient(context.Background(), a.Appointment.ID, "not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	h.verify(t)
	stored, err := h.appointmentRepo.FindByID(context.Background(), nil, a.Appointment.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsScheduled())
}

func TestCancelByPatient_TokenExpiresAtCutoff(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	booked := book(t, h, "5491155550001", "2025-06-02", "09:00")
	h.notifier.Wait()

	// 10:00 local on Sunday, 23 hours before the visit.
	h.now = time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)

	_, err := h.cancellations().CancelByPatient(context.Background(), booked.Appointment.ID, booked.CancellationToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
	h.verify(t)
}

func TestCancelByPatient_InsideCutoffWithLiveToken(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Friday", [2]string{"14:00", "16:00"})

	// Booked the same day; the token gets the one hour floor.
	booked := book(t, h, "5491155550001", "2025-05-30", "15:00")
	_, err := h.auth.Verify(booked.CancellationToken)
	require.NoError(t, err)

	_, err = h.cancellations().CancelByPatient(context.Background(), booked.Appointment.ID, booked.CancellationToken)
	assert.ErrorIs(t, err, ErrCutoffPassed)

	detail, err := h.appointments().GetDetail(context.Background(), booked.Appointment.ID, booked.CancellationToken)
	require.NoError(t, err)
	assert.False(t, detail.CanCancel)
	h.verify(t)
}

func TestCancelByProvider_IgnoresCutoff(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Friday", [2]string{"14:00", "16:00"})
	booked := book(t, h, "5491155550001", "2025-05-30", "15:00")
	h.expectCommit()

	resp, err := h.cancellations().CancelByProvider(h.providerCtx(), booked.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CancelledByProvider, resp.CancelledBy)

	h.verify(t)
	// Confirmation plus the cancellation notice.
	assert.Equal(t, []string{"5491155550001", "5491155550001"}, h.whatsapp.recipients())
}

func TestCancelByProvider_OwnershipAndState(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	booked := book(t, h, "5491155550001", "2025-06-02", "09:00")
	h.expectCommit()
	uc := h.cancellations()

	_, err := uc.CancelByProvider(context.Background(), booked.Appointment.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	other := middleware.WithProvider(context.Background(), uuid.New(), "otro@example.com", "tid")
	_, err = uc.CancelByProvider(other, booked.Appointment.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = uc.CancelByProvider(h.providerCtx(), booked.Appointment.ID)
	require.NoError(t, err)

	_, err = uc.CancelByProvider(h.providerCtx(), booked.Appointment.ID)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	h.verify(t)
}
