package usecase

import (
	"context"
	"testing"
	"time"

	"clinic-booking/internal/domain/entity"

	"gorm.io/gorm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) reminders() ReminderUsecase {
	return NewReminderUsecase(h.db, h.log, h.policy, ReminderWindow{}, h.appointmentRepo, h.notifier, h.metrics)
}

// staleListing returns every scheduled row in range, as a second instance
// would when it listed before the first one claimed anything.
type staleListing struct {
	*fakeAppointmentRepo
}

func (r staleListing) ListDueForReminder(ctx context.Context, db *gorm.DB, from, to time.Time) ([]entity.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Appointment
	for _, a := range r.s.appointments {
		if a.IsScheduled() {
			row := *r.withRelations(a)
			row.ReminderSentAt = nil
			out = append(out, row)
		}
	}
	return out, nil
}

func countOf(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}

func TestSendDueReminders_OnlyInsideWindow(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Saturday", [2]string{"09:00", "16:00"})
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})

	// Now is Friday 09:00 local. Saturday 15:00 is 30h away, 09:00 is 24h away.
	due := book(t, h, "5491155550001", "2025-05-31", "15:00")
	book(t, h, "5491155550002", "2025-05-31", "09:00")
	book(t, h, "5491155550003", "2025-06-02", "09:00")
	h.notifier.Wait()

	uc := h.reminders()
	run, err := uc.SendDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, run.Candidates)
	assert.Equal(t, 1, run.Sent)
	assert.Zero(t, run.Failed)

	recipients := h.whatsapp.recipients()
	assert.Equal(t, 2, countOf(recipients, "5491155550001"))
	assert.Equal(t, 1, countOf(recipients, "5491155550002"))

	stored, err := h.appointmentRepo.FindByID(context.Background(), nil, due.Appointment.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.ReminderSentAt)

	// Already reminded appointments are not picked again.
	again, err := uc.SendDueReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.Candidates)
	h.verify(t)
}

func TestSendDueReminders_FailedSendIsRetried(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Saturday", [2]string{"09:00", "16:00"})
	due := book(t, h, "5491155550001", "2025-05-31", "15:00")
	h.notifier.Wait()

	h.whatsapp.mu.Lock()
	h.whatsapp.err = assert.AnError
	h.whatsapp.mu.Unlock()

	uc := h.reminders()
	run, err := uc.SendDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, run.Failed)

	stored, err := h.appointmentRepo.FindByID(context.Background(), nil, due.Appointment.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ReminderSentAt)

	h.whatsapp.mu.Lock()
	h.whatsapp.err = nil
	h.whatsapp.mu.Unlock()

	run, err = uc.SendDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, run.Sent)
	assert.Equal(t, 1.0, h.counter("clinic_notify_reminders_total", "status", "sent"))
	h.verify(t)
}

func TestSendDueReminders_SkipsCancelled(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Saturday", [2]string{"09:00", "16:00"})
	booked := book(t, h, "5491155550001", "2025-05-31", "15:00")
	h.expectCommit()

	_, err := h.cancellations().CancelByProvider(h.providerCtx(), booked.Appointment.ID)
	require.NoError(t, err)
	h.notifier.Wait()

	run, err := h.reminders().SendDueReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, run.Candidates)
	h.verify(t)
}

func TestSendDueReminders_OverlappingRunsSendOnce(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Saturday", [2]string{"09:00", "16:00"})
	book(t, h, "5491155550001", "2025-05-31", "15:00")
	h.notifier.Wait()

	first := h.reminders()
	second := NewReminderUsecase(h.db, h.log, h.policy, ReminderWindow{}, staleListing{h.appointmentRepo}, h.notifier, h.metrics)

	run, err := first.SendDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, run.Sent)

	run, err = second.SendDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, run.Candidates)
	assert.Zero(t, run.Sent)
	assert.Equal(t, 1, run.Skipped)

	// One confirmation plus exactly one reminder.
	assert.Equal(t, 2, countOf(h.whatsapp.recipients(), "5491155550001"))
	h.verify(t)
}
