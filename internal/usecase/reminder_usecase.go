package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"clinic-booking/internal/availability"
	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/domain/entity"
	"clinic-booking/internal/domain/repository"
	"clinic-booking/internal/infrastructure/metrics"
	"clinic-booking/internal/service"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// ReminderUsecase sends the day-before WhatsApp reminder.
type ReminderUsecase interface {
	SendDueReminders(ctx context.Context) (*dto.ReminderRunResponse, error)
}

type ReminderWindow struct {
	Start       time.Duration
	End         time.Duration
	Concurrency int
}

type reminderUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	policy          BookingPolicy
	window          ReminderWindow
	appointmentRepo repository.AppointmentRepository
	notifier        *service.NotificationService
	metrics         *metrics.BookingMetrics
}

func NewReminderUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	policy BookingPolicy,
	window ReminderWindow,
	appointmentRepo repository.AppointmentRepository,
	notifier *service.NotificationService,
	m *metrics.BookingMetrics,
) ReminderUsecase {
	if window.Start <= 0 {
		window.Start = availability.DefaultReminderWindowStart
	}
	if window.End <= window.Start {
		window.End = availability.DefaultReminderWindowEnd
	}
	if window.Concurrency <= 0 {
		window.Concurrency = 4
	}
	return &reminderUsecase{
		db:              db,
		log:             log,
		policy:          policy,
		window:          window,
		appointmentRepo: appointmentRepo,
		notifier:        notifier,
		metrics:         m,
	}
}

// SendDueReminders picks scheduled appointments starting inside the reminder
// window that have not been reminded yet and sends with bounded concurrency.
// Each row is claimed before sending, so overlapping runs on several
// instances never remind twice. A failed send releases its claim and is
// retried on the next run.
func (u *reminderUsecase) SendDueReminders(ctx context.Context) (resp *dto.ReminderRunResponse, err error) {
	ctx, span := startSpan(ctx, "reminder.run")
	defer func() { endSpan(span, err) }()

	now := u.policy.Now()
	windowStart := now.Add(u.window.Start)
	windowEnd := now.Add(u.window.End)

	candidates, err := u.appointmentRepo.ListDueForReminder(ctx, u.db,
		availability.Today(windowStart, u.policy.Location),
		availability.Today(windowEnd, u.policy.Location))
	if err != nil {
		u.log.Warnf("Failed to list appointments due for reminder: %+v", err)
		return nil, err
	}

	var due []entity.Appointment
	for _, a := range candidates {
		startsAt, err := u.policy.StartsAt(a.AppointmentDate, a.AppointmentTime)
		if err != nil {
			continue
		}
		if !startsAt.Before(windowStart) && startsAt.Before(windowEnd) {
			due = append(due, a)
		}
	}
	span.SetAttributes(attribute.Int("candidates", len(due)))

	var sent, failed, skipped int64
	p := pool.New().WithMaxGoroutines(u.window.Concurrency).WithContext(ctx)
	for i := range due {
		appointment := due[i]
		p.Go(func(ctx context.Context) error {
			switch u.remind(ctx, &appointment) {
			case reminderSent:
				atomic.AddInt64(&sent, 1)
			case reminderSkipped:
				atomic.AddInt64(&skipped, 1)
			default:
				atomic.AddInt64(&failed, 1)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	if len(due) > 0 {
		u.log.Infof("Reminders run: candidates=%d, sent=%d, failed=%d, skipped=%d", len(due), sent, failed, skipped)
	}
	return &dto.ReminderRunResponse{
		Candidates: len(due),
		Sent:       int(sent),
		Failed:     int(failed),
		Skipped:    int(skipped),
	}, nil
}

type reminderOutcome int

const (
	reminderSent reminderOutcome = iota
	reminderFailed
	reminderSkipped
)

func (u *reminderUsecase) remind(ctx context.Context, appointment *entity.Appointment) reminderOutcome {
	claimedAt := u.policy.Now()
	claimed, err := u.appointmentRepo.ClaimReminder(ctx, u.db, appointment.ID, claimedAt)
	if err != nil {
		u.log.Warnf("Failed to claim reminder for appointment %s: %+v", appointment.ID, err)
		u.metrics.ObserveReminder("failed")
		return reminderFailed
	}
	if !claimed {
		// Another run took it, or the appointment was cancelled meanwhile.
		return reminderSkipped
	}

	msg := u.notifier.BuildMessage(appointment, &appointment.Patient, &appointment.Provider, decimal.Zero, appointment.CancellationToken)
	if _, err := u.notifier.SendReminder(ctx, msg); err != nil {
		u.log.Warnf("Failed to send reminder for appointment %s: %+v", appointment.ID, err)
		u.metrics.ObserveReminder("failed")
		// The release must land even when the sweep was cancelled mid-send.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := u.appointmentRepo.ReleaseReminder(releaseCtx, u.db, appointment.ID, claimedAt); err != nil {
			u.log.Warnf("Failed to release reminder claim for appointment %s: %+v", appointment.ID, err)
		}
		return reminderFailed
	}

	u.metrics.ObserveReminder("sent")
	return reminderSent
}
