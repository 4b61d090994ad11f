package usecase

import (
	"context"
	"errors"

	"clinic-booking/internal/availability"
	"clinic-booking/internal/converter"
	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/delivery/http/middleware"
	"clinic-booking/internal/domain/entity"
	"clinic-booking/internal/domain/repository"
	"clinic-booking/internal/infrastructure/metrics"
	"clinic-booking/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// CancellationUsecase moves scheduled appointments to cancelled, either for
// the holder of a cancellation token or for the owning provider.
type CancellationUsecase interface {
	CancelByPatient(ctx context.Context, id uuid.UUID, token string) (*dto.AppointmentResponse, error)
	CancelByProvider(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
}

type cancellationUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	policy          BookingPolicy
	appointmentRepo repository.AppointmentRepository
	authority       *service.CancellationAuthority
	auditService    service.AuditService
	cacheService    *service.AvailabilityCacheService
	notifier        *service.NotificationService
	metrics         *metrics.BookingMetrics
}

func NewCancellationUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	policy BookingPolicy,
	appointmentRepo repository.AppointmentRepository,
	authority *service.CancellationAuthority,
	auditService service.AuditService,
	cacheService *service.AvailabilityCacheService,
	notifier *service.NotificationService,
	m *metrics.BookingMetrics,
) CancellationUsecase {
	return &cancellationUsecase{
		db:              db,
		log:             log,
		policy:          policy,
		appointmentRepo: appointmentRepo,
		authority:       authority,
		auditService:    auditService,
		cacheService:    cacheService,
		notifier:        notifier,
		metrics:         m,
	}
}

// CancelByPatient checks, in order: the appointment exists, the token is
// present, valid and bound to it, the appointment is still scheduled, and at
// least 24 hours remain on the live clock.
func (u *cancellationUsecase) CancelByPatient(ctx context.Context, id uuid.UUID, token string) (resp *dto.AppointmentResponse, err error) {
	ctx, span := startSpan(ctx, "appointment.cancel_by_patient")
	span.SetAttributes(attribute.String("appointment_id", id.String()))
	defer func() {
		u.metrics.ObserveCancellation(entity.CancelledByPatient, cancellationOutcome(err))
		endSpan(span, err)
	}()

	appointment, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if token == "" {
		return nil, ErrTokenRequired
	}
	claims, err := u.authority.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.AppointmentID != appointment.ID {
		return nil, ErrTokenInvalid
	}

	if appointment.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}

	startsAt, err := u.policy.StartsAt(appointment.AppointmentDate, appointment.AppointmentTime)
	if err != nil {
		return nil, err
	}
	if !u.authority.OutsideCutoff(startsAt) {
		return nil, ErrCutoffPassed
	}

	if err := u.markCancelled(ctx, appointment, entity.CancelledByPatient, entity.AuditActorPatient); err != nil {
		return nil, err
	}

	msg := u.notifier.BuildMessage(appointment, &appointment.Patient, &appointment.Provider, decimal.Zero, "")
	u.notifier.Go(func(ctx context.Context) {
		if err := u.notifier.NotifyProviderPatientCancelled(ctx, msg); err != nil {
			u.log.Warnf("Failed to email provider about cancelled appointment %s (non-fatal): %+v", id, err)
		}
	})

	return converter.AppointmentToResponse(appointment), nil
}

// CancelByProvider needs ownership only; the cutoff does not apply.
func (u *cancellationUsecase) CancelByProvider(ctx context.Context, id uuid.UUID) (resp *dto.AppointmentResponse, err error) {
	ctx, span := startSpan(ctx, "appointment.cancel_by_provider")
	span.SetAttributes(attribute.String("appointment_id", id.String()))
	defer func() {
		u.metrics.ObserveCancellation(entity.CancelledByProvider, cancellationOutcome(err))
		endSpan(span, err)
	}()

	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	appointment, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.ProviderID != providerID {
		return nil, ErrNotOwner
	}
	if appointment.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}

	if err := u.markCancelled(ctx, appointment, entity.CancelledByProvider, entity.AuditActorProvider); err != nil {
		return nil, err
	}

	msg := u.notifier.BuildMessage(appointment, &appointment.Patient, &appointment.Provider, decimal.Zero, "")
	u.notifier.Go(func(ctx context.Context) {
		if _, err := u.notifier.SendProviderCancellation(ctx, msg); err != nil {
			u.log.Warnf("Failed to notify patient about cancelled appointment %s (non-fatal): %+v", id, err)
		}
	})

	return converter.AppointmentToResponse(appointment), nil
}

func (u *cancellationUsecase) find(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	appointment, err := u.appointmentRepo.FindByID(ctx, u.db, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return appointment, nil
}

// markCancelled runs the guarded status transition and its audit row in one
// transaction, then drops the cached slots for the freed date.
func (u *cancellationUsecase) markCancelled(ctx context.Context, appointment *entity.Appointment, by, actor string) error {
	now := u.policy.Now()

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	affected, err := u.appointmentRepo.MarkCancelled(ctx, tx, appointment.ID, by, now)
	if err != nil {
		u.log.Warnf("Failed to cancel appointment %s: %+v", appointment.ID, err)
		return err
	}
	if affected == 0 {
		return ErrAlreadyTerminal
	}

	if err := u.auditService.LogUpdate(ctx, tx, &appointment.ProviderID, actor, entity.AuditActionAppointmentCancel,
		"appointment", appointment.ID.String(),
		map[string]interface{}{"status": appointment.Status},
		map[string]interface{}{"status": entity.AppointmentStatusCancelled, "cancelled_by": by}); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	appointment.Cancel(by, now)
	u.cacheService.InvalidateDate(appointment.ProviderID, availability.CivilDate(appointment.AppointmentDate))
	return nil
}

func cancellationOutcome(err error) string {
	switch {
	case err == nil:
		return "cancelled"
	case errors.Is(err, ErrCutoffPassed):
		return "cutoff_passed"
	case errors.Is(err, ErrTokenRequired), errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrNotOwner):
		return "denied"
	case errors.Is(err, ErrAlreadyTerminal):
		return "already_terminal"
	case errors.Is(err, ErrAppointmentNotFound):
		return "not_found"
	}
	return "error"
}
