package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinic-booking/internal/availability"
	"clinic-booking/internal/converter"
	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/delivery/http/middleware"
	"clinic-booking/internal/domain/entity"
	"clinic-booking/internal/domain/repository"
	"clinic-booking/internal/infrastructure/metrics"
	"clinic-booking/internal/service"
	"clinic-booking/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// AppointmentUsecase owns the booking write path and the appointment read views.
type AppointmentUsecase interface {
	Create(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.CreateAppointmentResponse, error)
	GetDetail(ctx context.Context, id uuid.UUID, token string) (*dto.AppointmentDetailResponse, error)
	ListForProvider(ctx context.Context, query *dto.AppointmentListQuery) (*dto.AppointmentListResponse, error)
	GetCalendar(ctx context.Context, year, month int) (*dto.CalendarResponse, error)
}

type appointmentUsecase struct {
	db                 *gorm.DB
	log                *logrus.Logger
	policy             BookingPolicy
	providerRepo       repository.ProviderRepository
	patientRepo        repository.PatientRepository
	appointmentRepo    repository.AppointmentRepository
	catalogRepo        repository.CatalogRepository
	workScheduleRepo   repository.WorkScheduleRepository
	unavailabilityRepo repository.UnavailabilityRepository
	loader             *slotLoader
	authority          *service.CancellationAuthority
	auditService       service.AuditService
	cacheService       *service.AvailabilityCacheService
	notifier           *service.NotificationService
	metrics            *metrics.BookingMetrics
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	policy BookingPolicy,
	providerRepo repository.ProviderRepository,
	patientRepo repository.PatientRepository,
	appointmentRepo repository.AppointmentRepository,
	catalogRepo repository.CatalogRepository,
	workScheduleRepo repository.WorkScheduleRepository,
	unavailabilityRepo repository.UnavailabilityRepository,
	authority *service.CancellationAuthority,
	auditService service.AuditService,
	cacheService *service.AvailabilityCacheService,
	notifier *service.NotificationService,
	m *metrics.BookingMetrics,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:                 db,
		log:                log,
		policy:             policy,
		providerRepo:       providerRepo,
		patientRepo:        patientRepo,
		appointmentRepo:    appointmentRepo,
		catalogRepo:        catalogRepo,
		workScheduleRepo:   workScheduleRepo,
		unavailabilityRepo: unavailabilityRepo,
		loader:             newSlotLoader(workScheduleRepo, unavailabilityRepo, appointmentRepo),
		authority:          authority,
		auditService:       auditService,
		cacheService:       cacheService,
		notifier:           notifier,
		metrics:            m,
	}
}

// NormalizePhone keeps digits only so one person maps to one patient row.
func NormalizePhone(s string) string {
	return strings.TrimPrefix(validator.CleanPhone(s), "+")
}

type bookingRefs struct {
	provider     *entity.Provider
	visitType    *entity.VisitType
	consultType  *entity.ConsultType
	practiceType *entity.PracticeType
	insurance    *entity.HealthInsurance
}

// Create books one slot.
//
// Flow:
// 1. Validate date, time and visit type pairing, no writes yet
// 2. Resolve provider and catalog rows
// 3. Reject a patient re-booking the same slot
// 4. In one transaction: re-derive the slot live, upsert the patient, insert
//    the appointment, mint and persist the cancellation token, audit
// 5. After commit, best effort: invalidate cached availability, notify
//
// The partial unique index on scheduled rows decides the winner of a race;
// every earlier check is advisory.
func (u *appointmentUsecase) Create(ctx context.Context, req *dto.CreateAppointmentRequest) (resp *dto.CreateAppointmentResponse, err error) {
	ctx, span := startSpan(ctx, "appointment.create")
	defer func() {
		u.metrics.ObserveBooking(bookingOutcome(err))
		endSpan(span, err)
	}()

	// Step 1: Validate input
	date, err := availability.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, ErrInvalidDate
	}
	clock, err := availability.ParseClock(req.AppointmentTime)
	if err != nil {
		return nil, ErrInvalidClock
	}
	if u.policy.IsPast(date) || !availability.Instant(date, clock, u.policy.Location).After(u.policy.Now()) {
		return nil, ErrPastDate
	}
	if u.policy.BeyondHorizon(date) {
		return nil, ErrBeyondHorizon
	}
	if err := validateVisitPairing(req); err != nil {
		return nil, err
	}

	// Step 2: Referenced rows must exist
	refs, err := u.resolveRefs(ctx, req)
	if err != nil {
		return nil, err
	}
	providerID := refs.provider.ID
	civil := availability.CivilDate(date)
	at := clock.String()
	phone := NormalizePhone(req.PhoneNumber)
	span.SetAttributes(
		attribute.String("provider_id", providerID.String()),
		attribute.String("date", civil),
		attribute.String("time", at),
	)

	// Step 3: Duplicate-intent guard
	existing, err := u.appointmentRepo.FindScheduledForPatientSlot(ctx, u.db, phone, providerID, date, at)
	if err != nil {
		u.log.Warnf("Failed to check existing appointment: %+v", err)
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateBooking
	}

	// Step 4: Booking transaction
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.ensureOffered(ctx, tx, providerID, date, clock); err != nil {
		return nil, err
	}

	prior, err := u.patientRepo.FindByPhone(ctx, tx, phone)
	if err != nil {
		u.log.Warnf("Failed to find patient by phone: %+v", err)
		return nil, err
	}

	patient := &entity.Patient{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		PhoneNumber: phone,
	}
	if err := u.patientRepo.Upsert(ctx, tx, patient); err != nil {
		u.log.Warnf("Failed to upsert patient: %+v", err)
		return nil, err
	}

	appointment := &entity.Appointment{
		ProviderID:      providerID,
		PatientID:       patient.ID,
		AppointmentDate: date,
		AppointmentTime: at,
		VisitTypeID:     req.VisitTypeID,
		ConsultTypeID:   req.ConsultTypeID,
		PracticeTypeID:  req.PracticeTypeID,
		HealthInsurance: strings.TrimSpace(req.HealthInsurance),
		Notes:           strings.TrimSpace(req.Notes),
		Status:          entity.AppointmentStatusScheduled,
	}
	if err := u.appointmentRepo.InsertScheduled(ctx, tx, appointment); err != nil {
		return nil, u.mapInsertError(err)
	}

	token, err := u.authority.Issue(appointment, patient)
	if err != nil {
		u.log.Warnf("Failed to issue cancellation token: %+v", err)
		return nil, err
	}
	if err := u.appointmentRepo.SetCancellationToken(ctx, tx, appointment.ID, token); err != nil {
		u.log.Warnf("Failed to persist cancellation token: %+v", err)
		return nil, err
	}
	appointment.CancellationToken = token

	if err := u.auditService.LogCreate(ctx, tx, &providerID, entity.AuditActorPatient, entity.AuditActionAppointmentCreate,
		"appointment", appointment.ID.String(), map[string]interface{}{
			"patient_id":       patient.ID,
			"appointment_date": civil,
			"appointment_time": at,
			"visit_type_id":    appointment.VisitTypeID,
		}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	// Step 5: Post-commit side effects never fail the booking
	u.cacheService.InvalidateDate(providerID, civil)

	appointment.Provider = *refs.provider
	appointment.Patient = *patient
	appointment.VisitType = *refs.visitType
	appointment.ConsultType = refs.consultType
	appointment.PracticeType = refs.practiceType

	deposit := entity.DepositFor(appointment.VisitTypeID, refs.consultType, refs.insurance)
	u.dispatchConfirmation(appointment, patient, refs.provider, token, deposit)

	u.log.Infof("Appointment created: id=%s, provider=%s, date=%s, time=%s", appointment.ID, providerID, civil, at)

	resp = &dto.CreateAppointmentResponse{
		Appointment:       converter.AppointmentToResponse(appointment),
		CancellationToken: token,
		IsExistingPatient: prior != nil,
	}
	if deposit.IsPositive() {
		resp.Deposit = &deposit
	}
	return resp, nil
}

func validateVisitPairing(req *dto.CreateAppointmentRequest) error {
	switch req.VisitTypeID {
	case entity.VisitTypeConsult:
		if req.ConsultTypeID == nil || req.PracticeTypeID != nil {
			return ErrInvalidVisitType
		}
	case entity.VisitTypePractice:
		if req.PracticeTypeID == nil || req.ConsultTypeID != nil {
			return ErrInvalidVisitType
		}
	default:
		return ErrInvalidVisitType
	}
	return nil
}

func (u *appointmentUsecase) resolveRefs(ctx context.Context, req *dto.CreateAppointmentRequest) (*bookingRefs, error) {
	refs := &bookingRefs{}
	var err error

	refs.provider, err = findActiveProvider(ctx, u.db, u.providerRepo, req.ProviderID)
	if err != nil {
		return nil, err
	}

	refs.visitType, err = u.catalogRepo.FindVisitType(ctx, u.db, req.VisitTypeID)
	if err != nil {
		return nil, err
	}
	if refs.visitType == nil {
		return nil, ErrVisitTypeNotFound
	}

	if req.ConsultTypeID != nil {
		refs.consultType, err = u.catalogRepo.FindConsultType(ctx, u.db, *req.ConsultTypeID)
		if err != nil {
			return nil, err
		}
		if refs.consultType == nil {
			return nil, ErrConsultTypeNotFound
		}
	}
	if req.PracticeTypeID != nil {
		refs.practiceType, err = u.catalogRepo.FindPracticeType(ctx, u.db, *req.PracticeTypeID)
		if err != nil {
			return nil, err
		}
		if refs.practiceType == nil {
			return nil, ErrPracticeTypeNotFound
		}
	}

	// The payer label is free text; a catalog match only drives the deposit.
	refs.insurance, err = u.catalogRepo.FindHealthInsuranceByName(ctx, u.db, strings.TrimSpace(req.HealthInsurance))
	if err != nil {
		u.log.Warnf("Failed to look up health insurance %q (non-fatal): %+v", req.HealthInsurance, err)
		refs.insurance = nil
	}

	return refs, nil
}

// ensureOffered re-derives the date inside the transaction. A slot that is
// taken reports the race outcome; a slot that was never on the grid does not.
func (u *appointmentUsecase) ensureOffered(ctx context.Context, tx *gorm.DB, providerID uuid.UUID, date time.Time, clock availability.Clock) error {
	day, open, err := u.loader.loadDay(ctx, tx, providerID, date, u.policy.Today())
	if err != nil {
		u.log.Warnf("Failed to derive availability: %+v", err)
		return err
	}
	if !open {
		return ErrSlotNotOffered
	}

	want := clock.String()
	for _, s := range availability.Derive(day) {
		if s == want {
			return nil
		}
	}
	for _, b := range day.Booked {
		if b == clock {
			return ErrSlotNoLongerAvailable
		}
	}
	return ErrSlotNotOffered
}

func (u *appointmentUsecase) mapInsertError(err error) error {
	switch {
	case isDuplicateKeyError(err, "unique_appointment_scheduled"):
		return ErrSlotNoLongerAvailable
	case isForeignKeyError(err, "provider_id"):
		return ErrProviderNotFound
	case isForeignKeyError(err, "consult_type_id"):
		return ErrConsultTypeNotFound
	case isForeignKeyError(err, "practice_type_id"):
		return ErrPracticeTypeNotFound
	case isForeignKeyError(err, "visit_type_id"):
		return ErrVisitTypeNotFound
	case isCheckViolation(err, "chk_visit_subtype"):
		return ErrInvalidVisitType
	}
	u.log.Warnf("Failed to insert appointment: %+v", err)
	return err
}

func (u *appointmentUsecase) dispatchConfirmation(appointment *entity.Appointment, patient *entity.Patient, provider *entity.Provider, token string, deposit decimal.Decimal) {
	msg := u.notifier.BuildMessage(appointment, patient, provider, deposit, token)
	appointmentID := appointment.ID

	u.notifier.Go(func(ctx context.Context) {
		res, err := u.notifier.SendConfirmation(ctx, msg)
		if err != nil {
			u.log.Warnf("Failed to send confirmation for appointment %s (non-fatal): %+v", appointmentID, err)
		} else if err := u.appointmentRepo.MarkNotificationSent(ctx, u.db, appointmentID, res.MessageID, u.policy.Now()); err != nil {
			u.log.Warnf("Failed to record confirmation for appointment %s (non-fatal): %+v", appointmentID, err)
		}

		if err := u.notifier.NotifyProviderNewBooking(ctx, msg); err != nil {
			u.log.Warnf("Failed to email provider about appointment %s (non-fatal): %+v", appointmentID, err)
		}
	})
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, ErrDuplicateBooking):
		return "conflict"
	case errors.Is(err, ErrSlotNotOffered), errors.Is(err, ErrPastDate), errors.Is(err, ErrBeyondHorizon),
		errors.Is(err, ErrInvalidVisitType), errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidClock):
		return "rejected"
	case errors.Is(err, ErrProviderNotFound), errors.Is(err, ErrVisitTypeNotFound),
		errors.Is(err, ErrConsultTypeNotFound), errors.Is(err, ErrPracticeTypeNotFound):
		return "not_found"
	}
	return "error"
}

// GetDetail shows one appointment to the holder of its cancellation token.
func (u *appointmentUsecase) GetDetail(ctx context.Context, id uuid.UUID, token string) (*dto.AppointmentDetailResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(ctx, u.db, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
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

	canCancel := false
	if appointment.IsScheduled() {
		if startsAt, err := u.policy.StartsAt(appointment.AppointmentDate, appointment.AppointmentTime); err == nil {
			canCancel = u.authority.OutsideCutoff(startsAt)
		}
	}

	return &dto.AppointmentDetailResponse{
		Appointment: converter.AppointmentToResponse(appointment),
		CanCancel:   canCancel,
	}, nil
}

// ListForProvider lists the logged-in provider's appointments. A single date
// wins over a from/to range.
func (u *appointmentUsecase) ListForProvider(ctx context.Context, query *dto.AppointmentListQuery) (*dto.AppointmentListResponse, error) {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = 20
	}

	filter := &entity.AppointmentFilter{
		ProviderID: providerID,
		Status:     entity.AppointmentStatus(query.Status),
		Limit:      query.Limit,
		Offset:     (query.Page - 1) * query.Limit,
	}
	if query.Date != "" {
		d, err := availability.ParseDate(query.Date)
		if err != nil {
			return nil, ErrInvalidDate
		}
		filter.From, filter.To = &d, &d
	} else {
		from, to, err := parseDateRange(query.From, query.To)
		if err != nil {
			return nil, ErrInvalidDate
		}
		filter.From, filter.To = from, to
	}

	appointments, total, err := u.appointmentRepo.ListByFilter(ctx, u.db, filter)
	if err != nil {
		u.log.Warnf("Failed to list appointments for provider %s: %+v", providerID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        total,
	}, nil
}

// GetCalendar builds a month view of scheduled appointments, closed dates and working weekdays.
func (u *appointmentUsecase) GetCalendar(ctx context.Context, year, month int) (*dto.CalendarResponse, error) {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if month < 1 || month > 12 || year < 2000 || year > 2100 {
		return nil, ErrInvalidDate
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	appointments, _, err := u.appointmentRepo.ListByFilter(ctx, u.db, &entity.AppointmentFilter{
		ProviderID: providerID,
		Status:     entity.AppointmentStatusScheduled,
		From:       &first,
		To:         &last,
	})
	if err != nil {
		u.log.Warnf("Failed to list calendar appointments: %+v", err)
		return nil, err
	}

	closed, err := u.unavailabilityRepo.ListDays(ctx, u.db, providerID, &first, &last)
	if err != nil {
		u.log.Warnf("Failed to list calendar unavailable days: %+v", err)
		return nil, err
	}

	schedules, err := u.workScheduleRepo.FindByProvider(ctx, u.db, providerID)
	if err != nil {
		u.log.Warnf("Failed to list calendar work schedule: %+v", err)
		return nil, err
	}

	working := make(map[string]bool, len(schedules))
	for _, s := range schedules {
		working[s.DayOfWeek] = s.IsWorkingDay
	}
	closedDates := make(map[string]bool, len(closed))
	for _, c := range closed {
		closedDates[availability.CivilDate(c.UnavailableDate)] = true
	}
	byDate := make(map[string][]entity.Appointment)
	for _, a := range appointments {
		key := availability.CivilDate(a.AppointmentDate)
		byDate[key] = append(byDate[key], a)
	}

	days := make([]dto.CalendarDay, 0, last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := availability.CivilDate(d)
		days = append(days, dto.CalendarDay{
			Date:         key,
			Unavailable:  closedDates[key],
			WorkingDay:   working[availability.WeekdayName(d)],
			Appointments: converter.AppointmentsToResponses(byDate[key]),
		})
	}

	return &dto.CalendarResponse{Year: year, Month: month, Days: days}, nil
}
