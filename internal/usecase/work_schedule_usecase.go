package usecase

import (
	"context"
	"strconv"

	"clinic-booking/internal/availability"
	"clinic-booking/internal/converter"
	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/delivery/http/middleware"
	"clinic-booking/internal/domain/entity"
	"clinic-booking/internal/domain/repository"
	"clinic-booking/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// WorkScheduleUsecase edits the recurring weekly schedule of the logged-in provider.
type WorkScheduleUsecase interface {
	GetMySchedule(ctx context.Context) (*dto.WorkScheduleListResponse, error)
	SetWorkingDay(ctx context.Context, weekday string, req *dto.SetWorkingDayRequest) (*dto.WorkScheduleResponse, error)
	AddTimeRange(ctx context.Context, weekday string, req *dto.CreateTimeRangeRequest) (*dto.TimeRangeResponse, error)
	RemoveTimeRange(ctx context.Context, rangeID int) error
}

type workScheduleUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	policy           BookingPolicy
	workScheduleRepo repository.WorkScheduleRepository
	appointmentRepo  repository.AppointmentRepository
	auditService     service.AuditService
	cacheService     *service.AvailabilityCacheService
}

func NewWorkScheduleUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	policy BookingPolicy,
	workScheduleRepo repository.WorkScheduleRepository,
	appointmentRepo repository.AppointmentRepository,
	auditService service.AuditService,
	cacheService *service.AvailabilityCacheService,
) WorkScheduleUsecase {
	return &workScheduleUsecase{
		db:               db,
		log:              log,
		policy:           policy,
		workScheduleRepo: workScheduleRepo,
		appointmentRepo:  appointmentRepo,
		auditService:     auditService,
		cacheService:     cacheService,
	}
}

// GetMySchedule returns every stored weekday row, closed ones included.
func (u *workScheduleUsecase) GetMySchedule(ctx context.Context) (*dto.WorkScheduleListResponse, error) {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	schedules, err := u.workScheduleRepo.FindByProvider(ctx, u.db, providerID)
	if err != nil {
		u.log.Warnf("Failed to find work schedule for provider %s: %+v", providerID, err)
		return nil, err
	}

	return &dto.WorkScheduleListResponse{Days: converter.WorkSchedulesToResponses(schedules)}, nil
}

func (u *workScheduleUsecase) SetWorkingDay(ctx context.Context, weekday string, req *dto.SetWorkingDayRequest) (*dto.WorkScheduleResponse, error) {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	day, ok := availability.ParseWeekday(weekday)
	if !ok {
		return nil, ErrInvalidWeekday
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	old, err := u.workScheduleRepo.FindByProviderAndDay(ctx, tx, providerID, day)
	if err != nil {
		u.log.Warnf("Failed to find work schedule day: %+v", err)
		return nil, err
	}

	schedule := &entity.WorkSchedule{
		ProviderID:   providerID,
		DayOfWeek:    day,
		IsWorkingDay: *req.IsWorkingDay,
	}
	if err := u.workScheduleRepo.UpsertDay(ctx, tx, schedule); err != nil {
		u.log.Warnf("Failed to upsert work schedule day: %+v", err)
		return nil, err
	}

	var oldValue interface{}
	if old != nil {
		oldValue = map[string]interface{}{"is_working_day": old.IsWorkingDay}
	}
	if err := u.auditService.LogUpdate(ctx, tx, &providerID, entity.AuditActorProvider, entity.AuditActionScheduleDayUpdate,
		"work_schedule", day, oldValue, map[string]interface{}{"is_working_day": schedule.IsWorkingDay}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.cacheService.InvalidateProvider(providerID)

	updated, err := u.workScheduleRepo.FindByProviderAndDay(ctx, u.db, providerID, day)
	if err != nil || updated == nil {
		u.log.Warnf("Failed to reload work schedule day %s: %+v", day, err)
		return converter.WorkScheduleToResponse(schedule), nil
	}
	return converter.WorkScheduleToResponse(updated), nil
}

// AddTimeRange adds a bookable interval to a weekday and marks the weekday as
// working. The weekday row is locked so concurrent edits cannot both pass the
// overlap check.
func (u *workScheduleUsecase) AddTimeRange(ctx context.Context, weekday string, req *dto.CreateTimeRangeRequest) (resp *dto.TimeRangeResponse, err error) {
	ctx, span := startSpan(ctx, "schedule.add_time_range")
	defer func() { endSpan(span, err) }()

	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	day, ok := availability.ParseWeekday(weekday)
	if !ok {
		return nil, ErrInvalidWeekday
	}
	rng, err := availability.NewRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("provider_id", providerID.String()), attribute.String("weekday", day))

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.workScheduleRepo.UpsertDay(ctx, tx, &entity.WorkSchedule{
		ProviderID:   providerID,
		DayOfWeek:    day,
		IsWorkingDay: true,
	}); err != nil {
		u.log.Warnf("Failed to upsert work schedule day: %+v", err)
		return nil, err
	}

	schedule, err := u.workScheduleRepo.LockByProviderAndDay(ctx, tx, providerID, day)
	if err != nil {
		u.log.Warnf("Failed to lock work schedule day: %+v", err)
		return nil, err
	}
	if schedule == nil {
		return nil, ErrInvalidWeekday
	}

	// Ranges are re-read after the lock is held.
	current, err := u.workScheduleRepo.FindByProviderAndDay(ctx, tx, providerID, day)
	if err != nil {
		return nil, err
	}
	if current != nil {
		for _, existing := range current.Ranges {
			other, err := availability.NewRange(existing.StartTime, existing.EndTime)
			if err != nil {
				continue
			}
			if rng.Overlaps(other) {
				return nil, ErrOverlappingRange
			}
		}
	}

	timeRange := &entity.AvailableTimeRange{
		WorkScheduleID: schedule.ID,
		ProviderID:     providerID,
		StartTime:      rng.Start.String(),
		EndTime:        rng.End.String(),
		IsAvailable:    true,
	}
	if err := u.workScheduleRepo.CreateRange(ctx, tx, timeRange); err != nil {
		if isDuplicateKeyError(err, "uq_range_per_schedule") {
			return nil, ErrOverlappingRange
		}
		if isCheckViolation(err, "chk_range_order") {
			return nil, ErrInvalidRange
		}
		u.log.Warnf("Failed to create time range: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, tx, &providerID, entity.AuditActorProvider, entity.AuditActionScheduleRangeCreate,
		"available_time_range", strconv.Itoa(timeRange.ID), map[string]interface{}{
			"day_of_week": day,
			"start_time":  timeRange.StartTime,
			"end_time":    timeRange.EndTime,
		}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.cacheService.InvalidateProvider(providerID)

	out := converter.TimeRangeToResponse(timeRange)
	return &out, nil
}

// RemoveTimeRange refuses while an upcoming scheduled appointment starts inside the range.
func (u *workScheduleUsecase) RemoveTimeRange(ctx context.Context, rangeID int) error {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	timeRange, err := u.workScheduleRepo.FindRangeByID(ctx, tx, providerID, rangeID)
	if err != nil {
		u.log.Warnf("Failed to find time range %d: %+v", rangeID, err)
		return err
	}
	if timeRange == nil || timeRange.WorkSchedule == nil {
		return ErrRangeNotFound
	}

	hasBookings, err := u.rangeHasBookings(ctx, tx, providerID, timeRange)
	if err != nil {
		return err
	}
	if hasBookings {
		return ErrRangeHasBookings
	}

	affected, err := u.workScheduleRepo.DeleteRange(ctx, tx, providerID, rangeID)
	if err != nil {
		u.log.Warnf("Failed to delete time range %d: %+v", rangeID, err)
		return err
	}
	if affected == 0 {
		return ErrRangeNotFound
	}

	if err := u.auditService.LogDelete(ctx, tx, &providerID, entity.AuditActorProvider, entity.AuditActionScheduleRangeDelete,
		"available_time_range", strconv.Itoa(rangeID), map[string]interface{}{
			"day_of_week": timeRange.WorkSchedule.DayOfWeek,
			"start_time":  timeRange.StartTime,
			"end_time":    timeRange.EndTime,
		}); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	u.cacheService.InvalidateProvider(providerID)
	return nil
}

func (u *workScheduleUsecase) rangeHasBookings(ctx context.Context, db *gorm.DB, providerID uuid.UUID, timeRange *entity.AvailableTimeRange) (bool, error) {
	rng, err := availability.NewRange(timeRange.StartTime, timeRange.EndTime)
	if err != nil {
		return false, nil
	}

	upcoming, err := u.appointmentRepo.ListScheduledFrom(ctx, db, providerID, u.policy.Today())
	if err != nil {
		u.log.Warnf("Failed to list upcoming appointments: %+v", err)
		return false, err
	}

	now := u.policy.Now()
	for _, a := range upcoming {
		if availability.WeekdayName(a.AppointmentDate) != timeRange.WorkSchedule.DayOfWeek {
			continue
		}
		at, err := availability.ParseClock(a.AppointmentTime)
		if err != nil || !rng.Contains(at) {
			continue
		}
		if availability.Instant(a.AppointmentDate, at, u.policy.Location).After(now) {
			return true, nil
		}
	}
	return false, nil
}
