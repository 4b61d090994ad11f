package usecase

import (
	"context"
	"strconv"
	"time"

	"clinic-booking/internal/availability"
	"clinic-booking/internal/converter"
	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/delivery/http/middleware"
	"clinic-booking/internal/domain/entity"
	"clinic-booking/internal/domain/repository"
	"clinic-booking/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UnavailabilityUsecase manages date-specific exceptions: whole closed days
// and blocked time frames inside otherwise open days.
type UnavailabilityUsecase interface {
	ListDays(ctx context.Context, from, to string) ([]dto.UnavailableDayResponse, error)
	AddDay(ctx context.Context, req *dto.CreateUnavailableDayRequest) (*dto.UnavailableDayResponse, error)
	RemoveDay(ctx context.Context, date string) error
	ListTimeFrames(ctx context.Context, from, to string) ([]dto.TimeFrameResponse, error)
	AddTimeFrame(ctx context.Context, req *dto.CreateTimeFrameRequest) (*dto.TimeFrameResponse, error)
	RemoveTimeFrame(ctx context.Context, id int) error
}

type unavailabilityUsecase struct {
	db                 *gorm.DB
	log                *logrus.Logger
	policy             BookingPolicy
	unavailabilityRepo repository.UnavailabilityRepository
	auditService       service.AuditService
	cacheService       *service.AvailabilityCacheService
}

func NewUnavailabilityUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	policy BookingPolicy,
	unavailabilityRepo repository.UnavailabilityRepository,
	auditService service.AuditService,
	cacheService *service.AvailabilityCacheService,
) UnavailabilityUsecase {
	return &unavailabilityUsecase{
		db:                 db,
		log:                log,
		policy:             policy,
		unavailabilityRepo: unavailabilityRepo,
		auditService:       auditService,
		cacheService:       cacheService,
	}
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := availability.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseDateRange(from, to string) (*time.Time, *time.Time, error) {
	f, err := parseOptionalDate(from)
	if err != nil {
		return nil, nil, err
	}
	t, err := parseOptionalDate(to)
	if err != nil {
		return nil, nil, err
	}
	return f, t, nil
}

func (u *unavailabilityUsecase) ListDays(ctx context.Context, from, to string) ([]dto.UnavailableDayResponse, error) {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	f, t, err := parseDateRange(from, to)
	if err != nil {
		return nil, err
	}

	days, err := u.unavailabilityRepo.ListDays(ctx, u.db, providerID, f, t)
	if err != nil {
		u.log.Warnf("Failed to list unavailable days: %+v", err)
		return nil, err
	}
	return converter.UnavailableDaysToResponses(days), nil
}

func (u *unavailabilityUsecase) AddDay(ctx context.Context, req *dto.CreateUnavailableDayRequest) (*dto.UnavailableDayResponse, error) {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	date, err := availability.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if u.policy.IsPast(date) {
		return nil, ErrPastDate
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	day := &entity.UnavailableDay{
		ProviderID:      providerID,
		UnavailableDate: date,
		Reason:          req.Reason,
		IsConfirmed:     true,
	}
	if err := u.unavailabilityRepo.UpsertDay(ctx, tx, day); err != nil {
		u.log.Warnf("Failed to upsert unavailable day: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, tx, &providerID, entity.AuditActorProvider, entity.AuditActionUnavailableDayCreate,
		"unavailable_day", req.Date, map[string]interface{}{"date": req.Date, "reason": req.Reason}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.cacheService.InvalidateDate(providerID, availability.CivilDate(date))

	out := converter.UnavailableDayToResponse(day)
	return &out, nil
}

func (u *unavailabilityUsecase) RemoveDay(ctx context.Context, date string) error {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	d, err := availability.ParseDate(date)
	if err != nil {
		return err
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	affected, err := u.unavailabilityRepo.DeleteDay(ctx, tx, providerID, d)
	if err != nil {
		u.log.Warnf("Failed to delete unavailable day: %+v", err)
		return err
	}
	if affected == 0 {
		return ErrUnavailableDayNotFound
	}

	if err := u.auditService.LogDelete(ctx, tx, &providerID, entity.AuditActorProvider, entity.AuditActionUnavailableDayDelete,
		"unavailable_day", availability.CivilDate(d), map[string]interface{}{"date": availability.CivilDate(d)}); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	u.cacheService.InvalidateDate(providerID, availability.CivilDate(d))
	return nil
}

func (u *unavailabilityUsecase) ListTimeFrames(ctx context.Context, from, to string) ([]dto.TimeFrameResponse, error) {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	f, t, err := parseDateRange(from, to)
	if err != nil {
		return nil, err
	}

	frames, err := u.unavailabilityRepo.ListFramesBetween(ctx, u.db, providerID, f, t)
	if err != nil {
		u.log.Warnf("Failed to list unavailable time frames: %+v", err)
		return nil, err
	}
	return converter.TimeFramesToResponses(frames), nil
}

func (u *unavailabilityUsecase) AddTimeFrame(ctx context.Context, req *dto.CreateTimeFrameRequest) (*dto.TimeFrameResponse, error) {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	date, err := availability.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	rng, err := availability.NewRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if u.policy.IsPast(date) {
		return nil, ErrPastDate
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	frame := &entity.UnavailableTimeFrame{
		ProviderID:  providerID,
		WorkdayDate: date,
		StartTime:   rng.Start.String(),
		EndTime:     rng.End.String(),
		Reason:      req.Reason,
	}
	if err := u.unavailabilityRepo.CreateFrame(ctx, tx, frame); err != nil {
		if isCheckViolation(err, "chk_frame_order") {
			return nil, ErrInvalidRange
		}
		u.log.Warnf("Failed to create unavailable time frame: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, tx, &providerID, entity.AuditActorProvider, entity.AuditActionTimeFrameCreate,
		"unavailable_time_frame", strconv.Itoa(frame.ID), map[string]interface{}{
			"date":       req.Date,
			"start_time": frame.StartTime,
			"end_time":   frame.EndTime,
		}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.cacheService.InvalidateDate(providerID, availability.CivilDate(date))

	out := converter.TimeFrameToResponse(frame)
	return &out, nil
}

func (u *unavailabilityUsecase) RemoveTimeFrame(ctx context.Context, id int) error {
	providerID, ok := middleware.GetProviderIDFromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	affected, err := u.unavailabilityRepo.DeleteFrame(ctx, tx, providerID, id)
	if err != nil {
		u.log.Warnf("Failed to delete unavailable time frame %d: %+v", id, err)
		return err
	}
	if affected == 0 {
		return ErrTimeFrameNotFound
	}

	if err := u.auditService.LogDelete(ctx, tx, &providerID, entity.AuditActorProvider, entity.AuditActionTimeFrameDelete,
		"unavailable_time_frame", strconv.Itoa(id), nil); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	// The frame's date is gone with the row; drop the whole provider.
	u.cacheService.InvalidateProvider(providerID)
	return nil
}
