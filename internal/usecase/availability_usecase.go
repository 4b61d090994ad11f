package usecase

import (
	"context"
	"encoding/json"

	"clinic-booking/internal/availability"
	"clinic-booking/internal/converter"
	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/domain/entity"
	"clinic-booking/internal/domain/repository"
	"clinic-booking/internal/service"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// AvailabilityUsecase serves the public read side of the schedule.
type AvailabilityUsecase interface {
	GetProvider(ctx context.Context, providerIdentifier string) (*dto.PublicProviderResponse, error)
	GetAvailableTimes(ctx context.Context, providerIdentifier, date string) (*dto.AvailableTimesResponse, error)
	GetWorkSchedule(ctx context.Context, providerIdentifier string) (*dto.WorkScheduleListResponse, error)
}

type availabilityUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	policy           BookingPolicy
	providerRepo     repository.ProviderRepository
	workScheduleRepo repository.WorkScheduleRepository
	loader           *slotLoader
	cacheService     *service.AvailabilityCacheService
}

func NewAvailabilityUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	policy BookingPolicy,
	providerRepo repository.ProviderRepository,
	workScheduleRepo repository.WorkScheduleRepository,
	unavailabilityRepo repository.UnavailabilityRepository,
	appointmentRepo repository.AppointmentRepository,
	cacheService *service.AvailabilityCacheService,
) AvailabilityUsecase {
	return &availabilityUsecase{
		db:               db,
		log:              log,
		policy:           policy,
		providerRepo:     providerRepo,
		workScheduleRepo: workScheduleRepo,
		loader:           newSlotLoader(workScheduleRepo, unavailabilityRepo, appointmentRepo),
		cacheService:     cacheService,
	}
}

// GetProvider is the public profile shown on the booking form.
func (u *availabilityUsecase) GetProvider(ctx context.Context, providerIdentifier string) (*dto.PublicProviderResponse, error) {
	provider, err := u.findProvider(ctx, providerIdentifier)
	if err != nil {
		return nil, err
	}
	return converter.ProviderToPublicResponse(provider), nil
}

// GetAvailableTimes returns the bookable slots for one date. Past dates yield
// an empty list; dates past the horizon are rejected.
func (u *availabilityUsecase) GetAvailableTimes(ctx context.Context, providerIdentifier, date string) (resp *dto.AvailableTimesResponse, err error) {
	ctx, span := startSpan(ctx, "availability.available_times")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("provider", providerIdentifier), attribute.String("date", date))

	day, err := availability.ParseDate(date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if u.policy.BeyondHorizon(day) {
		return nil, ErrBeyondHorizon
	}

	provider, err := u.findProvider(ctx, providerIdentifier)
	if err != nil {
		return nil, err
	}

	civil := availability.CivilDate(day)
	if u.policy.IsPast(day) {
		return &dto.AvailableTimesResponse{Date: civil, Times: []string{}}, nil
	}

	today := u.policy.Today()
	times, err := u.cacheService.AvailableTimes(ctx, provider.ID, civil, func(ctx context.Context) ([]string, error) {
		return u.loader.slots(ctx, u.db, provider.ID, day, today)
	})
	if err != nil {
		u.log.Warnf("Failed to derive available times for provider %s on %s: %+v", provider.ID, civil, err)
		return nil, err
	}
	// The cached list covers the whole day; the clock cut happens per request.
	times = u.policy.Upcoming(day, times)
	span.SetAttributes(attribute.Int("slots", len(times)))

	return &dto.AvailableTimesResponse{Date: civil, Times: times}, nil
}

// GetWorkSchedule lists the declared weekdays. A weekday without a row is closed.
func (u *availabilityUsecase) GetWorkSchedule(ctx context.Context, providerIdentifier string) (*dto.WorkScheduleListResponse, error) {
	provider, err := u.findProvider(ctx, providerIdentifier)
	if err != nil {
		return nil, err
	}

	raw, err := u.cacheService.WorkSchedule(ctx, provider.ID, func(ctx context.Context) ([]byte, error) {
		schedules, err := u.workScheduleRepo.FindByProvider(ctx, u.db, provider.ID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(workingDaysOnly(schedules))
	})
	if err != nil {
		u.log.Warnf("Failed to load work schedule for provider %s: %+v", provider.ID, err)
		return nil, err
	}

	var days []dto.WorkScheduleResponse
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, err
	}
	if days == nil {
		days = []dto.WorkScheduleResponse{}
	}
	return &dto.WorkScheduleListResponse{Days: days}, nil
}

func (u *availabilityUsecase) findProvider(ctx context.Context, identifier string) (*entity.Provider, error) {
	return findActiveProvider(ctx, u.db, u.providerRepo, identifier)
}

func workingDaysOnly(schedules []entity.WorkSchedule) []dto.WorkScheduleResponse {
	out := make([]dto.WorkScheduleResponse, 0, len(schedules))
	for i := range schedules {
		if schedules[i].IsWorkingDay {
			out = append(out, *converter.WorkScheduleToResponse(&schedules[i]))
		}
	}
	return out
}

// findActiveProvider resolves a public UUID-or-username reference.
func findActiveProvider(ctx context.Context, db *gorm.DB, repo repository.ProviderRepository, identifier string) (*entity.Provider, error) {
	provider, err := repo.FindByIdentifier(ctx, db, identifier)
	if err != nil {
		return nil, err
	}
	if provider == nil || !provider.Active() {
		return nil, ErrProviderNotFound
	}
	return provider, nil
}
