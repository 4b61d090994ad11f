package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clinic-booking/internal/infrastructure/cache"
	"clinic-booking/internal/infrastructure/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// Cache key prefixes for derived availability
	AvailableTimesKeyPrefix = "available_times:"
	WorkScheduleKeyPrefix   = "work_schedule:"

	// Upper bound for a single cache round trip; a slow cache is a miss
	cacheOpTimeout = 2 * time.Second

	// Invalidation runs after commit on a detached context
	invalidateTimeout = 5 * time.Second
)

// =============================================================================
// Types
// =============================================================================

// AvailabilityCacheService is the read-through cache in front of slot
// derivation and the public work schedule.
//
// Key Features:
// - Best effort: every cache error degrades to a miss and is only logged
// - Miss coalescing: concurrent misses for one key share a single load
// - Provider-wide invalidation by key prefix after any schedule or booking change
//
// The booking path never reads from here; it derives availability live.
type AvailabilityCacheService struct {
	cache   cache.Cache
	ttl     time.Duration
	log     *logrus.Logger
	metrics *metrics.BookingMetrics
	group   singleflight.Group
}

// =============================================================================
// Constructor
// =============================================================================

func NewAvailabilityCacheService(c cache.Cache, ttl time.Duration, log *logrus.Logger, m *metrics.BookingMetrics) *AvailabilityCacheService {
	return &AvailabilityCacheService{
		cache:   c,
		ttl:     ttl,
		log:     log,
		metrics: m,
	}
}

// =============================================================================
// Keys
// =============================================================================

func AvailableTimesKey(providerID uuid.UUID, date string) string {
	return fmt.Sprintf("%s%s:%s", AvailableTimesKeyPrefix, providerID, date)
}

func WorkScheduleKey(providerID uuid.UUID) string {
	return WorkScheduleKeyPrefix + providerID.String()
}

// =============================================================================
// Public Methods
// =============================================================================

// AvailableTimes returns the cached slot list for (provider, date) or derives it with load.
func (s *AvailabilityCacheService) AvailableTimes(ctx context.Context, providerID uuid.UUID, date string, load func(context.Context) ([]string, error)) ([]string, error) {
	return readThrough(ctx, s, "available_times", AvailableTimesKey(providerID, date), load)
}

// WorkSchedule caches any JSON-serializable work schedule view for a provider.
func (s *AvailabilityCacheService) WorkSchedule(ctx context.Context, providerID uuid.UUID, load func(context.Context) ([]byte, error)) ([]byte, error) {
	key := WorkScheduleKey(providerID)
	if raw, ok := s.get(ctx, "work_schedule", key); ok {
		return raw, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		raw, err := load(ctx)
		if err != nil {
			return nil, err
		}
		s.set(ctx, key, raw)
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// InvalidateProvider drops every cached view of one provider. Failures are logged only.
func (s *AvailabilityCacheService) InvalidateProvider(providerID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()

	if err := s.cache.DeleteByPrefix(ctx, AvailableTimesKeyPrefix+providerID.String()+":"); err != nil {
		s.log.Warnf("Failed to invalidate available times for provider %s (non-fatal): %+v", providerID, err)
	}
	if err := s.cache.Delete(ctx, WorkScheduleKey(providerID)); err != nil {
		s.log.Warnf("Failed to invalidate work schedule for provider %s (non-fatal): %+v", providerID, err)
	}
}

// InvalidateDate drops the cached slot list for one (provider, date).
func (s *AvailabilityCacheService) InvalidateDate(providerID uuid.UUID, date string) {
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()

	if err := s.cache.Delete(ctx, AvailableTimesKey(providerID, date)); err != nil {
		s.log.Warnf("Failed to invalidate available times for provider %s on %s (non-fatal): %+v", providerID, date, err)
	}
}

// =============================================================================
// Private Methods
// =============================================================================

func readThrough[T any](ctx context.Context, s *AvailabilityCacheService, kind, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if raw, ok := s.get(ctx, kind, key); ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		s.log.Warnf("Discarding undecodable cache entry %s", key)
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		fresh, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(fresh); err == nil {
			s.set(ctx, key, raw)
		}
		return fresh, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func (s *AvailabilityCacheService) get(ctx context.Context, kind, key string) ([]byte, bool) {
	opCtx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	raw, err := s.cache.Get(opCtx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warnf("Cache read failed for %s, treating as miss: %+v", key, err)
		}
		s.metrics.ObserveCache(kind, false)
		return nil, false
	}
	s.metrics.ObserveCache(kind, true)
	return raw, true
}

func (s *AvailabilityCacheService) set(ctx context.Context, key string, raw []byte) {
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
	defer cancel()

	if err := s.cache.SetWithTTL(opCtx, key, raw, s.ttl); err != nil {
		s.log.Warnf("Cache write failed for %s (non-fatal): %+v", key, err)
	}
}
