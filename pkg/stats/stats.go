// Package stats serves aggregated per-user numbers. Results are cached in
// Redis so reads degrade to the last known values when Postgres is down
// instead of failing outright.
package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/concept"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/entity"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/event"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/view"
	"github.com/Iqvpi1024/dirsoul/pkg/metrics"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/redis"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
)

const cacheKeyPrefix = "stats:"

// Service computes and caches user statistics
type Service struct {
	eventStore *event.Repository
	entities   *entity.Repository
	views      *view.Repository
	concepts   *concept.Repository
	cache      *redis.Client
	ttl        time.Duration
	logger     ectologger.Logger
}

// NewService creates a stats service
func NewService(
	eventStore *event.Repository,
	entities *entity.Repository,
	views *view.Repository,
	concepts *concept.Repository,
	cache *redis.Client,
	ttl time.Duration,
	logger ectologger.Logger,
) *Service {
	return &Service{
		eventStore: eventStore,
		entities:   entities,
		views:      views,
		concepts:   concepts,
		cache:      cache,
		ttl:        ttl,
		logger:     logger,
	}
}

// UserStats returns the aggregates for one user. A recent cached copy is
// served as is; a store failure falls back to the cached copy marked stale;
// with no cache either, the read fails.
func (s *Service) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	ctx, span := tracing.StartSpan(ctx, "stats.Service.UserStats")
	defer span.End()

	if cached := s.fromCache(ctx, userID); cached != nil && time.Since(cached.ComputedAt) < s.ttl {
		return cached, nil
	}

	computed, err := s.compute(ctx, userID)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("stats computation failed, trying cache")
		if cached := s.fromCache(ctx, userID); cached != nil {
			metrics.DegradedReads.Inc()
			cached.Stale = true
			return cached, nil
		}
		return nil, httperror.NewHTTPError(http.StatusServiceUnavailable, "statistics are unavailable")
	}

	s.toCache(ctx, computed)
	return computed, nil
}

func (s *Service) compute(ctx context.Context, userID string) (*models.UserStats, error) {
	eventCount, err := s.eventStore.CountSince(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}

	entityCount, err := s.entities.Count(ctx, userID)
	if err != nil {
		return nil, err
	}

	viewCounts, err := s.views.CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	conceptCount, err := s.concepts.Count(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.UserStats{
		UserID:        userID,
		EventCount:    eventCount,
		EntityCount:   entityCount,
		ActiveViews:   viewCounts[models.ViewStatusActive],
		PromotedViews: viewCounts[models.ViewStatusPromoted],
		RejectedViews: viewCounts[models.ViewStatusRejected],
		Concepts:      conceptCount,
		ComputedAt:    time.Now().UTC(),
	}, nil
}

func (s *Service) fromCache(ctx context.Context, userID string) *models.UserStats {
	if s.cache == nil {
		return nil
	}

	raw, err := s.cache.Get(ctx, cacheKeyPrefix+userID)
	if err != nil {
		if !redis.IsNil(err) {
			s.logger.WithContext(ctx).WithError(err).Warn("stats cache read failed")
		}
		return nil
	}

	var cached models.UserStats
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil
	}
	return &cached
}

func (s *Service) toCache(ctx context.Context, stats *models.UserStats) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	// Cached copies outlive the freshness window on purpose; a stale answer
	// during an outage beats no answer
	if err := s.cache.Set(ctx, cacheKeyPrefix+stats.UserID, string(data), 24*time.Hour); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("stats cache write failed")
	}
}
