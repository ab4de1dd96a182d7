// Package sweeper runs the background pipeline pass: pattern detection,
// conflict checking and gate evaluation. Work is serialized per user with a
// distributed lock so two instances never sweep the same user at once.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/event"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/view"
	"github.com/Iqvpi1024/dirsoul/pkg/conflicts"
	"github.com/Iqvpi1024/dirsoul/pkg/events"
	"github.com/Iqvpi1024/dirsoul/pkg/gate"
	"github.com/Iqvpi1024/dirsoul/pkg/metrics"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/patterns"
	"github.com/Iqvpi1024/dirsoul/pkg/redis"
	"github.com/Iqvpi1024/dirsoul/pkg/registry"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
)

// Config holds the sweep cadence and limits
type Config struct {
	Interval     time.Duration
	LockTTL      time.Duration
	UserBatch    int
	TriggerCount int
	LookbackDays int
	ViewLifetime time.Duration
}

// viewStore is the slice of the view repository the sweep needs
type viewStore interface {
	ListActiveByUser(ctx context.Context, userID string) ([]models.DerivedView, error)
	UsersWithActiveViews(ctx context.Context, limit int) ([]string, error)
	Create(ctx context.Context, view *models.DerivedView) (*models.DerivedView, error)
	UpdateEvidence(ctx context.Context, view *models.DerivedView) error
	Transition(ctx context.Context, view *models.DerivedView, to models.ViewStatus, promotedTo *string) error
}

// Sweeper drives the background pipeline
type Sweeper struct {
	eventStore *event.Repository
	views      viewStore
	patterns   *patterns.Detector
	conflicts  *conflicts.Detector
	gate       *gate.Gate
	registry   *registry.Registry
	emitter    *events.Emitter
	locker     *redis.Locker
	logger     ectologger.Logger
	cfg        Config

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a sweeper
func New(
	eventStore *event.Repository,
	views viewStore,
	patternDetector *patterns.Detector,
	conflictDetector *conflicts.Detector,
	g *gate.Gate,
	reg *registry.Registry,
	emitter *events.Emitter,
	locker *redis.Locker,
	logger ectologger.Logger,
	cfg Config,
) *Sweeper {
	return &Sweeper{
		eventStore: eventStore,
		views:      views,
		patterns:   patternDetector,
		conflicts:  conflictDetector,
		gate:       g,
		registry:   reg,
		emitter:    emitter,
		locker:     locker,
		logger:     logger,
		cfg:        cfg,
	}
}

// Start begins the sweep loop
func (s *Sweeper) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"interval": s.cfg.Interval.String(),
	}).Info("sweeper started")
	return nil
}

// Stop stops the sweep loop and waits for the current pass to finish
func (s *Sweeper) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return nil
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.WithContext(ctx).Info("sweeper stopping")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep visits every user that was recently active or still holds active
// views. Each user is swept independently; one failing user never blocks
// the rest.
func (s *Sweeper) sweep(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "Sweeper.sweep")
	defer span.End()

	now := time.Now().UTC()

	active, err := s.eventStore.ActiveUsersSince(ctx, now.Add(-2*s.cfg.Interval), s.cfg.UserBatch)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("failed to list recently active users")
		return
	}

	holding, err := s.views.UsersWithActiveViews(ctx, s.cfg.UserBatch)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("failed to list users with active views")
		return
	}

	seen := make(map[string]bool, len(active)+len(holding))
	users := make([]string, 0, len(active)+len(holding))
	for _, userID := range append(active, holding...) {
		if !seen[userID] {
			seen[userID] = true
			users = append(users, userID)
		}
	}

	for _, userID := range users {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.SweepUser(ctx, userID)
	}
}

// SweepUser runs one full pipeline pass for a single user. A held lock means
// another instance is already on it; that is contention, not an error.
func (s *Sweeper) SweepUser(ctx context.Context, userID string) {
	ctx, span := tracing.StartSpan(ctx, "Sweeper.SweepUser")
	defer span.End()

	start := time.Now()

	err := s.locker.WithLock(ctx, "sweep:"+userID, s.cfg.LockTTL, func() error {
		return s.sweepLocked(ctx, userID)
	})
	if err == redis.ErrLockNotAcquired {
		metrics.SweepLockContention.Inc()
		return
	}
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id": userID,
		}).Error("sweep failed")
		return
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
}

func (s *Sweeper) sweepLocked(ctx context.Context, userID string) error {
	now := time.Now().UTC()

	since := now.AddDate(0, 0, -s.cfg.LookbackDays)
	iterator, err := s.eventStore.Query(ctx, models.EventFilter{UserID: userID, Since: &since})
	if err != nil {
		return err
	}
	window, err := iterator.Collect()
	if err != nil {
		return err
	}

	activeViews, err := s.views.ListActiveByUser(ctx, userID)
	if err != nil {
		return err
	}

	// Pattern detection only kicks in once there is enough fresh signal;
	// the gate pass below runs regardless so views still expire
	if len(window) >= s.cfg.TriggerCount {
		activeViews, err = s.applyCandidates(ctx, userID, s.patterns.Detect(window, now), activeViews, now)
		if err != nil {
			return err
		}
	}

	return s.gatePass(ctx, activeViews, now)
}

// applyCandidates folds detector output into the view set: a candidate
// matching an existing active hypothesis revalidates it, anything else
// becomes a new view. Returns the refreshed active set.
func (s *Sweeper) applyCandidates(ctx context.Context, userID string, candidates []patterns.Candidate, activeViews []models.DerivedView, now time.Time) ([]models.DerivedView, error) {
	// Indexes, not element pointers: appending below may reallocate the
	// backing array and orphan any pointer taken earlier.
	byHypothesis := make(map[string]int, len(activeViews))
	for i := range activeViews {
		byHypothesis[activeViews[i].Hypothesis] = i
	}

	for _, candidate := range candidates {
		idx, ok := byHypothesis[candidate.Hypothesis]
		if !ok {
			created, err := models.NewDerivedView(
				userID, candidate.Hypothesis, candidate.Subject, candidate.ViewType,
				candidate.EventIDs, candidate.Confidence, now, s.cfg.ViewLifetime,
			)
			if err != nil {
				s.logger.WithContext(ctx).WithError(err).Warn("skipping invalid view candidate")
				continue
			}
			created.ValidationCount = candidate.ValidationCount

			created, err = s.views.Create(ctx, created)
			if err != nil {
				return nil, err
			}
			s.emitter.EmitViewCreated(ctx, created)
			activeViews = append(activeViews, *created)
			byHypothesis[created.Hypothesis] = len(activeViews) - 1
			continue
		}

		existing := &activeViews[idx]

		changed := false
		for _, id := range candidate.EventIDs {
			if !existing.DerivedFrom.Contains(id) {
				existing.DerivedFrom = append(existing.DerivedFrom, id)
				changed = true
			}
		}
		if !changed {
			continue
		}

		existing.ValidationCount = len(existing.DerivedFrom)

		// Keep the stronger of the detector's own confidence and the
		// evidence-derived recalculation
		recalculated := gate.RecalculateConfidence(existing.ValidationCount, len(existing.CounterEvidence))
		existing.Confidence = max(candidate.Confidence, recalculated)
		if existing.Confidence > 1 {
			existing.Confidence = 1
		}

		if err := s.views.UpdateEvidence(ctx, existing); err != nil && err != view.ErrStaleRevision {
			return nil, err
		}
	}

	return activeViews, nil
}

// gatePass evaluates every active view and applies the decision. A stale
// revision means a concurrent writer got there first; the next sweep will
// re-evaluate from the fresh row.
func (s *Sweeper) gatePass(ctx context.Context, activeViews []models.DerivedView, now time.Time) error {
	for i := range activeViews {
		v := &activeViews[i]
		if v.Status != models.ViewStatusActive {
			continue
		}

		hasConflict := s.conflicts.HasConflict(v, activeViews)
		decision := s.gate.Evaluate(v, hasConflict, now)
		metrics.RecordGateDecision(string(decision))

		var err error
		switch decision {
		case gate.DecisionPromote:
			_, err = s.registry.Promote(ctx, v)
		case gate.DecisionReject:
			from := v.Status
			if err = s.views.Transition(ctx, v, models.ViewStatusRejected, nil); err == nil {
				s.emitter.EmitViewTransitioned(ctx, v, from)
			}
		case gate.DecisionExpire:
			from := v.Status
			if err = s.views.Transition(ctx, v, models.ViewStatusExpired, nil); err == nil {
				s.emitter.EmitViewTransitioned(ctx, v, from)
			}
		}

		if err == view.ErrStaleRevision {
			continue
		}
		if err != nil {
			return err
		}
	}

	return nil
}
