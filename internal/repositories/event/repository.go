// Package event implements the append-only event store. Events are never
// updated or deleted; Archive only moves rows to the cold tier.
package event

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/pkg/database"
	"github.com/Iqvpi1024/dirsoul/pkg/metrics"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
	"github.com/google/uuid"
)

const tableName = "events"

var columns = []string{
	"id", "user_id", "timestamp", "actor", "action", "target",
	"quantity", "unit", "confidence", "source_reference", "extractor_name",
	"archived", "archived_at", "created_at",
}

// Repository provides append-only access to the event store
type Repository struct {
	db         database.DB
	logger     ectologger.Logger
	retryCount int
}

// NewRepository creates a new event repository
func NewRepository(db database.DB, logger ectologger.Logger, retryCount int) *Repository {
	if retryCount < 1 {
		retryCount = 1
	}
	return &Repository{
		db:         db,
		logger:     logger,
		retryCount: retryCount,
	}
}

// Append validates and inserts a single event. Writes are retried with
// backoff because event durability is non-negotiable; validation failures
// are rejected immediately and never retried.
func (r *Repository) Append(ctx context.Context, event *models.Event) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "EventRepository.Append")
	defer span.End()

	if err := event.Validate(); err != nil {
		metrics.EventsRejected.Inc()
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid event: %s", err.Error())
	}

	now := time.Now().UTC()
	event.ID = uuid.New().String()
	event.CreatedAt = now
	if event.Actor == "" {
		event.Actor = event.UserID
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		event.ID, event.UserID, event.Timestamp, event.Actor, event.Action, event.Target,
		event.Quantity, event.Unit, event.Confidence, event.SourceReference, event.ExtractorName,
		false, nil, event.CreatedAt,
	)

	query, args := sb.Build()

	var err error
	backoff := 100 * time.Millisecond
	for attempt := 1; attempt <= r.retryCount; attempt++ {
		_, err = r.db.ExecContext(ctx, query, args...)
		if err == nil {
			break
		}
		if attempt < r.retryCount {
			metrics.StorageWriteRetries.Inc()
			r.logger.WithContext(ctx).WithError(err).Warnf("event append attempt %d failed, retrying", attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to append event")
		return nil, httperror.NewHTTPError(http.StatusServiceUnavailable, "event store is unavailable")
	}

	metrics.EventsAppended.WithLabelValues(event.ExtractorName).Inc()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":      event.ID,
		"user_id": event.UserID,
		"action":  event.Action,
		"target":  event.Target,
	}).Info("appended event")

	return event, nil
}

// GetByID gets a single event
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "EventRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("user_id", userID),
	)

	query, args := sb.Build()

	var event models.Event
	err := r.db.GetContext(ctx, &event, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get event")
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &event, nil
}

// applyFilter applies an EventFilter to a select builder
func applyFilter(sb *database.SelectBuilder, filter models.EventFilter) {
	conds := []string{sb.Equal("user_id", filter.UserID)}
	if filter.Action != "" {
		conds = append(conds, sb.Equal("action", filter.Action))
	}
	if filter.Target != "" {
		conds = append(conds, sb.Equal("target", filter.Target))
	}
	if filter.Since != nil {
		conds = append(conds, sb.GreaterEqualThan("timestamp", *filter.Since))
	}
	if filter.Until != nil {
		conds = append(conds, sb.LessThan("timestamp", *filter.Until))
	}
	if filter.MinConfidence > 0 {
		conds = append(conds, sb.GreaterEqualThan("confidence", filter.MinConfidence))
	}
	if !filter.IncludeArchived {
		conds = append(conds, sb.Equal("archived", false))
	}
	sb.Where(conds...)
}

// Query streams events matching the filter in timestamp order. The caller
// must drain or close the iterator.
func (r *Repository) Query(ctx context.Context, filter models.EventFilter) (*EventIterator, error) {
	ctx, span := tracing.StartSpan(ctx, "EventRepository.Query")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	applyFilter(sb, filter)
	sb.OrderBy("timestamp ASC")
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}

	query, args := sb.Build()

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to query events")
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	return &EventIterator{rows: rows}, nil
}

// List returns a page of events plus the total count, newest first
func (r *Repository) List(ctx context.Context, filter models.EventFilter, page, pageSize int) ([]models.Event, int, error) {
	ctx, span := tracing.StartSpan(ctx, "EventRepository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	countSb := database.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(tableName)
	applyFilter(countSb, filter)
	countQuery, countArgs := countSb.Build()

	var totalCount int
	err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count events")
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	applyFilter(sb, filter)
	sb.OrderBy("timestamp DESC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var items []models.Event
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list events")
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}

	return items, totalCount, nil
}

// ListByIDs fetches the given events for one user
func (r *Repository) ListByIDs(ctx context.Context, userID string, ids []string) ([]models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "EventRepository.ListByIDs")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	idArgs := make([]any, len(ids))
	for i, id := range ids {
		idArgs[i] = id
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("user_id", userID),
		sb.In("id", idArgs...),
	)

	query, args := sb.Build()

	var items []models.Event
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list events by ids")
		return nil, fmt.Errorf("failed to list events by ids: %w", err)
	}

	return items, nil
}

// CountSince counts hot-tier events for a user since the given instant
func (r *Repository) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "EventRepository.CountSince")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(tableName)
	sb.Where(
		sb.Equal("user_id", userID),
		sb.GreaterEqualThan("timestamp", since),
		sb.Equal("archived", false),
	)

	query, args := sb.Build()

	var count int
	err := r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count events")
		return 0, fmt.Errorf("failed to count events: %w", err)
	}

	return count, nil
}

// ActiveUsersSince returns users with hot-tier events since the given instant
func (r *Repository) ActiveUsersSince(ctx context.Context, since time.Time, limit int) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "EventRepository.ActiveUsersSince")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("DISTINCT user_id")
	sb.From(tableName)
	sb.Where(
		sb.GreaterEqualThan("created_at", since),
		sb.Equal("archived", false),
	)
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()

	var users []string
	err := r.db.SelectContext(ctx, &users, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list active users")
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}

	return users, nil
}

// Archive moves events older than the cutoff to the cold tier. This is the
// only write to existing rows and changes storage tier, not content.
func (r *Repository) Archive(ctx context.Context, userID string, olderThan time.Time) (*models.ArchiveResult, error) {
	ctx, span := tracing.StartSpan(ctx, "EventRepository.Archive")
	defer span.End()

	now := time.Now().UTC()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("archived", true),
		ub.Assign("archived_at", now),
	)
	ub.Where(
		ub.Equal("user_id", userID),
		ub.LessThan("timestamp", olderThan),
		ub.Equal("archived", false),
	)

	query, args := ub.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to archive events")
		return nil, fmt.Errorf("failed to archive events: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id":    userID,
		"older_than": olderThan,
		"archived":   rowsAffected,
	}).Info("archived events")

	return &models.ArchiveResult{
		ArchivedCount: int(rowsAffected),
		OlderThan:     olderThan,
	}, nil
}
