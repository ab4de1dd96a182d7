// Package view stores derived views. Status moves forward only, so every
// transition is guarded by the current status and an optimistic revision.
package view

import (
	"context"
	"database/sql"
	"errors"
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

const tableName = "derived_views"

var columns = []string{
	"id", "user_id", "hypothesis", "subject", "view_type", "status",
	"confidence", "validation_count", "derived_from", "counter_evidence",
	"promoted_to", "revision", "created_at", "expires_at", "updated_at",
}

// ErrStaleRevision indicates another writer transitioned or updated the view
// first. Callers re-read and re-evaluate rather than overwrite.
var ErrStaleRevision = errors.New("derived view was modified concurrently")

// Repository provides access to derived views
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new derived view repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new derived view
func (r *Repository) Create(ctx context.Context, view *models.DerivedView) (*models.DerivedView, error) {
	ctx, span := tracing.StartSpan(ctx, "ViewRepository.Create")
	defer span.End()

	if len(view.DerivedFrom) == 0 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "derived view requires supporting evidence")
	}

	if view.ID == "" {
		view.ID = uuid.New().String()
	}
	if view.Revision < 1 {
		view.Revision = 1
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		view.ID, view.UserID, view.Hypothesis, view.Subject, view.ViewType, view.Status,
		view.Confidence, view.ValidationCount, view.DerivedFrom, view.CounterEvidence,
		view.PromotedTo, view.Revision, view.CreatedAt, view.ExpiresAt, view.UpdatedAt,
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create derived view")
		return nil, fmt.Errorf("failed to create derived view: %w", err)
	}

	metrics.ViewsCreated.WithLabelValues(string(view.ViewType)).Inc()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":         view.ID,
		"user_id":    view.UserID,
		"view_type":  view.ViewType,
		"hypothesis": view.Hypothesis,
	}).Info("created derived view")

	return view, nil
}

// GetByID gets a single derived view
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*models.DerivedView, error) {
	ctx, span := tracing.StartSpan(ctx, "ViewRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("user_id", userID),
	)

	query, args := sb.Build()

	var view models.DerivedView
	err := r.db.GetContext(ctx, &view, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get derived view")
		return nil, fmt.Errorf("failed to get derived view: %w", err)
	}

	return &view, nil
}

// ListActiveByUser returns all active views for a user
func (r *Repository) ListActiveByUser(ctx context.Context, userID string) ([]models.DerivedView, error) {
	ctx, span := tracing.StartSpan(ctx, "ViewRepository.ListActiveByUser")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("user_id", userID),
		sb.Equal("status", models.ViewStatusActive),
	)
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()

	var items []models.DerivedView
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list active views")
		return nil, fmt.Errorf("failed to list active views: %w", err)
	}

	return items, nil
}

// List returns a page of views for a user, optionally filtered by status
func (r *Repository) List(ctx context.Context, userID string, status models.ViewStatus, page, pageSize int) ([]models.DerivedView, int, error) {
	ctx, span := tracing.StartSpan(ctx, "ViewRepository.List")
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
	countConds := []string{countSb.Equal("user_id", userID)}
	if status != "" {
		countConds = append(countConds, countSb.Equal("status", status))
	}
	countSb.Where(countConds...)
	countQuery, countArgs := countSb.Build()

	var totalCount int
	err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count views")
		return nil, 0, fmt.Errorf("failed to count views: %w", err)
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	conds := []string{sb.Equal("user_id", userID)}
	if status != "" {
		conds = append(conds, sb.Equal("status", status))
	}
	sb.Where(conds...)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var items []models.DerivedView
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list views")
		return nil, 0, fmt.Errorf("failed to list views: %w", err)
	}

	return items, totalCount, nil
}

// ListByUser returns all views for a user. Used by export.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]models.DerivedView, error) {
	ctx, span := tracing.StartSpan(ctx, "ViewRepository.ListByUser")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("user_id", userID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()

	var items []models.DerivedView
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list views")
		return nil, fmt.Errorf("failed to list views: %w", err)
	}

	return items, nil
}

// UpdateEvidence persists new validation state on an active view. The write
// only lands if the revision still matches; otherwise ErrStaleRevision.
func (r *Repository) UpdateEvidence(ctx context.Context, view *models.DerivedView) error {
	ctx, span := tracing.StartSpan(ctx, "ViewRepository.UpdateEvidence")
	defer span.End()

	now := time.Now().UTC()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("confidence", view.Confidence),
		ub.Assign("validation_count", view.ValidationCount),
		ub.Assign("derived_from", view.DerivedFrom),
		ub.Assign("counter_evidence", view.CounterEvidence),
		ub.Assign("revision", view.Revision+1),
		ub.Assign("updated_at", now),
	)
	ub.Where(
		ub.Equal("id", view.ID),
		ub.Equal("user_id", view.UserID),
		ub.Equal("revision", view.Revision),
		ub.Equal("status", models.ViewStatusActive),
	)

	query, args := ub.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update view evidence")
		return fmt.Errorf("failed to update view evidence: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrStaleRevision
	}

	view.Revision++
	view.UpdatedAt = now
	return nil
}

// Transition moves an active view to a terminal status. The guard on the
// current status and revision makes transitions first-writer-wins.
func (r *Repository) Transition(ctx context.Context, view *models.DerivedView, to models.ViewStatus, promotedTo *string) error {
	ctx, span := tracing.StartSpan(ctx, "ViewRepository.Transition")
	defer span.End()

	if !view.Status.CanTransitionTo(to) {
		return httperror.NewHTTPErrorf(http.StatusConflict, "cannot transition view from %s to %s", view.Status, to)
	}

	now := time.Now().UTC()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("status", to),
		ub.Assign("promoted_to", promotedTo),
		ub.Assign("confidence", view.Confidence),
		ub.Assign("validation_count", view.ValidationCount),
		ub.Assign("counter_evidence", view.CounterEvidence),
		ub.Assign("revision", view.Revision+1),
		ub.Assign("updated_at", now),
	)
	ub.Where(
		ub.Equal("id", view.ID),
		ub.Equal("user_id", view.UserID),
		ub.Equal("revision", view.Revision),
		ub.Equal("status", models.ViewStatusActive),
	)

	query, args := ub.Build()

	result, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to transition view")
		return fmt.Errorf("failed to transition view: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrStaleRevision
	}

	view.Status = to
	view.PromotedTo = promotedTo
	view.Revision++
	view.UpdatedAt = now

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":      view.ID,
		"user_id": view.UserID,
		"status":  to,
	}).Info("transitioned derived view")

	return nil
}

// UsersWithActiveViews returns users that still hold active views. The sweep
// visits them even when no new events arrived so expiry is never skipped.
func (r *Repository) UsersWithActiveViews(ctx context.Context, limit int) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "ViewRepository.UsersWithActiveViews")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("DISTINCT user_id")
	sb.From(tableName)
	sb.Where(sb.Equal("status", models.ViewStatusActive))
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()

	var users []string
	err := r.db.SelectContext(ctx, &users, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list users with active views")
		return nil, fmt.Errorf("failed to list users with active views: %w", err)
	}

	return users, nil
}

// CountByStatus counts a user's views per status
func (r *Repository) CountByStatus(ctx context.Context, userID string) (map[models.ViewStatus]int, error) {
	ctx, span := tracing.StartSpan(ctx, "ViewRepository.CountByStatus")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("status", "COUNT(*) AS count")
	sb.From(tableName)
	sb.Where(sb.Equal("user_id", userID))
	sb.GroupBy("status")

	query, args := sb.Build()

	var rows []struct {
		Status models.ViewStatus `db:"status"`
		Count  int               `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count views by status")
		return nil, fmt.Errorf("failed to count views by status: %w", err)
	}

	counts := make(map[models.ViewStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
