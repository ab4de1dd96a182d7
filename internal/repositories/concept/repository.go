// Package concept stores the stable concept registry. Concepts are never
// deleted; changes append a new version and deprecate the prior one.
package concept

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/pkg/database"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
	"github.com/google/uuid"
)

const tableName = "stable_concepts"

var columns = []string{
	"id", "user_id", "name", "description", "version", "parent_concept_id",
	"deprecated", "superseded_by", "derived_from_views", "confidence",
	"promoted_at", "created_at", "updated_at",
}

// Repository provides access to stable concepts
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new concept repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DB exposes the database handle so callers can span a transaction over
// several repository writes
func (r *Repository) DB() database.DB {
	return r.db
}

// Create inserts a new concept version
func (r *Repository) Create(ctx context.Context, concept *models.StableConcept) (*models.StableConcept, error) {
	ctx, span := tracing.StartSpan(ctx, "ConceptRepository.Create")
	defer span.End()

	now := time.Now().UTC()
	if concept.ID == "" {
		concept.ID = uuid.New().String()
	}
	if concept.Version < 1 {
		concept.Version = 1
	}
	if concept.PromotedAt.IsZero() {
		concept.PromotedAt = now
	}
	concept.CreatedAt = now
	concept.UpdatedAt = now

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		concept.ID, concept.UserID, concept.Name, concept.Description, concept.Version, concept.ParentConceptID,
		concept.Deprecated, concept.SupersededBy, concept.DerivedFromViews, concept.Confidence,
		concept.PromotedAt, concept.CreatedAt, concept.UpdatedAt,
	)

	query, args := sb.Build()

	_, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create concept")
		return nil, fmt.Errorf("failed to create concept: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":      concept.ID,
		"user_id": concept.UserID,
		"name":    concept.Name,
		"version": concept.Version,
	}).Info("created stable concept")

	return concept, nil
}

// GetByID gets a single concept
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*models.StableConcept, error) {
	ctx, span := tracing.StartSpan(ctx, "ConceptRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("user_id", userID),
	)

	query, args := sb.Build()

	var concept models.StableConcept
	err := r.db.GetContext(ctx, &concept, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get concept")
		return nil, fmt.Errorf("failed to get concept: %w", err)
	}

	return &concept, nil
}

// GetCurrentByName finds the latest non-deprecated version of a named concept
func (r *Repository) GetCurrentByName(ctx context.Context, userID, name string) (*models.StableConcept, error) {
	ctx, span := tracing.StartSpan(ctx, "ConceptRepository.GetCurrentByName")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("user_id", userID),
		sb.Equal("name", name),
		sb.Equal("deprecated", false),
	)
	sb.OrderBy("version DESC")
	sb.Limit(1)

	query, args := sb.Build()

	var concept models.StableConcept
	err := r.db.GetContext(ctx, &concept, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get concept by name")
		return nil, fmt.Errorf("failed to get concept by name: %w", err)
	}

	return &concept, nil
}

// ListActive returns all non-deprecated concepts for a user
func (r *Repository) ListActive(ctx context.Context, userID string) ([]models.StableConcept, error) {
	ctx, span := tracing.StartSpan(ctx, "ConceptRepository.ListActive")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("user_id", userID),
		sb.Equal("deprecated", false),
	)
	sb.OrderBy("promoted_at DESC")

	query, args := sb.Build()

	var items []models.StableConcept
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list active concepts")
		return nil, fmt.Errorf("failed to list active concepts: %w", err)
	}

	return items, nil
}

// ListByUser returns every concept version for a user. Used by export.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]models.StableConcept, error) {
	ctx, span := tracing.StartSpan(ctx, "ConceptRepository.ListByUser")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("user_id", userID))
	sb.OrderBy("name ASC", "version ASC")

	query, args := sb.Build()

	var items []models.StableConcept
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list concepts")
		return nil, fmt.Errorf("failed to list concepts: %w", err)
	}

	return items, nil
}

// History returns every version of a named concept, oldest first
func (r *Repository) History(ctx context.Context, userID, name string) ([]models.StableConcept, error) {
	ctx, span := tracing.StartSpan(ctx, "ConceptRepository.History")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("user_id", userID),
		sb.Equal("name", name),
	)
	sb.OrderBy("version ASC")

	query, args := sb.Build()

	var items []models.StableConcept
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to get concept history")
		return nil, fmt.Errorf("failed to get concept history: %w", err)
	}

	return items, nil
}

// Deprecate marks a concept version as superseded. The row stays readable.
func (r *Repository) Deprecate(ctx context.Context, userID, id string, supersededBy *string) error {
	ctx, span := tracing.StartSpan(ctx, "ConceptRepository.Deprecate")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("deprecated", true),
		ub.Assign("superseded_by", supersededBy),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("user_id", userID),
	)

	query, args := ub.Build()

	_, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to deprecate concept")
		return fmt.Errorf("failed to deprecate concept: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":      id,
		"user_id": userID,
	}).Info("deprecated stable concept")

	return nil
}

// Reactivate clears the deprecation flag on a concept version. Used when a
// rollback restores a prior version as current.
func (r *Repository) Reactivate(ctx context.Context, userID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "ConceptRepository.Reactivate")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("deprecated", false),
		ub.Assign("superseded_by", nil),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("user_id", userID),
	)

	query, args := ub.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to reactivate concept")
		return fmt.Errorf("failed to reactivate concept: %w", err)
	}

	return nil
}

// Count counts non-deprecated concepts for a user
func (r *Repository) Count(ctx context.Context, userID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "ConceptRepository.Count")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(tableName)
	sb.Where(
		sb.Equal("user_id", userID),
		sb.Equal("deprecated", false),
	)

	query, args := sb.Build()

	var count int
	err := r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count concepts")
		return 0, fmt.Errorf("failed to count concepts: %w", err)
	}

	return count, nil
}
