// Package entityrelation stores co-occurrence relations between entities.
package entityrelation

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/pkg/database"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
	"github.com/google/uuid"
)

const tableName = "entity_relations"

var columns = []string{
	"id", "user_id", "source_entity_id", "target_entity_id", "relation_type",
	"strength", "co_occurrence_count", "first_seen", "last_seen",
}

// Repository provides access to entity relations
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new entity relation repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Strengthen records one more co-occurrence between two entities. The row is
// created on first sight; subsequent calls bump the count and strength.
func (r *Repository) Strengthen(ctx context.Context, relation *models.EntityRelation) error {
	ctx, span := tracing.StartSpan(ctx, "EntityRelationRepository.Strengthen")
	defer span.End()

	now := time.Now().UTC()
	if relation.ID == "" {
		relation.ID = uuid.New().String()
	}
	if relation.FirstSeen.IsZero() {
		relation.FirstSeen = now
	}
	if relation.LastSeen.IsZero() {
		relation.LastSeen = now
	}
	if relation.CoOccurrenceCount < 1 {
		relation.CoOccurrenceCount = 1
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		relation.ID, relation.UserID, relation.SourceEntityID, relation.TargetEntityID, relation.RelationType,
		relation.Strength, relation.CoOccurrenceCount, relation.FirstSeen, relation.LastSeen,
	)

	ub := sb.OnConflict("user_id", "source_entity_id", "target_entity_id", "relation_type")
	ub.Set(
		ub.Assign("co_occurrence_count", database.Raw("entity_relations.co_occurrence_count + 1")),
		ub.Assign("strength", database.Raw("LEAST(1.0, entity_relations.strength + 0.05)")),
		ub.Assign("last_seen", relation.LastSeen),
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to strengthen entity relation")
		return fmt.Errorf("failed to strengthen entity relation: %w", err)
	}

	return nil
}

// ListByEntity returns the relations touching one entity
func (r *Repository) ListByEntity(ctx context.Context, userID, entityID string) ([]models.EntityRelation, error) {
	ctx, span := tracing.StartSpan(ctx, "EntityRelationRepository.ListByEntity")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("user_id", userID),
		sb.Or(
			sb.Equal("source_entity_id", entityID),
			sb.Equal("target_entity_id", entityID),
		),
	)
	sb.OrderBy("strength DESC")

	query, args := sb.Build()

	var items []models.EntityRelation
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list entity relations")
		return nil, fmt.Errorf("failed to list entity relations: %w", err)
	}

	return items, nil
}

// ListByUser returns all relations for a user. Used by export.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]models.EntityRelation, error) {
	ctx, span := tracing.StartSpan(ctx, "EntityRelationRepository.ListByUser")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("user_id", userID))
	sb.OrderBy("strength DESC")

	query, args := sb.Build()

	var items []models.EntityRelation
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list entity relations")
		return nil, fmt.Errorf("failed to list entity relations: %w", err)
	}

	return items, nil
}
