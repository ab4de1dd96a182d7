// Package entity stores resolved entities. Each user has at most one entity
// per canonical name.
package entity

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

const tableName = "entities"

var columns = []string{
	"id", "user_id", "canonical_name", "entity_type", "type_confidence",
	"attributes", "mention_count", "first_seen", "last_seen", "created_at", "updated_at",
}

// Repository provides access to resolved entities
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new entity repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new entity
func (r *Repository) Create(ctx context.Context, entity *models.Entity) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "EntityRepository.Create")
	defer span.End()

	now := time.Now().UTC()
	entity.ID = uuid.New().String()
	entity.CreatedAt = now
	entity.UpdatedAt = now
	if entity.FirstSeen.IsZero() {
		entity.FirstSeen = now
	}
	if entity.LastSeen.IsZero() {
		entity.LastSeen = entity.FirstSeen
	}
	if entity.MentionCount < 1 {
		entity.MentionCount = 1
	}
	if entity.Attributes == nil {
		entity.Attributes = models.AttributeMap{}
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		entity.ID, entity.UserID, entity.CanonicalName, entity.EntityType, entity.TypeConfidence,
		entity.Attributes, entity.MentionCount, entity.FirstSeen, entity.LastSeen, entity.CreatedAt, entity.UpdatedAt,
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create entity")
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":             entity.ID,
		"user_id":        entity.UserID,
		"canonical_name": entity.CanonicalName,
		"entity_type":    entity.EntityType,
	}).Info("created entity")

	return entity, nil
}

// GetByID gets a single entity
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "EntityRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("user_id", userID),
	)

	query, args := sb.Build()

	var entity models.Entity
	err := r.db.GetContext(ctx, &entity, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get entity")
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	return &entity, nil
}

// GetByName finds an entity by exact canonical name
func (r *Repository) GetByName(ctx context.Context, userID, canonicalName string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "EntityRepository.GetByName")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("user_id", userID),
		sb.Equal("canonical_name", canonicalName),
	)

	query, args := sb.Build()

	var entity models.Entity
	err := r.db.GetContext(ctx, &entity, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get entity by name")
		return nil, fmt.Errorf("failed to get entity by name: %w", err)
	}

	return &entity, nil
}

// ListByUser returns all entities for a user, most mentioned first. The
// resolver scans this set for fuzzy candidates.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "EntityRepository.ListByUser")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("user_id", userID))
	sb.OrderBy("mention_count DESC")

	query, args := sb.Build()

	var items []models.Entity
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list entities")
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	return items, nil
}

// List returns a page of entities plus the total count
func (r *Repository) List(ctx context.Context, userID string, entityType models.EntityType, page, pageSize int) ([]models.Entity, int, error) {
	ctx, span := tracing.StartSpan(ctx, "EntityRepository.List")
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
	if entityType != "" {
		countConds = append(countConds, countSb.Equal("entity_type", entityType))
	}
	countSb.Where(countConds...)
	countQuery, countArgs := countSb.Build()

	var totalCount int
	err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count entities")
		return nil, 0, fmt.Errorf("failed to count entities: %w", err)
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	conds := []string{sb.Equal("user_id", userID)}
	if entityType != "" {
		conds = append(conds, sb.Equal("entity_type", entityType))
	}
	sb.Where(conds...)
	sb.OrderBy("mention_count DESC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var items []models.Entity
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list entities")
		return nil, 0, fmt.Errorf("failed to list entities: %w", err)
	}

	return items, totalCount, nil
}

// Update persists merged attributes, mention count and last seen
func (r *Repository) Update(ctx context.Context, entity *models.Entity) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "EntityRepository.Update")
	defer span.End()

	entity.UpdatedAt = time.Now().UTC()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("entity_type", entity.EntityType),
		ub.Assign("type_confidence", entity.TypeConfidence),
		ub.Assign("attributes", entity.Attributes),
		ub.Assign("mention_count", entity.MentionCount),
		ub.Assign("last_seen", entity.LastSeen),
		ub.Assign("updated_at", entity.UpdatedAt),
	)
	ub.Where(
		ub.Equal("id", entity.ID),
		ub.Equal("user_id", entity.UserID),
	)

	query, args := ub.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update entity")
		return nil, fmt.Errorf("failed to update entity: %w", err)
	}

	return entity, nil
}

// Count counts all entities for a user
func (r *Repository) Count(ctx context.Context, userID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "EntityRepository.Count")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(tableName)
	sb.Where(sb.Equal("user_id", userID))

	query, args := sb.Build()

	var count int
	err := r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count entities")
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}

	return count, nil
}
