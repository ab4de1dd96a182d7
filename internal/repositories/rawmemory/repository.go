// Package rawmemory stores unprocessed memory inputs. Raw content is kept
// even when extraction fails so no input is ever lost.
package rawmemory

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

const tableName = "raw_memories"

var columns = []string{
	"id", "user_id", "content", "content_type", "metadata", "fingerprint", "created_at",
}

// Repository provides access to stored raw memories
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new raw memory repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create stores a raw memory. Duplicate submissions (same user and
// fingerprint) return the existing row instead of inserting a new one.
func (r *Repository) Create(ctx context.Context, memory *models.RawMemory) (*models.RawMemory, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "RawMemoryRepository.Create")
	defer span.End()

	existing, err := r.GetByFingerprint(ctx, memory.UserID, memory.Fingerprint)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"user_id":     memory.UserID,
			"fingerprint": memory.Fingerprint,
		}).Info("duplicate raw memory, returning existing")
		return existing, true, nil
	}

	memory.ID = uuid.New().String()
	memory.CreatedAt = time.Now().UTC()

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		memory.ID, memory.UserID, memory.Content, memory.ContentType,
		memory.Metadata, memory.Fingerprint, memory.CreatedAt,
	)

	query, args := sb.Build()

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create raw memory")
		return nil, false, fmt.Errorf("failed to create raw memory: %w", err)
	}

	return memory, false, nil
}

// GetByID gets a single raw memory
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*models.RawMemory, error) {
	ctx, span := tracing.StartSpan(ctx, "RawMemoryRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("user_id", userID),
	)

	query, args := sb.Build()

	var memory models.RawMemory
	err := r.db.GetContext(ctx, &memory, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get raw memory")
		return nil, fmt.Errorf("failed to get raw memory: %w", err)
	}

	return &memory, nil
}

// GetByFingerprint finds a raw memory by its content fingerprint
func (r *Repository) GetByFingerprint(ctx context.Context, userID, fingerprint string) (*models.RawMemory, error) {
	ctx, span := tracing.StartSpan(ctx, "RawMemoryRepository.GetByFingerprint")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("user_id", userID),
		sb.Equal("fingerprint", fingerprint),
	)
	sb.Limit(1)

	query, args := sb.Build()

	var memory models.RawMemory
	err := r.db.GetContext(ctx, &memory, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get raw memory by fingerprint")
		return nil, fmt.Errorf("failed to get raw memory by fingerprint: %w", err)
	}

	return &memory, nil
}

// List returns a page of raw memories plus the total count, newest first
func (r *Repository) List(ctx context.Context, userID string, page, pageSize int) ([]models.RawMemory, int, error) {
	ctx, span := tracing.StartSpan(ctx, "RawMemoryRepository.List")
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
	countSb.Where(countSb.Equal("user_id", userID))
	countQuery, countArgs := countSb.Build()

	var totalCount int
	err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count raw memories")
		return nil, 0, fmt.Errorf("failed to count raw memories: %w", err)
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("user_id", userID))
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var items []models.RawMemory
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list raw memories")
		return nil, 0, fmt.Errorf("failed to list raw memories: %w", err)
	}

	return items, totalCount, nil
}

// ListAll returns every raw memory for a user, oldest first. Used by export.
func (r *Repository) ListAll(ctx context.Context, userID string) ([]models.RawMemory, error) {
	ctx, span := tracing.StartSpan(ctx, "RawMemoryRepository.ListAll")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("user_id", userID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()

	var items []models.RawMemory
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list raw memories")
		return nil, fmt.Errorf("failed to list raw memories: %w", err)
	}

	return items, nil
}
