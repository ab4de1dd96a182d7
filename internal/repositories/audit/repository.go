// Package audit stores the plugin access audit log.
package audit

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

const tableName = "audit_logs"

var columns = []string{
	"id", "user_id", "actor", "action", "resource", "success",
	"error", "result_count", "remote_ip", "created_at",
}

// Repository provides access to audit log entries
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new audit repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Record inserts an audit entry. A failed insert is logged and swallowed so
// auditing never breaks the request it describes.
func (r *Repository) Record(ctx context.Context, entry *models.AuditLog) {
	ctx, span := tracing.StartSpan(ctx, "AuditRepository.Record")
	defer span.End()

	entry.ID = uuid.New().String()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		entry.ID, entry.UserID, entry.Actor, entry.Action, entry.Resource, entry.Success,
		entry.Error, entry.ResultCount, entry.RemoteIP, entry.CreatedAt,
	)

	query, args := sb.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"actor":  entry.Actor,
			"action": entry.Action,
		}).Error("failed to record audit entry")
	}
}

// List returns a page of audit entries for a user, newest first
func (r *Repository) List(ctx context.Context, userID string, actor string, page, pageSize int) ([]models.AuditLog, int, error) {
	ctx, span := tracing.StartSpan(ctx, "AuditRepository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}
	offset := (page - 1) * pageSize

	countSb := database.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(tableName)
	countConds := []string{countSb.Equal("user_id", userID)}
	if actor != "" {
		countConds = append(countConds, countSb.Equal("actor", actor))
	}
	countSb.Where(countConds...)
	countQuery, countArgs := countSb.Build()

	var totalCount int
	err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count audit entries")
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	conds := []string{sb.Equal("user_id", userID)}
	if actor != "" {
		conds = append(conds, sb.Equal("actor", actor))
	}
	sb.Where(conds...)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var items []models.AuditLog
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list audit entries")
		return nil, 0, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return items, totalCount, nil
}

// ListByUser returns all audit entries for a user. Used by export.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]models.AuditLog, error) {
	ctx, span := tracing.StartSpan(ctx, "AuditRepository.ListByUser")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("user_id", userID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()

	var items []models.AuditLog
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list audit entries")
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return items, nil
}
