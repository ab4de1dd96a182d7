// Package export produces the full per-user data dump. Local-first means the
// user can always walk away with everything the pipeline knows about them.
package export

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/audit"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/concept"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/entity"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/entityrelation"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/event"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/rawmemory"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/view"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
)

// Service assembles user data exports
type Service struct {
	rawMemories *rawmemory.Repository
	eventStore  *event.Repository
	entities    *entity.Repository
	relations   *entityrelation.Repository
	views       *view.Repository
	concepts    *concept.Repository
	audits      *audit.Repository
	logger      ectologger.Logger
}

// NewService creates an export service
func NewService(
	rawMemories *rawmemory.Repository,
	eventStore *event.Repository,
	entities *entity.Repository,
	relations *entityrelation.Repository,
	views *view.Repository,
	concepts *concept.Repository,
	audits *audit.Repository,
	logger ectologger.Logger,
) *Service {
	return &Service{
		rawMemories: rawMemories,
		eventStore:  eventStore,
		entities:    entities,
		relations:   relations,
		views:       views,
		concepts:    concepts,
		audits:      audits,
		logger:      logger,
	}
}

// ExportUser dumps everything stored for one user, archived events included
func (s *Service) ExportUser(ctx context.Context, userID string) (*models.UserDataExport, error) {
	ctx, span := tracing.StartSpan(ctx, "export.Service.ExportUser")
	defer span.End()

	dump := &models.UserDataExport{
		Version:    models.ExportVersion,
		UserID:     userID,
		ExportedAt: time.Now().UTC(),
	}

	var err error
	if dump.RawMemories, err = s.rawMemories.ListAll(ctx, userID); err != nil {
		return nil, err
	}

	iterator, err := s.eventStore.Query(ctx, models.EventFilter{UserID: userID, IncludeArchived: true})
	if err != nil {
		return nil, err
	}
	if dump.Events, err = iterator.Collect(); err != nil {
		return nil, err
	}

	if dump.Entities, err = s.entities.ListByUser(ctx, userID); err != nil {
		return nil, err
	}
	if dump.Relations, err = s.relations.ListByUser(ctx, userID); err != nil {
		return nil, err
	}
	if dump.Views, err = s.views.ListByUser(ctx, userID); err != nil {
		return nil, err
	}
	if dump.Concepts, err = s.concepts.ListByUser(ctx, userID); err != nil {
		return nil, err
	}
	if dump.AuditTrail, err = s.audits.ListByUser(ctx, userID); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id": userID,
		"counts":  dump.Counts(),
	}).Info("exported user data")

	return dump, nil
}
