// Package registry manages the stable concept registry. Concepts are
// versioned and append-only: a change creates a new version and deprecates
// the prior one, and a rollback restores the prior version as current.
package registry

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/concept"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/view"
	"github.com/Iqvpi1024/dirsoul/pkg/events"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
)

// Registry coordinates concept versioning with view promotion
type Registry struct {
	concepts *concept.Repository
	views    *view.Repository
	emitter  *events.Emitter
	logger   ectologger.Logger
}

// New creates a registry
func New(concepts *concept.Repository, views *view.Repository, emitter *events.Emitter, logger ectologger.Logger) *Registry {
	return &Registry{
		concepts: concepts,
		views:    views,
		emitter:  emitter,
		logger:   logger,
	}
}

// Promote turns a qualified view into a stable concept and marks the view
// promoted. Promoting a hypothesis that already exists as a concept appends
// a new version and deprecates the prior one.
func (r *Registry) Promote(ctx context.Context, v *models.DerivedView) (*models.StableConcept, error) {
	ctx, span := tracing.StartSpan(ctx, "Registry.Promote")
	defer span.End()

	current, err := r.concepts.GetCurrentByName(ctx, v.UserID, v.Hypothesis)
	if err != nil {
		return nil, err
	}

	// A prior promotion of this exact view may have created the concept but
	// lost the view transition race. Finish the transition instead of
	// appending a duplicate version.
	if current != nil && current.DerivedFromViews.Contains(v.ID) {
		from := v.Status
		if err := r.views.Transition(ctx, v, models.ViewStatusPromoted, &current.ID); err != nil {
			return nil, err
		}
		r.emitter.EmitViewTransitioned(ctx, v, from)
		return current, nil
	}

	created := &models.StableConcept{
		UserID:           v.UserID,
		Name:             v.Hypothesis,
		Description:      v.Hypothesis,
		Version:          1,
		DerivedFromViews: models.StringList{v.ID},
		Confidence:       v.Confidence,
	}
	if current != nil {
		created.Version = current.Version + 1
		created.ParentConceptID = &current.ID
		created.DerivedFromViews = append(models.StringList{}, current.DerivedFromViews...)
		created.DerivedFromViews = append(created.DerivedFromViews, v.ID)
	}

	// The concept insert, the prior-version deprecation and the guarded view
	// transition commit together. A lost transition race rolls the concept
	// row back instead of leaving it attached to an unpromoted view.
	txCtx, tx, err := r.concepts.DB().GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err = r.concepts.Create(txCtx, created)
	if err != nil {
		return nil, err
	}

	if current != nil {
		if err := r.concepts.Deprecate(txCtx, v.UserID, current.ID, &created.ID); err != nil {
			return nil, err
		}
	}

	from := v.Status
	if err := r.views.Transition(txCtx, v, models.ViewStatusPromoted, &created.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if current != nil {
		current.Deprecated = true
		current.SupersededBy = &created.ID
		r.emitter.EmitConceptDeprecated(ctx, current)
	}
	r.emitter.EmitConceptCreated(ctx, created)
	r.emitter.EmitViewTransitioned(ctx, v, from)

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id":    v.UserID,
		"view_id":    v.ID,
		"concept_id": created.ID,
		"version":    created.Version,
	}).Info("promoted view to stable concept")

	return created, nil
}

// Deprecate retires a concept version without a successor
func (r *Registry) Deprecate(ctx context.Context, userID, conceptID string) (*models.StableConcept, error) {
	ctx, span := tracing.StartSpan(ctx, "Registry.Deprecate")
	defer span.End()

	existing, err := r.concepts.GetByID(ctx, userID, conceptID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "concept not found")
	}
	if existing.Deprecated {
		return existing, nil
	}

	if err := r.concepts.Deprecate(ctx, userID, conceptID, nil); err != nil {
		return nil, err
	}
	existing.Deprecated = true

	r.emitter.EmitConceptDeprecated(ctx, existing)
	return existing, nil
}

// Rollback deprecates the current version of a named concept and restores
// its parent as current. Rolling back version 1 leaves the name with no
// current version; the history stays readable either way.
func (r *Registry) Rollback(ctx context.Context, userID, name string) (*models.StableConcept, error) {
	ctx, span := tracing.StartSpan(ctx, "Registry.Rollback")
	defer span.End()

	current, err := r.concepts.GetCurrentByName(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "concept has no current version")
	}

	if err := r.concepts.Deprecate(ctx, userID, current.ID, nil); err != nil {
		return nil, err
	}
	current.Deprecated = true
	r.emitter.EmitConceptDeprecated(ctx, current)

	if current.ParentConceptID == nil {
		return nil, nil
	}

	if err := r.concepts.Reactivate(ctx, userID, *current.ParentConceptID); err != nil {
		return nil, err
	}

	restored, err := r.concepts.GetByID(ctx, userID, *current.ParentConceptID)
	if err != nil {
		return nil, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id":  userID,
		"name":     name,
		"restored": restored.ID,
	}).Info("rolled back stable concept")

	return restored, nil
}
