// Package resolver links entity mentions to canonical entities. Resolution
// prefers exact canonical matches, then fuzzy similarity weighted with type
// context, and only creates a new entity when no candidate is close enough.
package resolver

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/entity"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/entityrelation"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
)

// Config holds the resolution thresholds
type Config struct {
	FuzzyMatchThreshold   float64
	ContextMatchThreshold float64
	AttributeDecayDays    float64
}

// Resolver links mentions to entities for one store
type Resolver struct {
	entities  *entity.Repository
	relations *entityrelation.Repository
	scorer    *Scorer
	logger    ectologger.Logger
	cfg       Config
}

// New creates a resolver
func New(entities *entity.Repository, relations *entityrelation.Repository, logger ectologger.Logger, cfg Config) *Resolver {
	return &Resolver{
		entities:  entities,
		relations: relations,
		scorer:    NewScorer(),
		logger:    logger,
		cfg:       cfg,
	}
}

// Resolve links a mention to an entity, creating one when nothing matches.
// Resolving the same mention twice yields the same entity.
func (r *Resolver) Resolve(ctx context.Context, userID, mention, action string, now time.Time) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "Resolver.Resolve")
	defer span.End()

	normalized := Normalize(mention)
	if normalized == "" {
		normalized = mention
	}

	// Exact canonical match wins outright
	existing, err := r.entities.GetByName(ctx, userID, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return r.touch(ctx, existing, action, now)
	}

	// Fuzzy candidates weighted with type context
	candidates, err := r.entities.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	mentionType, _ := ClassifyType(normalized, action)

	var best *models.Entity
	bestScore := 0.0
	for i := range candidates {
		candidate := &candidates[i]
		similarity := r.scorer.JaroWinkler(normalized, candidate.CanonicalName)
		if similarity < r.cfg.FuzzyMatchThreshold {
			continue
		}
		score := similarity*0.6 + r.contextScore(mentionType, candidate.EntityType)*0.4
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	if best != nil && bestScore > r.cfg.ContextMatchThreshold {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"mention":  mention,
			"resolved": best.CanonicalName,
			"score":    bestScore,
		}).Debug("fuzzy resolved entity")
		return r.touch(ctx, best, action, now)
	}

	// Ambiguity resolves to a new entity; a later merge is cheaper than a
	// wrong link
	entityType, typeConfidence := ClassifyType(normalized, action)
	created := &models.Entity{
		UserID:         userID,
		CanonicalName:  normalized,
		EntityType:     entityType,
		TypeConfidence: typeConfidence,
		Attributes:     models.AttributeMap{},
		MentionCount:   1,
		FirstSeen:      now,
		LastSeen:       now,
	}
	return r.entities.Create(ctx, created)
}

// contextScore measures type compatibility between a mention and a candidate
func (r *Resolver) contextScore(mentionType, candidateType models.EntityType) float64 {
	if mentionType == models.EntityTypeUnknown || candidateType == models.EntityTypeUnknown {
		return 0.5
	}
	if mentionType == candidateType {
		return 1.0
	}
	return 0.0
}

// touch bumps mention count and last seen. These always move regardless of
// whether any attribute merges.
func (r *Resolver) touch(ctx context.Context, e *models.Entity, action string, now time.Time) (*models.Entity, error) {
	e.MentionCount++
	if now.After(e.LastSeen) {
		e.LastSeen = now
	}

	// A typed mention may firm up an unknown entity
	if e.EntityType == models.EntityTypeUnknown {
		if entityType, confidence := ClassifyType(e.CanonicalName, action); entityType != models.EntityTypeUnknown {
			e.EntityType = entityType
			e.TypeConfidence = confidence
		}
	}

	return r.entities.Update(ctx, e)
}

// MergeAttribute merges an observed attribute into an entity. The stored
// value only changes when the incoming confidence beats the existing one
// after recency decay; observation counters move either way.
func (r *Resolver) MergeAttribute(ctx context.Context, e *models.Entity, key string, value any, confidence float64, now time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "Resolver.MergeAttribute")
	defer span.End()

	r.applyAttribute(e, key, value, confidence, now)

	_, err := r.entities.Update(ctx, e)
	return err
}

func (r *Resolver) applyAttribute(e *models.Entity, key string, value any, confidence float64, now time.Time) {
	if e.Attributes == nil {
		e.Attributes = models.AttributeMap{}
	}

	existing, ok := e.Attributes[key]
	if !ok {
		e.Attributes[key] = models.AttributeValue{
			Value:      value,
			Confidence: confidence,
			Mentions:   1,
			UpdatedAt:  now,
		}
		return
	}

	days := now.Sub(existing.UpdatedAt).Hours() / 24
	decayed := existing.Confidence * math.Exp(-days/r.cfg.AttributeDecayDays)

	if confidence > decayed {
		e.Attributes[key] = models.AttributeValue{
			Value:      value,
			Confidence: confidence,
			Mentions:   existing.Mentions + 1,
			UpdatedAt:  now,
		}
		return
	}

	existing.Mentions++
	e.Attributes[key] = existing
}

// RecordCoOccurrences strengthens pairwise relations between entities that
// appeared in the same memory. Pairs are ordered by id so the same pair
// always lands on the same row.
func (r *Resolver) RecordCoOccurrences(ctx context.Context, userID string, entityIDs []string, now time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "Resolver.RecordCoOccurrences")
	defer span.End()

	if len(entityIDs) < 2 {
		return nil
	}

	ids := make([]string, len(entityIDs))
	copy(ids, entityIDs)
	sort.Strings(ids)

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[i] == ids[j] {
				continue
			}
			relation := &models.EntityRelation{
				UserID:         userID,
				SourceEntityID: ids[i],
				TargetEntityID: ids[j],
				RelationType:   models.RelationTypeCoOccurrence,
				Strength:       0.1,
				LastSeen:       now,
			}
			if err := r.relations.Strengthen(ctx, relation); err != nil {
				return err
			}
		}
	}

	return nil
}
