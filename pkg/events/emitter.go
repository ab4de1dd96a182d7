// Package events publishes pipeline lifecycle changes to Kafka
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/pkg/kafka"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes lifecycle events. Publishing is best-effort: a failed
// publish is logged but never rolls back the storage write it announces.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new lifecycle event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitEventAppended announces a new event in the store
func (e *Emitter) EmitEventAppended(ctx context.Context, event *models.Event) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitEventAppended")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"action":         event.Action,
		"target":         event.Target,
		"confidence":     event.Confidence,
		"extractor":      event.ExtractorName,
	})

	e.publish(ctx, &kafka.LifecycleEvent{
		EventType:  "event.appended",
		UserID:     event.UserID,
		ResourceID: event.ID,
		Resource:   "event",
		Data:       data,
	})
}

// EmitViewCreated announces a new derived view
func (e *Emitter) EmitViewCreated(ctx context.Context, view *models.DerivedView) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitViewCreated")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"hypothesis":     view.Hypothesis,
		"view_type":      view.ViewType,
		"confidence":     view.Confidence,
		"evidence_count": len(view.DerivedFrom),
	})

	e.publish(ctx, &kafka.LifecycleEvent{
		EventType:  "view.created",
		UserID:     view.UserID,
		ResourceID: view.ID,
		Resource:   "view",
		Data:       data,
	})
}

// EmitViewTransitioned announces a gate-driven status change
func (e *Emitter) EmitViewTransitioned(ctx context.Context, view *models.DerivedView, from models.ViewStatus) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitViewTransitioned")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version":   SchemaVersion,
		"hypothesis":       view.Hypothesis,
		"from":             from,
		"to":               view.Status,
		"confidence":       view.Confidence,
		"validation_count": view.ValidationCount,
		"counter_evidence": len(view.CounterEvidence),
	})

	e.publish(ctx, &kafka.LifecycleEvent{
		EventType:  "view." + string(view.Status),
		UserID:     view.UserID,
		ResourceID: view.ID,
		Resource:   "view",
		Data:       data,
	})
}

// EmitConceptCreated announces a new stable concept version
func (e *Emitter) EmitConceptCreated(ctx context.Context, concept *models.StableConcept) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitConceptCreated")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"name":           concept.Name,
		"version":        concept.Version,
		"confidence":     concept.Confidence,
	})

	e.publish(ctx, &kafka.LifecycleEvent{
		EventType:  "concept.created",
		UserID:     concept.UserID,
		ResourceID: concept.ID,
		Resource:   "concept",
		Data:       data,
	})
}

// EmitConceptDeprecated announces a superseded concept version
func (e *Emitter) EmitConceptDeprecated(ctx context.Context, concept *models.StableConcept) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitConceptDeprecated")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"name":           concept.Name,
		"version":        concept.Version,
		"superseded_by":  concept.SupersededBy,
	})

	e.publish(ctx, &kafka.LifecycleEvent{
		EventType:  "concept.deprecated",
		UserID:     concept.UserID,
		ResourceID: concept.ID,
		Resource:   "concept",
		Data:       data,
	})
}

func (e *Emitter) publish(ctx context.Context, event *kafka.LifecycleEvent) {
	if e.producer == nil {
		return
	}
	if err := e.producer.PublishLifecycleEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": event.EventType,
		}).Error("Failed to emit lifecycle event")
	}
}
