// Package processor runs the ingestion pipeline: raw memory in, validated
// events and entity updates out. Every write path into the event store goes
// through here so extraction validation cannot be bypassed.
package processor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/event"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/rawmemory"
	"github.com/Iqvpi1024/dirsoul/internal/repositories/view"
	"github.com/Iqvpi1024/dirsoul/pkg/conflicts"
	"github.com/Iqvpi1024/dirsoul/pkg/events"
	"github.com/Iqvpi1024/dirsoul/pkg/extraction"
	"github.com/Iqvpi1024/dirsoul/pkg/fingerprint"
	"github.com/Iqvpi1024/dirsoul/pkg/gate"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/resolver"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
)

// Processor orchestrates ingestion
type Processor struct {
	rawMemories *rawmemory.Repository
	eventStore  *event.Repository
	views       *view.Repository
	resolver    *resolver.Resolver
	extraction  *extraction.Service
	detector    *conflicts.Detector
	emitter     *events.Emitter
	logger      ectologger.Logger
}

// New creates an ingestion processor
func New(
	rawMemories *rawmemory.Repository,
	eventStore *event.Repository,
	views *view.Repository,
	entityResolver *resolver.Resolver,
	extractionService *extraction.Service,
	detector *conflicts.Detector,
	emitter *events.Emitter,
	logger ectologger.Logger,
) *Processor {
	return &Processor{
		rawMemories: rawMemories,
		eventStore:  eventStore,
		views:       views,
		resolver:    entityResolver,
		extraction:  extractionService,
		detector:    detector,
		emitter:     emitter,
		logger:      logger,
	}
}

// Ingest stores a raw memory, extracts events from it, resolves their
// entities and appends them to the event store. The raw memory is durable
// before extraction runs, so a failed extraction loses nothing.
func (p *Processor) Ingest(ctx context.Context, userID string, req *models.IngestMemoryRequest) (*models.IngestMemoryResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "Processor.Ingest")
	defer span.End()

	now := time.Now().UTC()
	if req.Timestamp != nil {
		now = req.Timestamp.UTC()
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = models.ContentTypeText
	}

	var metadata json.RawMessage
	if req.Metadata != nil {
		metadata, _ = json.Marshal(req.Metadata)
	}

	memory := &models.RawMemory{
		UserID:      userID,
		Content:     req.Content,
		ContentType: contentType,
		Metadata:    metadata,
		Fingerprint: fingerprint.Content(userID, req.Content),
	}

	memory, duplicate, err := p.rawMemories.Create(ctx, memory)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return &models.IngestMemoryResponse{Memory: *memory, Extracted: false}, nil
	}

	candidates, extractorName, err := p.extraction.Extract(ctx, req.Content, now)
	if err != nil {
		// The raw memory is already stored; report a quiet extraction miss
		p.logger.WithContext(ctx).WithError(err).Warn("extraction produced no events")
		return &models.IngestMemoryResponse{Memory: *memory, Extracted: false, Extractor: extractorName}, nil
	}

	appended := make([]models.Event, 0, len(candidates))
	entityIDs := make([]string, 0, len(candidates))

	for _, candidate := range candidates {
		timestamp := now
		if candidate.Timestamp != nil {
			timestamp = candidate.Timestamp.UTC()
		}

		resolved, err := p.resolver.Resolve(ctx, userID, candidate.Target, candidate.Action, timestamp)
		if err != nil {
			return nil, err
		}
		entityIDs = append(entityIDs, resolved.ID)

		if candidate.Quantity != nil {
			if err := p.resolver.MergeAttribute(ctx, resolved, "typical_quantity", map[string]any{
				"quantity": *candidate.Quantity,
				"unit":     *candidate.Unit,
			}, candidate.Confidence, timestamp); err != nil {
				return nil, err
			}
		}

		e := &models.Event{
			UserID:          userID,
			Timestamp:       timestamp,
			Actor:           userID,
			Action:          candidate.Action,
			Target:          resolved.CanonicalName,
			Quantity:        candidate.Quantity,
			Unit:            candidate.Unit,
			Confidence:      candidate.Confidence,
			SourceReference: memory.ID,
			ExtractorName:   extractorName,
		}

		e, err = p.eventStore.Append(ctx, e)
		if err != nil {
			return nil, err
		}
		appended = append(appended, *e)
		p.emitter.EmitEventAppended(ctx, e)
	}

	if err := p.resolver.RecordCoOccurrences(ctx, userID, entityIDs, now); err != nil {
		return nil, err
	}

	if err := p.feedCounterEvidence(ctx, userID, appended); err != nil {
		return nil, err
	}

	return &models.IngestMemoryResponse{
		Memory:    *memory,
		Events:    appended,
		Extracted: len(appended) > 0,
		Extractor: extractorName,
	}, nil
}

// feedCounterEvidence checks new events against the user's active views and
// records contradictions as counter evidence. A concurrent update to a view
// is retried once against the fresh revision, then deferred to the sweep.
func (p *Processor) feedCounterEvidence(ctx context.Context, userID string, newEvents []models.Event) error {
	ctx, span := tracing.StartSpan(ctx, "Processor.feedCounterEvidence")
	defer span.End()

	if len(newEvents) == 0 {
		return nil
	}

	active, err := p.views.ListActiveByUser(ctx, userID)
	if err != nil {
		return err
	}

	for i := range active {
		v := &active[i]

		changed := false
		for _, e := range newEvents {
			if p.detector.IsCounterEvidence(&e, v) && !v.CounterEvidence.Contains(e.ID) {
				v.CounterEvidence = append(v.CounterEvidence, e.ID)
				changed = true
			}
		}
		if !changed {
			continue
		}

		v.Confidence = gate.RecalculateConfidence(v.ValidationCount, len(v.CounterEvidence))

		err := p.views.UpdateEvidence(ctx, v)
		if err == view.ErrStaleRevision {
			fresh, getErr := p.views.GetByID(ctx, userID, v.ID)
			if getErr != nil {
				return getErr
			}
			if fresh == nil || fresh.Status != models.ViewStatusActive {
				continue
			}
			for _, e := range newEvents {
				if p.detector.IsCounterEvidence(&e, fresh) && !fresh.CounterEvidence.Contains(e.ID) {
					fresh.CounterEvidence = append(fresh.CounterEvidence, e.ID)
				}
			}
			fresh.Confidence = gate.RecalculateConfidence(fresh.ValidationCount, len(fresh.CounterEvidence))
			if err := p.views.UpdateEvidence(ctx, fresh); err != nil && err != view.ErrStaleRevision {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}

	return nil
}
