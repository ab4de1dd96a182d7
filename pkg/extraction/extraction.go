// Package extraction turns raw memory text into candidate events. A language
// model does the heavy lifting when available; a programmatic rule extractor
// is both the fallback and the floor, so ingestion keeps working with no
// model at all.
package extraction

import (
	"context"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/pkg/metrics"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
)

// Candidate is an extracted event before validation and entity resolution
type Candidate struct {
	Action     string     `json:"action"`
	Target     string     `json:"target"`
	Quantity   *float64   `json:"quantity,omitempty"`
	Unit       *string    `json:"unit,omitempty"`
	Confidence float64    `json:"confidence"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// Extractor produces candidate events from free text. now anchors relative
// time expressions.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, content string, now time.Time) ([]Candidate, error)
}

// Service runs the primary extractor with the rule extractor as fallback
type Service struct {
	primary  Extractor
	fallback Extractor
	logger   ectologger.Logger
}

// NewService creates an extraction service. primary may be nil, in which
// case every extraction goes straight to the rule extractor.
func NewService(primary Extractor, fallback Extractor, logger ectologger.Logger) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Extract returns the candidates and the name of the extractor that produced
// them. A primary failure or empty result falls through to the rules; an
// empty rule result is a valid outcome, not an error.
func (s *Service) Extract(ctx context.Context, content string, now time.Time) ([]Candidate, string, error) {
	ctx, span := tracing.StartSpan(ctx, "extraction.Service.Extract")
	defer span.End()

	if s.primary != nil {
		start := time.Now()
		candidates, err := s.primary.Extract(ctx, content, now)
		metrics.ExtractionDuration.WithLabelValues(s.primary.Name()).Observe(time.Since(start).Seconds())

		if err == nil && len(candidates) > 0 {
			return sanitize(candidates), s.primary.Name(), nil
		}
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("primary extractor failed, falling back to rules")
		}
		metrics.ExtractionFallbacks.Inc()
	}

	start := time.Now()
	candidates, err := s.fallback.Extract(ctx, content, now)
	metrics.ExtractionDuration.WithLabelValues(s.fallback.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, s.fallback.Name(), err
	}

	return sanitize(candidates), s.fallback.Name(), nil
}

// sanitize drops unusable candidates and clamps whatever the boundary
// returned into valid ranges. The core never trusts extractor output.
func sanitize(candidates []Candidate) []Candidate {
	var clean []Candidate
	for _, c := range candidates {
		c.Action = strings.TrimSpace(c.Action)
		c.Target = strings.TrimSpace(c.Target)
		if c.Action == "" || c.Target == "" {
			continue
		}
		if c.Confidence < 0 {
			c.Confidence = 0
		}
		if c.Confidence > 1 {
			c.Confidence = 1
		}
		if c.Quantity != nil && *c.Quantity <= 0 {
			c.Quantity = nil
			c.Unit = nil
		}
		if (c.Quantity == nil) != (c.Unit == nil) {
			c.Quantity = nil
			c.Unit = nil
		}
		clean = append(clean, c)
	}
	return clean
}
