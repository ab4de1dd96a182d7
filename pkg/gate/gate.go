// Package gate decides derived view transitions. The rules are fixed and
// programmatic so every decision is reproducible from the view alone.
package gate

import (
	"math"
	"time"

	"github.com/Iqvpi1024/dirsoul/pkg/models"
)

// Decision is the outcome of evaluating a view
type Decision string

const (
	DecisionKeepActive Decision = "keep_active"
	DecisionExpire     Decision = "expire"
	DecisionPromote    Decision = "promote"
	DecisionReject     Decision = "reject"
)

// Config holds the promotion thresholds
type Config struct {
	PromoteConfidence  float64
	PromoteMinAge      time.Duration
	PromoteMinValidate int
	PromoteMaxCounter  float64
	RejectCounterRatio float64
}

// Gate evaluates derived views against the promotion rules
type Gate struct {
	cfg Config
}

// New creates a gate with the given thresholds
func New(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

// Evaluate returns the decision for an active view. Rejection on counter
// evidence is checked first and overrides every other outcome, including a
// view that otherwise qualifies for promotion.
func (g *Gate) Evaluate(view *models.DerivedView, hasConflict bool, now time.Time) Decision {
	if view.Status != models.ViewStatusActive {
		return DecisionKeepActive
	}

	if view.CounterRatio() > g.cfg.RejectCounterRatio {
		return DecisionReject
	}

	if view.Confidence > g.cfg.PromoteConfidence &&
		view.Age(now) >= g.cfg.PromoteMinAge &&
		view.ValidationCount >= g.cfg.PromoteMinValidate &&
		view.CounterRatio() <= g.cfg.PromoteMaxCounter &&
		!hasConflict {
		return DecisionPromote
	}

	if !now.Before(view.ExpiresAt) {
		return DecisionExpire
	}

	return DecisionKeepActive
}

// RecalculateConfidence derives a view's confidence from its evidence. More
// validations raise it logarithmically, counter evidence pulls it down
// linearly, and the result is clamped to [0, 1].
func RecalculateConfidence(validationCount, counterCount int) float64 {
	if validationCount < 1 {
		validationCount = 1
	}

	confidence := 0.5 + math.Log10(float64(validationCount))*0.05 - float64(counterCount)*0.1

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
