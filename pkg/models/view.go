package models

import (
	"fmt"
	"time"
)

// ViewStatus is the lifecycle state of a derived view. Transitions only move
// forward: an active view becomes expired, promoted, or rejected and a
// terminal view never returns to active.
type ViewStatus string

const (
	ViewStatusActive   ViewStatus = "active"
	ViewStatusExpired  ViewStatus = "expired"
	ViewStatusPromoted ViewStatus = "promoted"
	ViewStatusRejected ViewStatus = "rejected"
)

// Valid reports whether the status is a known lifecycle state
func (s ViewStatus) Valid() bool {
	return s == ViewStatusActive || s.IsTerminal()
}

// IsTerminal reports whether the status allows no further transitions
func (s ViewStatus) IsTerminal() bool {
	return s == ViewStatusExpired || s == ViewStatusPromoted || s == ViewStatusRejected
}

// CanTransitionTo enforces the forward-only state machine
func (s ViewStatus) CanTransitionTo(next ViewStatus) bool {
	if s != ViewStatusActive {
		return false
	}
	return next.IsTerminal()
}

// ViewType classifies what kind of hypothesis a view holds
type ViewType string

const (
	ViewTypePattern    ViewType = "pattern"
	ViewTypePreference ViewType = "preference"
	ViewTypeHabit      ViewType = "habit"
	ViewTypeBelief     ViewType = "belief"
)

// DerivedView is a hypothesis, explicitly not a fact. It carries the exact
// supporting event ids; a view with no evidence is invalid by construction.
type DerivedView struct {
	ID              string     `json:"id" db:"id"`
	UserID          string     `json:"user_id" db:"user_id"`
	Hypothesis      string     `json:"hypothesis" db:"hypothesis"`
	ViewType        ViewType   `json:"view_type" db:"view_type"`
	Subject         string     `json:"subject" db:"subject"`
	DerivedFrom     StringList `json:"derived_from" db:"derived_from"`
	CounterEvidence StringList `json:"counter_evidence" db:"counter_evidence"`
	Confidence      float64    `json:"confidence" db:"confidence"`
	ValidationCount int        `json:"validation_count" db:"validation_count"`
	Status          ViewStatus `json:"status" db:"status"`
	PromotedTo      *string    `json:"promoted_to,omitempty" db:"promoted_to"`
	Revision        int        `json:"revision" db:"revision"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at" db:"expires_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// NewDerivedView builds a view from its evidence. It refuses an empty
// evidence set rather than filtering invalid views later.
func NewDerivedView(userID, hypothesis, subject string, viewType ViewType, evidence []string, confidence float64, now time.Time, lifetime time.Duration) (*DerivedView, error) {
	if len(evidence) == 0 {
		return nil, fmt.Errorf("derived view %q has no supporting evidence", hypothesis)
	}
	if hypothesis == "" {
		return nil, fmt.Errorf("derived view requires a hypothesis")
	}
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence %f is outside [0, 1]", confidence)
	}
	return &DerivedView{
		UserID:          userID,
		Hypothesis:      hypothesis,
		ViewType:        viewType,
		Subject:         subject,
		DerivedFrom:     evidence,
		CounterEvidence: StringList{},
		Confidence:      confidence,
		ValidationCount: 1,
		Status:          ViewStatusActive,
		Revision:        1,
		CreatedAt:       now,
		ExpiresAt:       now.Add(lifetime),
		UpdatedAt:       now,
	}, nil
}

// CounterRatio is the contradiction volume relative to supporting evidence
func (v *DerivedView) CounterRatio() float64 {
	if len(v.DerivedFrom) == 0 {
		return 1.0
	}
	return float64(len(v.CounterEvidence)) / float64(len(v.DerivedFrom))
}

// Age reports how long the view has existed at the given instant
func (v *DerivedView) Age(now time.Time) time.Duration {
	return now.Sub(v.CreatedAt)
}

// ProposeViewRequest is the plugin-boundary request for proposing a view.
// Proposed views enter the same gate lifecycle as detected ones.
type ProposeViewRequest struct {
	Hypothesis  string   `json:"hypothesis" validate:"required"`
	ViewType    ViewType `json:"view_type" validate:"required,oneof=pattern preference habit belief"`
	Subject     string   `json:"subject" validate:"required"`
	DerivedFrom []string `json:"derived_from" validate:"required,min=1"`
	Confidence  float64  `json:"confidence" validate:"gte=0,lte=1"`
}

// ViewListResponse is the response for listing derived views
type ViewListResponse struct {
	Items      []DerivedView `json:"items"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
}
