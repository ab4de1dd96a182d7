package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event is an atomic, immutable fact. Once appended it is never mutated or
// deleted; Archive only changes the storage tier, not content.
type Event struct {
	ID              string     `json:"id" db:"id"`
	UserID          string     `json:"user_id" db:"user_id"`
	Timestamp       time.Time  `json:"timestamp" db:"timestamp"`
	Actor           string     `json:"actor" db:"actor"`
	Action          string     `json:"action" db:"action"`
	Target          string     `json:"target" db:"target"`
	Quantity        *float64   `json:"quantity,omitempty" db:"quantity"`
	Unit            *string    `json:"unit,omitempty" db:"unit"`
	Confidence      float64    `json:"confidence" db:"confidence"`
	SourceReference string     `json:"source_reference" db:"source_reference"`
	ExtractorName   string     `json:"extractor_name" db:"extractor_name"`
	Archived        bool       `json:"archived" db:"archived"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty" db:"archived_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Validate enforces the append contract. Invalid events are rejected at the
// boundary and never stored.
func (e *Event) Validate() error {
	if e.UserID == "" {
		return errors.New("user_id is required")
	}
	if e.Action == "" {
		return errors.New("action is required")
	}
	if e.Target == "" {
		return errors.New("target is required")
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("confidence %f is outside [0, 1]", e.Confidence)
	}
	if e.Quantity != nil && *e.Quantity <= 0 {
		return fmt.Errorf("quantity %f must be positive", *e.Quantity)
	}
	if (e.Quantity == nil) != (e.Unit == nil) {
		return errors.New("quantity and unit must be set together")
	}
	if e.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	return nil
}

// EventFilter selects events for streaming queries
type EventFilter struct {
	UserID          string     `json:"user_id"`
	Action          string     `json:"action,omitempty"`
	Target          string     `json:"target,omitempty"`
	Since           *time.Time `json:"since,omitempty"`
	Until           *time.Time `json:"until,omitempty"`
	MinConfidence   float64    `json:"min_confidence,omitempty"`
	IncludeArchived bool       `json:"include_archived,omitempty"`
	Limit           int        `json:"limit,omitempty"`
}

// ArchiveRequest moves events older than the cutoff to the cold tier
type ArchiveRequest struct {
	OlderThan time.Time `json:"older_than" validate:"required"`
}

// ArchiveResult reports an archive pass
type ArchiveResult struct {
	ArchivedCount int       `json:"archived_count"`
	OlderThan     time.Time `json:"older_than"`
}

// EventListResponse is the response for listing events
type EventListResponse struct {
	Items      []Event `json:"items"`
	TotalCount int     `json:"total_count"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
}

// StringList is a jsonb-backed list of ids
type StringList []string

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("StringList.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, l)
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal([]string(l))
}

// Contains reports whether the list holds the given id
func (l StringList) Contains(id string) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}
