package models

import "time"

// StableConcept is versioned knowledge that survived the promotion gate.
// Rows are never deleted; superseding knowledge creates a new version and
// deprecates the old one so the full chain stays auditable.
type StableConcept struct {
	ID               string     `json:"id" db:"id"`
	UserID           string     `json:"user_id" db:"user_id"`
	Name             string     `json:"name" db:"name"`
	Description      string     `json:"description" db:"description"`
	Version          int        `json:"version" db:"version"`
	ParentConceptID  *string    `json:"parent_concept_id,omitempty" db:"parent_concept_id"`
	Deprecated       bool       `json:"deprecated" db:"deprecated"`
	SupersededBy     *string    `json:"superseded_by,omitempty" db:"superseded_by"`
	DerivedFromViews StringList `json:"derived_from_views" db:"derived_from_views"`
	Confidence       float64    `json:"confidence" db:"confidence"`
	PromotedAt       time.Time  `json:"promoted_at" db:"promoted_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// ConceptListResponse is the response for listing stable concepts
type ConceptListResponse struct {
	Items      []StableConcept `json:"items"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}

// ConceptHistoryResponse returns the full version chain of a concept name
type ConceptHistoryResponse struct {
	Name     string          `json:"name"`
	Versions []StableConcept `json:"versions"`
}
