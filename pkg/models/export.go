package models

import "time"

// ExportVersion is the current export format version
const ExportVersion = "1.0"

// UserDataExport is the full per-user dump for backup and portability
type UserDataExport struct {
	Version     string           `json:"version"`
	UserID      string           `json:"user_id"`
	ExportedAt  time.Time        `json:"exported_at"`
	RawMemories []RawMemory      `json:"raw_memories"`
	Events      []Event          `json:"events"`
	Entities    []Entity         `json:"entities"`
	Relations   []EntityRelation `json:"relations"`
	Views       []DerivedView    `json:"views"`
	Concepts    []StableConcept  `json:"concepts"`
	AuditTrail  []AuditLog       `json:"audit_trail"`
}

// Counts summarizes the export size per collection
func (e *UserDataExport) Counts() map[string]int {
	return map[string]int{
		"raw_memories": len(e.RawMemories),
		"events":       len(e.Events),
		"entities":     len(e.Entities),
		"relations":    len(e.Relations),
		"views":        len(e.Views),
		"concepts":     len(e.Concepts),
		"audit_trail":  len(e.AuditTrail),
	}
}

// UserStats are the aggregated per-user numbers served to consumers. They are
// cached so reads can degrade to the last known values when the store is down.
type UserStats struct {
	UserID        string    `json:"user_id"`
	EventCount    int       `json:"event_count"`
	EntityCount   int       `json:"entity_count"`
	ActiveViews   int       `json:"active_views"`
	PromotedViews int       `json:"promoted_views"`
	RejectedViews int       `json:"rejected_views"`
	Concepts      int       `json:"concepts"`
	ComputedAt    time.Time `json:"computed_at"`
	Stale         bool      `json:"stale,omitempty"`
}
