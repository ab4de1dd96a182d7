package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EntityType is soft-typed: new types can appear without a schema change
type EntityType string

const (
	EntityTypeFood         EntityType = "food"
	EntityTypePerson       EntityType = "person"
	EntityTypePlace        EntityType = "place"
	EntityTypeOrganization EntityType = "organization"
	EntityTypeActivity     EntityType = "activity"
	EntityTypeConcept      EntityType = "concept"
	EntityTypeUnknown      EntityType = "unknown"
)

// AttributeValue is a single attribute with its derived confidence. An
// incoming value only replaces the stored one when its confidence is higher.
type AttributeValue struct {
	Value      any       `json:"value"`
	Confidence float64   `json:"confidence"`
	Mentions   int       `json:"mentions"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AttributeMap is the jsonb-backed attribute store of an entity
type AttributeMap map[string]AttributeValue

func (m *AttributeMap) Scan(src any) error {
	if src == nil {
		*m = AttributeMap{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("AttributeMap.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, m)
}

func (m AttributeMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]AttributeValue{})
	}
	return json.Marshal(map[string]AttributeValue(m))
}

// Entity is a discovered thing. (user_id, canonical_name) is unique; entities
// are never deleted, only decayed in confidence.
type Entity struct {
	ID             string       `json:"id" db:"id"`
	UserID         string       `json:"user_id" db:"user_id"`
	CanonicalName  string       `json:"canonical_name" db:"canonical_name"`
	EntityType     EntityType   `json:"entity_type" db:"entity_type"`
	TypeConfidence float64      `json:"type_confidence" db:"type_confidence"`
	Attributes     AttributeMap `json:"attributes" db:"attributes"`
	MentionCount   int          `json:"mention_count" db:"mention_count"`
	FirstSeen      time.Time    `json:"first_seen" db:"first_seen"`
	LastSeen       time.Time    `json:"last_seen" db:"last_seen"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

// EntityListResponse is the response for listing entities
type EntityListResponse struct {
	Items      []Entity `json:"items"`
	TotalCount int      `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}

// RelationTypeCoOccurrence marks entities observed in the same memory
const RelationTypeCoOccurrence = "co_occurrence"

// EntityRelation is a co-occurrence edge between two entities. It is an
// auxiliary table queried directly, not a graph index.
type EntityRelation struct {
	ID                string    `json:"id" db:"id"`
	UserID            string    `json:"user_id" db:"user_id"`
	SourceEntityID    string    `json:"source_entity_id" db:"source_entity_id"`
	TargetEntityID    string    `json:"target_entity_id" db:"target_entity_id"`
	RelationType      string    `json:"relation_type" db:"relation_type"`
	Strength          float64   `json:"strength" db:"strength"`
	CoOccurrenceCount int       `json:"co_occurrence_count" db:"co_occurrence_count"`
	FirstSeen         time.Time `json:"first_seen" db:"first_seen"`
	LastSeen          time.Time `json:"last_seen" db:"last_seen"`
}
