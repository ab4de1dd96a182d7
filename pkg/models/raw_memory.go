package models

import (
	"encoding/json"
	"time"
)

// Raw memory content types
const (
	ContentTypeText            = "text"
	ContentTypeVoiceTranscript = "voice_transcript"
	ContentTypeImported        = "imported"
)

// RawMemory is the pre-extraction record of user input. It is kept even when
// extraction produces no events so no input is ever lost.
type RawMemory struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"user_id" db:"user_id"`
	Content     string          `json:"content" db:"content"`
	ContentType string          `json:"content_type" db:"content_type"` // text, voice_transcript, imported
	Metadata    json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	Fingerprint string          `json:"fingerprint" db:"fingerprint"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// IngestMemoryRequest is the request for ingesting a raw memory
type IngestMemoryRequest struct {
	Content     string         `json:"content" validate:"required"`
	ContentType string         `json:"content_type" validate:"omitempty,oneof=text voice_transcript imported"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Timestamp   *time.Time     `json:"timestamp,omitempty"`
}

// IngestMemoryResponse reports what a single ingest produced
type IngestMemoryResponse struct {
	Memory    RawMemory `json:"memory"`
	Events    []Event   `json:"events"`
	Extracted bool      `json:"extracted"`
	Extractor string    `json:"extractor,omitempty"` // slm or rules
}

// RawMemoryListResponse is the response for listing raw memories
type RawMemoryListResponse struct {
	Items      []RawMemory `json:"items"`
	TotalCount int         `json:"total_count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
}
