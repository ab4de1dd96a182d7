package kafka

import (
	"encoding/json"
	"errors"
	"time"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	Ingest *IngestMessage
}

// IngestMessage is a raw memory arriving on the ingestion topic. It is the
// async twin of the HTTP ingest request.
type IngestMessage struct {
	UserID      string         `json:"user_id"`
	Content     string         `json:"content"`
	ContentType string         `json:"content_type,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Timestamp   *time.Time     `json:"timestamp,omitempty"`
}

// ParseIngestMessage parses the message value as an ingest message
func (m *IncomingMessage) ParseIngestMessage() error {
	var msg IngestMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	if msg.UserID == "" {
		return errors.New("ingest message is missing user_id")
	}
	if msg.Content == "" {
		return errors.New("ingest message is missing content")
	}
	m.Ingest = &msg
	return nil
}
