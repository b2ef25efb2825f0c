package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is a Kafka message with metadata.
type Message struct {
	Key       string            // Partition key (e.g. reservation_id)
	Value     []byte            // JSON-encoded payload
	Headers   map[string]string // Message headers
	Timestamp time.Time
}

// Header keys shared by all event producers.
const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderSchemaVersion = "schema-version"
	HeaderSource        = "source"
)

// NewMessage builds a message keyed on key, carrying value JSON-encoded and
// stamped with a fresh event ID.
func NewMessage(key, eventType, source string, value any) (Message, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode message payload: %w", err)
	}

	return Message{
		Key:   key,
		Value: data,
		Headers: map[string]string{
			HeaderEventID:       uuid.NewString(),
			HeaderEventType:     eventType,
			HeaderSchemaVersion: "1",
			HeaderSource:        source,
		},
		Timestamp: time.Now().UTC(),
	}, nil
}
