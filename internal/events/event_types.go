package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRecordCreated EventType = "record.created"
	EventRecordUpdated EventType = "record.updated"
	EventRecordDeleted EventType = "record.deleted"
)

// Event represents a record lifecycle change emitted by the record service.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Resource  string    `json:"resource"`
	RecordID  string    `json:"record_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}
