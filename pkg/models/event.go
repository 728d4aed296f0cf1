// Package models provides domain types shared across the cloudquill system.
package models

import (
	"encoding/json"
	"time"
)

// EventStatus classifies a stream event.
type EventStatus string

const (
	StatusInfo      EventStatus = "info"
	StatusSuccess   EventStatus = "success"
	StatusWarning   EventStatus = "warning"
	StatusError     EventStatus = "error"
	StatusAssistant EventStatus = "assistant"
)

// Event is one entry in the ordered status stream describing a chat run.
// Events are write-once: once emitted they are never mutated. The wire
// format is one JSON object per line (NDJSON).
type Event struct {
	// Message is human-readable status or assistant text.
	Message string `json:"message"`

	// Status classifies the event.
	Status EventStatus `json:"status"`

	// Timestamp is when the event was produced (RFC 3339).
	Timestamp time.Time `json:"timestamp"`

	// ToolResult carries the raw connector payload. Present only on
	// tool-success events.
	ToolResult json.RawMessage `json:"tool_result,omitempty"`
}

// Terminal reports whether this event ends a run. Every run ends with
// exactly one assistant or error event.
func (e Event) Terminal() bool {
	return e.Status == StatusAssistant || e.Status == StatusError
}
