package domain

import (
	"encoding/json"
	"time"
)

// WebhookLogEntry is one append-only record per inbound gateway callback,
// valid or not. Entries are never mutated or deleted.
type WebhookLogEntry struct {
	ID             string            `json:"id"`
	EventType      string            `json:"event_type"`
	Headers        map[string]string `json:"headers"`
	Payload        json.RawMessage   `json:"payload"`
	SignatureValid bool              `json:"signature_valid"`
	ReceivedAt     time.Time         `json:"received_at"`
}
