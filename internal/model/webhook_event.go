// internal/model/webhook_event.go
package model

import "time"

type EventType string

const (
    EventInboundMessage  EventType = "inbound_message"
    EventEmailBounce     EventType = "email_bounce"
    EventDisposition     EventType = "disposition"
    EventCustomFieldSync EventType = "custom_field_sync"
    EventEngagement      EventType = "engagement"
)

// WebhookEvent is the normalized form of an external event after
// signature verification. EventID is the provider's id when present,
// otherwise a synthetic uuid; it is the dedup key.
type WebhookEvent struct {
    EventID    string    `json:"event_id"`
    Type       EventType `json:"type"`
    LocationID string    `json:"location_id,omitempty"`
    ContactID  string    `json:"contact_id"`
    Channel    Channel   `json:"channel,omitempty"`

    // Inbound message text, for classification.
    Body string `json:"body,omitempty"`

    // Call-outcome code from the CRM, for disposition events.
    Disposition string `json:"disposition,omitempty"`

    // Engagement kind: delivered, opened, clicked.
    Kind string `json:"kind,omitempty"`

    // Populated for custom-field-sync events that enqueue a new contact.
    Entry *QueueEntry `json:"entry,omitempty"`

    ReceivedAt time.Time `json:"received_at"`
}
