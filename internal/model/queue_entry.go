// internal/model/queue_entry.go
package model

import "time"

type Channel string

const (
    ChannelSMS   Channel = "SMS"
    ChannelEmail Channel = "EMAIL"
)

// QueueStatus is the contact's macro state in the outreach funnel,
// independent of per-channel send state.
type QueueStatus string

const (
    QueueStatusOutreach     QueueStatus = "OUTREACH"
    QueueStatusConversation QueueStatus = "CONVERSATION"
    QueueStatusDND          QueueStatus = "DND"
    QueueStatusWrongInfo    QueueStatus = "WRONG_INFO"
    QueueStatusCompleted    QueueStatus = "COMPLETED"
)

type SendStatus string

const (
    SendStatusPending  SendStatus = "PENDING"
    SendStatusSent     SendStatus = "SENT"
    SendStatusReplied  SendStatus = "REPLIED"
    SendStatusFailed   SendStatus = "FAILED"
    SendStatusOptedOut SendStatus = "OPTED_OUT"
    SendStatusBounced  SendStatus = "BOUNCED"
)

// QueueEntry is one contact on one channel. A contact reachable by both
// phone and email has two rows sharing (location_id, contact_id).
type QueueEntry struct {
    ID            int         `db:"id" json:"id"`
    UserID        string      `db:"user_id" json:"user_id"`
    LocationID    string      `db:"location_id" json:"location_id"`
    ContactID     string      `db:"contact_id" json:"contact_id"`
    ContactMethod string      `db:"contact_method" json:"contact_method"`
    Channel       Channel     `db:"channel" json:"channel"`
    QueueStatus   QueueStatus `db:"queue_status" json:"queue_status"`
    SendStatus    SendStatus  `db:"send_status" json:"send_status"`
    Attempts      int         `db:"attempts" json:"attempts"`

    LastSent          *time.Time `db:"last_sent" json:"last_sent,omitempty"`
    LastContactDate   *time.Time `db:"last_contact_date" json:"last_contact_date,omitempty"`
    LastLeadReplyDate *time.Time `db:"last_lead_reply_date" json:"last_lead_reply_date,omitempty"`
    LastError         string     `db:"last_error" json:"last_error,omitempty"`

    // Denormalized lead metadata for display and message rendering.
    FirstName       string `db:"first_name" json:"first_name"`
    LastName        string `db:"last_name" json:"last_name"`
    PropertyAddress string `db:"property_address" json:"property_address"`
    PropertyCity    string `db:"property_city" json:"property_city"`
    PropertyState   string `db:"property_state" json:"property_state"`
    PropertyZip     string `db:"property_zip" json:"property_zip"`
    LeadType        string `db:"lead_type" json:"lead_type"`
    LeadSourceID    string `db:"lead_source_id" json:"lead_source_id"`

    // AIEnabled is false while the contact is in manual mode.
    AIEnabled bool `db:"ai_enabled" json:"ai_enabled"`

    DeliveredCount int `db:"delivered_count" json:"delivered_count"`
    OpenCount      int `db:"open_count" json:"open_count"`

    CreatedAt time.Time `db:"created_at" json:"created_at"`
    UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IdentityKey is derivable without a round trip, which is what makes
// enqueue idempotent across bulk imports and duplicate sync triggers.
func (e *QueueEntry) IdentityKey() string {
    return e.LocationID + "_" + e.ContactID + "_" + string(e.Channel)
}

// Terminal reports whether the lifecycle state is one the dispatcher
// never touches again.
func (s QueueStatus) Terminal() bool {
    return s == QueueStatusDND || s == QueueStatusWrongInfo || s == QueueStatusCompleted
}
