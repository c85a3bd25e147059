// internal/controller/webhook_controller.go
package controller

import (
    "encoding/json"
    "io"
    "net/http"
    "time"

    "github.com/google/uuid"

    "github.com/unclebandit/outreach-backend/internal/model"
    "github.com/unclebandit/outreach-backend/internal/queue"
    "github.com/unclebandit/outreach-backend/internal/webhook"
)

// SignatureHeader carries the CRM's base64 RSA-SHA256 signature over the
// raw request body.
const SignatureHeader = "X-Wh-Signature"

// WebhookController verifies and normalizes external events, then hands
// them to the queue and acks. The event source expects a fast 2xx;
// processing happens after the response.
type WebhookController struct {
    Verifier *webhook.Verifier
    Queue    queue.Publisher
}

func (c *WebhookController) InboundMessage(w http.ResponseWriter, r *http.Request) {
    c.accept(w, r, model.EventInboundMessage)
}

func (c *WebhookController) EmailBounce(w http.ResponseWriter, r *http.Request) {
    c.accept(w, r, model.EventEmailBounce)
}

func (c *WebhookController) Disposition(w http.ResponseWriter, r *http.Request) {
    c.accept(w, r, model.EventDisposition)
}

func (c *WebhookController) CustomFieldSync(w http.ResponseWriter, r *http.Request) {
    c.accept(w, r, model.EventCustomFieldSync)
}

func (c *WebhookController) Engagement(w http.ResponseWriter, r *http.Request) {
    c.accept(w, r, model.EventEngagement)
}

func (c *WebhookController) accept(w http.ResponseWriter, r *http.Request, eventType model.EventType) {
    raw, err := io.ReadAll(r.Body)
    if err != nil {
        http.Error(w, "failed to read body", http.StatusBadRequest)
        return
    }

    // Signature check runs against the raw bytes, before any decoding
    // or state mutation.
    if err := c.Verifier.Verify(raw, r.Header.Get(SignatureHeader)); err != nil {
        http.Error(w, "invalid signature", http.StatusUnauthorized)
        return
    }

    var ev model.WebhookEvent
    if err := json.Unmarshal(raw, &ev); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }
    ev.Type = eventType
    ev.ReceivedAt = time.Now()
    if ev.EventID == "" {
        // Providers without delivery ids still get a dedup key; retried
        // deliveries of the same payload carry the provider id when one
        // exists, so this only synthesizes for one-shot sources.
        ev.EventID = uuid.NewString()
    }
    if ev.ContactID == "" && ev.Entry == nil {
        http.Error(w, "contact_id is required", http.StatusBadRequest)
        return
    }

    if err := c.Queue.Publish(queue.InboundEventsTopic, &ev); err != nil {
        http.Error(w, "failed to queue event", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{
        "status":   "accepted",
        "event_id": ev.EventID,
    })
}
