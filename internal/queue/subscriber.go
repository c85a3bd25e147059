package queue

import (
    "log"

    "github.com/unclebandit/outreach-backend/internal/model"
)

// InboundEventsTopic carries verified webhook events from the
// controllers to the reconciler.
const InboundEventsTopic = "inbound_events"

// Reconciler is implemented by service.ReconcilerService.
type Reconciler interface {
    Process(ev *model.WebhookEvent) error
}

// StartInboundEventSubscriber attaches the reconciler to the in-memory
// queue. Processing happens after the webhook 2xx ack; the reconciler
// itself is idempotent, so a retried job is harmless.
func StartInboundEventSubscriber(q Queue, rec Reconciler) {
    go func() {
        err := q.Subscribe(InboundEventsTopic, func(payload any) error {
            ev, ok := payload.(*model.WebhookEvent)
            if !ok {
                log.Println("⚠️ Invalid payload type, expected *model.WebhookEvent")
                return nil // no retry for garbage
            }

            if err := rec.Process(ev); err != nil {
                log.Println("⚠️ Failed to process event", ev.EventID, ":", err)
                return err // triggers retry in queue
            }
            return nil
        })

        if err != nil {
            log.Println("⚠️ Failed to start subscriber for", InboundEventsTopic, ":", err)
        }
    }()
}
