// internal/service/reconciler_service.go
package service

import (
    "context"
    "log"
    "time"

    "github.com/unclebandit/outreach-backend/internal/lifecycle"
    "github.com/unclebandit/outreach-backend/internal/model"
    "github.com/unclebandit/outreach-backend/internal/repository"
    "github.com/unclebandit/outreach-backend/internal/sentiment"
)

// ReconcilerService ingests external events exactly once each. The HTTP
// layer has already verified signatures and acked; everything here must
// stay idempotent because queue retries can re-deliver a job.
type ReconcilerService struct {
    Events     repository.EventRepositoryInterface
    Queue      repository.QueueRepositoryInterface
    Classifier sentiment.Classifier
    Lifecycle  *lifecycle.Engine
}

func (s *ReconcilerService) Process(ev *model.WebhookEvent) error {
    first, err := s.Events.MarkProcessed(ev.EventID, ev.LocationID, string(ev.Type))
    if err != nil {
        return err
    }
    if !first {
        log.Println("duplicate event acknowledged:", ev.EventID)
        return nil
    }

    switch ev.Type {
    case model.EventCustomFieldSync:
        return s.processCustomFieldSync(ev)
    case model.EventInboundMessage:
        return s.processInboundMessage(ev)
    case model.EventDisposition:
        return s.processDisposition(ev)
    case model.EventEmailBounce:
        return s.processBounce(ev)
    case model.EventEngagement:
        return s.processEngagement(ev)
    default:
        log.Println("unknown event type, skipping:", ev.Type)
        return nil
    }
}

func (s *ReconcilerService) processCustomFieldSync(ev *model.WebhookEvent) error {
    if ev.Entry == nil {
        log.Println("custom-field-sync event without entry payload, skipping:", ev.EventID)
        return nil
    }
    ev.Entry.AIEnabled = true
    id, existed, err := s.Queue.UpsertIfAbsent(ev.Entry)
    if err != nil {
        return err
    }
    if existed {
        log.Println("contact already queued, preserving progress:", ev.Entry.IdentityKey())
    } else {
        log.Println("✅ queued contact", ev.Entry.IdentityKey(), "as entry", id)
    }
    return nil
}

func (s *ReconcilerService) processInboundMessage(ev *model.WebhookEvent) error {
    locationID, ok := s.resolveLocation(ev)
    if !ok {
        return nil
    }

    ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
    defer cancel()

    intent, err := s.Classifier.Classify(ctx, ev.Body)
    if err != nil {
        // Classifier chains degrade internally; an error here means
        // even the keyword path blew up, which should not happen.
        log.Println("⚠️ classification failed, treating as re-engagement:", err)
        intent = lifecycle.IntentContinue
    }
    return s.Lifecycle.ApplyIntent(locationID, ev.ContactID, intent)
}

func (s *ReconcilerService) processDisposition(ev *model.WebhookEvent) error {
    locationID, ok := s.resolveLocation(ev)
    if !ok {
        return nil
    }
    return s.Lifecycle.ApplyDisposition(locationID, ev.ContactID, ev.Disposition)
}

func (s *ReconcilerService) processBounce(ev *model.WebhookEvent) error {
    locationID, ok := s.resolveLocation(ev)
    if !ok {
        return nil
    }
    return s.Queue.MarkBounced(locationID, ev.ContactID)
}

// processEngagement updates tracking fields only; delivery and open
// signals never move the lifecycle.
func (s *ReconcilerService) processEngagement(ev *model.WebhookEvent) error {
    locationID, ok := s.resolveLocation(ev)
    if !ok {
        return nil
    }
    channel := ev.Channel
    if channel == "" {
        channel = model.ChannelSMS
    }
    entry, err := s.Queue.GetByIdentity(locationID, ev.ContactID, channel)
    if err != nil {
        return err
    }
    if entry == nil {
        log.Println("engagement for unknown entry, skipping:", ev.ContactID)
        return nil
    }
    return s.Queue.RecordEngagement(entry.ID, ev.Kind)
}

// resolveLocation fills in the tenant key for CRM-side events that only
// carry a contact id, via the contact_id secondary index. A contact the
// queue has never seen is acknowledged as a no-op so a poison event is
// not retried forever.
func (s *ReconcilerService) resolveLocation(ev *model.WebhookEvent) (string, bool) {
    if ev.LocationID != "" {
        return ev.LocationID, true
    }
    entries, err := s.Queue.GetByContactID(ev.ContactID)
    if err != nil {
        log.Println("⚠️ contact lookup failed for event", ev.EventID, ":", err)
        return "", false
    }
    if len(entries) == 0 {
        log.Println("event for unknown contact, acknowledged as no-op:", ev.ContactID)
        return "", false
    }
    return entries[0].LocationID, true
}
