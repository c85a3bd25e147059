// internal/service/queue_service.go
package service

import (
    "context"
    "fmt"
    "log"
    "time"

    "github.com/unclebandit/outreach-backend/internal/cadence"
    "github.com/unclebandit/outreach-backend/internal/crm"
    appErrors "github.com/unclebandit/outreach-backend/internal/errors"
    "github.com/unclebandit/outreach-backend/internal/model"
    "github.com/unclebandit/outreach-backend/internal/repository"
)

// ManualModeTag is the CRM tag that mirrors the ai_enabled flag, so
// humans working the conversation in the CRM see the suppression.
const ManualModeTag = "manual-mode"

// QueueService is the surface the HTTP layer and the dispatcher share
// for reading and mutating queue entries.
type QueueService struct {
    QueueRepo       repository.QueueRepositoryInterface
    IntegrationRepo repository.IntegrationRepositoryInterface
    CRM             *crm.Client
    Rules           cadence.Rules

    // Now is overridable in tests; nil means time.Now.
    Now func() time.Time
}

func (s *QueueService) now() time.Time {
    if s.Now != nil {
        return s.Now()
    }
    return time.Now()
}

// AddToQueue is the idempotent enqueue API. A pre-existing entry for the
// same (location, contact, channel) is returned untouched so in-flight
// attempt history survives duplicate sync triggers.
func (s *QueueService) AddToQueue(e *model.QueueEntry) (int, bool, error) {
    if e.Channel != model.ChannelSMS && e.Channel != model.ChannelEmail {
        return 0, false, fmt.Errorf("invalid channel: %q", e.Channel)
    }
    if e.LocationID == "" || e.ContactID == "" {
        return 0, false, fmt.Errorf("location_id and contact_id are required")
    }
    if e.ContactMethod == "" {
        return 0, false, fmt.Errorf("contact_method is required")
    }
    e.AIEnabled = true
    return s.QueueRepo.UpsertIfAbsent(e)
}

// PendingContacts returns entries eligible for an immediate touch on one
// channel. The repo is over-fetched at 2x the limit to compensate for
// cadence exclusions, then the filtered set is truncated.
func (s *QueueService) PendingContacts(locationID string, channel model.Channel, limit int) ([]*model.QueueEntry, error) {
    if limit < 1 {
        limit = 20
    }
    entries, err := s.QueueRepo.ListPendingByChannel(locationID, channel, s.Rules.MaxAttempts, 2*limit)
    if err != nil {
        return nil, err
    }
    return s.Rules.FilterEligible(entries, limit, s.now()), nil
}

// UpdateSendState records a send outcome. SENT is coerced to PENDING by
// the store while attempts stay under the ceiling; FAILED never touches
// the attempt counter.
func (s *QueueService) UpdateSendState(id int, status model.SendStatus, reason string) error {
    switch status {
    case model.SendStatusSent:
        counted, err := s.QueueRepo.ConfirmSend(id, s.Rules.MaxAttempts)
        if err != nil {
            return err
        }
        if !counted {
            log.Println("⚠️ send confirmation ignored, entry at attempt ceiling:", id)
        }
        return nil
    case model.SendStatusFailed:
        return s.QueueRepo.MarkSendFailed(id, reason)
    default:
        return fmt.Errorf("send state %q is set via lifecycle events, not this API", status)
    }
}

func (s *QueueService) UpdateLifecycle(id int, status model.QueueStatus) error {
    switch status {
    case model.QueueStatusOutreach, model.QueueStatusConversation,
        model.QueueStatusDND, model.QueueStatusWrongInfo, model.QueueStatusCompleted:
        return s.QueueRepo.UpdateLifecycle(id, status)
    default:
        return fmt.Errorf("invalid lifecycle status: %q", status)
    }
}

// SetManualMode toggles the contact's suppression: the CRM tag for
// humans, the ai_enabled flag for the dispatcher.
func (s *QueueService) SetManualMode(ctx context.Context, locationID, contactID string, manual bool) error {
    in, err := s.IntegrationRepo.GetByLocationID(locationID)
    if err != nil {
        return err
    }
    if in == nil {
        return appErrors.NewIntegrationNotFound(locationID)
    }

    if s.CRM != nil {
        var add, remove []string
        if manual {
            add = []string{ManualModeTag}
        } else {
            remove = []string{ManualModeTag}
        }
        if err := s.CRM.UpdateContactTags(ctx, in.AccessToken, contactID, add, remove); err != nil {
            return err
        }
    }

    return s.QueueRepo.SetAIEnabled(locationID, contactID, !manual)
}
