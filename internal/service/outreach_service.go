// internal/service/outreach_service.go
package service

import (
    "context"
    "log"
    "time"

    "github.com/unclebandit/outreach-backend/internal/cadence"
    "github.com/unclebandit/outreach-backend/internal/model"
    "github.com/unclebandit/outreach-backend/internal/ratelimit"
    "github.com/unclebandit/outreach-backend/internal/repository"
    "github.com/unclebandit/outreach-backend/internal/responder"
)

// OutreachService is the scheduled dispatcher: cadence filter, rate
// limiter, external send, queue store write-back.
type OutreachService struct {
    QueueRepo       repository.QueueRepositoryInterface
    IntegrationRepo repository.IntegrationRepositoryInterface
    Generator       responder.Generator
    Sender          responder.Sender
    Limiter         *ratelimit.Limiter
    Rules           cadence.Rules

    // ItemDelay spaces external calls so a batch does not trip the
    // CRM's own throttling.
    ItemDelay time.Duration

    // Now is overridable in tests; nil means time.Now.
    Now func() time.Time
}

// BatchResult is the per-run summary surfaced for observability.
type BatchResult struct {
    Eligible int `json:"eligible"`
    Sent     int `json:"sent"`
    Skipped  int `json:"skipped"`
    Failed   int `json:"failed"`
}

func (s *OutreachService) now() time.Time {
    if s.Now != nil {
        return s.Now()
    }
    return time.Now()
}

// RunBatch processes one integration on one channel. Per-entry failures
// never abort the batch; a cancelled context stops between items and
// leaves no entry half-updated, because the confirm is one conditional
// write.
func (s *OutreachService) RunBatch(ctx context.Context, in *model.Integration, channel model.Channel, batchSize int) (*BatchResult, error) {
    if batchSize < 1 {
        batchSize = 10
    }

    entries, err := s.QueueRepo.ListPendingByChannel(in.LocationID, channel, s.Rules.MaxAttempts, 2*batchSize)
    if err != nil {
        return nil, err
    }
    eligible := s.Rules.FilterEligible(entries, batchSize, s.now())

    res := &BatchResult{Eligible: len(eligible)}
    for i, e := range eligible {
        if err := ctx.Err(); err != nil {
            return res, err
        }
        if i > 0 && s.ItemDelay > 0 {
            select {
            case <-ctx.Done():
                return res, ctx.Err()
            case <-time.After(s.ItemDelay):
            }
        }

        // Re-read the committed row before sending: the other channel's
        // pass, an overlapping run, or a webhook may have touched this
        // contact since the batch was fetched.
        fresh, err := s.QueueRepo.GetByIdentity(e.LocationID, e.ContactID, e.Channel)
        if err != nil {
            log.Println("⚠️ failed to re-read entry", e.ID, ":", err)
            res.Failed++
            continue
        }
        if fresh == nil {
            res.Skipped++
            continue
        }
        if ok, reason := s.Rules.Eligible(fresh, s.now()); !ok {
            log.Println("entry", fresh.ID, "no longer eligible:", reason)
            res.Skipped++
            continue
        }

        // Tenant-wide throughput gate. Rejection is a normal outcome:
        // the entry is skipped and no attempt is consumed.
        integ, err := s.currentIntegration(in)
        if err != nil {
            log.Println("⚠️ failed to refresh integration:", err)
            res.Failed++
            continue
        }
        if err := s.Limiter.Allow(integ, s.now()); err != nil {
            res.Skipped++
            continue
        }

        msg, err := s.Generator.Generate(ctx, fresh)
        if err != nil {
            log.Println("⚠️ failed to generate message for entry", fresh.ID, ":", err)
            if err := s.QueueRepo.MarkSendFailed(fresh.ID, err.Error()); err != nil {
                log.Println("⚠️ failed to record generation failure:", err)
            }
            res.Failed++
            continue
        }

        if err := s.Sender.Send(ctx, integ, fresh, msg); err != nil {
            // No attempt consumed, no rate counter touched: the ceiling
            // counts delivered touches, not platform errors.
            log.Println("⚠️ send failed for entry", fresh.ID, ":", err)
            if err := s.QueueRepo.MarkSendFailed(fresh.ID, err.Error()); err != nil {
                log.Println("⚠️ failed to record send failure:", err)
            }
            res.Failed++
            continue
        }

        // Confirmed send: rate counters first, then the entry's
        // attempts/timestamps in one conditional write.
        if err := s.Limiter.RecordSend(integ.ID); err != nil {
            log.Println("⚠️ failed to record send against rate counters:", err)
        }
        counted, err := s.QueueRepo.ConfirmSend(fresh.ID, s.Rules.MaxAttempts)
        if err != nil {
            log.Println("⚠️ failed to confirm send for entry", fresh.ID, ":", err)
            res.Failed++
            continue
        }
        if !counted {
            log.Println("⚠️ confirm matched no row (concurrent run at ceiling), entry", fresh.ID)
        }
        res.Sent++
    }

    return res, nil
}

// currentIntegration prefers the freshly committed counters over the
// snapshot the run started with.
func (s *OutreachService) currentIntegration(in *model.Integration) (*model.Integration, error) {
    if s.IntegrationRepo == nil {
        return in, nil
    }
    cur, err := s.IntegrationRepo.GetByLocationID(in.LocationID)
    if err != nil {
        return nil, err
    }
    if cur == nil {
        return in, nil
    }
    return cur, nil
}
