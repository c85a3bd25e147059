package service_test

import (
    "context"
    "sync"
    "time"

    "github.com/unclebandit/outreach-backend/internal/model"
    "github.com/unclebandit/outreach-backend/internal/responder"
)

// fakeQueueRepo is an in-memory queue store with the same conditional
// semantics as the SQL repository.
type fakeQueueRepo struct {
    mu      sync.Mutex
    entries map[int]*model.QueueEntry
    nextID  int
    clock   func() time.Time
}

func newFakeQueueRepo(clock func() time.Time) *fakeQueueRepo {
    return &fakeQueueRepo{
        entries: map[int]*model.QueueEntry{},
        clock:   clock,
    }
}

func (f *fakeQueueRepo) UpsertIfAbsent(e *model.QueueEntry) (int, bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    for id, existing := range f.entries {
        if existing.LocationID == e.LocationID && existing.ContactID == e.ContactID && existing.Channel == e.Channel {
            return id, true, nil
        }
    }
    f.nextID++
    stored := *e
    stored.ID = f.nextID
    if stored.QueueStatus == "" {
        stored.QueueStatus = model.QueueStatusOutreach
    }
    if stored.SendStatus == "" {
        stored.SendStatus = model.SendStatusPending
    }
    stored.CreatedAt = f.clock()
    f.entries[stored.ID] = &stored
    return stored.ID, false, nil
}

func (f *fakeQueueRepo) GetByIdentity(locationID, contactID string, ch model.Channel) (*model.QueueEntry, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, e := range f.entries {
        if e.LocationID == locationID && e.ContactID == contactID && e.Channel == ch {
            copy := *e
            return &copy, nil
        }
    }
    return nil, nil
}

func (f *fakeQueueRepo) GetByContactID(contactID string) ([]*model.QueueEntry, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    out := []*model.QueueEntry{}
    for _, e := range f.entries {
        if e.ContactID == contactID {
            copy := *e
            out = append(out, &copy)
        }
    }
    return out, nil
}

func (f *fakeQueueRepo) ListPendingByChannel(locationID string, ch model.Channel, maxAttempts, limit int) ([]*model.QueueEntry, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    out := []*model.QueueEntry{}
    for _, e := range f.entries {
        if e.LocationID != locationID || e.Channel != ch {
            continue
        }
        if e.QueueStatus != model.QueueStatusOutreach || !e.AIEnabled {
            continue
        }
        if e.SendStatus != model.SendStatusPending && e.SendStatus != model.SendStatusFailed {
            continue
        }
        if e.Attempts >= maxAttempts {
            continue
        }
        copy := *e
        out = append(out, &copy)
        if limit > 0 && len(out) >= limit {
            break
        }
    }
    return out, nil
}

func (f *fakeQueueRepo) ConfirmSend(id, maxAttempts int) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    e, ok := f.entries[id]
    if !ok || e.Attempts >= maxAttempts {
        return false, nil
    }
    now := f.clock()
    e.Attempts++
    e.SendStatus = model.SendStatusPending
    e.LastSent = &now
    e.LastError = ""
    for _, sib := range f.entries {
        if sib.LocationID == e.LocationID && sib.ContactID == e.ContactID {
            t := now
            sib.LastContactDate = &t
        }
    }
    return true, nil
}

func (f *fakeQueueRepo) MarkSendFailed(id int, reason string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if e, ok := f.entries[id]; ok {
        e.SendStatus = model.SendStatusFailed
        e.LastError = reason
    }
    return nil
}

func (f *fakeQueueRepo) UpdateLifecycle(id int, status model.QueueStatus) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    e, ok := f.entries[id]
    if !ok || e.QueueStatus == status || e.QueueStatus == model.QueueStatusDND {
        return nil
    }
    e.QueueStatus = status
    return nil
}

func (f *fakeQueueRepo) MarkOptedOut(locationID, contactID string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, e := range f.entries {
        if e.LocationID == locationID && e.ContactID == contactID {
            e.QueueStatus = model.QueueStatusDND
            e.SendStatus = model.SendStatusOptedOut
        }
    }
    return nil
}

func (f *fakeQueueRepo) MarkWrongInfo(locationID, contactID string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, e := range f.entries {
        if e.LocationID == locationID && e.ContactID == contactID && e.QueueStatus != model.QueueStatusDND {
            e.QueueStatus = model.QueueStatusWrongInfo
        }
    }
    return nil
}

func (f *fakeQueueRepo) MarkBounced(locationID, contactID string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, e := range f.entries {
        if e.LocationID == locationID && e.ContactID == contactID && e.Channel == model.ChannelEmail {
            e.SendStatus = model.SendStatusBounced
        }
    }
    return nil
}

func (f *fakeQueueRepo) RecordInboundReply(locationID, contactID string, reactivateFromDND bool) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    now := f.clock()
    for _, e := range f.entries {
        if e.LocationID != locationID || e.ContactID != contactID {
            continue
        }
        t := now
        e.LastLeadReplyDate = &t
        if e.QueueStatus == model.QueueStatusDND && !reactivateFromDND {
            continue
        }
        e.QueueStatus = model.QueueStatusConversation
        e.SendStatus = model.SendStatusReplied
    }
    return nil
}

func (f *fakeQueueRepo) RecordEngagement(id int, kind string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    e, ok := f.entries[id]
    if !ok {
        return nil
    }
    switch kind {
    case "delivered":
        e.DeliveredCount++
    case "opened", "clicked":
        e.OpenCount++
    }
    return nil
}

func (f *fakeQueueRepo) SetAIEnabled(locationID, contactID string, enabled bool) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, e := range f.entries {
        if e.LocationID == locationID && e.ContactID == contactID {
            e.AIEnabled = enabled
        }
    }
    return nil
}

func (f *fakeQueueRepo) get(id int) *model.QueueEntry {
    f.mu.Lock()
    defer f.mu.Unlock()
    if e, ok := f.entries[id]; ok {
        copy := *e
        return &copy
    }
    return nil
}

// fakeIntegrationRepo mirrors the guarded counter increment in memory.
type fakeIntegrationRepo struct {
    mu            sync.Mutex
    integration   *model.Integration
    clock         func() time.Time
    increments    int
    denyIncrement bool
}

func (f *fakeIntegrationRepo) GetByLocationID(locationID string) (*model.Integration, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.integration != nil && f.integration.LocationID == locationID {
        copy := *f.integration
        return &copy, nil
    }
    return nil, nil
}

func (f *fakeIntegrationRepo) ListActive() ([]*model.Integration, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.integration == nil {
        return nil, nil
    }
    copy := *f.integration
    return []*model.Integration{&copy}, nil
}

func (f *fakeIntegrationRepo) IncrementSendCounters(id, hourlyMax, dailyMax int) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.denyIncrement {
        return false, nil
    }
    in := f.integration
    now := f.clock()

    hourElapsed := now.Sub(in.LastHourReset) > time.Hour
    dayElapsed := now.Sub(in.LastDayReset) > 24*time.Hour
    if (!hourElapsed && in.HourlyMessageCount >= hourlyMax) ||
        (!dayElapsed && in.DailyMessageCount >= dailyMax) {
        return false, nil
    }

    if hourElapsed {
        in.HourlyMessageCount = 1
        in.LastHourReset = now
    } else {
        in.HourlyMessageCount++
    }
    if dayElapsed {
        in.DailyMessageCount = 1
        in.LastDayReset = now
    } else {
        in.DailyMessageCount++
    }
    t := now
    in.LastMessageSent = &t
    f.increments++
    return true, nil
}

// fakeEventRepo is the idempotency ledger.
type fakeEventRepo struct {
    mu   sync.Mutex
    seen map[string]bool
}

func newFakeEventRepo() *fakeEventRepo {
    return &fakeEventRepo{seen: map[string]bool{}}
}

func (f *fakeEventRepo) MarkProcessed(eventID, locationID, eventType string) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.seen[eventID] {
        return false, nil
    }
    f.seen[eventID] = true
    return true, nil
}

func (f *fakeEventRepo) PurgeOlderThan(ttl time.Duration) (int64, error) { return 0, nil }

// stubGenerator returns a fixed message.
type stubGenerator struct {
    calls int
}

func (g *stubGenerator) Generate(_ context.Context, e *model.QueueEntry) (responder.Message, error) {
    g.calls++
    return responder.Message{Body: "Hi " + e.FirstName}, nil
}

// stubSender fails for contact ids listed in failFor.
type stubSender struct {
    mu      sync.Mutex
    sent    []string
    failFor map[string]error
}

func (s *stubSender) Send(_ context.Context, _ *model.Integration, e *model.QueueEntry, _ responder.Message) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if err, ok := s.failFor[e.ContactID]; ok {
        return err
    }
    s.sent = append(s.sent, e.ContactID)
    return nil
}
