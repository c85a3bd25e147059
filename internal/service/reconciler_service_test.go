package service_test

import (
    "context"
    "testing"
    "time"

    "github.com/unclebandit/outreach-backend/internal/lifecycle"
    "github.com/unclebandit/outreach-backend/internal/model"
    "github.com/unclebandit/outreach-backend/internal/sentiment"
    "github.com/unclebandit/outreach-backend/internal/service"
)

type countingClassifier struct {
    intent lifecycle.Intent
    calls  int
}

func (c *countingClassifier) Classify(_ context.Context, _ string) (lifecycle.Intent, error) {
    c.calls++
    return c.intent, nil
}

func newReconciler(queueRepo *fakeQueueRepo, classifier sentiment.Classifier) *service.ReconcilerService {
    if classifier == nil {
        classifier = &sentiment.ChainClassifier{}
    }
    return &service.ReconcilerService{
        Events:     newFakeEventRepo(),
        Queue:      queueRepo,
        Classifier: classifier,
        Lifecycle:  &lifecycle.Engine{Queue: queueRepo},
    }
}

func TestProcessDuplicateEventAcked(t *testing.T) {
    clock := newTestClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
    queueRepo := newFakeQueueRepo(clock.now)
    addEntry(t, queueRepo, "c-1", model.ChannelSMS)

    classifier := &countingClassifier{intent: lifecycle.IntentContinue}
    rec := newReconciler(queueRepo, classifier)

    ev := &model.WebhookEvent{
        EventID:    "ev-1",
        Type:       model.EventInboundMessage,
        LocationID: "loc-1",
        ContactID:  "c-1",
        Body:       "sounds good",
    }
    if err := rec.Process(ev); err != nil {
        t.Fatal(err)
    }
    if err := rec.Process(ev); err != nil {
        t.Fatalf("redelivery must be acked cleanly, got %v", err)
    }
    if classifier.calls != 1 {
        t.Errorf("duplicate delivery must not be reprocessed, classifier ran %d times", classifier.calls)
    }
}

func TestProcessStopReplyOptsOutBothChannels(t *testing.T) {
    clock := newTestClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
    queueRepo := newFakeQueueRepo(clock.now)
    smsID := addEntry(t, queueRepo, "c-1", model.ChannelSMS)
    emailID := addEntry(t, queueRepo, "c-1", model.ChannelEmail)

    rec := newReconciler(queueRepo, nil)
    err := rec.Process(&model.WebhookEvent{
        EventID:    "ev-1",
        Type:       model.EventInboundMessage,
        LocationID: "loc-1",
        ContactID:  "c-1",
        Body:       "please STOP texting me",
    })
    if err != nil {
        t.Fatal(err)
    }

    for _, id := range []int{smsID, emailID} {
        e := queueRepo.get(id)
        if e.QueueStatus != model.QueueStatusDND || e.SendStatus != model.SendStatusOptedOut {
            t.Errorf("entry %d: expected DND/OPTED_OUT, got %s/%s", id, e.QueueStatus, e.SendStatus)
        }
    }
}

func TestProcessReplyMovesToConversation(t *testing.T) {
    clock := newTestClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
    queueRepo := newFakeQueueRepo(clock.now)
    id := addEntry(t, queueRepo, "c-1", model.ChannelSMS)

    rec := newReconciler(queueRepo, nil)
    err := rec.Process(&model.WebhookEvent{
        EventID:    "ev-1",
        Type:       model.EventInboundMessage,
        LocationID: "loc-1",
        ContactID:  "c-1",
        Body:       "yes, tell me more about the offer",
    })
    if err != nil {
        t.Fatal(err)
    }

    e := queueRepo.get(id)
    if e.QueueStatus != model.QueueStatusConversation {
        t.Errorf("expected CONVERSATION, got %s", e.QueueStatus)
    }
    if e.SendStatus != model.SendStatusReplied {
        t.Errorf("expected REPLIED, got %s", e.SendStatus)
    }
    if e.LastLeadReplyDate == nil {
        t.Error("reply must stamp last_lead_reply_date")
    }
}

func TestProcessReplyDoesNotReactivateDND(t *testing.T) {
    clock := newTestClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
    queueRepo := newFakeQueueRepo(clock.now)
    id := addEntry(t, queueRepo, "c-1", model.ChannelSMS)
    if err := queueRepo.MarkOptedOut("loc-1", "c-1"); err != nil {
        t.Fatal(err)
    }

    rec := newReconciler(queueRepo, nil)
    err := rec.Process(&model.WebhookEvent{
        EventID:    "ev-1",
        Type:       model.EventInboundMessage,
        LocationID: "loc-1",
        ContactID:  "c-1",
        Body:       "actually, what was the offer?",
    })
    if err != nil {
        t.Fatal(err)
    }

    e := queueRepo.get(id)
    if e.QueueStatus != model.QueueStatusDND {
        t.Errorf("DND must survive a later reply, got %s", e.QueueStatus)
    }
    if e.LastLeadReplyDate == nil {
        t.Error("the reply timestamp is still recorded for reporting")
    }
}

func TestProcessDispositionResolvesLocationByContact(t *testing.T) {
    clock := newTestClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
    queueRepo := newFakeQueueRepo(clock.now)
    id := addEntry(t, queueRepo, "c-1", model.ChannelSMS)

    rec := newReconciler(queueRepo, nil)
    err := rec.Process(&model.WebhookEvent{
        EventID:     "ev-1",
        Type:        model.EventDisposition,
        ContactID:   "c-1",
        Disposition: "Not Interested",
    })
    if err != nil {
        t.Fatal(err)
    }

    if e := queueRepo.get(id); e.QueueStatus != model.QueueStatusDND {
        t.Errorf("disposition without location should resolve via contact lookup, got %s", e.QueueStatus)
    }
}

func TestProcessUnknownContactAckedAsNoOp(t *testing.T) {
    clock := newTestClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
    queueRepo := newFakeQueueRepo(clock.now)

    rec := newReconciler(queueRepo, nil)
    err := rec.Process(&model.WebhookEvent{
        EventID:     "ev-1",
        Type:        model.EventDisposition,
        ContactID:   "never-seen",
        Disposition: "Not Interested",
    })
    if err != nil {
        t.Errorf("unknown contact must be acked, not retried: %v", err)
    }
}

func TestProcessBounceMarksEmailOnly(t *testing.T) {
    clock := newTestClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
    queueRepo := newFakeQueueRepo(clock.now)
    smsID := addEntry(t, queueRepo, "c-1", model.ChannelSMS)
    emailID := addEntry(t, queueRepo, "c-1", model.ChannelEmail)

    rec := newReconciler(queueRepo, nil)
    err := rec.Process(&model.WebhookEvent{
        EventID:    "ev-1",
        Type:       model.EventEmailBounce,
        LocationID: "loc-1",
        ContactID:  "c-1",
    })
    if err != nil {
        t.Fatal(err)
    }

    if e := queueRepo.get(emailID); e.SendStatus != model.SendStatusBounced {
        t.Errorf("expected email row BOUNCED, got %s", e.SendStatus)
    }
    if e := queueRepo.get(smsID); e.SendStatus != model.SendStatusPending {
        t.Errorf("bounce must not touch the SMS row, got %s", e.SendStatus)
    }
}

func TestProcessCustomFieldSyncIdempotentEnqueue(t *testing.T) {
    clock := newTestClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
    queueRepo := newFakeQueueRepo(clock.now)
    rec := newReconciler(queueRepo, nil)

    entry := func() *model.QueueEntry {
        return &model.QueueEntry{
            LocationID:    "loc-1",
            ContactID:     "c-1",
            Channel:       model.ChannelSMS,
            ContactMethod: "+15550001111",
        }
    }

    for i, eventID := range []string{"ev-1", "ev-2"} {
        err := rec.Process(&model.WebhookEvent{
            EventID:    eventID,
            Type:       model.EventCustomFieldSync,
            LocationID: "loc-1",
            ContactID:  "c-1",
            Entry:      entry(),
        })
        if err != nil {
            t.Fatalf("sync %d: %v", i, err)
        }
    }

    entries, err := queueRepo.GetByContactID("c-1")
    if err != nil {
        t.Fatal(err)
    }
    if len(entries) != 1 {
        t.Fatalf("repeated sync must not duplicate the row, got %d entries", len(entries))
    }
    if !entries[0].AIEnabled {
        t.Error("sync-enqueued entries start with automation on")
    }
}

func TestProcessEngagementCounters(t *testing.T) {
    clock := newTestClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
    queueRepo := newFakeQueueRepo(clock.now)
    id := addEntry(t, queueRepo, "c-1", model.ChannelEmail)

    rec := newReconciler(queueRepo, nil)
    for _, kind := range []string{"delivered", "opened"} {
        err := rec.Process(&model.WebhookEvent{
            EventID:    "ev-" + kind,
            Type:       model.EventEngagement,
            LocationID: "loc-1",
            ContactID:  "c-1",
            Channel:    model.ChannelEmail,
            Kind:       kind,
        })
        if err != nil {
            t.Fatal(err)
        }
    }

    e := queueRepo.get(id)
    if e.DeliveredCount != 1 || e.OpenCount != 1 {
        t.Errorf("expected delivered=1 open=1, got %d/%d", e.DeliveredCount, e.OpenCount)
    }
    if e.QueueStatus != model.QueueStatusOutreach {
        t.Errorf("engagement must not move the lifecycle, got %s", e.QueueStatus)
    }
}
