// internal/lifecycle/lifecycle.go
package lifecycle

import (
    "log"
    "strings"

    "github.com/unclebandit/outreach-backend/internal/repository"
)

// Intent is the classified meaning of an inbound signal. STOP and
// WRONG_INFO lead to terminal lifecycle states; anything else is a
// re-engagement signal.
type Intent string

const (
    IntentStop      Intent = "STOP"
    IntentWrongInfo Intent = "WRONG_INFO"
    IntentContinue  Intent = "CONTINUE"
)

// stopDispositions maps CRM call-outcome codes to intents. Matching is
// case-insensitive on the trimmed code. Any disposition outside this
// list leaves the lifecycle alone.
var stopDispositions = map[string]Intent{
    "not interested": IntentStop,
    "sold already":   IntentStop,
    "dnc":            IntentStop,
    "do not call":    IntentStop,
    "do not contact": IntentStop,
    "wrong number":   IntentWrongInfo,
    "wrong contact":  IntentWrongInfo,
    "bad number":     IntentWrongInfo,
}

// IntentForDisposition returns the stop-list mapping for a disposition
// code, if any.
func IntentForDisposition(disposition string) (Intent, bool) {
    intent, ok := stopDispositions[strings.ToLower(strings.TrimSpace(disposition))]
    return intent, ok
}

// Engine applies lifecycle transitions to the queue store. Transitions
// are cross-channel: a STOP produced on SMS opts the contact out of
// email too.
type Engine struct {
    Queue repository.QueueRepositoryInterface

    // ReactivateFromDND controls whether an inbound reply can pull a
    // DND contact back into CONVERSATION. Off by default: an opted-out
    // contact replying stays suppressed until explicitly reactivated.
    ReactivateFromDND bool
}

// ApplyIntent routes a classified intent to the matching store mutation.
func (e *Engine) ApplyIntent(locationID, contactID string, intent Intent) error {
    switch intent {
    case IntentStop:
        return e.Queue.MarkOptedOut(locationID, contactID)
    case IntentWrongInfo:
        return e.Queue.MarkWrongInfo(locationID, contactID)
    default:
        return e.Queue.RecordInboundReply(locationID, contactID, e.ReactivateFromDND)
    }
}

// ApplyDisposition maps a CRM call outcome through the stop list. An
// unmapped outcome is logged and acknowledged as a no-op.
func (e *Engine) ApplyDisposition(locationID, contactID, disposition string) error {
    intent, ok := IntentForDisposition(disposition)
    if !ok {
        log.Printf("disposition %q for contact %s has no lifecycle mapping, skipping", disposition, contactID)
        return nil
    }
    return e.ApplyIntent(locationID, contactID, intent)
}
