// internal/cadence/cadence.go
package cadence

import (
    "time"

    "github.com/unclebandit/outreach-backend/internal/model"
)

// Rules is the per-contact spacing policy. The 24h floor exists
// independently of the day spacing: day-granularity alone could permit
// two sends within one rolling 24h window across a midnight boundary.
type Rules struct {
    MaxAttempts    int
    MinGap         time.Duration
    MinSpacingDays int
}

func DefaultRules() Rules {
    return Rules{
        MaxAttempts:    7,
        MinGap:         24 * time.Hour,
        MinSpacingDays: 4,
    }
}

// Eligible decides whether an entry may be touched right now. The
// returned reason is for logging only; ineligibility is a normal
// outcome, never an error.
func (r Rules) Eligible(e *model.QueueEntry, now time.Time) (bool, string) {
    if e.QueueStatus != model.QueueStatusOutreach {
        return false, "lifecycle status " + string(e.QueueStatus)
    }
    if !e.AIEnabled {
        return false, "manual mode"
    }

    // Cross-channel: an email touch today blocks an SMS touch today and
    // vice versa. Calendar-day equality, not elapsed hours.
    if e.LastContactDate != nil && sameDay(*e.LastContactDate, now) {
        return false, "already contacted today"
    }

    if e.Attempts >= r.MaxAttempts {
        return false, "attempt ceiling reached"
    }

    // First touch skips the spacing gates (the same-day gate above
    // still applies).
    if e.Attempts == 0 || e.LastSent == nil {
        return true, ""
    }

    elapsed := now.Sub(*e.LastSent)
    if elapsed < r.MinGap {
        return false, "under 24h since last send"
    }
    if daysBetween(*e.LastSent, now) < r.MinSpacingDays {
        return false, "under spacing days"
    }
    return true, ""
}

// FilterEligible applies the rules and truncates to limit. Callers
// over-fetch (2x limit) to compensate for exclusions.
func (r Rules) FilterEligible(entries []*model.QueueEntry, limit int, now time.Time) []*model.QueueEntry {
    eligible := []*model.QueueEntry{}
    for _, e := range entries {
        if ok, _ := r.Eligible(e, now); !ok {
            continue
        }
        eligible = append(eligible, e)
        if limit > 0 && len(eligible) >= limit {
            break
        }
    }
    return eligible
}

func sameDay(a, b time.Time) bool {
    return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func daysBetween(from, to time.Time) int {
    return int(to.Sub(from).Hours() / 24)
}
