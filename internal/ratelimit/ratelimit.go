// internal/ratelimit/ratelimit.go
package ratelimit

import (
    "time"

    appErrors "github.com/unclebandit/outreach-backend/internal/errors"
    "github.com/unclebandit/outreach-backend/internal/model"
)

// Limits is the tenant-wide throughput policy, independent of per-contact
// cadence.
type Limits struct {
    MinInterval time.Duration
    HourlyMax   int
    DailyMax    int
}

func DefaultLimits() Limits {
    return Limits{
        MinInterval: 5 * time.Minute,
        HourlyMax:   10,
        DailyMax:    50,
    }
}

// Check gates a potential send against the integration's counters. A
// window whose reset timestamp is older than the window duration is
// treated as logically reset for this check without persisting anything;
// the persisted reset happens in RecordSend.
func (l Limits) Check(in *model.Integration, now time.Time) error {
    if in.LastMessageSent != nil && now.Sub(*in.LastMessageSent) < l.MinInterval {
        return appErrors.ErrRateLimited
    }

    hourly := in.HourlyMessageCount
    if now.Sub(in.LastHourReset) > time.Hour {
        hourly = 0
    }
    if hourly >= l.HourlyMax {
        return appErrors.ErrRateLimited
    }

    daily := in.DailyMessageCount
    if now.Sub(in.LastDayReset) > 24*time.Hour {
        daily = 0
    }
    if daily >= l.DailyMax {
        return appErrors.ErrRateLimited
    }

    return nil
}

// CounterStore is the conditional-increment primitive the repository
// provides. The increment must fail, not clamp, when it would pass a
// ceiling, so two concurrent senders cannot both get through.
type CounterStore interface {
    IncrementSendCounters(integrationID, hourlyMax, dailyMax int) (bool, error)
}

type Limiter struct {
    Store  CounterStore
    Limits Limits
}

func (l *Limiter) Allow(in *model.Integration, now time.Time) error {
    return l.Limits.Check(in, now)
}

// RecordSend persists the window reset (if a boundary was crossed) and
// increments the counters, stamping last_message_sent. Call only after a
// send is confirmed.
func (l *Limiter) RecordSend(integrationID int) error {
    ok, err := l.Store.IncrementSendCounters(integrationID, l.Limits.HourlyMax, l.Limits.DailyMax)
    if err != nil {
        return err
    }
    if !ok {
        return appErrors.ErrRateLimited
    }
    return nil
}
