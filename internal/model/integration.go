// internal/model/integration.go
package model

import "time"

// Integration is one connected CRM account. Rate-limit counters are
// scoped here, not per contact; the windows are sliding (relative to the
// reset timestamps), not aligned to wall-clock hours.
type Integration struct {
    ID                 int        `db:"id" json:"id"`
    UserID             string     `db:"user_id" json:"user_id"`
    LocationID         string     `db:"location_id" json:"location_id"`
    AccessToken        string     `db:"access_token" json:"-"`
    HourlyMessageCount int        `db:"hourly_message_count" json:"hourly_message_count"`
    DailyMessageCount  int        `db:"daily_message_count" json:"daily_message_count"`
    LastHourReset      time.Time  `db:"last_hour_reset" json:"last_hour_reset"`
    LastDayReset       time.Time  `db:"last_day_reset" json:"last_day_reset"`
    LastMessageSent    *time.Time `db:"last_message_sent" json:"last_message_sent,omitempty"`
    Active             bool       `db:"active" json:"active"`
    CreatedAt          time.Time  `db:"created_at" json:"created_at"`
    UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}
