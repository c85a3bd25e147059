package repository

import (
    "database/sql"
    "time"
)

// EventRepositoryInterface is the durable idempotency ledger for webhook
// deliveries. An in-process set would lose its memory on restart and is
// useless across instances.
type EventRepositoryInterface interface {
    MarkProcessed(eventID, locationID, eventType string) (bool, error)
    PurgeOlderThan(ttl time.Duration) (int64, error)
}

type EventRepository struct {
    DB *sql.DB
}

// MarkProcessed is a conditional insert: true means this delivery is the
// first one and should be processed, false means duplicate.
func (r *EventRepository) MarkProcessed(eventID, locationID, eventType string) (bool, error) {
    query := `
        INSERT INTO processed_events (event_id, location_id, event_type, received_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (event_id) DO NOTHING
    `
    res, err := r.DB.Exec(query, eventID, locationID, eventType)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// PurgeOlderThan trims the ledger; event sources do not redeliver
// forever, so bounded retention is enough.
func (r *EventRepository) PurgeOlderThan(ttl time.Duration) (int64, error) {
    res, err := r.DB.Exec(`DELETE FROM processed_events WHERE received_at < $1`, time.Now().Add(-ttl))
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

var _ EventRepositoryInterface = (*EventRepository)(nil)
