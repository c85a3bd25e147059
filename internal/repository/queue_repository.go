package repository

import (
    "database/sql"
    "time"

    "github.com/unclebandit/outreach-backend/internal/model"
)

type QueueRepositoryInterface interface {
    // Enqueue / lookup
    UpsertIfAbsent(e *model.QueueEntry) (int, bool, error)
    GetByIdentity(locationID, contactID string, channel model.Channel) (*model.QueueEntry, error)
    GetByContactID(contactID string) ([]*model.QueueEntry, error)
    ListPendingByChannel(locationID string, channel model.Channel, maxAttempts, limit int) ([]*model.QueueEntry, error)

    // Send outcomes
    ConfirmSend(id, maxAttempts int) (bool, error)
    MarkSendFailed(id int, reason string) error

    // Lifecycle
    UpdateLifecycle(id int, status model.QueueStatus) error
    MarkOptedOut(locationID, contactID string) error
    MarkWrongInfo(locationID, contactID string) error
    MarkBounced(locationID, contactID string) error
    RecordInboundReply(locationID, contactID string, reactivateFromDND bool) error

    // Tracking / manual mode
    RecordEngagement(id int, kind string) error
    SetAIEnabled(locationID, contactID string, enabled bool) error
}

type QueueRepository struct {
    DB *sql.DB
}

const entryColumns = `id, user_id, location_id, contact_id, contact_method, channel,
        queue_status, send_status, attempts, last_sent, last_contact_date,
        last_lead_reply_date, last_error, first_name, last_name,
        property_address, property_city, property_state, property_zip,
        lead_type, lead_source_id, ai_enabled, delivered_count, open_count,
        created_at, updated_at`

func scanEntry(row interface{ Scan(...any) error }) (*model.QueueEntry, error) {
    var e model.QueueEntry
    var lastErr sql.NullString
    err := row.Scan(
        &e.ID, &e.UserID, &e.LocationID, &e.ContactID, &e.ContactMethod, &e.Channel,
        &e.QueueStatus, &e.SendStatus, &e.Attempts, &e.LastSent, &e.LastContactDate,
        &e.LastLeadReplyDate, &lastErr, &e.FirstName, &e.LastName,
        &e.PropertyAddress, &e.PropertyCity, &e.PropertyState, &e.PropertyZip,
        &e.LeadType, &e.LeadSourceID, &e.AIEnabled, &e.DeliveredCount, &e.OpenCount,
        &e.CreatedAt, &e.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    e.LastError = lastErr.String
    return &e, nil
}

// UpsertIfAbsent inserts a new entry only if no row exists for
// (location_id, contact_id, channel). An existing row is never
// overwritten: in-flight attempt counters and history are preserved, so
// re-running a bulk import or a duplicate sync trigger is harmless.
// Returns the row id and whether the row already existed.
func (r *QueueRepository) UpsertIfAbsent(e *model.QueueEntry) (int, bool, error) {
    if e.QueueStatus == "" {
        e.QueueStatus = model.QueueStatusOutreach
    }
    if e.SendStatus == "" {
        e.SendStatus = model.SendStatusPending
    }
    e.CreatedAt = time.Now()

    query := `
        INSERT INTO queue_entries
            (user_id, location_id, contact_id, contact_method, channel,
             queue_status, send_status, attempts, first_name, last_name,
             property_address, property_city, property_state, property_zip,
             lead_type, lead_source_id, ai_enabled, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)
        ON CONFLICT (location_id, contact_id, channel) DO NOTHING
        RETURNING id
    `
    err := r.DB.QueryRow(query,
        e.UserID, e.LocationID, e.ContactID, e.ContactMethod, e.Channel,
        e.QueueStatus, e.SendStatus, e.FirstName, e.LastName,
        e.PropertyAddress, e.PropertyCity, e.PropertyState, e.PropertyZip,
        e.LeadType, e.LeadSourceID, e.AIEnabled, e.CreatedAt,
    ).Scan(&e.ID)
    if err == nil {
        return e.ID, false, nil
    }
    if err != sql.ErrNoRows {
        return 0, false, err
    }

    // Conflict path: fetch the existing row's id.
    existing, err := r.GetByIdentity(e.LocationID, e.ContactID, e.Channel)
    if err != nil {
        return 0, false, err
    }
    if existing == nil {
        return 0, false, sql.ErrNoRows
    }
    return existing.ID, true, nil
}

func (r *QueueRepository) GetByIdentity(locationID, contactID string, channel model.Channel) (*model.QueueEntry, error) {
    query := `SELECT ` + entryColumns + ` FROM queue_entries
              WHERE location_id=$1 AND contact_id=$2 AND channel=$3`
    e, err := scanEntry(r.DB.QueryRow(query, locationID, contactID, channel))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, nil
        }
        return nil, err
    }
    return e, nil
}

// GetByContactID is the identity-unknown lookup used by CRM-side
// disposition webhooks that carry no tenant key. Backed by the
// contact_id index, not a table scan.
func (r *QueueRepository) GetByContactID(contactID string) ([]*model.QueueEntry, error) {
    query := `SELECT ` + entryColumns + ` FROM queue_entries WHERE contact_id=$1`
    rows, err := r.DB.Query(query, contactID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    entries := []*model.QueueEntry{}
    for rows.Next() {
        e, err := scanEntry(rows)
        if err != nil {
            return nil, err
        }
        entries = append(entries, e)
    }
    return entries, rows.Err()
}

// ListPendingByChannel returns dispatch candidates. Only the cheap,
// indexable gates live in SQL; the cadence rules run in the caller
// against the freshly read rows.
func (r *QueueRepository) ListPendingByChannel(locationID string, channel model.Channel, maxAttempts, limit int) ([]*model.QueueEntry, error) {
    query := `SELECT ` + entryColumns + ` FROM queue_entries
              WHERE location_id=$1 AND channel=$2
                AND queue_status='OUTREACH'
                AND send_status IN ('PENDING', 'FAILED')
                AND attempts < $3
                AND ai_enabled
              ORDER BY last_sent NULLS FIRST
              LIMIT $4`
    rows, err := r.DB.Query(query, locationID, channel, maxAttempts, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    entries := []*model.QueueEntry{}
    for rows.Next() {
        e, err := scanEntry(rows)
        if err != nil {
            return nil, err
        }
        entries = append(entries, e)
    }
    return entries, rows.Err()
}

// ConfirmSend records a confirmed outbound touch in one conditional
// write: attempts+1 guarded by the ceiling, send_status coerced back to
// PENDING so the entry stays eligible for the next touch, timestamps
// stamped. Two overlapping dispatcher runs cannot both count the same
// touch; the loser's update matches zero rows.
func (r *QueueRepository) ConfirmSend(id, maxAttempts int) (bool, error) {
    var locationID, contactID string
    query := `
        UPDATE queue_entries
        SET attempts = attempts + 1,
            send_status = 'PENDING',
            last_sent = NOW(),
            last_contact_date = NOW(),
            last_error = '',
            updated_at = NOW()
        WHERE id=$1 AND attempts < $2
        RETURNING location_id, contact_id
    `
    err := r.DB.QueryRow(query, id, maxAttempts).Scan(&locationID, &contactID)
    if err != nil {
        if err == sql.ErrNoRows {
            return false, nil
        }
        return false, err
    }

    // last_contact_date is the cross-channel "touched today" authority,
    // so the sibling channel row gets stamped too.
    _, err = r.DB.Exec(`
        UPDATE queue_entries SET last_contact_date=NOW(), updated_at=NOW()
        WHERE location_id=$1 AND contact_id=$2 AND id<>$3`,
        locationID, contactID, id)
    return true, err
}

// MarkSendFailed records a platform failure without touching the attempt
// counter: the ceiling reflects delivered touches, not provider errors.
func (r *QueueRepository) MarkSendFailed(id int, reason string) error {
    query := `UPDATE queue_entries
              SET send_status='FAILED', last_error=$2, updated_at=NOW()
              WHERE id=$1`
    _, err := r.DB.Exec(query, id, reason)
    return err
}

// UpdateLifecycle moves queue_status. Identical double-applies are
// no-ops, and a DND row cannot be moved out through this generic path;
// DND is only entered or left by the reconciler's explicit handlers.
func (r *QueueRepository) UpdateLifecycle(id int, status model.QueueStatus) error {
    query := `UPDATE queue_entries
              SET queue_status=$2, updated_at=NOW()
              WHERE id=$1 AND queue_status <> $2 AND queue_status <> 'DND'`
    _, err := r.DB.Exec(query, id, status)
    return err
}

// MarkOptedOut applies the stop handling to every channel row of the
// contact in one statement: lifecycle DND and send state OPTED_OUT.
func (r *QueueRepository) MarkOptedOut(locationID, contactID string) error {
    query := `UPDATE queue_entries
              SET queue_status='DND', send_status='OPTED_OUT', updated_at=NOW()
              WHERE location_id=$1 AND contact_id=$2`
    _, err := r.DB.Exec(query, locationID, contactID)
    return err
}

func (r *QueueRepository) MarkWrongInfo(locationID, contactID string) error {
    query := `UPDATE queue_entries
              SET queue_status='WRONG_INFO', updated_at=NOW()
              WHERE location_id=$1 AND contact_id=$2 AND queue_status <> 'DND'`
    _, err := r.DB.Exec(query, locationID, contactID)
    return err
}

// MarkBounced terminates the email channel's send state. Lifecycle is
// untouched; a bounce is a delivery fact, not a reply.
func (r *QueueRepository) MarkBounced(locationID, contactID string) error {
    query := `UPDATE queue_entries
              SET send_status='BOUNCED', updated_at=NOW()
              WHERE location_id=$1 AND contact_id=$2 AND channel='EMAIL'`
    _, err := r.DB.Exec(query, locationID, contactID)
    return err
}

// RecordInboundReply stamps last_lead_reply_date on every channel row
// and moves the contact to CONVERSATION. A DND contact stays DND (and
// keeps OPTED_OUT) unless reactivateFromDND is set.
func (r *QueueRepository) RecordInboundReply(locationID, contactID string, reactivateFromDND bool) error {
    query := `
        UPDATE queue_entries
        SET last_lead_reply_date = NOW(),
            queue_status = CASE
                WHEN queue_status='DND' AND NOT $3 THEN queue_status
                ELSE 'CONVERSATION'
            END,
            send_status = CASE
                WHEN queue_status='DND' AND NOT $3 THEN send_status
                ELSE 'REPLIED'
            END,
            updated_at = NOW()
        WHERE location_id=$1 AND contact_id=$2
    `
    _, err := r.DB.Exec(query, locationID, contactID, reactivateFromDND)
    return err
}

func (r *QueueRepository) RecordEngagement(id int, kind string) error {
    var column string
    switch kind {
    case "delivered":
        column = "delivered_count"
    case "opened", "clicked":
        column = "open_count"
    default:
        return nil
    }
    query := `UPDATE queue_entries SET ` + column + `=` + column + `+1, updated_at=NOW() WHERE id=$1`
    _, err := r.DB.Exec(query, id)
    return err
}

func (r *QueueRepository) SetAIEnabled(locationID, contactID string, enabled bool) error {
    query := `UPDATE queue_entries SET ai_enabled=$3, updated_at=NOW()
              WHERE location_id=$1 AND contact_id=$2`
    _, err := r.DB.Exec(query, locationID, contactID, enabled)
    return err
}

var _ QueueRepositoryInterface = (*QueueRepository)(nil)
