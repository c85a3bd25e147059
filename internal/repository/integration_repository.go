package repository

import (
    "database/sql"

    "github.com/unclebandit/outreach-backend/internal/model"
)

type IntegrationRepositoryInterface interface {
    GetByLocationID(locationID string) (*model.Integration, error)
    ListActive() ([]*model.Integration, error)
    IncrementSendCounters(integrationID, hourlyMax, dailyMax int) (bool, error)
}

type IntegrationRepository struct {
    DB *sql.DB
}

const integrationColumns = `id, user_id, location_id, access_token,
        hourly_message_count, daily_message_count,
        last_hour_reset, last_day_reset, last_message_sent,
        active, created_at, updated_at`

func scanIntegration(row interface{ Scan(...any) error }) (*model.Integration, error) {
    var in model.Integration
    err := row.Scan(
        &in.ID, &in.UserID, &in.LocationID, &in.AccessToken,
        &in.HourlyMessageCount, &in.DailyMessageCount,
        &in.LastHourReset, &in.LastDayReset, &in.LastMessageSent,
        &in.Active, &in.CreatedAt, &in.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &in, nil
}

func (r *IntegrationRepository) GetByLocationID(locationID string) (*model.Integration, error) {
    query := `SELECT ` + integrationColumns + ` FROM integrations WHERE location_id=$1`
    in, err := scanIntegration(r.DB.QueryRow(query, locationID))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, nil
        }
        return nil, err
    }
    return in, nil
}

func (r *IntegrationRepository) ListActive() ([]*model.Integration, error) {
    query := `SELECT ` + integrationColumns + ` FROM integrations WHERE active ORDER BY id`
    rows, err := r.DB.Query(query)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    integrations := []*model.Integration{}
    for rows.Next() {
        in, err := scanIntegration(rows)
        if err != nil {
            return nil, err
        }
        integrations = append(integrations, in)
    }
    return integrations, rows.Err()
}

// IncrementSendCounters performs the window reset and the ceiling check
// inside a single guarded UPDATE. Two concurrent senders for the same
// tenant cannot both pass: whichever commits second sees the incremented
// count and, at the ceiling, matches zero rows. Windows are sliding —
// relative to the stored reset timestamps, never wall-clock aligned.
func (r *IntegrationRepository) IncrementSendCounters(integrationID, hourlyMax, dailyMax int) (bool, error) {
    query := `
        UPDATE integrations SET
            hourly_message_count = CASE
                WHEN NOW() - last_hour_reset > INTERVAL '1 hour' THEN 1
                ELSE hourly_message_count + 1 END,
            last_hour_reset = CASE
                WHEN NOW() - last_hour_reset > INTERVAL '1 hour' THEN NOW()
                ELSE last_hour_reset END,
            daily_message_count = CASE
                WHEN NOW() - last_day_reset > INTERVAL '24 hours' THEN 1
                ELSE daily_message_count + 1 END,
            last_day_reset = CASE
                WHEN NOW() - last_day_reset > INTERVAL '24 hours' THEN NOW()
                ELSE last_day_reset END,
            last_message_sent = NOW(),
            updated_at = NOW()
        WHERE id = $1
          AND (NOW() - last_hour_reset > INTERVAL '1 hour' OR hourly_message_count < $2)
          AND (NOW() - last_day_reset > INTERVAL '24 hours' OR daily_message_count < $3)
    `
    res, err := r.DB.Exec(query, integrationID, hourlyMax, dailyMax)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

var _ IntegrationRepositoryInterface = (*IntegrationRepository)(nil)
