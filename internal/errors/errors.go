// internal/errors/errors.go
package appErrors

import (
    "errors"
    "fmt"
)

// Gate outcomes and auth failures are sentinel values so callers can
// branch with errors.Is.
var (
    ErrRateLimited      = errors.New("rate limit exceeded")
    ErrInvalidSignature = errors.New("invalid webhook signature")
    ErrDuplicateEvent   = errors.New("event already processed")
)

// ErrEntryNotFound is a sentinel error
type ErrEntryNotFound struct {
    ContactID string
    Channel   string
}

func (e *ErrEntryNotFound) Error() string {
    return fmt.Sprintf("queue entry for contact %s (%s) not found", e.ContactID, e.Channel)
}

// Helper constructor
func NewEntryNotFound(contactID, channel string) error {
    return &ErrEntryNotFound{ContactID: contactID, Channel: channel}
}

type ErrIntegrationNotFound struct {
    LocationID string
}

func (e *ErrIntegrationNotFound) Error() string {
    return fmt.Sprintf("no integration found for location %s", e.LocationID)
}

func NewIntegrationNotFound(locationID string) error {
    return &ErrIntegrationNotFound{LocationID: locationID}
}
