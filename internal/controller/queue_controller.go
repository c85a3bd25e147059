// internal/controller/queue_controller.go
package controller

import (
    "encoding/json"
    "errors"
    "net/http"
    "strconv"

    "github.com/go-chi/chi/v5"

    appErrors "github.com/unclebandit/outreach-backend/internal/errors"
    "github.com/unclebandit/outreach-backend/internal/model"
    "github.com/unclebandit/outreach-backend/internal/service"
)

type QueueController struct {
    QueueService *service.QueueService
}

// AddToQueue is the idempotent enqueue endpoint used by sync and import
// flows.
func (c *QueueController) AddToQueue(w http.ResponseWriter, r *http.Request) {
    var entry model.QueueEntry
    if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    id, existed, err := c.QueueService.AddToQueue(&entry)
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "id":       id,
        "identity": entry.IdentityKey(),
        "existed":  existed,
    })
}

// GetPending returns the cadence-filtered dispatch candidates for one
// tenant and channel.
func (c *QueueController) GetPending(w http.ResponseWriter, r *http.Request) {
    locationID := r.URL.Query().Get("location_id")
    if locationID == "" {
        http.Error(w, "location_id is required", http.StatusBadRequest)
        return
    }
    channel := model.Channel(r.URL.Query().Get("channel"))
    if channel != model.ChannelSMS && channel != model.ChannelEmail {
        http.Error(w, "channel must be SMS or EMAIL", http.StatusBadRequest)
        return
    }
    limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

    entries, err := c.QueueService.PendingContacts(locationID, channel, limit)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "data":  entries,
        "count": len(entries),
    })
}

func (c *QueueController) UpdateSendState(w http.ResponseWriter, r *http.Request) {
    id, err := strconv.Atoi(chi.URLParam(r, "id"))
    if err != nil {
        http.Error(w, "invalid entry id", http.StatusBadRequest)
        return
    }

    var body struct {
        Status model.SendStatus `json:"status"`
        Reason string           `json:"reason"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    if err := c.QueueService.UpdateSendState(id, body.Status, body.Reason); err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

func (c *QueueController) UpdateLifecycle(w http.ResponseWriter, r *http.Request) {
    id, err := strconv.Atoi(chi.URLParam(r, "id"))
    if err != nil {
        http.Error(w, "invalid entry id", http.StatusBadRequest)
        return
    }

    var body struct {
        Status model.QueueStatus `json:"status"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    if err := c.QueueService.UpdateLifecycle(id, body.Status); err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

// ManualMode toggles the suppression tag the dispatcher honors before
// generating any response for the contact.
func (c *QueueController) ManualMode(w http.ResponseWriter, r *http.Request) {
    contactID := chi.URLParam(r, "contactId")

    var body struct {
        LocationID string `json:"location_id"`
        Manual     bool   `json:"manual"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }
    if body.LocationID == "" {
        http.Error(w, "location_id is required", http.StatusBadRequest)
        return
    }

    err := c.QueueService.SetManualMode(r.Context(), body.LocationID, contactID, body.Manual)
    if err != nil {
        var notFound *appErrors.ErrIntegrationNotFound
        if errors.As(err, &notFound) {
            http.Error(w, err.Error(), http.StatusNotFound)
            return
        }
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}
