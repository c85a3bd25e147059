// internal/crm/client.go
package crm

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "time"

    "github.com/unclebandit/outreach-backend/internal/model"
)

// Contact is the slice of the CRM contact record the engine consumes.
type Contact struct {
    ID           string            `json:"id"`
    LocationID   string            `json:"locationId"`
    FirstName    string            `json:"firstName"`
    LastName     string            `json:"lastName"`
    Phone        string            `json:"phone"`
    Email        string            `json:"email"`
    Tags         []string          `json:"tags"`
    CustomFields map[string]string `json:"customFields"`
}

// Client talks to the CRM REST API. Every call is bounded by the HTTP
// client timeout; a timeout is a retryable failure, never a success.
type Client struct {
    BaseURL string
    HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
    return &Client{
        BaseURL: baseURL,
        HTTP:    &http.Client{Timeout: 15 * time.Second},
    }
}

func (c *Client) do(ctx context.Context, token, method, path string, body any, out any) error {
    var buf io.Reader
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil {
            return err
        }
        buf = bytes.NewReader(b)
    }

    req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, buf)
    if err != nil {
        return err
    }
    req.Header.Set("Authorization", "Bearer "+token)
    req.Header.Set("Content-Type", "application/json")

    resp, err := c.HTTP.Do(req)
    if err != nil {
        return fmt.Errorf("crm %s %s: %w", method, path, err)
    }
    defer resp.Body.Close()

    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
        return fmt.Errorf("crm %s %s: status %d: %s", method, path, resp.StatusCode, raw)
    }

    if out != nil {
        return json.NewDecoder(resp.Body).Decode(out)
    }
    return nil
}

func (c *Client) GetContact(ctx context.Context, token, contactID string) (*Contact, error) {
    var res struct {
        Contact Contact `json:"contact"`
    }
    if err := c.do(ctx, token, http.MethodGet, "/contacts/"+contactID, nil, &res); err != nil {
        return nil, err
    }
    return &res.Contact, nil
}

// SendMessage delivers one outbound touch. Subject is ignored for SMS.
func (c *Client) SendMessage(ctx context.Context, token, locationID, contactID string, channel model.Channel, subject, body string) error {
    payload := map[string]string{
        "locationId": locationID,
        "contactId":  contactID,
        "type":       string(channel),
        "message":    body,
    }
    if channel == model.ChannelEmail {
        payload["subject"] = subject
    }
    return c.do(ctx, token, http.MethodPost, "/conversations/messages", payload, nil)
}

func (c *Client) UpdateContactTags(ctx context.Context, token, contactID string, add, remove []string) error {
    payload := map[string][]string{}
    if len(add) > 0 {
        payload["addTags"] = add
    }
    if len(remove) > 0 {
        payload["removeTags"] = remove
    }
    return c.do(ctx, token, http.MethodPut, "/contacts/"+contactID+"/tags", payload, nil)
}

// SearchContactsByCustomField finds contacts whose custom field carries
// a value, used to backfill queue entries from CRM-side tagging.
func (c *Client) SearchContactsByCustomField(ctx context.Context, token, locationID, field, value string) ([]Contact, error) {
    q := url.Values{}
    q.Set("locationId", locationID)
    q.Set("field", field)
    q.Set("value", value)

    var res struct {
        Contacts []Contact `json:"contacts"`
    }
    if err := c.do(ctx, token, http.MethodGet, "/contacts/search?"+q.Encode(), nil, &res); err != nil {
        return nil, err
    }
    return res.Contacts, nil
}
