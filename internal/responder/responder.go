// internal/responder/responder.go
package responder

import (
    "context"
    "fmt"
    "log"
    "strings"
    "time"

    openai "github.com/sashabaranov/go-openai"

    "github.com/unclebandit/outreach-backend/internal/crm"
    "github.com/unclebandit/outreach-backend/internal/model"
)

// Message is one outbound touch. Subject is only set for email.
type Message struct {
    Subject string
    Body    string
}

// Generator produces the next outreach message for an entry.
type Generator interface {
    Generate(ctx context.Context, e *model.QueueEntry) (Message, error)
}

const generatePrompt = `You write the next short outreach message for a real-estate lead.
Be friendly and direct, one or two sentences, no links. For email, put the
subject on the first line prefixed "Subject: " and the body after a blank line.`

// DefaultFallbackTemplate is rendered with the entry's lead metadata
// when the model call fails.
const DefaultFallbackTemplate = "Hi {first_name}, just checking in about your property at {property_address}. Would you be open to an offer?"

// LLMGenerator asks the model for the next message and falls back to a
// canned template on any failure, so a flaky model never stalls a batch.
type LLMGenerator struct {
    client           *openai.Client
    model            string
    FallbackTemplate string
}

func NewLLMGenerator(apiKey, modelName string) *LLMGenerator {
    if modelName == "" {
        modelName = openai.GPT4oMini
    }
    return &LLMGenerator{
        client:           openai.NewClient(apiKey),
        model:            modelName,
        FallbackTemplate: DefaultFallbackTemplate,
    }
}

func (g *LLMGenerator) Generate(ctx context.Context, e *model.QueueEntry) (Message, error) {
    ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
    defer cancel()

    user := fmt.Sprintf(
        "Channel: %s. Lead: %s %s, property %s, %s %s %s. Lead type: %s. Touch number %d.",
        e.Channel, e.FirstName, e.LastName,
        e.PropertyAddress, e.PropertyCity, e.PropertyState, e.PropertyZip,
        e.LeadType, e.Attempts+1,
    )

    resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
        Model: g.model,
        Messages: []openai.ChatCompletionMessage{
            {Role: openai.ChatMessageRoleSystem, Content: generatePrompt},
            {Role: openai.ChatMessageRoleUser, Content: user},
        },
        Temperature: 0.7,
        MaxTokens:   200,
    })
    if err != nil || len(resp.Choices) == 0 {
        log.Println("⚠️ response generation failed, using fallback:", err)
        return g.fallback(e), nil
    }

    return parseMessage(e.Channel, resp.Choices[0].Message.Content), nil
}

func (g *LLMGenerator) fallback(e *model.QueueEntry) Message {
    tpl := g.FallbackTemplate
    if tpl == "" {
        tpl = DefaultFallbackTemplate
    }
    body := RenderTemplate(tpl, map[string]string{
        "first_name":       e.FirstName,
        "last_name":        e.LastName,
        "property_address": e.PropertyAddress,
        "property_city":    e.PropertyCity,
    })
    msg := Message{Body: body}
    if e.Channel == model.ChannelEmail {
        msg.Subject = "About your property"
        if e.PropertyAddress != "" {
            msg.Subject = "About " + e.PropertyAddress
        }
    }
    return msg
}

// parseMessage splits the "Subject: ..." convention for email; SMS takes
// the text as-is.
func parseMessage(channel model.Channel, text string) Message {
    text = strings.TrimSpace(text)
    if channel != model.ChannelEmail {
        return Message{Body: text}
    }
    if rest, ok := strings.CutPrefix(text, "Subject: "); ok {
        subject, body, found := strings.Cut(rest, "\n")
        if found {
            return Message{Subject: strings.TrimSpace(subject), Body: strings.TrimSpace(body)}
        }
    }
    return Message{Subject: "About your property", Body: text}
}

// RenderTemplate replaces {placeholder} tokens; empty values render as
// <unknown> rather than a hole in the message.
func RenderTemplate(template string, data map[string]string) string {
    result := template
    for k, v := range data {
        if v == "" {
            v = "<unknown>"
        }
        result = strings.ReplaceAll(result, "{"+k+"}", v)
    }
    return result
}

// Sender delivers a generated message through the CRM.
type Sender interface {
    Send(ctx context.Context, in *model.Integration, e *model.QueueEntry, msg Message) error
}

type CRMSender struct {
    CRM *crm.Client
}

func (s *CRMSender) Send(ctx context.Context, in *model.Integration, e *model.QueueEntry, msg Message) error {
    return s.CRM.SendMessage(ctx, in.AccessToken, e.LocationID, e.ContactID, e.Channel, msg.Subject, msg.Body)
}
