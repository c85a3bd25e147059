// internal/sentiment/sentiment.go
package sentiment

import (
    "context"
    "fmt"
    "log"
    "strings"
    "time"

    openai "github.com/sashabaranov/go-openai"

    "github.com/unclebandit/outreach-backend/internal/lifecycle"
)

// Classifier turns free inbound text into an intent.
type Classifier interface {
    Classify(ctx context.Context, text string) (lifecycle.Intent, error)
}

var stopPhrases = []string{
    "stop",
    "unsubscribe",
    "remove me",
    "don't contact",
    "do not contact",
    "don't text",
    "do not text",
    "leave me alone",
    "not interested",
}

var wrongInfoPhrases = []string{
    "wrong number",
    "wrong person",
    "not me",
    "don't own",
    "do not own",
    "never owned",
}

// KeywordClassifier is the fast local path for unambiguous phrasing. It
// never calls out.
type KeywordClassifier struct{}

// Match reports the intent and whether any phrase matched at all, so a
// chain can decide whether to escalate to the remote classifier.
func (KeywordClassifier) Match(text string) (lifecycle.Intent, bool) {
    lower := strings.ToLower(text)
    for _, p := range wrongInfoPhrases {
        if strings.Contains(lower, p) {
            return lifecycle.IntentWrongInfo, true
        }
    }
    for _, p := range stopPhrases {
        if strings.Contains(lower, p) {
            return lifecycle.IntentStop, true
        }
    }
    return lifecycle.IntentContinue, false
}

func (k KeywordClassifier) Classify(_ context.Context, text string) (lifecycle.Intent, error) {
    intent, _ := k.Match(text)
    return intent, nil
}

const classifyPrompt = `You classify a single inbound SMS or email reply from a property owner
contacted about selling their home. Answer with exactly one label:
ENGAGING, NEUTRAL, DISENGAGING, or WRONG_CONTACT.`

// LLMClassifier asks the model for a one-word sentiment label.
type LLMClassifier struct {
    client *openai.Client
    model  string
}

func NewLLMClassifier(apiKey, model string) *LLMClassifier {
    if model == "" {
        model = openai.GPT4oMini
    }
    return &LLMClassifier{
        client: openai.NewClient(apiKey),
        model:  model,
    }
}

func (c *LLMClassifier) Classify(ctx context.Context, text string) (lifecycle.Intent, error) {
    ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
    defer cancel()

    resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
        Model: c.model,
        Messages: []openai.ChatCompletionMessage{
            {Role: openai.ChatMessageRoleSystem, Content: classifyPrompt},
            {Role: openai.ChatMessageRoleUser, Content: text},
        },
        Temperature: 0.1, // deterministic label, not prose
        MaxTokens:   10,
    })
    if err != nil {
        return lifecycle.IntentContinue, fmt.Errorf("sentiment completion: %w", err)
    }
    if len(resp.Choices) == 0 {
        return lifecycle.IntentContinue, fmt.Errorf("no response choices")
    }

    label := strings.ToUpper(strings.TrimSpace(resp.Choices[0].Message.Content))
    switch {
    case strings.Contains(label, "DISENGAGING"):
        return lifecycle.IntentStop, nil
    case strings.Contains(label, "WRONG_CONTACT"):
        return lifecycle.IntentWrongInfo, nil
    default:
        return lifecycle.IntentContinue, nil
    }
}

// ChainClassifier short-circuits on the keyword path and only pays for
// the remote call on ambiguous text. A remote failure degrades to
// CONTINUE: the reply still moves the contact to CONVERSATION, which is
// the safe direction.
type ChainClassifier struct {
    Keywords KeywordClassifier
    Remote   Classifier
}

func (c *ChainClassifier) Classify(ctx context.Context, text string) (lifecycle.Intent, error) {
    if intent, matched := c.Keywords.Match(text); matched {
        return intent, nil
    }
    if c.Remote == nil {
        return lifecycle.IntentContinue, nil
    }
    intent, err := c.Remote.Classify(ctx, text)
    if err != nil {
        log.Println("⚠️ remote sentiment classification failed:", err)
        return lifecycle.IntentContinue, nil
    }
    return intent, nil
}
