package sentiment

import (
    "context"
    "errors"
    "testing"

    "github.com/unclebandit/outreach-backend/internal/lifecycle"
)

func TestKeywordClassifierStopPhrases(t *testing.T) {
    k := KeywordClassifier{}

    cases := []struct {
        text string
        want lifecycle.Intent
    }{
        {"STOP", lifecycle.IntentStop},
        {"please stop texting me", lifecycle.IntentStop},
        {"Unsubscribe", lifecycle.IntentStop},
        {"remove me from your list", lifecycle.IntentStop},
        {"I'm not interested, thanks", lifecycle.IntentStop},
        {"you have the wrong number", lifecycle.IntentWrongInfo},
        {"that's not me", lifecycle.IntentWrongInfo},
        {"I don't own that property", lifecycle.IntentWrongInfo},
    }

    for _, tc := range cases {
        got, matched := k.Match(tc.text)
        if !matched {
            t.Errorf("%q: expected a keyword match", tc.text)
            continue
        }
        if got != tc.want {
            t.Errorf("%q: expected %s, got %s", tc.text, tc.want, got)
        }
    }
}

func TestKeywordClassifierNoMatch(t *testing.T) {
    k := KeywordClassifier{}
    if _, matched := k.Match("yes I'd love to hear your offer"); matched {
        t.Error("engaged reply should not match the keyword path")
    }
}

type stubRemote struct {
    intent lifecycle.Intent
    err    error
    calls  int
}

func (s *stubRemote) Classify(_ context.Context, _ string) (lifecycle.Intent, error) {
    s.calls++
    return s.intent, s.err
}

func TestChainShortCircuitsOnKeywords(t *testing.T) {
    remote := &stubRemote{intent: lifecycle.IntentContinue}
    chain := &ChainClassifier{Remote: remote}

    intent, err := chain.Classify(context.Background(), "stop contacting me")
    if err != nil {
        t.Fatal(err)
    }
    if intent != lifecycle.IntentStop {
        t.Errorf("expected STOP, got %s", intent)
    }
    if remote.calls != 0 {
        t.Errorf("remote classifier should not be called for unambiguous opt-out, got %d calls", remote.calls)
    }
}

func TestChainFallsThroughToRemote(t *testing.T) {
    remote := &stubRemote{intent: lifecycle.IntentStop}
    chain := &ChainClassifier{Remote: remote}

    intent, err := chain.Classify(context.Background(), "hmm let me think about it")
    if err != nil {
        t.Fatal(err)
    }
    if remote.calls != 1 {
        t.Fatalf("expected 1 remote call, got %d", remote.calls)
    }
    if intent != lifecycle.IntentStop {
        t.Errorf("expected remote intent to win, got %s", intent)
    }
}

func TestChainDegradesOnRemoteFailure(t *testing.T) {
    remote := &stubRemote{err: errors.New("upstream 500")}
    chain := &ChainClassifier{Remote: remote}

    intent, err := chain.Classify(context.Background(), "maybe later")
    if err != nil {
        t.Fatalf("remote failure should not propagate, got %v", err)
    }
    if intent != lifecycle.IntentContinue {
        t.Errorf("expected CONTINUE on remote failure, got %s", intent)
    }
}
