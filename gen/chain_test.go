package gen

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type stubGenerator struct {
	content string
	err     error
	calls   int
}

func (s *stubGenerator) Generate(ctx context.Context, req *Request) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Result{Content: s.content}, nil
}

func TestChainReturnsFirstSuccess(t *testing.T) {
	first := &stubGenerator{content: "from first"}
	second := &stubGenerator{content: "from second"}
	chain := NewChain(zerolog.Nop()).Add("first", first).Add("second", second)

	result, err := chain.Generate(context.Background(), &Request{Kind: KindSummary, Prompt: "hi"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Content != "from first" {
		t.Errorf("expected first provider's result, got %q", result.Content)
	}
	if second.calls != 0 {
		t.Errorf("second provider should not be called, got %d calls", second.calls)
	}
}

func TestChainFallsThroughOnFailure(t *testing.T) {
	first := &stubGenerator{err: errors.New("quota exceeded")}
	second := &stubGenerator{content: "from second"}
	chain := NewChain(zerolog.Nop()).Add("first", first).Add("second", second)

	result, err := chain.Generate(context.Background(), &Request{Kind: KindSummary, Prompt: "hi"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Content != "from second" {
		t.Errorf("expected fallback result, got %q", result.Content)
	}
	if first.calls != 1 {
		t.Errorf("expected first provider attempted once, got %d", first.calls)
	}
}

func TestChainAllProvidersFail(t *testing.T) {
	lastErr := errors.New("model unavailable")
	chain := NewChain(zerolog.Nop()).
		Add("first", &stubGenerator{err: errors.New("quota exceeded")}).
		Add("second", &stubGenerator{err: lastErr})

	_, err := chain.Generate(context.Background(), &Request{Kind: KindReply, Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error when all providers fail")
	}
	if !errors.Is(err, lastErr) {
		t.Errorf("expected last provider error to be wrapped, got %v", err)
	}
}

func TestChainEmpty(t *testing.T) {
	chain := NewChain(zerolog.Nop())
	if _, err := chain.Generate(context.Background(), &Request{Kind: KindSummary}); err == nil {
		t.Fatal("expected error from empty chain")
	}
	if chain.Len() != 0 {
		t.Errorf("expected empty chain length 0, got %d", chain.Len())
	}
}

func TestChainStopsOnRejectedRequest(t *testing.T) {
	rejection := &Error{Type: ErrorTypeInvalidRequest, Message: "prompt too long", Retryable: false}
	second := &stubGenerator{content: "from second"}
	chain := NewChain(zerolog.Nop()).
		Add("first", &stubGenerator{err: rejection}).
		Add("second", second)

	_, err := chain.Generate(context.Background(), &Request{Kind: KindSummary, Prompt: "hi"})
	if err == nil {
		t.Fatal("expected the rejection to surface")
	}
	if !errors.Is(err, rejection) {
		t.Errorf("expected the rejection error, got %v", err)
	}
	if second.calls != 0 {
		t.Errorf("a rejected request must not be retried on other providers, got %d calls", second.calls)
	}
}

func TestChainFallsThroughOnRateLimit(t *testing.T) {
	// Not retryable on the same provider, but another provider has its own
	// quota, so the chain still moves on.
	limited := &Error{Type: ErrorTypeRateLimit, Message: "slow down", Retryable: false}
	second := &stubGenerator{content: "from second"}
	chain := NewChain(zerolog.Nop()).
		Add("first", &stubGenerator{err: limited}).
		Add("second", second)

	result, err := chain.Generate(context.Background(), &Request{Kind: KindSummary, Prompt: "hi"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Content != "from second" {
		t.Errorf("expected fallback past the rate-limited provider, got %q", result.Content)
	}
}
