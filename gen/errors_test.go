package gen

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorMessageIncludesProviderError(t *testing.T) {
	base := errors.New("connection refused")
	err := &Error{Type: ErrorTypeNetwork, Message: "request failed", ProviderErr: base}

	if got := err.Error(); got != "request failed: connection refused" {
		t.Errorf("unexpected message: %q", got)
	}
	if !errors.Is(err, base) {
		t.Error("expected Unwrap to expose the provider error")
	}
}

func TestIsRateLimitError(t *testing.T) {
	after := 30 * time.Second
	rateErr := &Error{Type: ErrorTypeRateLimit, Message: "slow down", Retryable: true, RetryAfter: &after}

	if !IsRateLimitError(rateErr) {
		t.Error("expected rate limit error to be detected")
	}
	if !IsRateLimitError(fmt.Errorf("wrapped: %w", rateErr)) {
		t.Error("expected wrapped rate limit error to be detected")
	}
	if IsRateLimitError(errors.New("plain")) {
		t.Error("plain errors are not rate limit errors")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&Error{Type: ErrorTypeProvider, Retryable: true}) {
		t.Error("expected retryable error to report true")
	}
	if IsRetryable(&Error{Type: ErrorTypeInvalidRequest, Retryable: false}) {
		t.Error("invalid request errors are not retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}
