package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", ErrRateLimit, true},
		{"wrapped rate limit", fmt.Errorf("call failed: %w", ErrRateLimit), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"retryable wrapper", &RetryableError{Err: errors.New("503"), Retryable: true}, true},
		{"non-retryable wrapper", &RetryableError{Err: ErrMalformedResponse, Retryable: false}, false},
		{"unclassified error", errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestUserErrorFormatsAndUnwraps(t *testing.T) {
	err := NewUserError("no API key configured", ErrMissingConfig)
	if !errors.Is(err, ErrMissingConfig) {
		t.Error("user error should unwrap to its cause")
	}
	var userErr *UserError
	if !errors.As(err, &userErr) {
		t.Fatal("errors.As failed to find UserError")
	}
	if userErr.UserMessage != "no API key configured" {
		t.Errorf("UserMessage = %q", userErr.UserMessage)
	}
	if got := err.Error(); got != "no API key configured: missing configuration" {
		t.Errorf("Error() = %q", got)
	}
}
