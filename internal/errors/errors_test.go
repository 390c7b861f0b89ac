package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestRateLimitError(t *testing.T) {
	err := NewRateLimitError("slow down")

	if err.Error() != "slow down" {
		t.Fatalf("Error message = %q, want %q", err.Error(), "slow down")
	}

	if !IsRateLimitError(err) {
		t.Fatalf("IsRateLimitError returned false for RateLimitError")
	}

	wrapped := fmt.Errorf("fetch catalog: %w", err)
	if !IsRateLimitError(wrapped) {
		t.Fatalf("IsRateLimitError returned false for wrapped RateLimitError")
	}
}

func TestRateLimitErrorWithRetry_VariousDurations(t *testing.T) {
	tests := []struct {
		name            string
		duration        time.Duration
		expectedMessage string
	}{
		{
			name:            "zero",
			duration:        0,
			expectedMessage: "rate limited",
		},
		{
			name:            "30 seconds",
			duration:        30 * time.Second,
			expectedMessage: "rate limited (retry after 30s)",
		},
		{
			name:            "2 minutes",
			duration:        2 * time.Minute,
			expectedMessage: "rate limited (retry after 2m0s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRateLimitErrorWithRetry("rate limited", tt.duration)
			if err.Error() != tt.expectedMessage {
				t.Fatalf("Error message = %q, want %q", err.Error(), tt.expectedMessage)
			}
			if err.RetryAfter != tt.duration {
				t.Fatalf("RetryAfter = %v, want %v", err.RetryAfter, tt.duration)
			}
		})
	}
}

func TestUpstreamError(t *testing.T) {
	err := NewUpstreamError("https://example.test/game/foo", 404, "  not here \n")

	expected := "storefront returned status 404 for https://example.test/game/foo: not here"
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}
	if !IsUpstreamError(err) || !IsNotFound(err) {
		t.Fatalf("expected upstream not-found error")
	}

	other := NewUpstreamError("https://example.test", 500, "")
	if IsNotFound(other) {
		t.Fatalf("IsNotFound returned true for status 500")
	}
	if other.Error() != "storefront returned status 500 for https://example.test" {
		t.Fatalf("unexpected message %q", other.Error())
	}
}

func TestUpstreamError_TruncatesBody(t *testing.T) {
	err := NewUpstreamError("u", 502, strings.Repeat("x", 2000))
	if len(err.Body) != 512 {
		t.Fatalf("Body length = %d, want 512", len(err.Body))
	}
}

func TestCMSError_Classification(t *testing.T) {
	tests := []struct {
		status  int
		message string
		auth    bool
	}{
		{401, "Invalid CMS token", true},
		{403, "CMS token lacks permission - check the role settings", true},
		{404, "CMS endpoint not found", false},
		{400, "CMS rejected the record", false},
		{409, "CMS rejected the record", false},
		{413, "CMS rejected the upload size", false},
		{500, "CMS API error", false},
	}

	for _, tt := range tests {
		err := NewCMSError(tt.status, "")
		if err.Message != tt.message {
			t.Fatalf("status %d: Message = %q, want %q", tt.status, err.Message, tt.message)
		}
		if IsAuthError(err) != tt.auth {
			t.Fatalf("status %d: IsAuthError = %v, want %v", tt.status, IsAuthError(err), tt.auth)
		}
	}
}

func TestCMSError_Wrapped(t *testing.T) {
	err := NewCMSError(400, "name must be unique")
	if err.Error() != "CMS rejected the record (HTTP 400): name must be unique" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	wrapped := stdErrors.Join(err, stdErrors.New("additional context"))
	if !IsCMSError(wrapped) {
		t.Fatalf("IsCMSError returned false for wrapped CMSError")
	}
	if IsCMSError(stdErrors.New("plain")) {
		t.Fatalf("IsCMSError returned true for plain error")
	}
}
