package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
)

// UpstreamError is a non-2xx response from the storefront
type UpstreamError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("storefront returned status %d for %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("storefront returned status %d for %s: %s", e.StatusCode, e.URL, body)
}

// NewUpstreamError creates an UpstreamError, truncating the body to keep log lines readable
func NewUpstreamError(url string, statusCode int, body string) *UpstreamError {
	if len(body) > 512 {
		body = body[:512]
	}
	return &UpstreamError{URL: url, StatusCode: statusCode, Body: body}
}

// IsUpstreamError reports whether err is an UpstreamError
func IsUpstreamError(err error) bool {
	var upErr *UpstreamError
	return stdErrors.As(err, &upErr)
}

// IsNotFound reports whether err is an UpstreamError with status 404
func IsNotFound(err error) bool {
	var upErr *UpstreamError
	return stdErrors.As(err, &upErr) && upErr.StatusCode == 404
}
