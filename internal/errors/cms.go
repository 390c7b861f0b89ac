package errors

import (
	stdErrors "errors"
	"fmt"
)

// CMSError represents a failed request against the CMS API (bad token, validation error, etc.)
type CMSError struct {
	Message    string
	StatusCode int
	APIMessage string // Error message from the CMS if available
}

func (e *CMSError) Error() string {
	if e.APIMessage != "" {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Message, e.StatusCode, e.APIMessage)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// NewCMSError creates a CMS error classified by status code
func NewCMSError(statusCode int, apiMessage string) *CMSError {
	var message string

	switch statusCode {
	case 401:
		message = "Invalid CMS token"
	case 403:
		message = "CMS token lacks permission - check the role settings"
	case 404:
		message = "CMS endpoint not found"
	case 400, 409:
		message = "CMS rejected the record"
	case 413:
		message = "CMS rejected the upload size"
	default:
		message = "CMS API error"
	}

	return &CMSError{
		Message:    message,
		StatusCode: statusCode,
		APIMessage: apiMessage,
	}
}

// IsCMSError checks if error is a CMSError
func IsCMSError(err error) bool {
	var cmsErr *CMSError
	return stdErrors.As(err, &cmsErr)
}

// IsAuthError reports whether err is a CMSError caused by credentials
func IsAuthError(err error) bool {
	var cmsErr *CMSError
	if !stdErrors.As(err, &cmsErr) {
		return false
	}
	return cmsErr.StatusCode == 401 || cmsErr.StatusCode == 403
}
