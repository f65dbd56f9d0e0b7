package client

import (
	"errors"
	"fmt"
)

// HTTPError is a non-2xx response from the catalog API.
type HTTPError struct {
	StatusCode int
	Code       string            // error code from the envelope, e.g. MOV001
	Message    string
	Fields     map[string]string // rejected form fields, if any
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err wraps an HTTPError with the given status.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// IsCode reports whether err wraps an HTTPError carrying the envelope code.
func IsCode(err error, code string) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code == code
	}
	return false
}
