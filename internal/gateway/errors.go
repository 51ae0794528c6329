package gateway

import (
	"fmt"
	"net/http"
	"strings"
)

// ValidationError reports form fields that are missing or invalid.
// It is detected client-side and never sent to the backend.
type ValidationError struct {
	Missing []string
	Message string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case len(e.Missing) > 0:
		return MissingFieldsPrefix + strings.Join(e.Missing, ", ")
	default:
		return "validation failed"
	}
}

// MissingFieldsPrefix introduces the list of empty fields
const MissingFieldsPrefix = "Остались незаполненные поля: "

// NetworkError reports a request that failed or returned a non-2xx status
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the failure is worth retrying by hand
func (e *NetworkError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode >= http.StatusInternalServerError
}

// BackendComputationError is a successful HTTP exchange whose payload
// signals a domain failure, like an Error key in the stats.
type BackendComputationError struct {
	Message string
}

func (e *BackendComputationError) Error() string {
	return e.Message
}
