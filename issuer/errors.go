package issuer

import (
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-success response from the issuing service. Status and
// body are preserved for caller-level diagnosis.
type APIError struct {
	StatusCode int
	Body       string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("issuing service error at %s: %d - %s", e.Endpoint, e.StatusCode, e.Body)
}

// IsAlreadyExists reports whether the issuer rejected a create call because
// the resource already exists. The issuer has no machine-readable code for
// this, so a 409 or a 4xx body mentioning a duplicate is treated as the
// idempotent-success case by the provisioning workflow.
func (e *APIError) IsAlreadyExists() bool {
	if e.StatusCode == http.StatusConflict {
		return true
	}
	if e.StatusCode < 400 || e.StatusCode >= 500 {
		return false
	}
	body := strings.ToLower(e.Body)
	return strings.Contains(body, "already") ||
		strings.Contains(body, "duplicate") ||
		strings.Contains(body, "exists")
}

// IsNotFound reports whether the issuer answered 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
