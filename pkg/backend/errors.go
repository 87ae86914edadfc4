package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for backend operations. Orchestrators surface these
// to callers so each can produce a distinct, user-actionable message.
var (
	// ErrUnauthorized indicates the credential is missing, invalid, or expired.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPermissionDenied indicates the credential lacks access to the resource.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound indicates the remote resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrThrottled indicates the request was rate limited by the backend.
	ErrThrottled = errors.New("request throttled")

	// ErrUnavailable indicates the backend service is unavailable.
	ErrUnavailable = errors.New("backend unavailable")
)

// ConfigError indicates required settings are missing. It is raised
// before any network call; a sync that fails with it was never attempted.
type ConfigError struct {
	Backend Kind
	Missing string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s sync not configured: missing %s", e.Backend, e.Missing)
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// BackendError wraps backend-specific failures with context.
type BackendError struct {
	// Op is the operation that failed (e.g., "FetchJobs", "EnsureSheet").
	Op string

	// Backend is the backend kind.
	Backend Kind

	// Resource is the collection, spreadsheet, or document involved.
	Resource string

	// Status is the HTTP status code, when the failure came from an
	// HTTP response. Zero otherwise.
	Status int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Backend, e.Op, e.Resource, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// SentinelForStatus maps an HTTP status code to the matching sentinel
// error, or nil for statuses with no dedicated sentinel.
func SentinelForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrPermissionDenied
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrThrottled
	case status >= 500:
		return ErrUnavailable
	default:
		return nil
	}
}

// IsUnauthorized reports whether the error indicates a bad credential.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsPermissionDenied reports whether the error indicates missing access.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsThrottled reports whether the error indicates rate limiting.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsUnavailable reports whether the error indicates backend downtime.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// HTTPStatusError is a raw non-2xx response from a backend, before it
// is mapped to a sentinel. Body holds a short snippet for diagnostics.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.Status)
	}
	return fmt.Sprintf("http status %d: %s", e.Status, e.Body)
}

// AsHTTPStatus extracts an HTTPStatusError from an error chain.
func AsHTTPStatus(err error, target **HTTPStatusError) bool {
	return errors.As(err, target)
}
