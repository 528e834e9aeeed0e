package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
)

// TimeoutError is returned when no response arrived within the request budget.
type TimeoutError struct {
	Method  string
	Path    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s: no response within %s", e.Method, e.Path, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == serviceerr.ErrTimeout
}

// NetworkError is returned when the transport failed, for example while offline.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == serviceerr.ErrNetwork
}

// APIError is a well-formed non-2xx response.
type APIError struct {
	Status  int
	Message string // server supplied message, if any
	Code    string // server supplied error code, if any
	Body    []byte

	// RefreshErr is set when a 401 survived a refresh attempt.
	RefreshErr error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error %d %s", e.Status, http.StatusText(e.Status))
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RefreshErr != nil {
		msg += " (refresh failed: " + e.RefreshErr.Error() + ")"
	}

	return msg
}

func (e *APIError) Is(target error) bool {
	switch target {
	case serviceerr.ErrAPI:
		return true
	case serviceerr.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case serviceerr.ErrNotFound:
		return e.Status == http.StatusNotFound
	case serviceerr.ErrConflict:
		return e.Status == http.StatusConflict
	case serviceerr.ErrAuthRefreshFailed:
		return e.RefreshErr != nil
	}

	return false
}

func (e *APIError) StatusCode() int {
	return e.Status
}

func (e *APIError) ServerMessage() string {
	return e.Message
}

// IsTransient reports whether err is worth retrying: timeouts and transport failures.
func IsTransient(err error) bool {
	return errors.Is(err, serviceerr.ErrTimeout) || errors.Is(err, serviceerr.ErrNetwork)
}
