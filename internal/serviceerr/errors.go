package serviceerr

import (
	"errors"
	"net/http"
)

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("already exists")
var ErrTimeout = errors.New("request timed out")
var ErrNetwork = errors.New("network error")
var ErrAPI = errors.New("api error")
var ErrUnauthorized = errors.New("unauthorized")
var ErrNoSession = errors.New("no session")
var ErrNoRefreshToken = errors.New("no refresh token")
var ErrAuthRefreshFailed = errors.New("auth refresh failed")
var ErrInvalidInput = errors.New("invalid input")

// Code is a coarse classification of a backend rejection, derived from the HTTP status.
type Code string

const (
	CodeUnknown         Code = "unknown"
	CodeInvalidRequest  Code = "invalid_request"
	CodeUnauthorized    Code = "unauthorized"
	CodeForbidden       Code = "forbidden"
	CodeNotFound        Code = "not_found"
	CodeConflict        Code = "conflict"
	CodeValidation      Code = "validation_failed"
	CodeTooManyRequests Code = "too_many_requests"
	CodeServerError     Code = "server_error"
	CodeUnavailable     Code = "temporarily_unavailable"
)

// CodeFromStatus maps an HTTP status to a Code.
func CodeFromStatus(status int) Code {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound, http.StatusGone:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return CodeUnavailable
	}

	if status >= http.StatusInternalServerError {
		return CodeServerError
	}

	return CodeUnknown
}
