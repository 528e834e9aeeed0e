package serviceerr

import "errors"

const (
	MessageConnection = "We couldn't reach HyperBuds. Check your connection and try again."
	MessageSignIn     = "Your session has expired. Please sign in again."
	MessageGeneric    = "Something went wrong. Please try again."
)

var codeMessages = map[Code]string{
	CodeInvalidRequest:  "The request was not accepted. Please check your input.",
	CodeUnauthorized:    "You need to sign in to do that.",
	CodeForbidden:       "You don't have access to this.",
	CodeNotFound:        "We couldn't find what you were looking for.",
	CodeConflict:        "This already exists.",
	CodeValidation:      "Some of the details you entered are invalid.",
	CodeTooManyRequests: "Too many attempts. Please wait a moment and try again.",
	CodeServerError:     "HyperBuds is having trouble right now. Please try again later.",
	CodeUnavailable:     "HyperBuds is temporarily unavailable. Please try again later.",
}

// StatusError is implemented by errors that carry a backend rejection.
type StatusError interface {
	error
	StatusCode() int
	ServerMessage() string
}

// UserMessage renders err as text suitable for an alert or a CLI error line.
// Server supplied messages win over the status based fallback, except for
// authorization failures that survived a refresh attempt.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAuthRefreshFailed), errors.Is(err, ErrNoSession):
		return MessageSignIn
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrNetwork):
		return MessageConnection
	}

	var statusErr StatusError
	if errors.As(err, &statusErr) {
		if msg := statusErr.ServerMessage(); msg != "" {
			return msg
		}
		if msg, ok := codeMessages[CodeFromStatus(statusErr.StatusCode())]; ok {
			return msg
		}
	}

	if errors.Is(err, ErrInvalidInput) {
		return err.Error()
	}

	return MessageGeneric
}
