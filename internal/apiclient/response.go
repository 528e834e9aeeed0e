package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoPayload is returned by Response.Decode when the body is not JSON.
var ErrNoPayload = errors.New("response has no json payload")

// Response is a successful (2xx) API response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	// Payload is the body parsed as JSON, or nil when the body is empty or not JSON.
	Payload any
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if r.Payload == nil {
		return ErrNoPayload
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// parsePayload parses body leniently: malformed JSON yields nil instead of an error.
func parsePayload(body []byte) any {
	if len(body) == 0 {
		return nil
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}

	return payload
}

// serverError extracts the message and code the backend put into an error body.
func serverError(payload any) (message, code string) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return "", ""
	}

	for _, key := range []string{"message", "error", "detail"} {
		switch v := obj[key].(type) {
		case string:
			if message == "" {
				message = v
			}
		case map[string]any:
			if m, ok := v["message"].(string); ok && message == "" {
				message = m
			}
			if c, ok := v["code"].(string); ok && code == "" {
				code = c
			}
		}
	}

	if c, ok := obj["code"].(string); ok && code == "" {
		code = c
	}

	return message, code
}

// DecodeItems decodes a list response. The list is either the top-level JSON array
// or an array under one of the envelope keys, tried in order.
func DecodeItems[T any](r *Response, envelopes ...string) ([]T, error) {
	if r.Payload == nil {
		return nil, ErrNoPayload
	}

	if _, ok := r.Payload.([]any); ok {
		var items []T
		if err := json.Unmarshal(r.Body, &items); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(r.Body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	for _, key := range envelopes {
		raw, ok := envelope[key]
		if !ok || string(raw) == "null" {
			continue
		}

		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", key, err)
		}
		return items, nil
	}

	return nil, fmt.Errorf("%w: no list under %v", ErrNoPayload, envelopes)
}

// DecodeObject decodes an object response into v. When the object holds another
// object under one of the envelope keys, that one is decoded instead.
func DecodeObject(r *Response, v any, envelopes ...string) error {
	if _, ok := r.Payload.(map[string]any); !ok {
		return fmt.Errorf("%w: expected an object", ErrNoPayload)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(r.Body, &envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	for _, key := range envelopes {
		raw, ok := envelope[key]
		if !ok || len(raw) == 0 || raw[0] != '{' {
			continue
		}

		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		return nil
	}

	return r.Decode(v)
}
