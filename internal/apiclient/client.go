// Package apiclient performs authenticated calls against the HyperBuds REST API.
//
// Every call gets a timeout, a bearer token when the device is signed in, and a
// single refresh-and-retry when the backend rejects the token.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	slogctx "github.com/veqryn/slog-context"

	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
	"github.com/hyperbuds/hyperbuds-client/pkg/fingerprint"
)

const (
	DefaultTimeout = 25 * time.Second

	HeaderRequestID   = "X-Request-ID"
	HeaderFingerprint = fingerprint.Header
)

var (
	errBudgetExceeded       = errors.New("request budget exceeded")
	errRejectedAfterRefresh = errors.New("token rejected after refresh")
)

// TokenSource supplies bearer tokens and replaces a rejected one.
// *session.Manager implements it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context, rejectedToken string) (string, error)
}

// Caller is the part of *Client the domain services depend on.
type Caller interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

var _ = Caller(&Client{})

type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	tokens      TokenSource
	timeout     time.Duration
	userAgent   string
	fingerprint string
	meters      *meters
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the default per-call budget.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithFingerprint sets the value of the X-Client-Fingerprint header.
func WithFingerprint(fp string) Option {
	return func(c *Client) { c.fingerprint = fp }
}

// New creates a client for the API rooted at baseURL. A nil tokens makes every
// request anonymous.
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q must be absolute", serviceerr.ErrInvalidInput, baseURL)
	}

	m, err := newMeters()
	if err != nil {
		return nil, fmt.Errorf("initialising meters: %w", err)
	}

	c := &Client{
		baseURL:    u,
		httpClient: http.DefaultClient,
		tokens:     tokens,
		timeout:    DefaultTimeout,
		meters:     m,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

// Do performs req. A 2xx response is returned as *Response. A well-formed non-2xx
// response is returned as *APIError; timeouts and transport failures as
// *TimeoutError and *NetworkError.
//
// When the backend answers 401 to an authenticated request, the token is refreshed
// once and the request repeated once with the new token. If the refresh fails the
// original 401 is returned.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	ctx = slogctx.With(ctx, "method", req.Method, "path", req.Path)

	authenticated := !req.Anonymous && c.tokens != nil

	var token string
	if authenticated {
		t, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading access token: %w", err)
		}
		token = t
	}

	resp, err := c.send(ctx, req, token)
	if err != nil {
		return nil, err
	}

	if resp.Status != http.StatusUnauthorized || !authenticated {
		return resp.outcome()
	}

	newToken, err := c.tokens.Refresh(ctx, token)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		apiErr := resp.apiError()
		if !errors.Is(err, serviceerr.ErrNoRefreshToken) && !errors.Is(err, serviceerr.ErrNoSession) {
			c.meters.recordRefresh(ctx, false)
			apiErr.RefreshErr = err
		}
		slogctx.Debug(ctx, "Request rejected and token could not be refreshed", "error", err)

		return nil, apiErr
	}
	c.meters.recordRefresh(ctx, true)

	retried, err := c.send(ctx, req, newToken)
	if err != nil {
		return nil, err
	}

	if retried.Status == http.StatusUnauthorized {
		apiErr := retried.apiError()
		apiErr.RefreshErr = errRejectedAfterRefresh
		return nil, apiErr
	}

	return retried.outcome()
}

// DoJSON performs req and decodes a JSON response into v when v is not nil.
func (c *Client) DoJSON(ctx context.Context, req Request, v any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}

	if v == nil {
		return nil
	}

	return resp.Decode(v)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, v any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, v)
}

func (c *Client) Post(ctx context.Context, path string, body, v any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, v)
}

func (c *Client) Put(ctx context.Context, path string, body, v any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, v)
}

func (c *Client) Delete(ctx context.Context, path string, v any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodDelete, Path: path}, v)
}

type rawResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r *rawResponse) outcome() (*Response, error) {
	if r.Status < 200 || r.Status > 299 {
		return nil, r.apiError()
	}

	return &Response{
		Status:  r.Status,
		Header:  r.Header,
		Body:    r.Body,
		Payload: parsePayload(r.Body),
	}, nil
}

func (r *rawResponse) apiError() *APIError {
	message, code := serverError(parsePayload(r.Body))

	return &APIError{
		Status:  r.Status,
		Message: message,
		Code:    code,
		Body:    r.Body,
	}
}

// send issues a single attempt and reads the whole body within the request budget.
func (c *Client) send(ctx context.Context, req Request, token string) (*rawResponse, error) {
	timeout := c.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	ctx, cancel := context.WithTimeoutCause(ctx, timeout, errBudgetExceeded)
	defer cancel()

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if c.fingerprint != "" {
		httpReq.Header.Set(HeaderFingerprint, c.fingerprint)
	}
	httpReq.Header.Set(HeaderRequestID, requestID)
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	ctx = slogctx.With(ctx, "request_id", requestID)
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		err = c.transportError(ctx, req, timeout, err)
		c.meters.recordRequest(ctx, req.Method, outcomeOf(err), 0, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err = c.transportError(ctx, req, timeout, err)
		c.meters.recordRequest(ctx, req.Method, outcomeOf(err), resp.StatusCode, time.Since(start))
		return nil, err
	}

	elapsed := time.Since(start)
	c.meters.recordRequest(ctx, req.Method, "response", resp.StatusCode, elapsed)
	slogctx.Debug(ctx, "API request finished", "status", resp.StatusCode, "elapsed", elapsed)

	return &rawResponse{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}, nil
}

func (c *Client) transportError(ctx context.Context, req Request, timeout time.Duration, err error) error {
	switch {
	case errors.Is(context.Cause(ctx), errBudgetExceeded), errors.Is(err, context.DeadlineExceeded):
		slogctx.Warn(ctx, "API request timed out", "timeout", timeout)
		return &TimeoutError{Method: req.Method, Path: req.Path, Timeout: timeout}
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s %s: %w", req.Method, req.Path, context.Canceled)
	}

	slogctx.Warn(ctx, "API request failed", "error", err)

	return &NetworkError{Method: req.Method, Path: req.Path, Err: err}
}

func (c *Client) url(req Request) string {
	u := c.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	return u.String()
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, serviceerr.ErrTimeout):
		return "timeout"
	case errors.Is(err, serviceerr.ErrNetwork):
		return "network_error"
	default:
		return "cancelled"
	}
}
