// Package auth signs the device in and out of HyperBuds.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/hyperbuds/hyperbuds-client/internal/apiclient"
	"github.com/hyperbuds/hyperbuds-client/internal/profile"
	"github.com/hyperbuds/hyperbuds-client/internal/retry"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
	"github.com/hyperbuds/hyperbuds-client/internal/session"
)

const (
	pathLogin          = "/auth/login"
	pathRegister       = "/auth/register"
	pathLogout         = "/auth/logout"
	pathForgotPassword = "/auth/forgot-password"
	pathVerifyEmail    = "/auth/verify-email/send"
)

// Sessions is the part of *session.Manager the auth flows use.
type Sessions interface {
	Current(ctx context.Context) (session.Session, error)
	Establish(ctx context.Context, tokens session.Tokens) error
	Clear(ctx context.Context) error
}

// UserCache keeps user details on the device. *profile.Service implements it.
type UserCache interface {
	Remember(ctx context.Context, user profile.User) error
	Forget(ctx context.Context) error
}

type Credentials struct {
	Identifier string `json:"identifier"` // email or username
	Password   string `json:"password"`
}

type Registration struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// Result is the outcome of a login or signup. SignedIn is false when the backend
// requires email verification before issuing tokens.
type Result struct {
	User     profile.User `json:"user"`
	SignedIn bool         `json:"signedIn"`
}

type authResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	Tokens       *session.Tokens `json:"tokens"`
	User         profile.User    `json:"user"`
}

func (r authResponse) tokens() session.Tokens {
	if r.AccessToken == "" && r.Tokens != nil {
		return *r.Tokens
	}

	return session.Tokens{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

type Service struct {
	api      apiclient.Caller
	sessions Sessions
	users    UserCache
	retry    retry.Policy
}

type Option func(*Service)

// WithUserCache caches the display name of the user on login and drops it on logout.
func WithUserCache(users UserCache) Option {
	return func(s *Service) { s.users = users }
}

// WithRetryPolicy sets the policy for verification email requests.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) { s.retry = p }
}

func NewService(api apiclient.Caller, sessions Sessions, opts ...Option) *Service {
	s := &Service{
		api:      api,
		sessions: sessions,
		retry:    retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.retry.IsTransient == nil {
		s.retry.IsTransient = apiclient.IsTransient
	}

	return s
}

// Login exchanges credentials for a session. It returns only after the session is
// persisted, so the first authenticated call after it already carries the token.
func (s *Service) Login(ctx context.Context, creds Credentials) (Result, error) {
	creds.Identifier = strings.TrimSpace(creds.Identifier)
	if creds.Identifier == "" || creds.Password == "" {
		return Result{}, fmt.Errorf("%w: identifier and password are required", serviceerr.ErrInvalidInput)
	}

	resp, err := s.api.Do(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      pathLogin,
		Body:      creds,
		Anonymous: true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("logging in: %w", err)
	}

	return s.establish(ctx, resp, true)
}

// Signup registers an account. When the backend issues tokens right away the
// device is signed in.
func (s *Service) Signup(ctx context.Context, reg Registration) (Result, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return Result{}, fmt.Errorf("%w: invalid email address", serviceerr.ErrInvalidInput)
	}
	if reg.Username == "" || reg.Password == "" {
		return Result{}, fmt.Errorf("%w: username and password are required", serviceerr.ErrInvalidInput)
	}

	resp, err := s.api.Do(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      pathRegister,
		Body:      reg,
		Anonymous: true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("signing up: %w", err)
	}

	return s.establish(ctx, resp, false)
}

func (s *Service) establish(ctx context.Context, resp *apiclient.Response, tokensRequired bool) (Result, error) {
	var body authResponse
	if err := resp.Decode(&body); err != nil && tokensRequired {
		return Result{}, fmt.Errorf("reading auth response: %w", err)
	}

	tokens := body.tokens()
	if tokens.AccessToken == "" {
		if tokensRequired {
			return Result{}, fmt.Errorf("%w: auth response carries no access token", serviceerr.ErrAPI)
		}
		return Result{User: body.User}, nil
	}

	if err := s.sessions.Establish(ctx, tokens); err != nil {
		return Result{}, fmt.Errorf("persisting session: %w", err)
	}

	if s.users != nil {
		if err := s.users.Remember(ctx, body.User); err != nil {
			slogctx.Warn(ctx, "Could not cache user details", "error", err)
		}
	}

	slogctx.Info(ctx, "Signed in", "user_id", body.User.ID)

	return Result{User: body.User, SignedIn: true}, nil
}

// Logout tells the backend to revoke the refresh token, then removes the session
// from the device. The device is signed out even when the backend call fails.
func (s *Service) Logout(ctx context.Context) error {
	current, err := s.sessions.Current(ctx)
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}

	if current.SignedIn() {
		_, err := s.api.Do(ctx, apiclient.Request{
			Method: http.MethodPost,
			Path:   pathLogout,
			Body:   map[string]string{"refreshToken": current.RefreshToken},
		})
		if err != nil {
			slogctx.Warn(ctx, "Backend logout failed, signing out locally", "error", err)
		}
	}

	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	if s.users != nil {
		if err := s.users.Forget(ctx); err != nil {
			slogctx.Warn(ctx, "Could not drop cached user details", "error", err)
		}
	}

	return nil
}

// ForgotPassword asks the backend to email a password reset link.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email address", serviceerr.ErrInvalidInput)
	}

	_, err := s.api.Do(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      pathForgotPassword,
		Body:      map[string]string{"email": email},
		Anonymous: true,
	})
	if err != nil {
		return fmt.Errorf("requesting password reset: %w", err)
	}

	return nil
}

// SendVerificationEmail asks the backend to (re)send the verification email. The
// request is retried with backoff. An empty email targets the signed-in account.
func (s *Service) SendVerificationEmail(ctx context.Context, email string) error {
	req := apiclient.Request{Method: http.MethodPost, Path: pathVerifyEmail}
	if email = strings.TrimSpace(email); email != "" {
		req.Body = map[string]string{"email": email}
	}

	_, err := retry.Do(ctx, s.retry, func(ctx context.Context) (*apiclient.Response, error) {
		return s.api.Do(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("sending verification email: %w", err)
	}

	return nil
}
