package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	slogctx "github.com/veqryn/slog-context"

	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
)

const (
	defaultRefreshTimeout = 30 * time.Second
	refreshKey            = "refresh"
)

// Exchanger trades a refresh token for a new token pair.
type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string) (Tokens, error)
}

// Manager owns the device session. All reads and writes of the tokens go through it,
// and it runs at most one refresh exchange at a time.
type Manager struct {
	sessions  Repository
	exchanger Exchanger
	group     singleflight.Group

	refreshWindow  time.Duration
	refreshTimeout time.Duration
	now            func() time.Time

	mu          sync.Mutex
	state       RefreshState
	lastErr     error
	failedToken string // access token whose refresh last failed
	generation  uint64 // bumped by Establish and Clear
}

type Option func(*Manager)

// WithRefreshWindow enables refreshing a JWT access token before it is used when it
// expires within d. Zero disables proactive refresh.
func WithRefreshWindow(d time.Duration) Option {
	return func(m *Manager) { m.refreshWindow = d }
}

// WithRefreshTimeout bounds a single refresh exchange. Non-positive values keep the default.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(sessions Repository, exchanger Exchanger, opts ...Option) *Manager {
	m := &Manager{
		sessions:       sessions,
		exchanger:      exchanger,
		refreshTimeout: defaultRefreshTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Current returns the persisted session. A signed-out device yields a zero Session.
func (m *Manager) Current(ctx context.Context) (Session, error) {
	s, err := m.sessions.Load(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("loading session: %w", err)
	}

	return s, nil
}

// AccessToken returns the token to attach to the next request, or "" when signed out.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	s, err := m.Current(ctx)
	if err != nil {
		return "", err
	}

	if s.AccessToken == "" || s.RefreshToken == "" {
		return s.AccessToken, nil
	}

	if !shouldRefresh(s.AccessToken, m.refreshWindow, m.now()) {
		return s.AccessToken, nil
	}

	token, err := m.Refresh(ctx, s.AccessToken)
	if err != nil {
		slogctx.Warn(ctx, "Could not refresh expiring access token", "error", err)
		return s.AccessToken, nil
	}

	return token, nil
}

// Establish persists a freshly issued token pair. It returns once the write is durable.
func (m *Manager) Establish(ctx context.Context, tokens Tokens) error {
	if tokens.AccessToken == "" {
		return fmt.Errorf("%w: missing access token", serviceerr.ErrInvalidInput)
	}

	m.mu.Lock()
	m.generation++
	m.state, m.lastErr, m.failedToken = RefreshIdle, nil, ""
	m.mu.Unlock()

	s := Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		IssuedAt:     m.now(),
	}
	if err := m.sessions.Store(ctx, s); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	slogctx.Info(ctx, "Session established")

	return nil
}

// Clear removes the session from the device.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.generation++
	m.state, m.lastErr, m.failedToken = RefreshIdle, nil, ""
	m.mu.Unlock()

	if err := m.sessions.Delete(ctx); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	slogctx.Info(ctx, "Session cleared")

	return nil
}

// State reports the refresh state and the error of the last failed refresh.
func (m *Manager) State() (RefreshState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state, m.lastErr
}

// Refresh obtains a new access token after rejectedToken was refused by the backend.
// Concurrent callers share a single exchange. When the stored token already differs
// from rejectedToken, that token is returned without contacting the backend.
// The new token is persisted before any caller is released. Once a refresh for
// rejectedToken has failed, later calls for the same token return that failure
// without another exchange.
func (m *Manager) Refresh(ctx context.Context, rejectedToken string) (string, error) {
	return m.do(ctx, rejectedToken, false)
}

func (m *Manager) do(ctx context.Context, rejectedToken string, force bool) (string, error) {
	ch := m.group.DoChan(refreshKey, func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx), rejectedToken, force)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		//nolint:forcetypeassert
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ForceRefresh exchanges the refresh token regardless of the current token or an
// earlier failure.
func (m *Manager) ForceRefresh(ctx context.Context) (string, error) {
	s, err := m.Current(ctx)
	if err != nil {
		return "", err
	}
	if !s.SignedIn() {
		return "", serviceerr.ErrNoSession
	}

	return m.do(ctx, s.AccessToken, true)
}

func (m *Manager) refresh(ctx context.Context, rejectedToken string, force bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.refreshTimeout)
	defer cancel()

	m.mu.Lock()
	generation := m.generation
	latched := m.state == RefreshFailed && m.failedToken == rejectedToken
	lastErr := m.lastErr
	m.mu.Unlock()

	s, err := m.Current(ctx)
	if err != nil {
		return "", err
	}

	if s.AccessToken != "" && s.AccessToken != rejectedToken {
		slogctx.Debug(ctx, "Access token already replaced, skipping refresh")
		return s.AccessToken, nil
	}

	if latched && !force && lastErr != nil {
		slogctx.Debug(ctx, "Refresh already failed for this access token")
		return "", lastErr
	}

	if s.RefreshToken == "" {
		m.fail(rejectedToken, serviceerr.ErrNoRefreshToken)
		return "", serviceerr.ErrNoRefreshToken
	}

	m.setState(RefreshInFlight)

	tokens, err := m.exchanger.Exchange(ctx, s.RefreshToken)
	if err == nil && tokens.AccessToken == "" {
		err = errors.New("refresh response carries no access token")
	}
	if err != nil {
		slogctx.Warn(ctx, "Could not refresh access token", "error", err)
		err = errors.Join(serviceerr.ErrAuthRefreshFailed, err)
		m.fail(rejectedToken, err)
		return "", err
	}

	s.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		s.RefreshToken = tokens.RefreshToken
	}
	s.IssuedAt = m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != generation {
		// signed out or signed in again while the exchange was running
		m.state = RefreshIdle
		return "", serviceerr.ErrNoSession
	}

	if err := m.sessions.Store(ctx, s); err != nil {
		err = errors.Join(serviceerr.ErrAuthRefreshFailed, fmt.Errorf("storing refreshed session: %w", err))
		m.state, m.lastErr, m.failedToken = RefreshFailed, err, rejectedToken
		return "", err
	}

	m.state, m.lastErr, m.failedToken = RefreshIdle, nil, ""
	slogctx.Info(ctx, "Access token refreshed")

	return s.AccessToken, nil
}

func (m *Manager) setState(state RefreshState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = state
}

func (m *Manager) fail(rejectedToken string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state, m.lastErr, m.failedToken = RefreshFailed, err, rejectedToken
}
