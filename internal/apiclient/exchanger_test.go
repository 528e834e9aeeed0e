package apiclient_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperbuds/hyperbuds-client/internal/apiclient"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
	"github.com/hyperbuds/hyperbuds-client/internal/session"
	sessionmock "github.com/hyperbuds/hyperbuds-client/internal/session/mock"
)

func TestTokenExchanger_Exchange(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      session.Tokens
		assertErr assert.ErrorAssertionFunc
	}{
		{
			name:      "Top level tokens",
			status:    http.StatusOK,
			body:      `{"accessToken":"A2","refreshToken":"R2"}`,
			want:      session.Tokens{AccessToken: "A2", RefreshToken: "R2"},
			assertErr: assert.NoError,
		},
		{
			name:      "Nested under tokens",
			status:    http.StatusOK,
			body:      `{"tokens":{"accessToken":"A2"}}`,
			want:      session.Tokens{AccessToken: "A2"},
			assertErr: assert.NoError,
		},
		{
			name:      "Nested under data",
			status:    http.StatusOK,
			body:      `{"data":{"accessToken":"A2","refreshToken":"R2"}}`,
			want:      session.Tokens{AccessToken: "A2", RefreshToken: "R2"},
			assertErr: assert.NoError,
		},
		{
			name:      "Rejected refresh token",
			status:    http.StatusUnauthorized,
			body:      `{"message":"invalid refresh token"}`,
			assertErr: assert.Error,
		},
		{
			name:      "Non JSON body",
			status:    http.StatusOK,
			body:      `ok`,
			assertErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, apiclient.DefaultRefreshPath, r.URL.Path)
				assert.Empty(t, r.Header.Get("Authorization"))
				_ = json.NewDecoder(r.Body).Decode(&gotBody)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			ex := apiclient.NewTokenExchanger(newClient(t, srv, nil), "")

			got, err := ex.Exchange(t.Context(), "R1")
			if !tt.assertErr(t, err) || err != nil {
				return
			}

			assert.Equal(t, tt.want, got)
			assert.Equal(t, map[string]string{"refreshToken": "R1"}, gotBody)
		})
	}
}

// A request rejected with 401 refreshes through the session manager, persists the
// new token, and is retried with it.
func TestClient_WithSessionManager(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"accessToken":"A2"}`))
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"u1"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	repo := sessionmock.NewInMemRepository(sessionmock.WithSession(session.Session{AccessToken: "A1", RefreshToken: "R1"}))
	anon := newClient(t, srv, nil)
	mgr := session.NewManager(repo, apiclient.NewTokenExchanger(anon, ""))
	c := newClient(t, srv, mgr)

	require.NoError(t, c.Get(t.Context(), "/users/me", nil, nil))

	assert.Equal(t, "A2", repo.TSession().AccessToken)
	assert.Equal(t, "R1", repo.TSession().RefreshToken)

	state, err := mgr.State()
	require.NoError(t, err)
	assert.Equal(t, session.RefreshIdle, state)
}

func TestClient_WithSessionManager_RefreshRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	repo := sessionmock.NewInMemRepository(sessionmock.WithSession(session.Session{AccessToken: "A1", RefreshToken: "R1"}))
	mgr := session.NewManager(repo, apiclient.NewTokenExchanger(newClient(t, srv, nil), ""))
	c := newClient(t, srv, mgr)

	err := c.Get(t.Context(), "/users/me", nil, nil)
	assert.ErrorIs(t, err, serviceerr.ErrUnauthorized)
	assert.ErrorIs(t, err, serviceerr.ErrAuthRefreshFailed)
	assert.Equal(t, serviceerr.MessageSignIn, serviceerr.UserMessage(err))

	state, stateErr := mgr.State()
	assert.Equal(t, session.RefreshFailed, state)
	assert.ErrorIs(t, stateErr, serviceerr.ErrAuthRefreshFailed)
}

// An expiring token whose proactive refresh failed is not refreshed a second time
// when the backend then rejects it.
func TestClient_WithSessionManager_ExpiringTokenRefreshedOnce(t *testing.T) {
	sig, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte("0123456789abcdef0123456789abcdef")}, nil)
	require.NoError(t, err)
	access, err := jwt.Signed(sig).Claims(jwt.Claims{Expiry: jwt.NewNumericDate(time.Now().Add(30 * time.Second))}).Serialize()
	require.NoError(t, err)

	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		refreshes.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /x", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+access, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	repo := sessionmock.NewInMemRepository(sessionmock.WithSession(session.Session{AccessToken: access, RefreshToken: "R1"}))
	mgr := session.NewManager(repo, apiclient.NewTokenExchanger(newClient(t, srv, nil), ""), session.WithRefreshWindow(time.Minute))
	c := newClient(t, srv, mgr)

	err = c.Get(t.Context(), "/x", nil, nil)
	assert.ErrorIs(t, err, serviceerr.ErrUnauthorized)
	assert.ErrorIs(t, err, serviceerr.ErrAuthRefreshFailed)
	assert.Equal(t, int32(1), refreshes.Load())
}
