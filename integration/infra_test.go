//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hyperbuds/hyperbuds-client/internal/config"
	"github.com/hyperbuds/hyperbuds-client/internal/dbtest/valkeytest"
)

type closeFunc func(ctx context.Context)

type infraStat struct {
	ConfigFilePath string
	Procdir        string
	Cfg            config.Config
	Backend        *backend

	closeFuncs []closeFunc
}

func initInfra(t *testing.T, name string) (istat infraStat) {
	t.Helper()

	// Since the config is read from the file $PWD/config.yaml,
	// we're running a process in a subdirectory so that we aren't interferring with the other tests.
	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")
	istat.Procdir = filepath.Join(wd, name+"-test")
	istat.ConfigFilePath = filepath.Join(istat.Procdir, "config.yaml")

	err = os.MkdirAll(istat.Procdir, fs.ModePerm)
	require.NoError(t, err, "failed to create a dir for the process")

	err = os.WriteFile(istat.ConfigFilePath, []byte(validConfig), fs.ModePerm)
	require.NoError(t, err, "failed to write config file")

	err = commoncfg.LoadConfig(&istat.Cfg, nil, istat.Procdir)
	require.NoError(t, err, "failed to load config")

	istat.Cfg.Storage.Type = config.StorageBolt
	istat.Cfg.Storage.Path = filepath.Join(istat.Procdir, "device.db")

	return istat
}

// PrepareBackend starts a fake HyperBuds API and points the config at it.
func (istat *infraStat) PrepareBackend(t *testing.T) {
	t.Helper()

	istat.Backend = newBackend()
	srv := httptest.NewServer(istat.Backend)
	istat.closeFuncs = append(istat.closeFuncs, func(context.Context) { srv.Close() })

	istat.Cfg.API.BaseURL = srv.URL + "/api/v1"
}

func (istat *infraStat) PrepareValKey(t *testing.T) {
	t.Helper()

	vkClient, vkPort, vkTerminate := valkeytest.Start(t.Context())
	vkClient.Close()

	istat.closeFuncs = append(istat.closeFuncs, vkTerminate)

	istat.Cfg.Storage.Type = config.StorageValKey
	istat.Cfg.ValKey.Host = commoncfg.SourceRef{Source: "embedded", Value: net.JoinHostPort("localhost", vkPort.Port())}
	istat.Cfg.ValKey.User = commoncfg.SourceRef{Source: "embedded", Value: ""}
	istat.Cfg.ValKey.Password = commoncfg.SourceRef{Source: "embedded", Value: ""}
}

// PrepareConfig writes a config file for running the test into the ConfigFilePath.
func (istat *infraStat) PrepareConfig(t *testing.T) {
	t.Helper()

	cfgMap := make(map[any]any)
	err := mapstructure.Decode(istat.Cfg, &cfgMap)
	require.NoError(t, err, "failed to decode mapstructure")

	configFile, err := os.Create(istat.ConfigFilePath)
	require.NoError(t, err, "failed to create config file")
	defer configFile.Close()

	err = yaml.NewEncoder(configFile).Encode(cfgMap)
	require.NoError(t, err, "failed to write config")
}

// Run executes the CLI in Procdir and returns its stdout.
func (istat *infraStat) Run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	currdir, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, filepath.Join(currdir, binary), args...)
	cmd.Dir = istat.Procdir
	cmd.Env = append(os.Environ(), "HOME="+istat.Procdir)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	t.Logf("hyperbuds %v\nstderr: %s", args, stderr.String())

	return stdout.String(), err
}

func (istat *infraStat) Close(ctx context.Context) {
	os.Remove(istat.ConfigFilePath)
	os.RemoveAll(istat.Procdir)

	for _, close := range istat.closeFuncs {
		close(ctx)
	}
}

// backend is a small in-memory HyperBuds API. Access tokens expire after one use of
// /users/me so that every run of the CLI exercises the refresh path.
type backend struct {
	*http.ServeMux

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	refreshes    int
	loggedOut    bool
}

func newBackend() *backend {
	b := &backend{ServeMux: http.NewServeMux()}

	b.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Identifier string `json:"identifier"`
			Password   string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Identifier != "ada@example.com" || creds.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}

		b.mu.Lock()
		b.accessToken, b.refreshToken = "access-1", "refresh-1"
		b.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken":  "access-1",
			"refreshToken": "refresh-1",
			"user":         map[string]any{"id": "u1", "email": "ada@example.com", "displayName": "Ada"},
		})
	})

	b.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		b.mu.Lock()
		defer b.mu.Unlock()

		if body.RefreshToken == "" || body.RefreshToken != b.refreshToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid refresh token"})
			return
		}
		b.refreshes++
		b.accessToken = "access-refreshed"
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": b.accessToken})
	})

	b.HandleFunc("GET /api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		valid := b.accessToken != "" && r.Header.Get("Authorization") == "Bearer "+b.accessToken
		if valid {
			b.accessToken = "expired"
		}
		b.mu.Unlock()

		if !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": "u1", "email": "ada@example.com", "displayName": "Ada"}})
	})

	b.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		b.loggedOut = true
		b.refreshToken = ""
		b.mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
	})

	return b
}

func (b *backend) Refreshes() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.refreshes
}

func (b *backend) LoggedOut() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.loggedOut
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
