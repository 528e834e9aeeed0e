// Package business wires the key store, the session manager, the API client and the
// domain services into one App.
package business

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/google/uuid"
	"github.com/openkcm/common-sdk/pkg/commoncfg"

	slogctx "github.com/veqryn/slog-context"

	"github.com/hyperbuds/hyperbuds-client/internal/apiclient"
	"github.com/hyperbuds/hyperbuds-client/internal/auth"
	"github.com/hyperbuds/hyperbuds-client/internal/config"
	"github.com/hyperbuds/hyperbuds-client/internal/keystore"
	"github.com/hyperbuds/hyperbuds-client/internal/matching"
	"github.com/hyperbuds/hyperbuds-client/internal/messaging"
	"github.com/hyperbuds/hyperbuds-client/internal/payments"
	"github.com/hyperbuds/hyperbuds-client/internal/profile"
	"github.com/hyperbuds/hyperbuds-client/internal/retry"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
	"github.com/hyperbuds/hyperbuds-client/internal/session"
	"github.com/hyperbuds/hyperbuds-client/pkg/fingerprint"
)

// KeyDeviceID holds the random id this device was given on first use.
const KeyDeviceID = "device.id"

type App struct {
	Store     keystore.Store
	Sessions  *session.Manager
	API       *apiclient.Client
	Auth      *auth.Service
	Profiles  *profile.Service
	Matching  *matching.Service
	Messaging *messaging.Service
	Payments  *payments.Service
}

// Init builds the App described by cfg. closeFn releases the key store.
func Init(ctx context.Context, cfg *config.Config) (_ *App, closeFn func(), _ error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	store, err := initKeyStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialising the key store: %w", err)
	}

	closeFn = func() {
		if err := store.Close(); err != nil {
			slogctx.Warn(ctx, "Could not close the key store", "error", err)
		}
	}

	app, err := newApp(ctx, cfg, store)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	return app, closeFn, nil
}

func newApp(ctx context.Context, cfg *config.Config, store keystore.Store) (*App, error) {
	httpClient, err := loadHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading http client: %w", err)
	}

	deviceID, err := loadDeviceID(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("loading device id: %w", err)
	}

	userAgent := cfg.API.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent(cfg)
	}

	fp, err := fingerprint.FromDevice(deviceID, userAgent)
	if err != nil {
		return nil, fmt.Errorf("building fingerprint: %w", err)
	}

	clientOpts := []apiclient.Option{
		apiclient.WithHTTPClient(httpClient),
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithUserAgent(userAgent),
		apiclient.WithFingerprint(fp),
	}

	// The refresh exchange goes through its own anonymous client so that it never
	// re-enters the session manager.
	anon, err := apiclient.New(cfg.API.BaseURL, nil, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating refresh client: %w", err)
	}

	sessions := session.NewManager(
		session.NewRepository(store),
		apiclient.NewTokenExchanger(anon, cfg.API.RefreshPath),
		session.WithRefreshWindow(cfg.Session.RefreshWindow),
		session.WithRefreshTimeout(cfg.Session.RefreshTimeout),
	)

	api, err := apiclient.New(cfg.API.BaseURL, sessions, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating api client: %w", err)
	}

	profiles := profile.NewService(api, store)

	return &App{
		Store:    store,
		Sessions: sessions,
		API:      api,
		Auth: auth.NewService(api, sessions,
			auth.WithUserCache(profiles),
			auth.WithRetryPolicy(retryPolicy(cfg.Retry)),
		),
		Profiles:  profiles,
		Matching:  matching.NewService(api),
		Messaging: messaging.NewService(api),
		Payments:  payments.NewService(api),
	}, nil
}

func retryPolicy(cfg config.Retry) retry.Policy {
	return retry.Policy{
		MaxRetries:  cfg.MaxRetries,
		BaseDelay:   cfg.BaseDelay,
		FixedDelay:  cfg.FixedDelay,
		MaxJitter:   cfg.MaxJitter,
		MaxDelay:    cfg.MaxDelay,
		IsTransient: apiclient.IsTransient,
	}
}

// loadDeviceID returns the stored device id, creating it on first use.
func loadDeviceID(ctx context.Context, store keystore.Store) (string, error) {
	id, err := store.Get(ctx, KeyDeviceID)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, serviceerr.ErrNotFound) {
		return "", err
	}

	id = uuid.NewString()
	if err := store.Set(ctx, KeyDeviceID, id); err != nil {
		return "", err
	}

	slogctx.Info(ctx, "Registered new device id")

	return id, nil
}

func defaultUserAgent(cfg *config.Config) string {
	name := cfg.Application.Name
	if name == "" {
		name = "hyperbuds-cli"
	}

	return fmt.Sprintf("%s (%s; %s)", name, runtime.GOOS, runtime.GOARCH)
}

func loadHTTPClient(cfg *config.Config) (*http.Client, error) {
	if cfg.API.MTLS == nil {
		return http.DefaultClient, nil
	}

	tlsConfig, err := commoncfg.LoadMTLSConfig(cfg.API.MTLS)
	if err != nil {
		return nil, fmt.Errorf("loading mTLS config: %w", err)
	}

	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("unexpected default transport")
	}
	transport = transport.Clone()
	transport.TLSClientConfig = tlsConfig

	return &http.Client{Transport: transport}, nil
}
