package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/hyperbuds/hyperbuds-client/internal/keystore"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
)

// Canonical session keys in the device key store.
const (
	KeyAccessToken  = "auth.accessToken"
	KeyRefreshToken = "auth.refreshToken"
	KeyIssuedAt     = "auth.issuedAt"
)

// Keys written by older app versions. The tokens are read once when the canonical
// keys are absent, then migrated and removed. The user blob is dropped.
const (
	legacyKeyAccessToken  = "accessToken"
	legacyKeyRefreshToken = "refreshToken"
	legacyKeyUser         = "user"
)

type Repository interface {
	Load(ctx context.Context) (Session, error)
	Store(ctx context.Context, s Session) error
	Delete(ctx context.Context) error
}

// StoreRepository persists the session in a keystore.Store.
type StoreRepository struct {
	store keystore.Store
}

var _ = Repository(&StoreRepository{})

func NewRepository(store keystore.Store) *StoreRepository {
	return &StoreRepository{store: store}
}

func (r *StoreRepository) Load(ctx context.Context) (Session, error) {
	accessToken, err := r.get(ctx, KeyAccessToken)
	if err != nil {
		return Session{}, err
	}

	refreshToken, err := r.get(ctx, KeyRefreshToken)
	if err != nil {
		return Session{}, err
	}

	if accessToken == "" && refreshToken == "" {
		return r.migrateLegacy(ctx)
	}

	issuedAtRaw, err := r.get(ctx, KeyIssuedAt)
	if err != nil {
		return Session{}, err
	}

	var issuedAt time.Time
	if issuedAtRaw != "" {
		issuedAt, err = time.Parse(time.RFC3339Nano, issuedAtRaw)
		if err != nil {
			slogctx.Warn(ctx, "Ignoring malformed session issuance time", "error", err)
			issuedAt = time.Time{}
		}
	}

	return Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IssuedAt:     issuedAt,
	}, nil
}

func (r *StoreRepository) Store(ctx context.Context, s Session) error {
	if err := r.store.Set(ctx, KeyRefreshToken, s.RefreshToken); err != nil {
		return fmt.Errorf("storing refresh token: %w", err)
	}

	if err := r.store.Set(ctx, KeyIssuedAt, s.IssuedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("storing issuance time: %w", err)
	}

	if err := r.store.Set(ctx, KeyAccessToken, s.AccessToken); err != nil {
		return fmt.Errorf("storing access token: %w", err)
	}

	return nil
}

func (r *StoreRepository) Delete(ctx context.Context) error {
	err := r.store.Delete(ctx,
		KeyAccessToken,
		KeyRefreshToken,
		KeyIssuedAt,
		legacyKeyAccessToken,
		legacyKeyRefreshToken,
		legacyKeyUser,
	)
	if err != nil {
		return fmt.Errorf("deleting session keys: %w", err)
	}

	return nil
}

func (r *StoreRepository) migrateLegacy(ctx context.Context) (Session, error) {
	accessToken, err := r.get(ctx, legacyKeyAccessToken)
	if err != nil {
		return Session{}, err
	}

	refreshToken, err := r.get(ctx, legacyKeyRefreshToken)
	if err != nil {
		return Session{}, err
	}

	if accessToken == "" && refreshToken == "" {
		return Session{}, nil
	}

	s := Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}

	if err := r.Store(ctx, s); err != nil {
		return Session{}, fmt.Errorf("migrating legacy session: %w", err)
	}

	if err := r.store.Delete(ctx, legacyKeyAccessToken, legacyKeyRefreshToken, legacyKeyUser); err != nil {
		slogctx.Warn(ctx, "Could not delete legacy session keys", "error", err)
	}

	slogctx.Info(ctx, "Migrated legacy session keys")

	return s, nil
}

// get returns the value for key, or an empty string when the key is absent.
func (r *StoreRepository) get(ctx context.Context, key string) (string, error) {
	value, err := r.store.Get(ctx, key)
	if errors.Is(err, serviceerr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", key, err)
	}

	return value, nil
}
