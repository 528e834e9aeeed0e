// Package profile reads and edits the signed-in user's account and profile, and
// keeps the small per-device user cache: the display name and preferences.
package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/hyperbuds/hyperbuds-client/internal/apiclient"
	"github.com/hyperbuds/hyperbuds-client/internal/keystore"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
)

const (
	KeyDisplayName    = "user.displayName"
	PreferencePrefix  = "prefs."
	MediaField        = "media"
	uploadTimeout     = 2 * time.Minute
	pathMe            = "/users/me"
	pathProfile       = "/profiles/me"
	pathUploadMedia   = "/profiles/upload-media"
	maxPreferenceName = 64
)

type Service struct {
	api   apiclient.Caller
	store keystore.Store
}

func NewService(api apiclient.Caller, store keystore.Store) *Service {
	return &Service{api: api, store: store}
}

// Me fetches the signed-in user and refreshes the cached display name.
func (s *Service) Me(ctx context.Context) (User, error) {
	resp, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: pathMe})
	if err != nil {
		return User{}, fmt.Errorf("fetching user: %w", err)
	}

	var user User
	if err := apiclient.DecodeObject(resp, &user, "user", "data"); err != nil {
		return User{}, fmt.Errorf("fetching user: %w", err)
	}

	if err := s.Remember(ctx, user); err != nil {
		slogctx.Warn(ctx, "Could not cache display name", "error", err)
	}

	return user, nil
}

// Remember caches the display name of user on this device.
func (s *Service) Remember(ctx context.Context, user User) error {
	name := user.DisplayName
	if name == "" {
		name = user.Username
	}
	if name == "" {
		return nil
	}

	return s.store.Set(ctx, KeyDisplayName, name)
}

// DisplayName returns the cached display name, or "" when none is cached.
func (s *Service) DisplayName(ctx context.Context) (string, error) {
	name, err := s.store.Get(ctx, KeyDisplayName)
	if errors.Is(err, serviceerr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading display name: %w", err)
	}

	return name, nil
}

// Forget removes the cached user details. Preferences are kept.
func (s *Service) Forget(ctx context.Context) error {
	return s.store.Delete(ctx, KeyDisplayName)
}

func (s *Service) Profile(ctx context.Context) (Profile, error) {
	resp, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: pathProfile})
	if err != nil {
		return Profile{}, fmt.Errorf("fetching profile: %w", err)
	}

	var p Profile
	if err := apiclient.DecodeObject(resp, &p, "profile", "data"); err != nil {
		return Profile{}, fmt.Errorf("fetching profile: %w", err)
	}

	return p, nil
}

// UpdateProfile applies u and returns the profile as stored by the backend. When the
// backend does not return it, the profile is read back.
func (s *Service) UpdateProfile(ctx context.Context, u Update) (Profile, error) {
	if u.Empty() {
		return Profile{}, fmt.Errorf("%w: nothing to update", serviceerr.ErrInvalidInput)
	}

	resp, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPut, Path: pathProfile, Body: u})
	if err != nil {
		return Profile{}, fmt.Errorf("updating profile: %w", err)
	}

	var p Profile
	if resp.Payload == nil {
		// accepted without the stored profile in the body
		p, err = s.Profile(ctx)
		if err != nil {
			slogctx.Warn(ctx, "Profile updated but could not be read back", "error", err)
			p = u.ApplyTo(Profile{})
		}
	} else if err := apiclient.DecodeObject(resp, &p, "profile", "data"); err != nil {
		return Profile{}, fmt.Errorf("updating profile: %w", err)
	}

	if u.DisplayName != nil {
		if err := s.Remember(ctx, User{DisplayName: *u.DisplayName}); err != nil {
			slogctx.Warn(ctx, "Could not cache display name", "error", err)
		}
	}

	return p, nil
}

// UploadMedia sends a file as multipart form data under the "media" field.
func (s *Service) UploadMedia(ctx context.Context, upload MediaUpload) (Media, error) {
	if len(upload.Data) == 0 {
		return Media{}, fmt.Errorf("%w: empty file", serviceerr.ErrInvalidInput)
	}

	form := &apiclient.Multipart{
		Files: []apiclient.File{{
			Field:       MediaField,
			Filename:    upload.Filename,
			ContentType: upload.ContentType,
			Data:        upload.Data,
		}},
	}
	if upload.Kind != "" {
		form.Fields = map[string]string{"type": upload.Kind}
	}

	resp, err := s.api.Do(ctx, apiclient.Request{
		Method:  http.MethodPost,
		Path:    pathUploadMedia,
		Body:    form,
		Timeout: uploadTimeout,
	})
	if err != nil {
		return Media{}, fmt.Errorf("uploading media: %w", err)
	}

	var m Media
	if err := apiclient.DecodeObject(resp, &m, "media", "data"); err != nil {
		return Media{}, fmt.Errorf("uploading media: %w", err)
	}

	slogctx.Info(ctx, "Media uploaded", "size", len(upload.Data))

	return m, nil
}

// Preference returns a stored preference and whether it is set.
func (s *Service) Preference(ctx context.Context, name string) (string, bool, error) {
	key, err := preferenceKey(name)
	if err != nil {
		return "", false, err
	}

	value, err := s.store.Get(ctx, key)
	if errors.Is(err, serviceerr.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading preference %s: %w", name, err)
	}

	return value, true, nil
}

func (s *Service) SetPreference(ctx context.Context, name, value string) error {
	key, err := preferenceKey(name)
	if err != nil {
		return err
	}

	if err := s.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("storing preference %s: %w", name, err)
	}

	return nil
}

func preferenceKey(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxPreferenceName {
		return "", fmt.Errorf("%w: preference name must be 1 to %d characters", serviceerr.ErrInvalidInput, maxPreferenceName)
	}

	return PreferencePrefix + name, nil
}
