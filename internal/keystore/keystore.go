// Package keystore defines the persistent device storage used for the session,
// cached user details and preferences. It is a flat string key-value store.
package keystore

import "context"

// Store is a string key-value store. Get returns serviceerr.ErrNotFound for absent
// keys. Set is durable once it returns. Deleting absent keys is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
