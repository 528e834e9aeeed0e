package keystorevalkey

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/valkey-io/valkey-go"

	"github.com/hyperbuds/hyperbuds-client/internal/keystore"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
)

const objectTypeKeyValue = "kv"

var (
	ErrGet    = errors.New("getting value from store")
	ErrSet    = errors.New("setting value into storage")
	ErrDelete = errors.New("deleting value from store")
)

// Store keeps device keys in ValKey under "<prefix>:kv:<key>".
type Store struct {
	valkey valkey.Client
	prefix string
}

var _ = keystore.Store(&Store{})

func NewStore(valkeyClient valkey.Client, prefix string) *Store {
	prefix = strings.TrimSuffix(prefix, ":")
	return &Store{
		valkey: valkeyClient,
		prefix: prefix,
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.valkey.Do(ctx, s.valkey.B().Get().Key(s.key(key)).Build()).ToString()
	if err != nil {
		valkeyErr, ok := valkey.IsValkeyErr(err)
		if ok && valkeyErr.IsNil() {
			return "", serviceerr.ErrNotFound
		}

		return "", errors.Join(ErrGet, fmt.Errorf("executing get command: %w", err))
	}

	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.valkey.Do(ctx, s.valkey.B().Set().Key(s.key(key)).Value(value).Build()).Error(); err != nil {
		return errors.Join(ErrSet, fmt.Errorf("executing set command: %w", err))
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	fullKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		fullKeys = append(fullKeys, s.key(key))
	}

	if err := s.valkey.Do(ctx, s.valkey.B().Del().Key(fullKeys...).Build()).Error(); err != nil {
		return errors.Join(ErrDelete, fmt.Errorf("executing del command: %w", err))
	}

	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	s.valkey.Close()
	return nil
}

func (s *Store) key(key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, objectTypeKeyValue, key)
}
