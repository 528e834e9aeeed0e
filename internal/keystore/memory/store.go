package keystoremem

import (
	"context"
	"fmt"

	"github.com/patrickmn/go-cache"

	"github.com/hyperbuds/hyperbuds-client/internal/keystore"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
)

// Store keeps keys in process memory. Values never expire.
type Store struct {
	cache *cache.Cache
}

var _ = keystore.Store(&Store{})

func NewStore() *Store {
	return &Store{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return "", serviceerr.ErrNotFound
	}

	value, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected value type %T for key %q", v, key)
	}

	return value, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.cache.Delete(key)
	}

	return nil
}

func (s *Store) Close() error {
	s.cache.Flush()
	return nil
}
