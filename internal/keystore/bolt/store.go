package keystorebolt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/hyperbuds/hyperbuds-client/internal/keystore"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
)

const openTimeout = time.Second

var bktKeyValue = []byte("kv")

var (
	ErrOpen   = errors.New("opening key store file")
	ErrGet    = errors.New("getting value from key store")
	ErrSet    = errors.New("setting value into key store")
	ErrDelete = errors.New("deleting value from key store")
)

// Store is a bbolt backed key store. Writes are committed (and synced) before
// Set returns.
type Store struct {
	db        *bolt.DB
	closeFunc func() error
}

var _ = keystore.Store(&Store{})

// NewStore opens or creates the store file at path. Environment variables in
// path are expanded and missing parent directories are created.
func NewStore(path string) (*Store, error) {
	path = os.ExpandEnv(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Join(ErrOpen, err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, errors.Join(ErrOpen, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bktKeyValue)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrOpen, err)
	}

	return &Store{
		db:        db,
		closeFunc: db.Close,
	}, nil
}

// NewTempStore opens a store in a fresh temporary file that is removed on Close.
func NewTempStore() (*Store, error) {
	dir, err := os.MkdirTemp("", "hyperbuds-keystore-")
	if err != nil {
		return nil, errors.Join(ErrOpen, err)
	}

	s, err := NewStore(filepath.Join(dir, "keystore.db"))
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	originalCloseFunc := s.closeFunc
	s.closeFunc = func() error {
		if err := originalCloseFunc(); err != nil {
			return err
		}
		return os.RemoveAll(dir)
	}

	return s, nil
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	var value string
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bktKeyValue)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		// v is only valid for the life of the transaction
		value = string(v)
		found = true
		return nil
	})
	if err != nil {
		return "", errors.Join(ErrGet, err)
	}
	if !found {
		return "", serviceerr.ErrNotFound
	}

	return value, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bktKeyValue)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return errors.Join(ErrSet, err)
	}

	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bktKeyValue)
		if b == nil {
			return nil
		}
		for _, key := range keys {
			if err := b.Delete([]byte(key)); err != nil {
				return fmt.Errorf("deleting %q: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return errors.Join(ErrDelete, err)
	}

	return nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.closeFunc()
}
