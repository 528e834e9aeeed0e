package sessionmock

import (
	"context"
	"sync"

	"github.com/hyperbuds/hyperbuds-client/internal/session"
)

type RepositoryOption func(*Repository)

// Repository is an in-memory session.Repository with error injection and call counters.
type Repository struct {
	mu      sync.Mutex
	session session.Session
	stores  int

	loadErr, storeErr, deleteErr error
}

func WithSession(s session.Session) RepositoryOption {
	return func(r *Repository) { r.session = s }
}
func WithLoadError(err error) RepositoryOption {
	return func(r *Repository) { r.loadErr = err }
}
func WithStoreError(err error) RepositoryOption {
	return func(r *Repository) { r.storeErr = err }
}
func WithDeleteError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteErr = err }
}

var _ = session.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) Load(_ context.Context) (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadErr != nil {
		return session.Session{}, r.loadErr
	}
	return r.session, nil
}

func (r *Repository) Store(_ context.Context, s session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.storeErr != nil {
		return r.storeErr
	}
	r.session = s
	r.stores++
	return nil
}

func (r *Repository) Delete(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.session = session.Session{}
	return nil
}

// TSession returns the stored session without going through the interface.
func (r *Repository) TSession() session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.session
}

// TStores returns how many times Store succeeded.
func (r *Repository) TStores() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stores
}
