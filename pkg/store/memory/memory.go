// Package memory is an in-process store.Backend. It applies the same tenant
// predicates as the Postgres repositories and is used by tests and by
// STORAGE_DRIVER=memory for local runs.
//
// Writers are serialized. A single write checks every precondition before it
// touches a map, so a failed write changes nothing. A transaction works on one
// private copy of the state which replaces the shared state only on commit.
// Code running inside WithinTx must use the Repos it is handed; calling the
// Store's own Repos from there deadlocks.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/store"
)

var _ store.Backend = (*Store)(nil)

type membershipKey struct {
	projectID uuid.UUID
	userID    uuid.UUID
}

type state struct {
	companies   map[uuid.UUID]domain.Company
	users       map[uuid.UUID]domain.User
	passwords   map[uuid.UUID]domain.UserPassword
	projects    map[uuid.UUID]domain.Project
	tasks       map[uuid.UUID]domain.Task
	memberships map[membershipKey]domain.ProjectMembership
	sessions    map[uuid.UUID]domain.Session
}

// tableCount is the number of maps in state.
const tableCount = 7

func newState() *state {
	return &state{
		companies:   make(map[uuid.UUID]domain.Company),
		users:       make(map[uuid.UUID]domain.User),
		passwords:   make(map[uuid.UUID]domain.UserPassword),
		projects:    make(map[uuid.UUID]domain.Project),
		tasks:       make(map[uuid.UUID]domain.Task),
		memberships: make(map[membershipKey]domain.ProjectMembership),
		sessions:    make(map[uuid.UUID]domain.Session),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.companies {
		c.companies[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.passwords {
		c.passwords[k] = v
	}
	for k, v := range s.projects {
		c.projects[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = copyTask(v)
	}
	for k, v := range s.memberships {
		c.memberships[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = copySession(v)
	}
	return c
}

// accessor is how a repo reaches state: locked for the Store, direct for a tx.
type accessor interface {
	read(fn func(*state) error) error
	write(fn func(*state) error) error
}

// Store is the shared in-memory backend.
type Store struct {
	mu sync.RWMutex
	st *state
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) read(fn func(*state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

// write applies fn to the shared state under the write lock. fn must return
// any error before its first mutation.
func (s *Store) write(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// Repos returns stores that each run as their own atomic write.
func (s *Store) Repos() store.Repos {
	return reposFor(s)
}

// WithinTx runs fn on a private copy of the state and publishes it on success.
func (s *Store) WithinTx(ctx context.Context, fn func(store.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txState{st: s.st.clone()}
	if err := fn(reposFor(tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// TableCount returns the number of collections.
func (s *Store) TableCount(ctx context.Context) (int, error) {
	return tableCount, ctx.Err()
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

type txState struct {
	st *state
}

func (t *txState) read(fn func(*state) error) error {
	return fn(t.st)
}

func (t *txState) write(fn func(*state) error) error {
	return fn(t.st)
}

func reposFor(a accessor) store.Repos {
	return store.Repos{
		Companies:   &companies{db: a},
		Users:       &users{db: a},
		Passwords:   &passwords{db: a},
		Projects:    &projects{db: a},
		Tasks:       &tasks{db: a},
		Memberships: &memberships{db: a},
		Sessions:    &sessions{db: a},
	}
}

func copyTask(t domain.Task) domain.Task {
	if t.AssignedTo != nil {
		id := *t.AssignedTo
		t.AssignedTo = &id
	}
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}

func copySession(s domain.Session) domain.Session {
	if s.RevokedAt != nil {
		r := *s.RevokedAt
		s.RevokedAt = &r
	}
	return s
}
