// Package store is the persistence gateway. A Store hands out
// exclusive sessions over the whole state blob: every mutating
// operation loads the latest durable state under the lock, applies
// its transition in memory and commits the result before releasing.
// Reads may use a cached snapshot keyed by a change signal, which is
// never trusted for read-your-own-writes.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/iek-bit/Gambly/models"
)

var (
	// ErrLockTimeout occurs when lock acquisition times out
	ErrLockTimeout = errors.New("timeout acquiring state lock")
	// ErrUnavailable occurs when the backing storage cannot be reached
	ErrUnavailable = errors.New("storage unavailable")
	// ErrSessionClosed occurs when using a session after Close
	ErrSessionClosed = errors.New("session already closed")
)

// Store hands out exclusive write scopes and cached read snapshots
// over one persisted state blob.
type Store interface {
	Acquire(ctx context.Context) (*Session, error)
	Snapshot(ctx context.Context) (*models.State, error)
}

// Session is one exclusive scope over the state. State() is the
// freshly loaded copy; Commit persists it only if it changed; Close
// releases the lock. A session that never commits leaves durable
// state untouched.
type Session struct {
	state          *models.State
	loaded         []byte
	loadedRevision int64
	save           func(ctx context.Context, data []byte) error
	release        func(ctx context.Context) error
	closed         bool
}

func newSession(state *models.State, save func(context.Context, []byte) error, release func(context.Context) error) (*Session, error) {
	state.Normalize()
	loaded, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("snapshot state: %w", err)
	}
	return &Session{
		state:          state,
		loaded:         loaded,
		loadedRevision: state.Revision,
		save:           save,
		release:        release,
	}, nil
}

func (s *Session) State() *models.State {
	return s.state
}

// Commit persists the session's state if and only if it differs from
// what was loaded, bumping the revision marker on a real write.
func (s *Session) Commit(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}

	// Compare against the loaded snapshot with the revision pinned,
	// so the bump itself never counts as a change.
	current := s.state.Revision
	s.state.Revision = s.loadedRevision
	data, err := json.Marshal(s.state)
	if err != nil {
		s.state.Revision = current
		return fmt.Errorf("encode state: %w", err)
	}
	if bytes.Equal(data, s.loaded) {
		s.state.Revision = current
		return nil
	}

	s.state.Revision = s.loadedRevision + 1
	data, err = json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.save(ctx, data); err != nil {
		return err
	}
	s.loaded = data
	s.loadedRevision = s.state.Revision
	return nil
}

// Close releases the exclusive scope. Uncommitted changes are
// discarded.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.release == nil {
		return nil
	}
	return s.release(ctx)
}

// decodeState parses a persisted blob, falling back to a default
// state when the blob is empty or corrupt so a bad file never takes
// the whole platform down.
func decodeState(data []byte) *models.State {
	if len(data) == 0 {
		return models.DefaultState()
	}
	st := &models.State{}
	if err := json.Unmarshal(data, st); err != nil {
		log.Printf("[STORE] corrupt state blob (%v), starting from defaults", err)
		return models.DefaultState()
	}
	st.Normalize()
	return st
}

// Update is the standard write path: acquire, mutate, commit iff the
// mutation reports a change, release.
func Update(ctx context.Context, s Store, fn func(st *models.State) bool) error {
	session, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	defer session.Close(ctx)
	if fn(session.State()) {
		return session.Commit(ctx)
	}
	return nil
}
