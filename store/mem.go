package store

import (
	"context"
	"sync"

	"github.com/iek-bit/Gambly/models"
)

// MemStore holds the blob in process memory behind a mutex, for tests
// and the simulator. The mutex is held for the whole session, the
// same exclusive-scope shape the durable backends provide.
type MemStore struct {
	mu   sync.Mutex
	blob []byte
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (ms *MemStore) Acquire(ctx context.Context) (*Session, error) {
	ms.mu.Lock()
	state := decodeState(ms.blob)

	save := func(ctx context.Context, blob []byte) error {
		ms.blob = append([]byte{}, blob...)
		return nil
	}
	release := func(ctx context.Context) error {
		ms.mu.Unlock()
		return nil
	}
	session, err := newSession(state, save, release)
	if err != nil {
		ms.mu.Unlock()
		return nil, err
	}
	return session, nil
}

func (ms *MemStore) Snapshot(ctx context.Context) (*models.State, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return decodeState(ms.blob), nil
}
