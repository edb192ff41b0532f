package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/iek-bit/Gambly/models"
)

const (
	lockRetryBase   = 50 * time.Millisecond
	lockRetryMax    = 500 * time.Millisecond
	acquireAttempts = 60
)

// FileStore keeps the state as a JSON blob on disk, guarded by an
// flock(2) on a sidecar lock file so multiple processes on the same
// host serialize their writes. Snapshots are cached on the file's
// mtime.
type FileStore struct {
	path     string
	lockPath string

	mu        sync.Mutex
	cached    []byte
	cachedAt  time.Time
	cacheInit bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:     path,
		lockPath: path + ".lock",
	}
}

// Acquire takes the exclusive file lock, holding it until the session
// is closed, and loads the current blob.
func (fs *FileStore) Acquire(ctx context.Context) (*Session, error) {
	lockFile, err := os.OpenFile(fs.lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open lock file: %v", ErrUnavailable, err)
	}

	locked := false
	backoff := lockRetryBase
	for attempt := 0; attempt < acquireAttempts; attempt++ {
		select {
		case <-ctx.Done():
			lockFile.Close()
			return nil, ErrLockTimeout
		default:
		}
		if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err == nil {
			locked = true
			break
		}
		select {
		case <-ctx.Done():
			lockFile.Close()
			return nil, ErrLockTimeout
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > lockRetryMax {
			backoff = lockRetryMax
		}
	}
	if !locked {
		lockFile.Close()
		log.Printf("[STORE] failed to acquire file lock: %s", fs.lockPath)
		return nil, ErrLockTimeout
	}

	data, err := os.ReadFile(fs.path)
	if err != nil && !os.IsNotExist(err) {
		syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
		lockFile.Close()
		return nil, fmt.Errorf("%w: read state: %v", ErrUnavailable, err)
	}
	state := decodeState(data)

	save := func(ctx context.Context, blob []byte) error {
		return fs.writeBlob(blob)
	}
	release := func(ctx context.Context) error {
		syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
		return lockFile.Close()
	}
	session, err := newSession(state, save, release)
	if err != nil {
		release(ctx)
		return nil, err
	}
	return session, nil
}

// writeBlob writes atomically via a temp file in the same directory
// plus rename, so a crash mid-write never corrupts the blob.
func (fs *FileStore) writeBlob(blob []byte) error {
	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("%w: temp file: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write state: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temp: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replace state: %v", ErrUnavailable, err)
	}

	fs.mu.Lock()
	fs.cached = append([]byte{}, blob...)
	if info, err := os.Stat(fs.path); err == nil {
		fs.cachedAt = info.ModTime()
	}
	fs.cacheInit = true
	fs.mu.Unlock()
	return nil
}

// Snapshot returns a read-only copy of the state, reusing the cache
// while the file's mtime is unchanged.
func (fs *FileStore) Snapshot(ctx context.Context) (*models.State, error) {
	info, err := os.Stat(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.DefaultState(), nil
		}
		return nil, fmt.Errorf("%w: stat state: %v", ErrUnavailable, err)
	}

	fs.mu.Lock()
	if fs.cacheInit && info.ModTime().Equal(fs.cachedAt) {
		blob := fs.cached
		fs.mu.Unlock()
		return decodeState(blob), nil
	}
	fs.mu.Unlock()

	data, err := os.ReadFile(fs.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read state: %v", ErrUnavailable, err)
	}
	fs.mu.Lock()
	fs.cached = data
	fs.cachedAt = info.ModTime()
	fs.cacheInit = true
	fs.mu.Unlock()
	return decodeState(data), nil
}
