// Package lock provides the advisory cross-process lock that serializes
// mirror sessions per congress event. Two invocations for the same event
// must never write into the same directory tree; the second one fails fast
// instead of queuing.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// acquireWindow bounds how long acquisition may wait before giving up.
// Long enough to win against a lock holder that is just releasing, short
// enough that a concurrent session is reported immediately.
const acquireWindow = time.Second

// Session holds an acquired event lock until released.
type Session struct {
	fl *flock.Flock
}

// PathFor returns the lock file path for an event identifier.
func PathFor(event string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("c3dl-%s.lock", event))
}

// Acquire takes the advisory lock for the given event. It retries briefly
// within a bounded window and returns an error if another process holds the
// lock; it never blocks indefinitely.
func Acquire(ctx context.Context, event string) (*Session, error) {
	return AcquireAt(ctx, PathFor(event), event)
}

// AcquireAt is Acquire with an explicit lock file path.
func AcquireAt(ctx context.Context, path, event string) (*Session, error) {
	fl := flock.New(path)

	tryCtx, cancel := context.WithTimeout(ctx, acquireWindow)
	defer cancel()

	locked, err := fl.TryLockContext(tryCtx, 100*time.Millisecond)
	if err != nil && tryCtx.Err() == nil {
		return nil, fmt.Errorf("acquiring lock for %s: %w", event, err)
	}
	if !locked {
		return nil, fmt.Errorf("another instance is already mirroring %s", event)
	}

	return &Session{fl: fl}, nil
}

// Release gives up the lock. Safe to call once per acquired session.
func (s *Session) Release() error {
	return s.fl.Unlock()
}
