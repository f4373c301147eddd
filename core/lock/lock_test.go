package lock

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAcquire_SecondHolderFailsFast tests that lock contention is reported
// as an error instead of blocking.
func TestAcquire_SecondHolderFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "39c3.lock")

	first, err := AcquireAt(context.Background(), path, "39c3")
	require.NoError(t, err)
	defer first.Release()

	_, err = AcquireAt(context.Background(), path, "39c3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another instance")
}

// TestAcquire_ReleasedLockCanBeRetaken tests release semantics.
func TestAcquire_ReleasedLockCanBeRetaken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "39c3.lock")

	first, err := AcquireAt(context.Background(), path, "39c3")
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := AcquireAt(context.Background(), path, "39c3")
	require.NoError(t, err)
	assert.NoError(t, second.Release())
}

// TestPathFor_ScopedToEvent tests that distinct events use distinct locks.
func TestPathFor_ScopedToEvent(t *testing.T) {
	assert.NotEqual(t, PathFor("38c3"), PathFor("39c3"))
}
