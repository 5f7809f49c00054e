package envstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMemoryStore exercises the Store contract against the in-memory fake.
func TestMemoryStore(t *testing.T) {
	t.Parallel()

	store := NewMemory()

	_, ok, err := store.Get("Path")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set("Path", `C:\Tools`))

	value, ok, err := store.Get("Path")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `C:\Tools`, value)

	require.NoError(t, store.Broadcast())
	require.Equal(t, 1, store.Broadcasts())
}

// TestMemoryStoreSetErr simulates a failed write.
func TestMemoryStoreSetErr(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	store.SetErr = errors.New("registry write denied")

	require.Error(t, store.Set("Path", `C:\Tools`))

	_, ok, err := store.Get("Path")
	require.NoError(t, err)
	require.False(t, ok)
}
