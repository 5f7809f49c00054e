package payload

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeBundle(t *testing.T, path string) {
	t.Helper()

	out, err := os.Create(path)
	require.NoError(t, err)

	stub := bytes.NewReader([]byte("STUB-EXECUTABLE-BYTES"))
	files := []File{
		{Name: FilePrefix + "artemis.exe", Contents: []byte("binary")},
		{Name: FilePrefix + "LICENSE", Contents: []byte("license text")},
	}

	require.NoError(t, Write(out, stub, []byte("app_name: Artemis\n"), files))
	require.NoError(t, out.Close())
}

// TestWriteOpenRoundTrip verifies the plan and files survive attach/extract.
func TestWriteOpenRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "setup.exe")
	writeBundle(t, path)

	bundle, err := Open(path)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, bundle.Close())
	}()

	planData, err := bundle.Plan()
	require.NoError(t, err)
	require.Equal(t, []byte("app_name: Artemis\n"), planData)

	contents, err := bundle.ReadEntry(FilePrefix + "artemis.exe")
	require.NoError(t, err)
	require.Equal(t, []byte("binary"), contents)

	require.Equal(t,
		[]string{PlanEntryName, FilePrefix + "LICENSE", FilePrefix + "artemis.exe"},
		bundle.Entries())

	_, err = bundle.ReadEntry("files/missing")
	require.Error(t, err)
}

// TestWriteIsDeterministic checks identical inputs yield identical bytes.
func TestWriteIsDeterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := filepath.Join(dir, "a.exe")
	second := filepath.Join(dir, "b.exe")

	writeBundle(t, first)
	writeBundle(t, second)

	firstBytes, err := os.ReadFile(first)
	require.NoError(t, err)

	secondBytes, err := os.ReadFile(second)
	require.NoError(t, err)
	require.Equal(t, firstBytes, secondBytes)
}

// TestOpenWithoutPayload rejects executables with no attached archive.
func TestOpenWithoutPayload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bare.exe")
	require.NoError(t, os.WriteFile(path, []byte("just a stub, no trailer"), 0o755))

	_, err := Open(path)
	require.ErrorIs(t, err, ErrNoPayload)
}
