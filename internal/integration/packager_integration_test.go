package integration

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/idrisfallout/artemis-installer/internal/config"
	"github.com/idrisfallout/artemis-installer/internal/domain/plan"
	"github.com/idrisfallout/artemis-installer/internal/domain/scope"
	"github.com/idrisfallout/artemis-installer/internal/payload"
	"github.com/idrisfallout/artemis-installer/internal/service/packager"
)

// writeRelease lays out a release directory: manifest, stub and sources.
func writeRelease(t *testing.T, dir string) (manifestPath, stubPath string) {
	t.Helper()

	stubPath = filepath.Join(dir, "artemis-setup-stub.exe")
	require.NoError(t, os.WriteFile(stubPath, []byte("MZ-stub-bytes"), 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "artemis.exe"), []byte("the-binary"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "LICENSE.txt"), []byte("MIT"), 0o644))

	manifest := &config.Manifest{
		AppName:                 "Artemis",
		AppVersion:              "1.4.0",
		InstallScope:            scope.PerUser,
		LicenseFile:             "LICENSE.txt",
		PathAppend:              true,
		RefreshSessionOnInstall: true,
		Files: []config.FileEntry{
			{Source: "artemis.exe"},
		},
		Shortcuts: []config.ShortcutDecl{
			{DisplayName: "Artemis", Target: "artemis.exe"},
		},
	}

	manifestPath = filepath.Join(dir, config.DefaultManifestFilename)
	require.NoError(t, config.Save(manifestPath, manifest))

	return manifestPath, stubPath
}

// TestPackager_ProducesInstallableBundle generates an installer from a real
// manifest on disk and verifies the embedded plan and payload line up.
func TestPackager_ProducesInstallableBundle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifestPath, stubPath := writeRelease(t, dir)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	options := &packager.Options{
		ManifestPath: manifestPath,
		StubPath:     stubPath,
	}

	require.NoError(t, packager.Run(ctx, options))

	installerPath := filepath.Join(dir, "artemis-setup-1.4.0.exe")

	// The installer starts with the stub bytes, so Windows runs it as the stub.
	produced, err := os.ReadFile(installerPath)
	require.NoError(t, err)
	require.Equal(t, []byte("MZ-stub-bytes"), produced[:len("MZ-stub-bytes")])

	bundle, err := payload.Open(installerPath)
	require.NoError(t, err)

	defer func() {
		_ = bundle.Close()
	}()

	planData, err := bundle.Plan()
	require.NoError(t, err)

	installPlan, err := plan.Decode(planData)
	require.NoError(t, err)

	require.Equal(t, "Artemis", installPlan.AppName)
	require.Equal(t, "1.4.0", installPlan.AppVersion)
	require.Equal(t, scope.PerUser, installPlan.Scope)
	require.True(t, installPlan.RefreshSession)

	// The manifest file plus the license travel as payload entries.
	require.Len(t, installPlan.Copies, 2)
	require.Len(t, installPlan.Mutations, 1)
	require.Equal(t, "Path", installPlan.Mutations[0].Variable)
	require.Len(t, installPlan.Shortcuts, 1)

	// Each packaged entry is readable and matches its declared checksum.
	for _, op := range installPlan.Copies {
		contents, readErr := bundle.ReadEntry(op.Payload)
		require.NoError(t, readErr)

		sum := sha512.Sum512(contents)
		require.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), op.Checksum,
			"checksum mismatch for %s", op.FileName)
	}

	binary, err := bundle.ReadEntry(payload.FilePrefix + "artemis.exe")
	require.NoError(t, err)
	require.Equal(t, []byte("the-binary"), binary)
}

// TestPackager_MissingSourcesProduceNoOutput verifies validation reports every
// missing file at once and the output path stays untouched.
func TestPackager_MissingSourcesProduceNoOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifestPath, stubPath := writeRelease(t, dir)

	require.NoError(t, os.Remove(filepath.Join(dir, "artemis.exe")))
	require.NoError(t, os.Remove(filepath.Join(dir, "LICENSE.txt")))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	options := &packager.Options{
		ManifestPath: manifestPath,
		StubPath:     stubPath,
	}

	err := packager.Run(ctx, options)

	var validationErr *packager.ValidationError

	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Missing, 2)

	_, err = os.Stat(filepath.Join(dir, "artemis-setup-1.4.0.exe"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
