package packager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/idrisfallout/artemis-installer/internal/config"
	"github.com/idrisfallout/artemis-installer/internal/domain/plan"
	"github.com/idrisfallout/artemis-installer/internal/domain/scope"
	"github.com/idrisfallout/artemis-installer/internal/payload"
)

// writeWorkDir lays out a packaging working directory with manifest, stub
// and sources, returning the manifest and stub paths.
func writeWorkDir(t *testing.T) (manifestPath, stubPath string) {
	t.Helper()

	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dist"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dist", "artemis.exe"), []byte("compiled binary"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "LICENSE"), []byte("MIT"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "artemis.ico"), []byte("icon"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs"), 0o644))

	stubPath = filepath.Join(dir, "artemis-setup-stub.exe")
	require.NoError(t, os.WriteFile(stubPath, []byte("STUB"), 0o755))

	m := &config.Manifest{
		AppName:                 "Artemis",
		AppVersion:              "0.1.0",
		InstallScope:            scope.PerUser,
		LicenseFile:             "LICENSE",
		IconFile:                "artemis.ico",
		PathAppend:              true,
		RefreshSessionOnInstall: true,
		Files: []config.FileEntry{
			{Source: "dist/artemis.exe"},
			{Source: "README.md", Destination: `{app}\docs`},
		},
		Shortcuts: []config.ShortcutDecl{
			{DisplayName: "Artemis", Target: "artemis.exe"},
		},
	}

	manifestPath = filepath.Join(dir, "artemis-installer.yaml")
	require.NoError(t, config.Save(manifestPath, m))

	return manifestPath, stubPath
}

// TestRunProducesInstaller checks the full generation flow and the embedded plan.
func TestRunProducesInstaller(t *testing.T) {
	t.Parallel()

	manifestPath, stubPath := writeWorkDir(t)
	output := filepath.Join(filepath.Dir(manifestPath), "artemis-setup.exe")

	err := Run(context.Background(), &Options{
		ManifestPath: manifestPath,
		StubPath:     stubPath,
		OutputPath:   output,
	})
	require.NoError(t, err)

	bundle, err := payload.Open(output)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, bundle.Close())
	}()

	planData, err := bundle.Plan()
	require.NoError(t, err)

	installPlan, err := plan.Decode(planData)
	require.NoError(t, err)
	require.Equal(t, "Artemis", installPlan.AppName)
	require.Equal(t, scope.PerUser, installPlan.Scope)
	require.True(t, installPlan.RefreshSession)

	// The manifest files plus license and icon.
	require.Len(t, installPlan.Copies, 4)
	require.Equal(t, "artemis.exe", installPlan.Copies[0].FileName)
	require.Equal(t, plan.OverwriteIfDifferent, installPlan.Copies[0].Policy)

	require.Len(t, installPlan.Mutations, 1)
	require.Equal(t, "Path", installPlan.Mutations[0].Variable)
	require.Equal(t, scope.AppToken, installPlan.Mutations[0].Value)
	require.Equal(t, plan.RemoveSegment, installPlan.Mutations[0].OnUninstall)

	require.Len(t, installPlan.Shortcuts, 1)
	require.Equal(t, "artemis.ico", installPlan.Shortcuts[0].Icon)

	// Packaged bytes round-trip.
	contents, err := bundle.ReadEntry(installPlan.Copies[0].Payload)
	require.NoError(t, err)
	require.Equal(t, []byte("compiled binary"), contents)
}

// TestRunIsDeterministic verifies identical inputs yield byte-identical installers.
func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()

	manifestPath, stubPath := writeWorkDir(t)
	dir := filepath.Dir(manifestPath)

	first := filepath.Join(dir, "first.exe")
	second := filepath.Join(dir, "second.exe")

	for _, output := range []string{first, second} {
		require.NoError(t, Run(context.Background(), &Options{
			ManifestPath: manifestPath,
			StubPath:     stubPath,
			OutputPath:   output,
		}))
	}

	firstBytes, err := os.ReadFile(first)
	require.NoError(t, err)

	secondBytes, err := os.ReadFile(second)
	require.NoError(t, err)
	require.Equal(t, firstBytes, secondBytes)
}

// TestRunReportsAllMissingSources checks validation enumerates every missing
// file and produces no output.
func TestRunReportsAllMissingSources(t *testing.T) {
	t.Parallel()

	manifestPath, stubPath := writeWorkDir(t)
	dir := filepath.Dir(manifestPath)

	require.NoError(t, os.Remove(filepath.Join(dir, "LICENSE")))
	require.NoError(t, os.Remove(filepath.Join(dir, "README.md")))

	output := filepath.Join(dir, "artemis-setup.exe")

	err := Run(context.Background(), &Options{
		ManifestPath: manifestPath,
		StubPath:     stubPath,
		OutputPath:   output,
	})

	var validationErr *ValidationError

	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Missing, 2)
	require.Contains(t, validationErr.Missing[0], "LICENSE")
	require.Contains(t, validationErr.Missing[1], "README.md")

	// Zero mutations: no installer was produced.
	_, statErr := os.Stat(output)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

// TestValidateSourcesRejectsUninspectablePath checks a source that fails to
// stat for a reason other than absence still fails validation instead of
// surfacing as a read error mid-generation.
func TestValidateSourcesRejectsUninspectablePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	stubPath := filepath.Join(dir, "stub.exe")
	require.NoError(t, os.WriteFile(stubPath, []byte("STUB"), 0o755))

	manifest := &config.Manifest{
		AppName:    "Artemis",
		AppVersion: "0.1.0",
		Files: []config.FileEntry{
			// A NUL byte makes the path uninspectable rather than absent.
			{Source: "artemis\x00.bin"},
		},
	}

	gen := newGenerator(manifest, &Options{
		ManifestPath: filepath.Join(dir, "artemis-installer.yaml"),
		StubPath:     stubPath,
	})

	err := gen.run(context.Background())

	var validationErr *ValidationError

	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Missing, 1)
	require.Contains(t, validationErr.Missing[0], "artemis")
}
