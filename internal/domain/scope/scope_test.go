package scope

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeEnv returns a LookupEnv reading from the provided map.
func fakeEnv(values map[string]string) LookupEnv {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// TestInstallRoot resolves both scopes against a fixed environment.
func TestInstallRoot(t *testing.T) {
	t.Parallel()

	env := fakeEnv(map[string]string{
		"LOCALAPPDATA": `C:\Users\me\AppData\Local`,
		"ProgramFiles": `C:\Program Files`,
	})

	root, err := InstallRoot(PerUser, "Artemis", env)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(`C:\Users\me\AppData\Local`, "Programs", "Artemis"), root)

	root, err = InstallRoot(PerMachine, "Artemis", env)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(`C:\Program Files`, "Artemis"), root)
}

// TestInstallRootMissingEnv reports an error when the base variable is unset.
func TestInstallRootMissingEnv(t *testing.T) {
	t.Parallel()

	_, err := InstallRoot(PerUser, "Artemis", fakeEnv(nil))
	require.Error(t, err)

	_, err = InstallRoot("per-galaxy", "Artemis", fakeEnv(nil))
	require.ErrorIs(t, err, ErrUnknownScope)
}

// TestStartMenuDir resolves the programs directory for both scopes.
func TestStartMenuDir(t *testing.T) {
	t.Parallel()

	env := fakeEnv(map[string]string{
		"APPDATA":     `C:\Users\me\AppData\Roaming`,
		"ProgramData": `C:\ProgramData`,
	})

	dir, err := StartMenuDir(PerUser, "Artemis", env)
	require.NoError(t, err)
	require.Contains(t, dir, "Artemis")

	dir, err = StartMenuDir(PerMachine, "Artemis", env)
	require.NoError(t, err)
	require.Contains(t, dir, "Artemis")
}

// TestValidateDestination accepts {app}-rooted paths and rejects unknown tokens.
func TestValidateDestination(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateDestination(`{app}`))
	require.NoError(t, ValidateDestination(`{app}\docs`))
	require.NoError(t, ValidateDestination(`{app}/docs`))

	require.ErrorIs(t, ValidateDestination(`{pf}\Artemis`), ErrAmbiguousScopeToken)
	require.ErrorIs(t, ValidateDestination(`C:\absolute`), ErrAmbiguousScopeToken)
	require.ErrorIs(t, ValidateDestination(`{app}\{unknown}`), ErrAmbiguousScopeToken)
}

// TestExpandDestination substitutes the {app} token with the install root.
func TestExpandDestination(t *testing.T) {
	t.Parallel()

	root := filepath.Join("opt", "artemis")

	got, err := ExpandDestination(`{app}`, root)
	require.NoError(t, err)
	require.Equal(t, root, got)

	got, err = ExpandDestination(`{app}\docs`, root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "docs"), got)

	_, err = ExpandDestination(`{startmenu}`, root)
	require.ErrorIs(t, err, ErrAmbiguousScopeToken)
}
