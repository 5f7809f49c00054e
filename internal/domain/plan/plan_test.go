package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/idrisfallout/artemis-installer/internal/domain/scope"
)

// TestPlanMarshalDecode checks a plan survives the embed/extract cycle
// and that validation runs on decode.
func TestPlanMarshalDecode(t *testing.T) {
	t.Parallel()

	p := &InstallPlan{
		AppName:        "Artemis",
		AppVersion:     "0.1.0",
		Scope:          scope.PerUser,
		RefreshSession: true,
		Copies: []CopyOperation{
			{
				Payload:     "files/artemis.exe",
				Destination: "{app}",
				FileName:    "artemis.exe",
				Policy:      OverwriteIfDifferent,
				Checksum:    "c2ln",
			},
		},
		Mutations: []EnvironmentMutation{
			{Scope: scope.PerUser, Variable: "Path", Value: "{app}", OnUninstall: RemoveSegment},
		},
		Shortcuts: []ShortcutEntry{
			{DisplayName: "Artemis", Target: "artemis.exe", Location: scope.PerUser},
		},
	}

	data, err := p.Marshal()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, p, decoded)
}

// TestDecodeRejectsInvalidPlans exercises the structural checks.
func TestDecodeRejectsInvalidPlans(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("app_name: ''\n"))
	require.Error(t, err)

	// Unknown scope.
	_, err = Decode([]byte("app_name: Artemis\nscope: per-galaxy\n"))
	require.ErrorIs(t, err, scope.ErrUnknownScope)

	// Bad policy.
	bad := &InstallPlan{
		AppName: "Artemis",
		Scope:   scope.PerUser,
		Copies: []CopyOperation{
			{Payload: "files/a", Destination: "{app}", FileName: "a", Policy: "sometimes"},
		},
	}

	data, err := bad.Marshal()
	require.NoError(t, err)

	_, err = Decode(data)
	require.Error(t, err)

	// Unresolvable destination token.
	bad.Copies[0].Policy = OverwriteAlways
	bad.Copies[0].Destination = "{pf}"

	data, err = bad.Marshal()
	require.NoError(t, err)

	_, err = Decode(data)
	require.ErrorIs(t, err, scope.ErrAmbiguousScopeToken)
}

// TestFileChecksum verifies the checksum matches the in-memory calculation.
func TestFileChecksum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "payload.bin")
	contents := []byte("artemis payload")
	require.NoError(t, os.WriteFile(path, contents, 0o600))

	fromFile, err := FileChecksum(path)
	require.NoError(t, err)

	fromBytes, err := BytesChecksum(contents)
	require.NoError(t, err)
	require.Equal(t, fromBytes, fromFile)
	require.Len(t, fromFile, 64)
}
