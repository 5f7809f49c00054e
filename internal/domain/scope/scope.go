package scope

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Scope selects whether an install applies to the current user or to all
// users of the machine.
type Scope string

const (
	// PerUser installs under the user's local application data directory
	// and needs no elevation.
	PerUser Scope = "per-user"
	// PerMachine installs under the machine program-files directory and
	// typically requires administrator rights.
	PerMachine Scope = "per-machine"
)

// AppToken is the well-known placeholder for the resolved install root.
// Destinations in manifests and plans are written relative to it, e.g.
// "{app}" or "{app}\docs".
const AppToken = "{app}"

// startMenuPrograms is the Start Menu subtree holding program shortcuts,
// relative to the scope's roaming/common application data root.
const startMenuPrograms = `Microsoft\Windows\Start Menu\Programs`

var (
	// ErrUnknownScope is returned for a scope outside {per-user, per-machine}.
	ErrUnknownScope = errors.New("unknown install scope")
	// ErrAmbiguousScopeToken is returned when a destination carries a token
	// that cannot be resolved to a well-known directory.
	ErrAmbiguousScopeToken = errors.New("ambiguous scope token")
	// errRootUnresolved is returned when the environment lacks the variable
	// holding a scope's base directory.
	errRootUnresolved = errors.New("scope root directory is not set in the environment")
)

// LookupEnv resolves an environment variable on the target machine.
// It matches os.LookupEnv so tests can substitute a fixed environment.
type LookupEnv func(key string) (string, bool)

// Valid reports whether s is a recognized scope.
func (s Scope) Valid() bool {
	return s == PerUser || s == PerMachine
}

// InstallRoot resolves the concrete install directory for the application
// under the given scope. Per-user installs land in
// %LOCALAPPDATA%\Programs\<app>, per-machine installs in %ProgramFiles%\<app>.
func InstallRoot(s Scope, appName string, lookup LookupEnv) (string, error) {
	switch s {
	case PerUser:
		base, ok := lookup("LOCALAPPDATA")
		if !ok || base == "" {
			return "", fmt.Errorf("LOCALAPPDATA: %w", errRootUnresolved)
		}

		return filepath.Join(base, "Programs", appName), nil
	case PerMachine:
		base, ok := lookup("ProgramFiles")
		if !ok || base == "" {
			return "", fmt.Errorf("ProgramFiles: %w", errRootUnresolved)
		}

		return filepath.Join(base, appName), nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownScope)
	}
}

// StartMenuDir resolves the Start Menu programs directory for the
// application under the given scope: the user's roaming profile for
// per-user installs, the all-users ProgramData tree for per-machine.
func StartMenuDir(s Scope, appName string, lookup LookupEnv) (string, error) {
	switch s {
	case PerUser:
		base, ok := lookup("APPDATA")
		if !ok || base == "" {
			return "", fmt.Errorf("APPDATA: %w", errRootUnresolved)
		}

		return filepath.Join(base, startMenuPrograms, appName), nil
	case PerMachine:
		base, ok := lookup("ProgramData")
		if !ok || base == "" {
			return "", fmt.Errorf("ProgramData: %w", errRootUnresolved)
		}

		return filepath.Join(base, startMenuPrograms, appName), nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownScope)
	}
}

// ValidateDestination checks at generation time that a destination is
// rooted at the {app} token and contains no other tokens. The concrete
// path cannot be known until install time, but an unresolvable token is
// detected before the installer is built.
func ValidateDestination(dest string) error {
	if dest != AppToken && !strings.HasPrefix(dest, AppToken+`\`) && !strings.HasPrefix(dest, AppToken+`/`) {
		return fmt.Errorf("%q: %w", dest, ErrAmbiguousScopeToken)
	}

	if strings.Contains(dest[len(AppToken):], "{") {
		return fmt.Errorf("%q: %w", dest, ErrAmbiguousScopeToken)
	}

	return nil
}

// ExpandDestination substitutes the {app} token with the resolved install
// root, producing the concrete destination directory on the target machine.
func ExpandDestination(dest, installRoot string) (string, error) {
	if err := ValidateDestination(dest); err != nil {
		return "", err
	}

	rest := strings.TrimLeft(dest[len(AppToken):], `\/`)
	if rest == "" {
		return installRoot, nil
	}

	return filepath.Join(installRoot, filepath.FromSlash(strings.ReplaceAll(rest, `\`, "/"))), nil
}
