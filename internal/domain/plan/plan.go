package plan

import (
	"crypto"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/idrisfallout/artemis-installer/internal/domain/scope"

	// Ensure SHA512 is available for checksum calculation.
	_ "crypto/sha512"
)

// ChecksumFunction is used to fingerprint packaged files. Destination files
// whose checksum already matches are skipped on re-install.
const ChecksumFunction crypto.Hash = crypto.SHA512

// VersioningPolicy decides what happens when a destination file already exists.
type VersioningPolicy string

const (
	// OverwriteIfDifferent replaces the destination only when the packaged
	// bytes differ. This is the default: re-installs and upgrades are safe
	// and unrelated user data in the install directory is never clobbered.
	OverwriteIfDifferent VersioningPolicy = "overwrite-if-different"
	// OverwriteAlways replaces the destination unconditionally.
	OverwriteAlways VersioningPolicy = "always"
	// OverwriteNever leaves an existing destination untouched.
	OverwriteNever VersioningPolicy = "never"
)

// UninstallAction declares how an environment mutation is undone.
type UninstallAction string

const (
	// RemoveSegment deletes exactly the segment the install added.
	RemoveSegment UninstallAction = "remove-segment"
	// KeepValue leaves the variable untouched on uninstall.
	KeepValue UninstallAction = "keep"
)

var (
	errEmptyPlan        = errors.New("install plan is empty")
	errNoAppName        = errors.New("install plan has no application name")
	errBadPolicy        = errors.New("unknown versioning policy")
	errHashUnavailable  = errors.New("hash function unavailable")
	errMutationVariable = errors.New("environment mutation has no variable name")
)

// Valid reports whether p is a recognized versioning policy.
func (p VersioningPolicy) Valid() bool {
	switch p {
	case OverwriteIfDifferent, OverwriteAlways, OverwriteNever:
		return true
	default:
		return false
	}
}

// CopyOperation is one resolved file placement: a payload entry extracted
// into a token-addressed destination directory under a versioning policy.
type CopyOperation struct {
	// Payload is the entry name inside the installer payload archive.
	Payload string `yaml:"payload"`
	// Destination is the token-addressed directory, e.g. "{app}" or "{app}\docs".
	Destination string `yaml:"destination"`
	// FileName is the name the file takes inside the destination directory.
	FileName string `yaml:"file_name"`
	// Policy decides behavior when the destination file already exists.
	Policy VersioningPolicy `yaml:"policy"`
	// Checksum is the base64-encoded SHA-512 of the packaged bytes.
	Checksum string `yaml:"checksum"`
}

// EnvironmentMutation is a single idempotent modification of a named
// environment variable for a registry scope. Applying the same mutation
// twice never duplicates the value or corrupts existing entries.
type EnvironmentMutation struct {
	// Scope selects the registry hive holding the variable.
	Scope scope.Scope `yaml:"scope"`
	// Variable is the environment variable name, e.g. "Path".
	Variable string `yaml:"variable"`
	// Value is the token-addressed directory to ensure present, e.g. "{app}".
	Value string `yaml:"value"`
	// OnUninstall declares the inverse operation.
	OnUninstall UninstallAction `yaml:"on_uninstall"`
}

// ShortcutEntry registers one Start-menu shortcut pointing at an installed file.
type ShortcutEntry struct {
	// DisplayName is the shortcut's visible name.
	DisplayName string `yaml:"display_name"`
	// Target is the executable path relative to the install root.
	Target string `yaml:"target"`
	// Location selects the per-user or all-users Start Menu.
	Location scope.Scope `yaml:"location"`
	// Icon is an optional icon path relative to the install root.
	Icon string `yaml:"icon,omitempty"`
}

// InstallPlan is the fully resolved, ordered sequence of copy operations,
// environment mutations and shortcut registrations an installer executes.
// It is produced once at generation time and embedded in the installer.
type InstallPlan struct {
	// AppName is the application's display name and install directory name.
	AppName string `yaml:"app_name"`
	// AppVersion is the packaged semantic version.
	AppVersion string `yaml:"app_version"`
	// Scope selects per-user or per-machine placement.
	Scope scope.Scope `yaml:"scope"`
	// RefreshSession controls whether a settings-change broadcast follows a
	// confirmed environment write.
	RefreshSession bool `yaml:"refresh_session"`
	// Copies are executed first, in order.
	Copies []CopyOperation `yaml:"copies"`
	// Mutations are applied after all copies succeeded.
	Mutations []EnvironmentMutation `yaml:"mutations"`
	// Shortcuts are registered last.
	Shortcuts []ShortcutEntry `yaml:"shortcuts"`
}

// Marshal renders the plan as YAML for embedding into the installer payload.
func (p *InstallPlan) Marshal() ([]byte, error) {
	if p == nil {
		return nil, errEmptyPlan
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal install plan: %w", err)
	}

	return data, nil
}

// Decode parses an embedded plan and validates the fields the runtime
// depends on.
func Decode(data []byte) (*InstallPlan, error) {
	var p InstallPlan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode install plan: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

// Validate checks structural invariants of the plan.
func (p *InstallPlan) Validate() error {
	if p.AppName == "" {
		return errNoAppName
	}

	if !p.Scope.Valid() {
		return fmt.Errorf("%q: %w", p.Scope, scope.ErrUnknownScope)
	}

	for _, op := range p.Copies {
		if !op.Policy.Valid() {
			return fmt.Errorf("%s: %q: %w", op.FileName, op.Policy, errBadPolicy)
		}

		if err := scope.ValidateDestination(op.Destination); err != nil {
			return err
		}
	}

	for _, m := range p.Mutations {
		if m.Variable == "" {
			return errMutationVariable
		}
	}

	return nil
}

// AppliedMutation records the exact environment change an install performed,
// so uninstall can apply the precise inverse. When the install found the
// segment already present, or the mutation declared KeepValue, no mutation
// is recorded at all.
type AppliedMutation struct {
	// Scope is the registry hive that was written.
	Scope scope.Scope `yaml:"scope"`
	// Variable is the environment variable that was modified.
	Variable string `yaml:"variable"`
	// Segment is the exact segment value that was appended.
	Segment string `yaml:"segment"`
}

// Record is the uninstall manifest persisted in the install root: the list
// of copied files and shortcuts plus the exact environment mutation applied.
type Record struct {
	// AppName is the installed application's name.
	AppName string `yaml:"app_name"`
	// AppVersion is the installed semantic version.
	AppVersion string `yaml:"app_version"`
	// InstallRoot is the resolved install directory.
	InstallRoot string `yaml:"install_root"`
	// Files are the absolute paths of every file the install placed.
	Files []string `yaml:"files,omitempty"`
	// Shortcuts are the absolute paths of every shortcut created.
	Shortcuts []string `yaml:"shortcuts,omitempty"`
	// Mutation is the applied environment change, nil when the install
	// was an environment no-op.
	Mutation *AppliedMutation `yaml:"mutation,omitempty"`
}

// FileChecksum returns checksum bytes for a file using ChecksumFunction.
func FileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	return BytesChecksum(contents)
}

// BytesChecksum returns checksum bytes for in-memory contents.
func BytesChecksum(contents []byte) ([]byte, error) {
	if !ChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := ChecksumFunction.New()
	if _, err := hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}
