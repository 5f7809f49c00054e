package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver"
	"gopkg.in/yaml.v3"

	"github.com/idrisfallout/artemis-installer/internal/domain/plan"
	"github.com/idrisfallout/artemis-installer/internal/domain/scope"
)

// FileEntry declares one file the installer places: a source path relative
// to the packaging working directory, a token-addressed destination
// directory and an optional versioning policy.
type FileEntry struct {
	// Source is the path of the file to package, relative to the manifest.
	Source string `yaml:"source"`
	// Destination is the target directory token path, defaulting to "{app}".
	Destination string `yaml:"destination"`
	// Versioning decides behavior when the destination already exists,
	// defaulting to overwrite-if-different.
	Versioning plan.VersioningPolicy `yaml:"versioning"`
}

// ShortcutDecl declares one Start-menu shortcut to register at install time.
type ShortcutDecl struct {
	// DisplayName is the shortcut's visible name, defaulting to AppName.
	DisplayName string `yaml:"display_name"`
	// Target is the installed executable path relative to the install root.
	Target string `yaml:"target"`
}

// Manifest is the declarative input of the installer generator. It is
// created once per release build and immutable for the duration of
// installer generation.
type Manifest struct {
	// AppName is the application's display and directory name.
	AppName string `yaml:"app_name"`
	// AppVersion is the release's semantic version.
	AppVersion string `yaml:"app_version"`
	// InstallScope is per-user or per-machine.
	InstallScope scope.Scope `yaml:"install_scope"`
	// LicenseFile is the license file packaged alongside the executable.
	LicenseFile string `yaml:"license_file"`
	// IconFile is the icon used for shortcuts.
	IconFile string `yaml:"icon_file"`
	// PathAppend controls whether the install directory is appended to the
	// scope's PATH variable at all.
	PathAppend bool `yaml:"path_append"`
	// RefreshSessionOnInstall controls whether a confirmed PATH write is
	// followed by a settings-change broadcast so new shells observe the
	// value without logging out.
	RefreshSessionOnInstall bool `yaml:"refresh_session_on_install"`
	// Files is the ordered list of file-copy declarations.
	Files []FileEntry `yaml:"files"`
	// Shortcuts is the list of Start-menu shortcuts to register.
	Shortcuts []ShortcutDecl `yaml:"shortcuts"`
}

const (
	// DefaultManifestFilename is the manifest looked up when no path is given.
	DefaultManifestFilename = "artemis-installer.yaml"

	// DefaultFilePermissions is the file permission for written manifests.
	DefaultFilePermissions = 0o600
)

var (
	// errManifestIsNotSet is returned when a nil manifest is provided.
	errManifestIsNotSet = errors.New("manifest is not set")
	// errAppNameRequired is returned when the application name is missing.
	errAppNameRequired = errors.New("application name must be provided")
	// errNoFiles is returned when the manifest declares nothing to install.
	errNoFiles = errors.New("manifest declares no files")
	// errNoSource is returned when a file entry has an empty source path.
	errNoSource = errors.New("file entry has no source path")
	// errShortcutTarget is returned when a shortcut has no target.
	errShortcutTarget = errors.New("shortcut has no target")
)

// Load reads a manifest from the provided path, applies defaults and
// validates it.
func Load(path string) (*Manifest, error) {
	if path == "" {
		path = DefaultManifestFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	if err := Validate(&m); err != nil {
		return nil, err
	}

	return &m, nil
}

// Save writes the manifest to the provided path.
func Save(path string, m *Manifest) error {
	if m == nil {
		return errManifestIsNotSet
	}

	if path == "" {
		path = DefaultManifestFilename
	}

	if err := Validate(m); err != nil {
		return err
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// Validate checks required fields, fills defaults and verifies formats.
// Source file existence is deliberately not checked here: the resolver
// validates sources against the packaging working directory so that every
// missing file can be reported at once.
func Validate(m *Manifest) error {
	if m == nil {
		return errManifestIsNotSet
	}

	if m.AppName == "" {
		return errAppNameRequired
	}

	if _, err := semver.NewVersion(m.AppVersion); err != nil {
		return fmt.Errorf("app version %q: %w", m.AppVersion, err)
	}

	// Default scope keeps unattended installs elevation-free.
	if m.InstallScope == "" {
		m.InstallScope = scope.PerUser
	}

	if !m.InstallScope.Valid() {
		return fmt.Errorf("%q: %w", m.InstallScope, scope.ErrUnknownScope)
	}

	if len(m.Files) == 0 {
		return errNoFiles
	}

	for i := range m.Files {
		entry := &m.Files[i]
		if entry.Source == "" {
			return errNoSource
		}

		if entry.Destination == "" {
			entry.Destination = scope.AppToken
		}

		if err := scope.ValidateDestination(entry.Destination); err != nil {
			return err
		}

		if entry.Versioning == "" {
			entry.Versioning = plan.OverwriteIfDifferent
		}

		if !entry.Versioning.Valid() {
			return fmt.Errorf("%s: unknown versioning policy %q", entry.Source, entry.Versioning)
		}
	}

	for i := range m.Shortcuts {
		sc := &m.Shortcuts[i]
		if sc.Target == "" {
			return errShortcutTarget
		}

		if sc.DisplayName == "" {
			sc.DisplayName = m.AppName
		}
	}

	return nil
}
