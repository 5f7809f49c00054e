package packager

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/idrisfallout/artemis-installer/internal/config"
	"github.com/idrisfallout/artemis-installer/internal/domain/plan"
	"github.com/idrisfallout/artemis-installer/internal/domain/scope"
	"github.com/idrisfallout/artemis-installer/internal/logger"
	"github.com/idrisfallout/artemis-installer/internal/payload"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ManifestPath is the path to the install manifest YAML.
	ManifestPath string
	// StubPath is the path to the prebuilt installer runtime executable the
	// payload is attached to.
	StubPath string
	// OutputPath is where the finished installer is written; empty derives
	// "<app>-setup-<version>.exe" next to the manifest.
	OutputPath string
}

// ValidationError reports every unusable referenced source file at once, so a
// broken release build is fixed in one pass rather than one file per run.
type ValidationError struct {
	// Missing lists the source paths that do not exist or could not be
	// inspected, sorted.
	Missing []string
}

// Error renders the full missing-file list.
func (e *ValidationError) Error() string {
	return "missing source files: " + strings.Join(e.Missing, ", ")
}

// installerFileMode marks the produced installer executable.
const installerFileMode os.FileMode = 0o755

var errDuplicateFileName = errors.New("duplicate packaged file name")

// generator builds the install plan and emits the installer package.
// It is unexported; callers use Run, which encapsulates setup and validation.
type generator struct {
	// manifest is the validated install manifest.
	manifest *config.Manifest
	// baseDir anchors relative source paths, i.e. the manifest's directory.
	baseDir string
	// stubPath locates the installer runtime executable.
	stubPath string
	// outputPath is where the installer is written.
	outputPath string
	// installPlan is the resolved plan embedded into the installer.
	installPlan *plan.InstallPlan
	// files are the packaged payload entries.
	files []payload.File
}

// Run executes the installer-generation workflow.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "artemis-packager")

	manifest, err := config.Load(opts.ManifestPath)
	if err != nil {
		return err
	}

	gen := newGenerator(manifest, opts)

	if err = gen.run(ctx); err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	logger.InfoKV(ctx, "Installer written", "path", gen.outputPath)
	logger.Infof(ctx, "Upload %s as the release artifact for %s %s",
		gen.outputPath, manifest.AppName, manifest.AppVersion)

	return nil
}

// newGenerator resolves paths relative to the manifest location.
func newGenerator(manifest *config.Manifest, opts *Options) *generator {
	baseDir := filepath.Dir(filepath.Clean(opts.ManifestPath))
	if opts.ManifestPath == "" {
		baseDir = "."
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		name := fmt.Sprintf("%s-setup-%s.exe",
			strings.ToLower(manifest.AppName), manifest.AppVersion)
		outputPath = filepath.Join(baseDir, name)
	}

	return &generator{
		manifest:   manifest,
		baseDir:    baseDir,
		stubPath:   opts.StubPath,
		outputPath: outputPath,
	}
}

// run validates sources, builds the plan and emits the installer.
// No output is produced until every referenced file has been verified.
func (g *generator) run(ctx context.Context) error {
	logger.Info(ctx, "Validating referenced source files")

	if err := g.validateSources(); err != nil {
		return err
	}

	logger.Info(ctx, "Building install plan")

	if err := g.buildPlan(); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Packaging installer",
		"files", len(g.files), "stub", g.stubPath)

	return g.emit()
}

// copyEntries returns the manifest's file list with the license and icon
// appended as regular install-root entries.
func (g *generator) copyEntries() []config.FileEntry {
	entries := append([]config.FileEntry(nil), g.manifest.Files...)

	for _, extra := range []string{g.manifest.LicenseFile, g.manifest.IconFile} {
		if extra != "" {
			entries = append(entries, config.FileEntry{
				Source:      extra,
				Destination: scope.AppToken,
				Versioning:  plan.OverwriteIfDifferent,
			})
		}
	}

	return entries
}

// validateSources checks that every referenced input is readable, collecting
// all unusable paths instead of stopping at the first. Any stat failure
// disqualifies a source; a path that cannot be inspected cannot be packaged.
func (g *generator) validateSources() error {
	var missing []string

	check := func(path string) {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}

	check(g.stubPath)

	for _, entry := range g.copyEntries() {
		check(g.sourcePath(entry.Source))
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{Missing: missing}
	}

	return nil
}

// sourcePath resolves a manifest-relative source path.
func (g *generator) sourcePath(source string) string {
	if filepath.IsAbs(source) {
		return source
	}

	return filepath.Join(g.baseDir, source)
}

// buildPlan reads the sources, fingerprints them and assembles the ordered
// copy, mutation and shortcut operations.
func (g *generator) buildPlan() error {
	m := g.manifest
	entries := g.copyEntries()

	installPlan := &plan.InstallPlan{
		AppName:        m.AppName,
		AppVersion:     m.AppVersion,
		Scope:          m.InstallScope,
		RefreshSession: m.RefreshSessionOnInstall,
		Copies:         make([]plan.CopyOperation, 0, len(entries)),
	}

	seen := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		fileName := filepath.Base(entry.Source)
		if _, dup := seen[fileName]; dup {
			return fmt.Errorf("%s: %w", fileName, errDuplicateFileName)
		}

		seen[fileName] = struct{}{}

		contents, err := os.ReadFile(filepath.Clean(g.sourcePath(entry.Source)))
		if err != nil {
			return fmt.Errorf("read source %s: %w", entry.Source, err)
		}

		checksum, err := plan.BytesChecksum(contents)
		if err != nil {
			return err
		}

		payloadName := payload.FilePrefix + fileName
		g.files = append(g.files, payload.File{Name: payloadName, Contents: contents})

		installPlan.Copies = append(installPlan.Copies, plan.CopyOperation{
			Payload:     payloadName,
			Destination: entry.Destination,
			FileName:    fileName,
			Policy:      entry.Versioning,
			Checksum:    base64.StdEncoding.EncodeToString(checksum),
		})
	}

	if m.PathAppend {
		installPlan.Mutations = []plan.EnvironmentMutation{{
			Scope:       m.InstallScope,
			Variable:    "Path",
			Value:       scope.AppToken,
			OnUninstall: plan.RemoveSegment,
		}}
	}

	var icon string
	if m.IconFile != "" {
		icon = filepath.Base(m.IconFile)
	}

	for _, sc := range m.Shortcuts {
		installPlan.Shortcuts = append(installPlan.Shortcuts, plan.ShortcutEntry{
			DisplayName: sc.DisplayName,
			Target:      sc.Target,
			Location:    m.InstallScope,
			Icon:        icon,
		})
	}

	if err := installPlan.Validate(); err != nil {
		return err
	}

	g.installPlan = installPlan

	return nil
}

// emit writes stub + payload + trailer to the output path.
func (g *generator) emit() error {
	planData, err := g.installPlan.Marshal()
	if err != nil {
		return err
	}

	stub, err := os.Open(filepath.Clean(g.stubPath))
	if err != nil {
		return fmt.Errorf("open installer stub: %w", err)
	}

	defer func() {
		_ = stub.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(g.outputPath),
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC, installerFileMode)
	if err != nil {
		return fmt.Errorf("create installer output: %w", err)
	}

	if err = payload.Write(out, stub, planData, g.files); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}
