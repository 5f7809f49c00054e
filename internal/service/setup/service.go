package setup

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver"
	goupdate "github.com/doitdistributed/go-update"

	"github.com/idrisfallout/artemis-installer/internal/domain/pathlist"
	"github.com/idrisfallout/artemis-installer/internal/domain/plan"
	"github.com/idrisfallout/artemis-installer/internal/domain/scope"
	"github.com/idrisfallout/artemis-installer/internal/envstore"
	"github.com/idrisfallout/artemis-installer/internal/logger"
	"github.com/idrisfallout/artemis-installer/internal/payload"
	"github.com/idrisfallout/artemis-installer/internal/repository/record"
	"github.com/idrisfallout/artemis-installer/internal/shortcut"
)

// DefaultFileMode is applied to installed executables and documents.
const DefaultFileMode os.FileMode = 0o755

// installDirPermissions is used for directories the install creates.
const installDirPermissions os.FileMode = 0o755

// Options are inputs accepted by the installer runtime entry points.
type Options struct {
	// BundlePath overrides the bundle location; empty means the running
	// executable (the normal self-extracting case).
	BundlePath string
	// Silent skips the confirmation prompt for unattended installs.
	Silent bool
}

// runner holds the state and injected capabilities for one install or
// uninstall execution. Capabilities default to the real environment and are
// substituted in tests. It is unexported; callers use Run and Uninstall.
type runner struct {
	opts        *Options
	bundle      *payload.Bundle
	installPlan *plan.InstallPlan
	installRoot string

	// lookupEnv resolves well-known directories on this machine.
	lookupEnv scope.LookupEnv
	// storeFor opens the environment store for a scope.
	storeFor func(scope.Scope) (envstore.Store, error)
	// shortcuts registers Start-menu entries.
	shortcuts shortcut.Creator
	// confirm asks the user to proceed; unused in silent mode.
	confirm func(ctx context.Context, question string) (bool, error)
	// terminate stops running processes before their files are replaced.
	terminate func(names []string) error

	// existing is the previous install's record, nil on a fresh install.
	existing *plan.Record
	// copied accumulates absolute paths of files this run placed.
	copied []string
	// links accumulates absolute paths of shortcuts this run created.
	links []string
	// applied is the environment change this run performed, nil on no-op.
	applied *plan.AppliedMutation
}

// Run executes the install lifecycle and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "artemis-setup")

	r := newRunner(opts)

	if err := r.openBundle(); err != nil {
		return err
	}

	defer func() {
		_ = r.bundle.Close()
	}()

	if err := r.install(ctx); err != nil {
		logger.ErrorKV(ctx, "Install failed", "error", err)
		return err
	}

	logger.InfoKV(ctx, "Install completed",
		"app", r.installPlan.AppName, "version", r.installPlan.AppVersion)

	return nil
}

// newRunner wires the real capabilities; tests replace them field by field.
func newRunner(opts *Options) *runner {
	return &runner{
		opts:      opts,
		lookupEnv: os.LookupEnv,
		storeFor:  envstore.ForScope,
		shortcuts: shortcut.New(),
		confirm:   promptConfirm,
		terminate: terminateProcessesByName,
	}
}

// openBundle locates the payload and decodes the embedded plan.
func (r *runner) openBundle() error {
	var (
		bundle *payload.Bundle
		err    error
	)

	if r.opts.BundlePath != "" {
		bundle, err = payload.Open(r.opts.BundlePath)
	} else {
		bundle, err = payload.OpenSelf()
	}

	if err != nil {
		return err
	}

	r.bundle = bundle

	planData, err := bundle.Plan()
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidPlan, err)
	}

	installPlan, err := plan.Decode(planData)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidPlan, err)
	}

	r.installPlan = installPlan

	return nil
}

// install executes the plan in its fixed order:
// 1) Resolve the install root for this machine.
// 2) Confirm with the user unless running silent.
// 3) Compare against any existing install.
// 4) Stop running processes about to be replaced.
// 5) Copy files.
// 6) Apply environment mutations, then refresh the session.
// 7) Register shortcuts.
// 8) Persist the uninstall record.
func (r *runner) install(ctx context.Context) error {
	if err := r.resolveInstallRoot(); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Resolved install directory",
		"path", r.installRoot, "scope", r.installPlan.Scope)

	if !r.opts.Silent {
		question := fmt.Sprintf("Install %s %s to %s?",
			r.installPlan.AppName, r.installPlan.AppVersion, r.installRoot)

		proceed, err := r.confirm(ctx, question)
		if err != nil {
			return err
		}

		if !proceed {
			return ErrCancelled
		}
	}

	r.compareInstalledVersion(ctx)

	logger.Info(ctx, "Stopping running application processes")

	if err := r.terminate(r.packagedFileNames()); err != nil {
		return fmt.Errorf("stop running processes: %w", err)
	}

	logger.Info(ctx, "Copying files")

	if err := r.executeCopies(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "Applying environment mutations")

	if err := r.applyMutations(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "Registering shortcuts")

	if err := r.registerShortcuts(ctx); err != nil {
		return err
	}

	return r.saveRecord(ctx)
}

// resolveInstallRoot turns the plan's scope into a concrete directory.
func (r *runner) resolveInstallRoot() error {
	root, err := scope.InstallRoot(r.installPlan.Scope, r.installPlan.AppName, r.lookupEnv)
	if err != nil {
		return err
	}

	r.installRoot = root

	return nil
}

// compareInstalledVersion logs how this run relates to an existing install.
// A missing or unreadable record simply means a fresh install.
func (r *runner) compareInstalledVersion(ctx context.Context) {
	repo := record.NewFileRepository(r.installRoot)

	existing, err := repo.Load(ctx)
	if err != nil {
		if !errors.Is(err, record.ErrNotFound) {
			logger.WarnKV(ctx, "Could not read existing install record", "error", err)
		}

		logger.Info(ctx, "No existing install detected, performing fresh install")

		return
	}

	r.existing = existing

	installed, err := semver.NewVersion(existing.AppVersion)
	if err != nil {
		logger.WarnKV(ctx, "Existing install has unparseable version",
			"version", existing.AppVersion)

		return
	}

	packaged, err := semver.NewVersion(r.installPlan.AppVersion)
	if err != nil {
		return
	}

	switch {
	case packaged.GreaterThan(installed):
		logger.InfoKV(ctx, "Upgrading existing install",
			"from", installed.String(), "to", packaged.String())
	case packaged.LessThan(installed):
		logger.WarnKV(ctx, "Installing older version over newer install",
			"installed", installed.String(), "packaged", packaged.String())
	default:
		logger.InfoKV(ctx, "Re-installing same version", "version", packaged.String())
	}
}

// packagedFileNames lists the file names the plan will place.
func (r *runner) packagedFileNames() []string {
	names := make([]string, 0, len(r.installPlan.Copies))
	for _, op := range r.installPlan.Copies {
		names = append(names, op.FileName)
	}

	return names
}

// executeCopies places every packaged file according to its versioning
// policy, verifying each write against the packaged checksum.
func (r *runner) executeCopies(ctx context.Context) error {
	for _, op := range r.installPlan.Copies {
		if err := r.executeCopy(ctx, op); err != nil {
			return err
		}
	}

	return nil
}

func (r *runner) executeCopy(ctx context.Context, op plan.CopyOperation) error {
	destDir, err := scope.ExpandDestination(op.Destination, r.installRoot)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(destDir, installDirPermissions); err != nil {
		return classifyWriteError(destDir, err)
	}

	target := filepath.Join(destDir, op.FileName)

	checksum, err := base64.StdEncoding.DecodeString(op.Checksum)
	if err != nil {
		return fmt.Errorf("%w: checksum of %s: %w", errInvalidPlan, op.FileName, err)
	}

	_, statErr := os.Stat(target)
	exists := statErr == nil

	if exists {
		switch op.Policy {
		case plan.OverwriteNever:
			logger.InfoKV(ctx, "Keeping existing file", "path", target)
			return nil
		case plan.OverwriteIfDifferent:
			current, checksumErr := plan.FileChecksum(target)
			if checksumErr == nil && bytes.Equal(current, checksum) {
				logger.DebugKV(ctx, "File is up to date", "path", target)
				r.copied = append(r.copied, target)

				return nil
			}
		case plan.OverwriteAlways:
		}
	}

	data, err := r.bundle.ReadEntry(op.Payload)
	if err != nil {
		return err
	}

	// goupdate renames the previous file aside, so the target must exist.
	if !exists {
		created, createErr := os.Create(target)
		if createErr != nil {
			return classifyWriteError(target, createErr)
		}

		if err = created.Close(); err != nil {
			return classifyWriteError(target, err)
		}
	}

	applyOptions := goupdate.Options{
		TargetPath: target,
		TargetMode: DefaultFileMode,
		Checksum:   checksum,
		Hash:       plan.ChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), applyOptions); err != nil {
		return classifyWriteError(target, err)
	}

	oldFileName := target + ".old"
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	logger.InfoKV(ctx, "Installed file", "path", target)
	r.copied = append(r.copied, target)

	return nil
}

// applyMutations performs the idempotent environment changes. The whole new
// value is computed before the single registry write, and the session
// refresh is only broadcast after that write confirmed success.
func (r *runner) applyMutations(ctx context.Context) error {
	for _, m := range r.installPlan.Mutations {
		segment, err := scope.ExpandDestination(m.Value, r.installRoot)
		if err != nil {
			return err
		}

		store, err := r.storeFor(m.Scope)
		if err != nil {
			return &EnvironmentMutationError{Variable: m.Variable, Err: err}
		}

		current, _, err := store.Get(m.Variable)
		if err != nil {
			return &EnvironmentMutationError{Variable: m.Variable, Err: err}
		}

		newValue, changed := pathlist.Ensure(current, segment)
		if !changed {
			logger.InfoKV(ctx, "Environment value already present",
				"variable", m.Variable, "segment", segment)

			// A previous install of ours may own the segment; keep that
			// attribution so uninstall still restores the variable.
			if prior := r.existing; prior != nil && prior.Mutation != nil &&
				pathlist.SegmentsEqual(prior.Mutation.Segment, segment) {
				r.applied = prior.Mutation
			}

			continue
		}

		if err = store.Set(m.Variable, newValue); err != nil {
			return &EnvironmentMutationError{Variable: m.Variable, Err: err}
		}

		// A mutation declared keep is never recorded, so uninstall
		// leaves the variable alone.
		if m.OnUninstall != plan.KeepValue {
			r.applied = &plan.AppliedMutation{
				Scope:    m.Scope,
				Variable: m.Variable,
				Segment:  segment,
			}
		}

		logger.InfoKV(ctx, "Appended environment segment",
			"variable", m.Variable, "segment", segment)

		if r.installPlan.RefreshSession {
			// Refresh only: the value is never applied a second time.
			if err = store.Broadcast(); err != nil {
				logger.WarnKV(ctx, "Session refresh failed, new shells may need a re-login",
					"error", err)
			}
		}
	}

	return nil
}

// registerShortcuts creates one Start-menu entry per plan shortcut.
func (r *runner) registerShortcuts(ctx context.Context) error {
	for _, sc := range r.installPlan.Shortcuts {
		dir, err := scope.StartMenuDir(sc.Location, r.installPlan.AppName, r.lookupEnv)
		if err != nil {
			return err
		}

		if err = os.MkdirAll(dir, installDirPermissions); err != nil {
			return classifyWriteError(dir, err)
		}

		link := filepath.Join(dir, sc.DisplayName+".lnk")
		target := filepath.Join(r.installRoot, filepath.FromSlash(sc.Target))

		var icon string
		if sc.Icon != "" {
			icon = filepath.Join(r.installRoot, filepath.FromSlash(sc.Icon))
		}

		if err = r.shortcuts.Create(ctx, link, target, r.installRoot, icon); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Registered shortcut", "path", link)
		r.links = append(r.links, link)
	}

	return nil
}

// saveRecord persists the uninstall manifest describing exactly what this
// run created, so uninstall is the precise inverse of install.
func (r *runner) saveRecord(ctx context.Context) error {
	repo := record.NewFileRepository(r.installRoot)

	rec := &plan.Record{
		AppName:     r.installPlan.AppName,
		AppVersion:  r.installPlan.AppVersion,
		InstallRoot: r.installRoot,
		Files:       r.copied,
		Shortcuts:   r.links,
		Mutation:    r.applied,
	}

	if err := repo.Save(ctx, rec); err != nil {
		return classifyWriteError(repo.Path(), err)
	}

	return nil
}
