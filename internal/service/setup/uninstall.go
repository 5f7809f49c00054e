package setup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/idrisfallout/artemis-installer/internal/domain/pathlist"
	"github.com/idrisfallout/artemis-installer/internal/domain/plan"
	"github.com/idrisfallout/artemis-installer/internal/logger"
	"github.com/idrisfallout/artemis-installer/internal/repository/record"
)

// Uninstall removes everything the install recorded, in reverse order:
// shortcuts, the environment segment, then files. It is the public entry
// point for the CLI's uninstall subcommand.
func Uninstall(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "artemis-setup")

	r := newRunner(opts)

	if err := r.openBundle(); err != nil {
		return err
	}

	defer func() {
		_ = r.bundle.Close()
	}()

	if err := r.uninstall(ctx); err != nil {
		logger.ErrorKV(ctx, "Uninstall failed", "error", err)
		return err
	}

	logger.InfoKV(ctx, "Uninstall completed", "app", r.installPlan.AppName)

	return nil
}

func (r *runner) uninstall(ctx context.Context) error {
	if err := r.resolveInstallRoot(); err != nil {
		return err
	}

	repo := record.NewFileRepository(r.installRoot)

	rec, err := repo.Load(ctx)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return errNothingInstalled
		}

		return err
	}

	if !r.opts.Silent {
		question := fmt.Sprintf("Remove %s %s from %s?",
			rec.AppName, rec.AppVersion, rec.InstallRoot)

		proceed, confirmErr := r.confirm(ctx, question)
		if confirmErr != nil {
			return confirmErr
		}

		if !proceed {
			return ErrCancelled
		}
	}

	logger.Info(ctx, "Removing shortcuts")

	for _, link := range rec.Shortcuts {
		if err = removeIfPresent(link); err != nil {
			return err
		}
	}

	logger.Info(ctx, "Reverting environment mutation")

	if err = r.revertMutation(ctx, rec.Mutation); err != nil {
		return err
	}

	logger.Info(ctx, "Removing files")

	for _, path := range rec.Files {
		if err = removeIfPresent(path); err != nil {
			return err
		}
	}

	if err = repo.Delete(ctx); err != nil {
		return err
	}

	r.pruneEmptyDirs(ctx, rec)

	return nil
}

// revertMutation deletes exactly the segment the install added. A nil
// mutation means the install never changed the variable, so uninstall must
// not touch it either.
func (r *runner) revertMutation(ctx context.Context, applied *plan.AppliedMutation) error {
	if applied == nil {
		logger.Info(ctx, "No environment mutation was recorded, leaving variable untouched")
		return nil
	}

	store, err := r.storeFor(applied.Scope)
	if err != nil {
		return &EnvironmentMutationError{Variable: applied.Variable, Err: err}
	}

	current, _, err := store.Get(applied.Variable)
	if err != nil {
		return &EnvironmentMutationError{Variable: applied.Variable, Err: err}
	}

	newValue, changed := pathlist.Remove(current, applied.Segment)
	if !changed {
		logger.InfoKV(ctx, "Recorded segment no longer present",
			"variable", applied.Variable, "segment", applied.Segment)

		return nil
	}

	if err = store.Set(applied.Variable, newValue); err != nil {
		return &EnvironmentMutationError{Variable: applied.Variable, Err: err}
	}

	logger.InfoKV(ctx, "Removed environment segment",
		"variable", applied.Variable, "segment", applied.Segment)

	if r.installPlan.RefreshSession {
		if err = store.Broadcast(); err != nil {
			logger.WarnKV(ctx, "Session refresh failed", "error", err)
		}
	}

	return nil
}

// pruneEmptyDirs removes now-empty directories the install created, deepest
// first. Directories still holding user data are silently left in place.
func (r *runner) pruneEmptyDirs(ctx context.Context, rec *plan.Record) {
	dirs := make(map[string]struct{})

	// Walk each file's directory chain up to the install root.
	for _, path := range rec.Files {
		for dir := filepath.Dir(path); len(dir) >= len(r.installRoot); dir = filepath.Dir(dir) {
			dirs[dir] = struct{}{}

			if dir == r.installRoot {
				break
			}
		}
	}

	for _, link := range rec.Shortcuts {
		dirs[filepath.Dir(link)] = struct{}{}
	}

	dirs[r.installRoot] = struct{}{}

	ordered := make([]string, 0, len(dirs))
	for dir := range dirs {
		ordered = append(ordered, dir)
	}

	// Deepest paths first so children go before parents.
	sort.Slice(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })

	for _, dir := range ordered {
		if err := os.Remove(dir); err == nil {
			logger.DebugKV(ctx, "Removed empty directory", "path", dir)
		}
	}
}

// removeIfPresent deletes a file, tolerating one that is already gone.
func removeIfPresent(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return classifyWriteError(path, err)
	}

	return nil
}
