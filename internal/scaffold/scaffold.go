package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/innerself-app/innerself-app/internal/ctxlog"
	"github.com/innerself-app/innerself-app/internal/installer"
	"github.com/innerself-app/innerself-app/internal/materialize"
	"github.com/innerself-app/innerself-app/internal/pkgjson"
	"github.com/innerself-app/innerself-app/internal/template"
)

// ErrTargetNotEmpty is returned when the target directory already holds
// files. Nothing is written in that case.
var ErrTargetNotEmpty = errors.New("target directory is not empty")

// Options configures one project creation.
type Options struct {
	// Dir is the target directory, relative to the working directory
	// unless absolute. Ignored when Init is set.
	Dir string

	// Init creates the app in the working directory.
	Init bool

	Flags       materialize.Flags
	SkipInstall bool

	// Materializer defaults to one over the embedded template.
	Materializer *materialize.Materializer

	// Installer defaults to installer.NPM().
	Installer installer.Installer
}

// Result holds the outcome of a project creation.
type Result struct {
	OutputDir string
	Recipe    string
	Files     []string
	Warnings  []string

	// Created reports whether the target directory was created by this run.
	Created bool
}

// Create materializes a new app. On a materialization error the target is
// rolled back to the state it was found in. An installer failure leaves the
// tree in place and returns both the result and the error.
func Create(ctx context.Context, opts Options) (*Result, error) {
	runID := uuid.NewString()
	logger := ctxlog.FromContext(ctx).With("run", runID)
	ctx = ctxlog.WithLogger(ctx, logger)

	dir := opts.Dir
	if opts.Init || dir == "" {
		dir = "."
	}
	absdir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	created, err := prepareTarget(absdir)
	if err != nil {
		return nil, err
	}

	m := opts.Materializer
	if m == nil {
		tmpl, err := template.Default()
		if err != nil {
			rollback(ctx, absdir, created)
			return nil, err
		}
		m = materialize.New(tmpl)
	}

	recipe := materialize.Resolve(opts.Flags)
	logger.Info("creating app", "dir", absdir, "recipe", recipe.Name(), "strip_toolchain", recipe.StripsLegacy())

	mres, err := m.Run(ctx, recipe, absdir)
	if err != nil {
		rollback(ctx, absdir, created)
		return nil, fmt.Errorf("materializing %s app: %w", recipe.Name(), err)
	}

	result := &Result{
		OutputDir: absdir,
		Recipe:    mres.Recipe,
		Files:     mres.Files,
		Warnings:  mres.Warnings,
		Created:   created,
	}
	result.Warnings = append(result.Warnings, validateManifest(absdir, m.Template.Layout)...)

	if opts.SkipInstall {
		logger.Info("skipping dependency installation")
		return result, nil
	}
	inst := opts.Installer
	if inst == nil {
		inst = installer.NPM()
	}
	if err := inst.Install(ctx, absdir); err != nil {
		return result, fmt.Errorf("installing dependencies: %w", err)
	}
	return result, nil
}

// prepareTarget checks that dir is empty or missing and creates it in the
// latter case. It reports whether it created the directory.
func prepareTarget(dir string) (bool, error) {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, fmt.Errorf("creating output directory: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("checking output directory: %w", err)
	case !info.IsDir():
		return false, fmt.Errorf("%s exists and is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("listing output directory: %w", err)
	}
	if len(entries) > 0 {
		return false, fmt.Errorf("%w: %s", ErrTargetNotEmpty, dir)
	}
	return false, nil
}

// rollback restores dir to the state prepareTarget found it in: removed if
// this run created it, emptied otherwise.
func rollback(ctx context.Context, dir string, created bool) {
	logger := ctxlog.FromContext(ctx)
	if created {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("rolling back output directory", "dir", dir, "error", err)
		}
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("rolling back output directory", "dir", dir, "error", err)
		return
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			logger.Warn("rolling back output directory", "path", e.Name(), "error", err)
		}
	}
}

// validateManifest returns the problems found in the generated manifest as
// warnings.
func validateManifest(dir string, layout *template.Layout) []string {
	m, err := pkgjson.Load(filepath.Join(dir, layout.Manifest))
	if err != nil {
		return []string{fmt.Sprintf("Could not validate manifest: %v", err)}
	}
	valResult, err := m.Validate()
	if err != nil {
		return []string{fmt.Sprintf("Could not validate manifest: %v", err)}
	}
	var warnings []string
	for _, issue := range valResult.Issues {
		warnings = append(warnings, layout.Manifest+": "+issue.String())
	}
	return warnings
}
