package materialize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/innerself-app/innerself-app/internal/ctxlog"
	"github.com/innerself-app/innerself-app/internal/pkgjson"
	"github.com/innerself-app/innerself-app/internal/rollupcfg"
	"github.com/innerself-app/innerself-app/internal/template"
)

// RemoveToolchain removes every trace of tc from the project at root: its
// dependency keys from the manifest, its run-control, config and scratch
// files, and its import and plugin entry from the build configuration.
//
// A build-config import or plugin entry that cannot be found is reported
// as a warning and nothing is removed for it. Read, parse and write
// failures of the manifest or build configuration are errors.
func RemoveToolchain(ctx context.Context, root string, layout *template.Layout, tc template.Toolchain) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	removed, err := editManifest(filepath.Join(root, layout.Manifest), layout.DependencyGroup, tc.Dependencies)
	if err != nil {
		return nil, err
	}
	logger.Debug("removed dependencies", "group", layout.DependencyGroup, "names", removed)

	files := append([]string{tc.RunControl, tc.Config}, tc.ScratchArtifacts...)
	if err := removeFiles(ctx, root, files); err != nil {
		return nil, err
	}

	cfgPath := filepath.Join(root, layout.BuildConfig)
	src, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("reading build config: %w", err)
	}
	out, warnings, err := unwireToolchain(src, tc)
	if err != nil {
		return nil, fmt.Errorf("editing %s: %w", layout.BuildConfig, err)
	}
	if err := writeKeepMode(cfgPath, out); err != nil {
		return nil, fmt.Errorf("writing build config: %w", err)
	}
	for i, w := range warnings {
		warnings[i] = layout.BuildConfig + ": " + w
	}
	return warnings, nil
}

// unwireToolchain drops the import and the plugin entry of tc from a build
// configuration.
func unwireToolchain(src []byte, tc template.Toolchain) ([]byte, []string, error) {
	cfg, err := rollupcfg.Parse(src)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	if tc.ImportSource != "" {
		ok, err := cfg.RemoveImport(tc.ImportSource)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			warnings = append(warnings, fmt.Sprintf("no import of %q found, left unchanged", tc.ImportSource))
		}
	}
	if tc.Plugin != "" {
		ok, err := cfg.RemovePlugin(tc.Plugin)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			warnings = append(warnings, fmt.Sprintf("no %s() entry found in plugins, left unchanged", tc.Plugin))
		}
	}
	return cfg.Bytes(), warnings, nil
}

// editManifest deletes names from one dependency group and rewrites the
// manifest whole.
func editManifest(path, group string, names []string) ([]string, error) {
	m, err := pkgjson.Load(path)
	if err != nil {
		return nil, err
	}
	removed, err := m.Remove(group, names...)
	if err != nil {
		return nil, err
	}
	if err := m.Save(); err != nil {
		return nil, err
	}
	return removed, nil
}

// removeFiles deletes the given root-relative files if they exist.
func removeFiles(ctx context.Context, root string, files []string) error {
	logger := ctxlog.FromContext(ctx)
	for _, f := range files {
		if f == "" {
			continue
		}
		ok, err := removeIfExists(filepath.Join(root, filepath.FromSlash(f)))
		if err != nil {
			return fmt.Errorf("removing %s: %w", f, err)
		}
		if ok {
			logger.Debug("removed file", "path", f)
		}
	}
	return nil
}

func writeKeepMode(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, data, mode)
}
