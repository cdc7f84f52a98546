package materialize

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/innerself-app/innerself-app/internal/compile"
	"github.com/innerself-app/innerself-app/internal/ctxlog"
	"github.com/innerself-app/innerself-app/internal/template"
)

// WorkTreePrefix names the scratch directory of a compiled run. It is
// reserved so a leftover working tree is never mistaken for project content.
const WorkTreePrefix = ".innerself-app-work-"

// ErrInconsistentOutput is returned when a finished tree still carries
// files or manifest entries its recipe should have removed.
var ErrInconsistentOutput = errors.New("inconsistent output tree")

// Result describes a materialized tree.
type Result struct {
	Recipe string

	// Files are the regular files of the output tree, slash-separated and
	// relative to it, in lexical order.
	Files []string

	// Warnings are non-fatal problems, in the order they were found.
	Warnings []string

	// Diagnostics are per-file compile problems of a compiled run.
	Diagnostics []compile.Diagnostic
}

// Materializer runs recipes against one template.
type Materializer struct {
	Template *template.Template

	// Compiler translates typed sources. Defaults to compile.Esbuild.
	Compiler compile.Compiler

	// WorkDir is the parent of the working tree. Empty means os.TempDir().
	WorkDir string

	// Concurrency bounds the per-file batches of a compiled run.
	Concurrency int
}

// New creates a Materializer with the default compiler.
func New(tmpl *template.Template) *Materializer {
	return &Materializer{
		Template:    tmpl,
		Compiler:    compile.Esbuild{},
		Concurrency: 8,
	}
}

// run holds the state of one recipe execution.
type run struct {
	m      *Materializer
	tmpl   *template.Template
	layout *template.Layout
	out    string
	logger *slog.Logger

	mu  sync.Mutex
	res *Result
}

func (r *run) warn(msgs ...string) {
	if len(msgs) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range msgs {
		r.logger.Warn(msg)
		r.res.Warnings = append(r.res.Warnings, msg)
	}
}

func (r *run) concurrency() int {
	return max(r.m.Concurrency, 1)
}

// Run materializes recipe into out, which must be an existing directory.
// The caller owns out and decides what to do with a partial tree on error.
func (m *Materializer) Run(ctx context.Context, recipe Recipe, out string) (*Result, error) {
	if m.Template == nil || m.Template.Layout == nil {
		return nil, fmt.Errorf("materializer has no template")
	}
	info, err := os.Stat(out)
	if err != nil {
		return nil, fmt.Errorf("checking output directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("output %s is not a directory", out)
	}

	logger := ctxlog.FromContext(ctx).With("recipe", recipe.Name())
	r := &run{
		m:      m,
		tmpl:   m.Template,
		layout: m.Template.Layout,
		out:    out,
		logger: logger,
		res:    &Result{Recipe: recipe.Name()},
	}

	if err := recipe.apply(ctxlog.WithLogger(ctx, logger), r); err != nil {
		return nil, err
	}
	if err := verify(r, recipe); err != nil {
		return nil, err
	}

	files, err := listFiles(out)
	if err != nil {
		return nil, fmt.Errorf("listing output tree: %w", err)
	}
	r.res.Files = files
	logger.Debug("materialized", "files", len(files), "warnings", len(r.res.Warnings))
	return r.res, nil
}

// listFiles returns the regular files under root, relative and slash-separated.
func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// findByExt returns every regular file under root whose name ends in ext,
// in lexical order.
func findByExt(root, ext string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && filepath.Ext(path) == ext {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s for *%s: %w", root, ext, err)
	}
	sort.Strings(files)
	return files, nil
}

// removeIfExists deletes path and reports whether it was there.
func removeIfExists(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
