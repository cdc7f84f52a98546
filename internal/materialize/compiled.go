package materialize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/innerself-app/innerself-app/internal/compile"
	"github.com/innerself-app/innerself-app/internal/jsfmt"
	"github.com/innerself-app/innerself-app/internal/rollupcfg"
	"github.com/innerself-app/innerself-app/internal/template"
)

// CompiledRecipe derives an untyped project by compiling the template's
// TypeScript sources to JavaScript in a private working tree.
type CompiledRecipe struct {
	// StripToolchain also removes the legacy transpiler.
	StripToolchain bool
}

func (CompiledRecipe) Name() string         { return "compiled" }
func (CompiledRecipe) Typed() bool          { return false }
func (c CompiledRecipe) StripsLegacy() bool { return c.StripToolchain }

func (c CompiledRecipe) apply(ctx context.Context, r *run) error {
	work, err := os.MkdirTemp(r.m.WorkDir, WorkTreePrefix)
	if err != nil {
		return fmt.Errorf("creating working tree: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(work); rmErr != nil {
			r.logger.Warn("removing working tree", "path", work, "error", rmErr)
		}
	}()
	r.logger.Debug("created working tree", "path", work)

	if err := copyFS(r.tmpl.FS, work); err != nil {
		return fmt.Errorf("copying template to working tree: %w", err)
	}

	typed, err := findByExt(work, r.layout.TypedExtension)
	if err != nil {
		return err
	}

	compiler := r.m.Compiler
	if compiler == nil {
		compiler = compile.Esbuild{}
	}
	opts := compile.DefaultOptions()
	opts.OutExtension = r.layout.UntypedExtension
	opts.Concurrency = r.concurrency()

	r.logger.Info("compiling sources", "files", len(typed))
	cres, err := compiler.Compile(ctx, typed, opts)
	if cres != nil {
		r.res.Diagnostics = cres.Diagnostics
		for _, d := range cres.Diagnostics {
			r.warn("compile: " + relTo(work, d.File) + ": " + strings.Join(d.Messages, "; "))
		}
	}
	if err != nil {
		if errors.Is(err, compile.ErrNothingEmitted) {
			return err
		}
		return fmt.Errorf("compiling sources: %w", err)
	}

	untyped, err := findByExt(work, r.layout.UntypedExtension)
	if err != nil {
		return err
	}

	formatter := jsfmt.New(jsfmt.Options{
		SingleQuote: true,
		Rewrite:     c.rewriteBuildConfig(r, filepath.Join(work, r.layout.BuildConfig)),
	})

	r.logger.Info("reformatting emitted sources", "files", len(untyped), "removing", len(typed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency())
	for _, file := range typed {
		file := file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := os.Remove(file); err != nil {
				return fmt.Errorf("removing %s: %w", relTo(work, file), err)
			}
			return nil
		})
	}
	for _, file := range untyped {
		file := file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return formatter.FormatFile(file)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := copyDir(work, r.out); err != nil {
		return fmt.Errorf("copying working tree to %s: %w", r.out, err)
	}

	if c.StripToolchain {
		warnings, err := RemoveToolchain(ctx, r.out, r.layout, r.layout.LegacyTranspiler)
		if err != nil {
			return fmt.Errorf("removing legacy transpiler: %w", err)
		}
		r.warn(warnings...)
	}

	tc := r.layout.TypedToolchain
	if err := removeFiles(ctx, r.out, append([]string{tc.Config}, tc.ScratchArtifacts...)); err != nil {
		return err
	}
	removed, err := editManifest(filepath.Join(r.out, r.layout.Manifest), r.layout.DependencyGroup, tc.Dependencies)
	if err != nil {
		return fmt.Errorf("editing manifest: %w", err)
	}
	r.logger.Debug("removed dependencies", "group", r.layout.DependencyGroup, "names", removed)
	return nil
}

// rewriteBuildConfig returns the reformatter hook that points the build
// configuration at the untyped entry point and unwires the typed toolchain.
// Every other file passes through untouched.
func (c CompiledRecipe) rewriteBuildConfig(r *run, cfgPath string) jsfmt.RewriteFunc {
	layout := r.layout
	return func(path string, src []byte) ([]byte, error) {
		if path != cfgPath {
			return src, nil
		}
		cfg, err := rollupcfg.Parse(src)
		if err != nil {
			return nil, err
		}
		if input, ok := cfg.Input(); ok && strings.HasSuffix(input, layout.TypedExtension) {
			if _, err := cfg.SetInput(untypedName(layout, input)); err != nil {
				return nil, err
			}
		} else if !ok {
			r.warn(layout.BuildConfig + ": no string input entry found, left unchanged")
		}

		out, warnings, err := unwireToolchain(cfg.Bytes(), layout.TypedToolchain)
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			r.warn(layout.BuildConfig + ": " + w)
		}
		return out, nil
	}
}

func untypedName(layout *template.Layout, name string) string {
	return strings.TrimSuffix(name, layout.TypedExtension) + layout.UntypedExtension
}

func relTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
