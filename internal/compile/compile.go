// Package compile translates TypeScript sources into JavaScript in process.
// The translation is syntactic: types are erased, nothing is type-checked,
// and a file that fails to parse is reported and skipped rather than failing
// the whole batch.
package compile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/innerself-app/innerself-app/internal/ctxlog"
	"github.com/innerself-app/innerself-app/internal/jsfmt"
)

// ErrNothingEmitted is returned when a batch produced no output at all.
var ErrNothingEmitted = errors.New("compiler emitted no files")

// Language level for input resolution and module emission.
type Language string

const (
	ES2015 Language = "es2015"
	ES2020 Language = "es2020"
	ESNext Language = "esnext"
)

// Options are the settings of a TypeScript compiler run. Options
// that only affect type checking are accepted and recorded but have no
// effect, since no type checking happens.
type Options struct {
	NoEmitOnError  bool
	NoImplicitAny  bool
	Target         Language
	Module         Language
	RemoveComments bool

	// OutExtension is the extension of emitted files (".js").
	OutExtension string

	// Concurrency bounds parallel transforms. Zero means 1.
	Concurrency int
}

// DefaultOptions are the settings used for the untyped recipe.
func DefaultOptions() Options {
	return Options{
		NoEmitOnError:  false,
		NoImplicitAny:  false,
		Target:         ESNext,
		Module:         ESNext,
		RemoveComments: false,
		OutExtension:   ".js",
		Concurrency:    1,
	}
}

// Diagnostic is a per-file compile problem.
type Diagnostic struct {
	File     string
	Messages []string
}

func (d Diagnostic) String() string {
	return d.File + ": " + strings.Join(d.Messages, "; ")
}

// Result lists emitted files and per-file diagnostics, both sorted by path.
type Result struct {
	Emitted     []string
	Diagnostics []Diagnostic
}

// Compiler translates a set of files.
type Compiler interface {
	Compile(ctx context.Context, files []string, opts Options) (*Result, error)
}

// Esbuild is a Compiler backed by esbuild's transform API. Each input
// file is emitted next to itself with Options.OutExtension.
type Esbuild struct{}

// Compile implements Compiler.
func (Esbuild) Compile(ctx context.Context, files []string, opts Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	target, err := esbuildTarget(opts.Target)
	if err != nil {
		return nil, err
	}
	// Every supported module level is an ES module level.
	if _, err := esbuildTarget(opts.Module); err != nil {
		return nil, fmt.Errorf("module: %w", err)
	}
	outExt := opts.OutExtension
	if outExt == "" {
		outExt = ".js"
	}

	var (
		mu  sync.Mutex
		res = &Result{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))
	for _, file := range files {
		if strings.HasSuffix(file, ".d.ts") {
			continue
		}
		file := file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}

			code, msgs := jsfmt.Print(src, jsfmt.PrintOptions{
				Sourcefile:   file,
				Loader:       api.LoaderTS,
				Target:       target,
				Format:       api.FormatDefault,
				KeepComments: !opts.RemoveComments,
			})
			if len(msgs) > 0 {
				mu.Lock()
				res.Diagnostics = append(res.Diagnostics, Diagnostic{File: file, Messages: msgs})
				mu.Unlock()
				if opts.NoEmitOnError {
					return fmt.Errorf("compiling %s: %s", file, strings.Join(msgs, "; "))
				}
				return nil
			}

			out := strings.TrimSuffix(file, extOf(file)) + outExt
			if err := os.WriteFile(out, code, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			mu.Lock()
			res.Emitted = append(res.Emitted, out)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(res.Emitted)
	sort.Slice(res.Diagnostics, func(i, j int) bool { return res.Diagnostics[i].File < res.Diagnostics[j].File })

	logger.Debug("compiled sources", "inputs", len(files), "emitted", len(res.Emitted), "diagnostics", len(res.Diagnostics))

	if len(res.Emitted) == 0 {
		return res, ErrNothingEmitted
	}
	return res, nil
}

func esbuildTarget(l Language) (api.Target, error) {
	switch l {
	case ESNext, "":
		return api.ESNext, nil
	case ES2020:
		return api.ES2020, nil
	case ES2015:
		return api.ES2015, nil
	default:
		return 0, fmt.Errorf("unsupported target %q", l)
	}
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 || strings.ContainsAny(path[i:], `/\`) {
		return ""
	}
	return path[i:]
}

var _ Compiler = Esbuild{}
