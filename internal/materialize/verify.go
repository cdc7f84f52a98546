package materialize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/innerself-app/innerself-app/internal/pkgjson"
	"github.com/innerself-app/innerself-app/internal/rollupcfg"
)

// verify checks that the output tree matches what recipe promises.
func verify(r *run, recipe Recipe) error {
	layout := r.layout
	var problems []string

	m, err := pkgjson.Load(filepath.Join(r.out, layout.Manifest))
	if err != nil {
		return fmt.Errorf("verifying output: %w", err)
	}
	cfgSrc, err := os.ReadFile(filepath.Join(r.out, layout.BuildConfig))
	if err != nil {
		return fmt.Errorf("verifying output: %w", err)
	}
	cfg, err := rollupcfg.Parse(cfgSrc)
	if err != nil {
		return fmt.Errorf("verifying output: %w", err)
	}
	imports := make(map[string]bool)
	for _, imp := range cfg.Imports() {
		imports[imp] = true
	}

	exists := func(rel string) bool {
		_, err := os.Stat(filepath.Join(r.out, filepath.FromSlash(rel)))
		return err == nil
	}

	if recipe.StripsLegacy() {
		tc := layout.LegacyTranspiler
		for _, name := range tc.Dependencies {
			if m.Has(layout.DependencyGroup, name) {
				problems = append(problems, "manifest still lists "+name)
			}
		}
		if tc.RunControl != "" && exists(tc.RunControl) {
			problems = append(problems, tc.RunControl+" still present")
		}
		if imports[tc.ImportSource] {
			problems = append(problems, layout.BuildConfig+" still imports "+tc.ImportSource)
		}
	}

	if recipe.Typed() {
		if !exists(layout.EntryPoint) {
			problems = append(problems, "entry point "+layout.EntryPoint+" missing")
		}
	} else {
		tc := layout.TypedToolchain
		typed, err := findByExt(r.out, layout.TypedExtension)
		if err != nil {
			return err
		}
		for _, f := range typed {
			problems = append(problems, "typed source "+relTo(r.out, f)+" left behind")
		}
		for _, name := range tc.Dependencies {
			if m.Has(layout.DependencyGroup, name) {
				problems = append(problems, "manifest still lists "+name)
			}
		}
		if tc.Config != "" && exists(tc.Config) {
			problems = append(problems, tc.Config+" still present")
		}
		if imports[tc.ImportSource] {
			problems = append(problems, layout.BuildConfig+" still imports "+tc.ImportSource)
		}
		if !exists(layout.UntypedEntryPoint()) {
			problems = append(problems, "entry point "+layout.UntypedEntryPoint()+" missing")
		}
		if input, ok := cfg.Input(); ok && input != layout.UntypedEntryPoint() {
			problems = append(problems, layout.BuildConfig+" input is "+input)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInconsistentOutput, strings.Join(problems, "; "))
	}
	return nil
}
