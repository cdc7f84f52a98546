package materialize

import (
	"context"
	"fmt"
)

// TypedRecipe keeps the TypeScript sources and removes the legacy
// transpiler.
type TypedRecipe struct{}

func (TypedRecipe) Name() string       { return "typed" }
func (TypedRecipe) Typed() bool        { return true }
func (TypedRecipe) StripsLegacy() bool { return true }

func (TypedRecipe) apply(ctx context.Context, r *run) error {
	r.logger.Info("copying template", "dest", r.out)
	if err := copyFS(r.tmpl.FS, r.out); err != nil {
		return fmt.Errorf("copying template: %w", err)
	}

	warnings, err := RemoveToolchain(ctx, r.out, r.layout, r.layout.LegacyTranspiler)
	if err != nil {
		return fmt.Errorf("removing legacy transpiler: %w", err)
	}
	r.warn(warnings...)
	return nil
}
