package materialize

import "context"

// Flags are the mode switches given on the command line.
type Flags struct {
	// Typed keeps the TypeScript sources.
	Typed bool

	// StripToolchain removes the legacy transpiler from an untyped project.
	// The typed recipe always removes it.
	StripToolchain bool
}

// Recipe is one deterministic way of deriving a project from the template.
type Recipe interface {
	// Name identifies the recipe in logs and results.
	Name() string

	// Typed reports whether the output keeps typed sources.
	Typed() bool

	// StripsLegacy reports whether the legacy transpiler is removed.
	StripsLegacy() bool

	apply(ctx context.Context, r *run) error
}

// Resolve selects the recipe for flags. Every combination is valid.
func Resolve(flags Flags) Recipe {
	if flags.Typed {
		return TypedRecipe{}
	}
	return CompiledRecipe{StripToolchain: flags.StripToolchain}
}
