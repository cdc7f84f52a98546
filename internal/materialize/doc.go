// Package materialize turns the embedded template into a project tree.
//
// Resolve picks exactly one Recipe from the command-line flags. The typed
// recipe copies the template and strips the legacy transpiler. The compiled
// recipe copies the template into a private working tree, compiles every
// TypeScript source to JavaScript, reformats the emitted files so they read
// like hand-written code, and commits the result. A Materializer runs the
// recipe and checks that the result is self-consistent before reporting
// success.
package materialize
