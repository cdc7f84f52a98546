package compile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/innerself-app/innerself-app/internal/ctxlog"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEsbuildCompile(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "src/a.ts", "/**\n * counter\n */\nexport const count: number = 1;\n")
	b := writeFile(t, dir, "src/store/b.ts", "import { State } from './state';\nexport function get(s: State): number {\n  return s.count;\n}\n")
	d := writeFile(t, dir, "src/types.d.ts", "declare const x: number;\n")

	opts := DefaultOptions()
	opts.Concurrency = 4
	res, err := Esbuild{}.Compile(context.Background(), []string{a, b, d}, opts)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	want := []string{filepath.Join(dir, "src/a.js"), filepath.Join(dir, "src/store/b.js")}
	if strings.Join(res.Emitted, ",") != strings.Join(want, ",") {
		t.Errorf("Emitted = %v, want %v", res.Emitted, want)
	}

	out, err := os.ReadFile(filepath.Join(dir, "src/a.js"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "export const count = 1;") {
		t.Errorf("a.js = %q", out)
	}
	if !strings.Contains(string(out), "counter") {
		t.Errorf("comment dropped from a.js: %q", out)
	}

	out, err = os.ReadFile(filepath.Join(dir, "src/store/b.js"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "./state") {
		t.Errorf("type-only import should be erased: %q", out)
	}
	if !strings.Contains(string(out), "export function get(s) {") || strings.Contains(string(out), "export {") {
		t.Errorf("declaration export not kept in place: %q", out)
	}
}

func TestEsbuildCompileBestEffort(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.ts", "export const ok = true;\n")
	bad := writeFile(t, dir, "bad.ts", "export const = ;\n")

	var logs bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), ctxlog.New("warn", "text", &logs))
	res, err := Esbuild{}.Compile(ctx, []string{good, bad}, DefaultOptions())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(res.Emitted) != 1 || res.Emitted[0] != filepath.Join(dir, "good.js") {
		t.Errorf("Emitted = %v", res.Emitted)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].File != bad {
		t.Errorf("Diagnostics = %v", res.Diagnostics)
	}
	// Diagnostics are reported to the caller, not logged here.
	if logs.Len() != 0 {
		t.Errorf("unexpected log output:\n%s", logs.String())
	}
}

func TestEsbuildCompileNoEmitOnError(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.ts", "export const = ;\n")

	opts := DefaultOptions()
	opts.NoEmitOnError = true
	if _, err := (Esbuild{}).Compile(context.Background(), []string{bad}, opts); err == nil {
		t.Fatal("expected error with NoEmitOnError")
	}
}

func TestEsbuildCompileNothingEmitted(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.ts", "export const = ;\n")

	_, err := Esbuild{}.Compile(context.Background(), []string{bad}, DefaultOptions())
	if !errors.Is(err, ErrNothingEmitted) {
		t.Fatalf("error = %v, want ErrNothingEmitted", err)
	}

	_, err = Esbuild{}.Compile(context.Background(), nil, DefaultOptions())
	if !errors.Is(err, ErrNothingEmitted) {
		t.Fatalf("empty batch error = %v, want ErrNothingEmitted", err)
	}
}

func TestEsbuildCompileUnsupportedTarget(t *testing.T) {
	opts := DefaultOptions()
	opts.Target = "es3"
	if _, err := (Esbuild{}).Compile(context.Background(), nil, opts); err == nil {
		t.Fatal("expected error for unsupported target")
	}
}

func TestExtOf(t *testing.T) {
	tests := map[string]string{
		"a/b.ts":      ".ts",
		"a.b/c":       "",
		"noext":       "",
		"x.config.ts": ".ts",
	}
	for in, want := range tests {
		if got := extOf(in); got != want {
			t.Errorf("extOf(%q) = %q, want %q", in, got, want)
		}
	}
}
