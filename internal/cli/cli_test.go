package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/innerself-app/innerself-app/internal/scaffold"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRootWithoutArgsPrintsHelp(t *testing.T) {
	out, err := run(t)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(out, "Usage:") || !strings.Contains(out, "--typescript") {
		t.Errorf("help output = %q", out)
	}
}

func TestVersion(t *testing.T) {
	buildVersion, buildCommit, buildDate = "1.2.3", "abc123", "2026-01-01"

	out, err := run(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "1.2.3" {
		t.Errorf("version --short = %q", out)
	}

	out, err = run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "innerself-app version 1.2.3 (commit: abc123, built: 2026-01-01)\n" {
		t.Errorf("version = %q", out)
	}
}

func TestCreateTypeScript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "demo")
	out, err := run(t, "--typescript", "--skip-install", "--log-level", "error", dir)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(out, "innerself-app: creating new typescript app in "+dir) {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "Created typed app at "+dir) {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "src", "index.ts")); err != nil {
		t.Error("typed entry point missing")
	}

	// Flags do not leak into the next invocation.
	next := filepath.Join(t.TempDir(), "demo2")
	if _, err := run(t, "--skip-install", "--log-level", "error", next); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(next, "src", "index.js")); err != nil {
		t.Error("second run should produce a javascript app")
	}
}

func TestCreateNonEmptyTarget(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "--skip-install", dir)
	if !errors.Is(err, scaffold.ErrTargetNotEmpty) {
		t.Fatalf("error = %v, want ErrTargetNotEmpty", err)
	}
	if !strings.Contains(out, "is not empty, exiting.") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigCommands(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	var stdout bytes.Buffer
	if err := Run(context.Background(), []string{"config", "set", "installer.command", "pnpm"}, &stdout, &stdout); err != nil {
		t.Fatalf("config set error: %v", err)
	}
	stdout.Reset()
	if err := Run(context.Background(), []string{"config", "get", "installer.command"}, &stdout, &stdout); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(stdout.String()) != "pnpm" {
		t.Errorf("config get = %q", stdout.String())
	}
	stdout.Reset()
	if err := Run(context.Background(), []string{"config", "list"}, &stdout, &stdout); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), "installer.command = pnpm\n") || !strings.Contains(stdout.String(), "concurrency = 8\n") {
		t.Errorf("config list = %q", stdout.String())
	}

	if err := Run(context.Background(), []string{"config", "set", "nope", "x"}, &stdout, &stdout); err == nil {
		t.Error("expected error for unknown key")
	}
}
