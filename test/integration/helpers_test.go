//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/innerself-app/innerself-app/internal/cli"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir     string // HOME; holds .innerself-app/config.yaml
	WorkDir     string // INNERSELF_APP_WORK_DIR; parent of working trees
	BinDir      string // prepended to PATH; holds the fake installer
	ProjectsDir string // parent of generated apps
}

// setupTestEnv creates isolated temp directories and sets environment variables
// so every run is sandboxed and no real package manager is invoked. The env
// vars are restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake installer is a shell script")
	}

	env := &testEnv{
		HomeDir:     t.TempDir(),
		WorkDir:     t.TempDir(),
		BinDir:      t.TempDir(),
		ProjectsDir: t.TempDir(),
	}

	t.Setenv("HOME", env.HomeDir)
	t.Setenv("INNERSELF_APP_WORK_DIR", env.WorkDir)
	t.Setenv("INNERSELF_APP_LOG_LEVEL", "error")
	t.Setenv("PATH", env.BinDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	writeInstaller(t, env, "fake-npm", "#!/bin/sh\necho \"$@\" > .installed\n")
	t.Setenv("INNERSELF_APP_INSTALLER_COMMAND", "fake-npm")

	return env
}

// writeInstaller puts an executable script named name on the test PATH.
func writeInstaller(t *testing.T, env *testEnv, name, script string) {
	t.Helper()
	path := filepath.Join(env.BinDir, name)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// runCLI executes the command tree and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := cli.Run(context.Background(), args, &stdout, &stderr)
	if err != nil {
		t.Logf("stderr:\n%s", stderr.String())
	}
	return stdout.String(), err
}

// readTree returns the content of every regular file under root.
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		tree[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("reading tree %s: %v", root, err)
	}
	return tree
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertEmptyDir fails the test if dir has any entries.
func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Errorf("reading %s: %v", dir, err)
		return
	}
	if len(entries) != 0 {
		t.Errorf("expected %s to be empty, found %d entries", dir, len(entries))
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}

// assertFileNotContains fails if the file contains substr.
func assertFileNotContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if strings.Contains(string(data), substr) {
		t.Errorf("file %s should not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}
