package installer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available, skipping")
	}
}

func TestCommandInstall(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	var stdout bytes.Buffer
	c := &Command{
		Name:   "sh",
		Args:   []string{"-c", "pwd; touch installed"},
		Stdout: &stdout,
	}
	if err := c.Install(context.Background(), dir); err != nil {
		t.Fatalf("Install() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "installed")); err != nil {
		t.Error("command did not run in the project directory")
	}
	if !strings.Contains(stdout.String(), filepath.Base(dir)) {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestCommandInstallFailure(t *testing.T) {
	requireShell(t)
	var stderr bytes.Buffer
	c := &Command{
		Name:   "sh",
		Args:   []string{"-c", "echo 'npm ERR! missing script' >&2; exit 3"},
		Stderr: &stderr,
	}
	err := c.Install(context.Background(), t.TempDir())

	var ie *Error
	if !errors.As(err, &ie) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if ie.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", ie.ExitCode)
	}
	if !strings.Contains(ie.Error(), "npm ERR! missing script") {
		t.Errorf("Error() = %q", ie.Error())
	}
	if !strings.Contains(stderr.String(), "npm ERR!") {
		t.Error("stderr should be streamed to the configured writer")
	}
}

func TestCommandInstallMissingBinary(t *testing.T) {
	c := &Command{Name: "innerself-app-no-such-installer"}
	err := c.Install(context.Background(), t.TempDir())
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("error = %v, want exec.ErrNotFound", err)
	}
}

func TestNPM(t *testing.T) {
	if got := NPM().String(); got != "npm install" {
		t.Errorf("NPM().String() = %q", got)
	}
}

func TestToolVersionMissing(t *testing.T) {
	if _, err := ToolVersion(context.Background(), "innerself-app-no-such-tool"); err == nil {
		t.Error("expected error for missing tool")
	}
}
