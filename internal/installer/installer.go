package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/innerself-app/innerself-app/internal/ctxlog"
)

// Installer installs the dependencies of the project in dir.
type Installer interface {
	Install(ctx context.Context, dir string) error
}

// Error is returned when the install command exits non-zero. The project
// tree is left as it was so the install can be retried by hand.
type Error struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

// Command runs an external package manager, "npm install" by default.
type Command struct {
	Name string
	Args []string

	// Stdout and Stderr can be set for testing; default to io.Discard and
	// os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// NPM returns the default installer.
func NPM() *Command {
	return &Command{Name: "npm", Args: []string{"install"}}
}

// Install runs the command with dir as its working directory.
func (c *Command) Install(ctx context.Context, dir string) error {
	bin, err := exec.LookPath(c.Name)
	if err != nil {
		return fmt.Errorf("looking up installer %q: %w", c.Name, err)
	}

	cmd := exec.CommandContext(ctx, bin, c.Args...)
	cmd.Dir = dir

	stdout := c.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := c.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var stderrBuf bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stderr, &stderrBuf)

	ctxlog.FromContext(ctx).Info("installing dependencies", "command", c.String(), "dir", dir)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Error{Command: c.String(), ExitCode: exitErr.ExitCode(), Stderr: stderrBuf.String()}
		}
		return fmt.Errorf("running %s: %w", c.String(), err)
	}
	return nil
}

// String returns the command line.
func (c *Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// ToolVersion runs "<name> --version" and returns the trimmed output.
func ToolVersion(ctx context.Context, name string) (string, error) {
	bin, err := exec.LookPath(name)
	if err != nil {
		return "", err
	}
	out, err := exec.CommandContext(ctx, bin, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("running %s --version: %w", name, err)
	}
	return strings.TrimPrefix(strings.TrimSpace(string(out)), "v"), nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

var _ Installer = (*Command)(nil)
