package cli

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/Masterminds/semver/v3"
	"github.com/innerself-app/innerself-app/internal/config"
	"github.com/innerself-app/innerself-app/internal/installer"
	"github.com/innerself-app/innerself-app/internal/template"
	"github.com/spf13/cobra"
)

// minNPMVersion is the oldest npm that writes package-lock.json.
const minNPMVersion = ">= 5.0.0"

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that apps can be created and installed",
	Long:  `Run diagnostic checks on the embedded template and the tools needed to install a new app.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0

		fmt.Fprintln(out, "Template check:")
		if !checkTemplate(out) {
			failed++
		}

		fmt.Fprintln(out, "Runtime check:")
		if !checkBinary(out, "node") {
			failed++
		}
		name := config.InstallerCommand()
		if !checkBinary(out, name) {
			failed++
		} else if name == "npm" && !checkNPMVersion(cmd.Context(), out) {
			failed++
		}

		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

func checkTemplate(w io.Writer) bool {
	tmpl, err := template.Default()
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return false
	}
	digest, n, err := template.Digest(tmpl.FS)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return false
	}
	fmt.Fprintf(w, "  [ OK ] %d files, digest %s\n", n, digest)
	return true
}

func checkBinary(w io.Writer, name string) bool {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Fprintf(w, "  [MISS] %s not found\n", name)
		return false
	}
	fmt.Fprintf(w, "  [ OK ] %s found at %s\n", name, path)
	return true
}

func checkNPMVersion(ctx context.Context, w io.Writer) bool {
	raw, err := installer.ToolVersion(ctx, "npm")
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return false
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] npm reported version %q: %v\n", raw, err)
		return false
	}
	c, err := semver.NewConstraint(minNPMVersion)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return false
	}
	if !c.Check(v) {
		fmt.Fprintf(w, "  [FAIL] npm %s does not satisfy %s\n", v, minNPMVersion)
		return false
	}
	fmt.Fprintf(w, "  [ OK ] npm %s satisfies %s\n", v, minNPMVersion)
	return true
}
