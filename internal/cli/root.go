package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/innerself-app/innerself-app/internal/branding"
	"github.com/innerself-app/innerself-app/internal/config"
	"github.com/innerself-app/innerself-app/internal/ctxlog"
	"github.com/innerself-app/innerself-app/internal/installer"
	"github.com/innerself-app/innerself-app/internal/materialize"
	"github.com/innerself-app/innerself-app/internal/scaffold"
	"github.com/innerself-app/innerself-app/internal/template"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	createTypeScript bool
	createESNext     bool
	createInit       bool
	skipInstall      bool
)

func init() {
	rootCmd.Flags().BoolVarP(&createTypeScript, "typescript", "t", false, "create a typescript innerself app")
	rootCmd.Flags().BoolVarP(&createESNext, "esnext", "e", false, "drop the babel toolchain from a javascript app")
	rootCmd.Flags().BoolVarP(&createInit, "init", "i", false, "create a new innerself app in this directory")
	rootCmd.Flags().BoolVar(&skipInstall, "skip-install", false, "do not install dependencies")

	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	_ = viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName() + " [flags] <dirname>",
	Short: branding.Description(),
	Long: branding.DisplayName() + ` bootstraps a new innerself app in <dirname>.

By default the app is plain JavaScript, compiled from the bundled TypeScript
template. Pass --typescript to keep the TypeScript sources, or --esnext to
also drop the babel toolchain from a JavaScript app.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		logger := ctxlog.New(config.LogLevel(), config.LogFormat(), cmd.ErrOrStderr())
		cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
		return nil
	},
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !createInit {
		return cmd.Help()
	}
	dir := "."
	if len(args) == 1 && !createInit {
		dir = args[0]
	}
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if createTypeScript && createESNext {
		ctxlog.FromContext(ctx).Debug("--esnext has no effect on a typescript app")
	}

	tmpl, err := template.Default()
	if err != nil {
		return err
	}
	m := materialize.New(tmpl)
	m.WorkDir = config.WorkDir()
	m.Concurrency = config.Concurrency()

	kind := "app"
	if createTypeScript {
		kind = "typescript app"
	}
	absdir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	say(out, "creating new %s in %s...", kind, absdir)

	result, err := scaffold.Create(ctx, scaffold.Options{
		Dir:  dir,
		Init: createInit,
		Flags: materialize.Flags{
			Typed:          createTypeScript,
			StripToolchain: createESNext,
		},
		SkipInstall:  skipInstall,
		Materializer: m,
		Installer: &installer.Command{
			Name:   config.InstallerCommand(),
			Args:   config.InstallerArgs(),
			Stderr: cmd.ErrOrStderr(),
		},
	})
	if errors.Is(err, scaffold.ErrTargetNotEmpty) {
		say(out, "directory %s is not empty, exiting.", absdir)
		return err
	}
	if result != nil {
		printResult(out, result)
	}
	if err != nil {
		var ie *installer.Error
		if errors.As(err, &ie) {
			say(out, "dependency installation failed; the app is in place, run `%s` in %s to retry.", ie.Command, result.OutputDir)
		}
		return err
	}

	say(out, `done!

    To start developing, change to your directory
    and start the dev server...

      ~$ cd %s
      ~$ npm start
`, result.OutputDir)
	return nil
}

func printResult(w io.Writer, result *scaffold.Result) {
	fmt.Fprintf(w, "Created %s app at %s/\n", result.Recipe, result.OutputDir)
	for _, f := range result.Files {
		fmt.Fprintf(w, "  %s\n", f)
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}
}

func say(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s: %s\n", branding.CLIName(), fmt.Sprintf(format, args...))
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes the command tree with args. Flags from a previous Run are
// reset first.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.ExecuteContext(ctx)
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
