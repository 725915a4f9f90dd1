// Package cmd provides Cobra CLI commands for upwell.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nevna/upwell/internal/cli"
	"github.com/nevna/upwell/internal/cli/styles"
	"github.com/nevna/upwell/internal/domain/build"
)

var (
	app       *cli.App
	buildInfo build.Info
	rootCmd   = &cobra.Command{
		Use:   "upwell",
		Short: "Update companion for the Upwell desktop assistant",
		Long: `Upwell keeps the desktop assistant up to date.

It checks the keyed distribution API when an access key is configured,
falls back to the public release feed otherwise, downloads full or
incremental packages, and applies them in place with a restart.

Run 'upwell update' for the interactive flow, or use the individual
subcommands to check, inspect, and install separately.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "version":
				return nil
			}

			var err error
			app, err = cli.NewApp(buildInfo)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}

			// The resume sequence runs before any subcommand logic: a
			// restart record is consumed exactly once, a staged update
			// installs, or a background check starts.
			just, err := app.Update.Startup(app.Context())
			if err != nil {
				return fmt.Errorf("startup: %w", err)
			}
			if just != nil {
				renderer := styles.NewUpdateRenderer(app.Theme)
				fmt.Print(renderer.RenderJustUpdated(just.PreviousVersion, just.NewVersion))
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if app != nil {
				_ = app.Close()
			}
		},
	}
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GetApp returns the initialized app (for use by subcommands).
func GetApp() *cli.App {
	return app
}

// SetBuildInfo sets the build information (called from main.go before Execute).
func SetBuildInfo(info build.Info) {
	buildInfo = info
}
