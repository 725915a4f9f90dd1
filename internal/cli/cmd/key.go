package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nevna/upwell/internal/cli/styles"
)

var keyCmd = &cobra.Command{
	Use:   "key [access-key]",
	Short: "Show or set the update access key",
	Long: `Show whether an access key is configured, or persist a new one.

The key is written to the config file; a running upwell instance picks
it up immediately, switching an in-flight download to the keyed source
when possible. Pass an empty string ("") to remove the key.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKey,
}

func init() {
	rootCmd.AddCommand(keyCmd)
}

func runKey(_ *cobra.Command, args []string) error {
	app := GetApp()

	if len(args) == 0 {
		if app.Config.Get().Update.CDK == "" {
			fmt.Println("\n  No access key configured; updates use the public release feed.")
		} else {
			fmt.Printf("\n  %s An access key is configured.\n", styles.IconKey)
		}
		return nil
	}

	if err := app.Config.SetCDK(args[0]); err != nil {
		return err
	}
	if args[0] == "" {
		fmt.Printf("\n  %s Access key removed.\n", styles.IconCheck)
	} else {
		fmt.Printf("\n  %s Access key saved.\n", styles.IconCheck)
	}
	return nil
}
