package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nevna/upwell/internal/cli/styles"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check for updates without downloading",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, _ []string) error {
	app := GetApp()
	renderer := styles.NewUpdateRenderer(app.Theme)

	info, err := app.Update.CheckOnly(app.Context())
	if err != nil {
		fmt.Print(renderer.RenderError(err))
		return err
	}

	if info.ErrorCode != 0 {
		fmt.Print(renderer.RenderKeyNotice(info.ErrorCode, info.ErrorMessage))
	}
	if !info.HasUpdate {
		fmt.Print(renderer.RenderUpToDate(app.BuildInfo.Version))
		return nil
	}
	fmt.Print(renderer.RenderAvailable(info, app.BuildInfo.Version))
	if info.DownloadURL == "" {
		fmt.Println("     No download link available from any source.")
	}
	return nil
}
