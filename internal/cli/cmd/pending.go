package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nevna/upwell/internal/cli/styles"
)

var pendingClear bool

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Inspect or discard the staged update",
	RunE:  runPending,
}

func init() {
	rootCmd.AddCommand(pendingCmd)
	pendingCmd.Flags().BoolVar(&pendingClear, "clear", false, "discard the staged update")
}

func runPending(_ *cobra.Command, _ []string) error {
	app := GetApp()
	ctx := app.Context()
	theme := app.Theme

	rec, err := app.Store.GetPending(ctx)
	if err != nil {
		return fmt.Errorf("read pending update: %w", err)
	}
	if rec == nil {
		fmt.Println("\n  No update is staged.")
		return nil
	}

	if pendingClear {
		if err := app.Store.ClearPending(ctx); err != nil {
			return fmt.Errorf("clear pending update: %w", err)
		}
		fmt.Printf("\n  %s Discarded staged update %s\n",
			styles.IconCheck, theme.Highlight.Render(rec.VersionName))
		return nil
	}

	fmt.Printf("\n  %s  %s (%s channel, %s)\n",
		styles.IconPackage,
		theme.Highlight.Render(rec.VersionName),
		rec.Channel,
		rec.UpdateType,
	)
	fmt.Printf("     artifact: %s\n", theme.Subtle.Render(rec.SavePath))
	if rec.FileSize > 0 {
		fmt.Printf("     size: %s\n", styles.FormatBytes(rec.FileSize))
	}
	fmt.Printf("     source: %s\n", rec.DownloadSource)
	fmt.Printf("     downloaded: %s\n", rec.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Println("\n  Run 'upwell update' to install it.")
	return nil
}
