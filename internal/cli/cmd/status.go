package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nevna/upwell/internal/cli/styles"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current update state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	app := GetApp()
	theme := app.Theme

	st := app.Update.Snapshot()
	cfg := app.Config.Get()

	fmt.Printf("\n  %s upwell %s (%s channel)\n",
		styles.IconVersion,
		theme.Highlight.Render(orUnknown(app.BuildInfo.Version)),
		cfg.Update.Channel,
	)

	keyState := "not configured"
	if cfg.Update.CDK != "" {
		keyState = "configured"
	}
	fmt.Printf("  %s access key: %s\n", styles.IconKey, keyState)
	fmt.Printf("  %s download: %s\n", styles.IconDownload, st.DownloadStatus)
	fmt.Printf("  %s install: %s\n", styles.IconPackage, st.InstallStatus)

	if st.UpdateInfo != nil && st.UpdateInfo.HasUpdate {
		fmt.Printf("  %s available: %s\n", styles.IconRocket,
			theme.Highlight.Render(st.UpdateInfo.VersionName))
	}
	if st.LastError != "" {
		fmt.Printf("  %s last error: %s\n", styles.IconWarning,
			theme.ErrorStyle.Render(st.LastError))
	}

	rec, err := app.Store.GetPending(app.Context())
	if err != nil {
		return fmt.Errorf("read pending update: %w", err)
	}
	if rec != nil {
		fmt.Printf("  %s pending: %s downloaded %s\n",
			styles.IconClock,
			theme.Highlight.Render(rec.VersionName),
			theme.Subtle.Render(rec.Timestamp.Local().Format("2006-01-02 15:04")),
		)
	}
	fmt.Println()
	return nil
}
