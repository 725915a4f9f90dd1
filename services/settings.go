package services

import (
	"fmt"

	"github.com/nevna/upwell/internal/domain/build"
	"github.com/nevna/upwell/internal/infrastructure/config"
)

// SettingsFromConfig projects the loaded configuration onto the update
// service's settings, filling in XDG defaults for unset directories.
func SettingsFromConfig(cfg *config.Config, info build.Info) Settings {
	downloadDir := cfg.Update.DownloadDir
	if downloadDir == "" {
		if dir, err := config.GetDownloadDir(); err == nil {
			downloadDir = dir
		}
	}

	return Settings{
		ResourceID:     cfg.Update.ResourceID,
		CurrentVersion: info.Version,
		CDK:            cfg.Update.CDK,
		Channel:        cfg.Update.ChannelValue(),
		FallbackURL:    cfg.Update.FallbackURL,
		UserAgent:      fmt.Sprintf("upwell/%s", info.Version),
		DownloadDir:    downloadDir,
		InstallDir:     cfg.Update.InstallDir,
		AutoCheck:      cfg.Update.AutoCheck,
		AutoDownload:   cfg.Update.AutoDownload,
	}
}
