// Package config provides configuration management for upwell with
// Viper integration.
package config

import (
	"fmt"
	"net/url"

	"github.com/nevna/upwell/internal/domain/entity"
)

// File permission constants
const (
	dirPerm  = 0o755 // Standard directory permissions (rwxr-xr-x)
	filePerm = 0o644 // Standard file permissions (rw-r--r--)
)

// Config represents the complete configuration for upwell.
type Config struct {
	Update   UpdateConfig   `mapstructure:"update"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// UpdateConfig holds update subsystem configuration.
type UpdateConfig struct {
	// ResourceID identifies the application on the keyed provider.
	ResourceID string `mapstructure:"resource_id"`
	// CDK is the access key for the keyed provider. Empty means only
	// the public release host is queried.
	CDK     string `mapstructure:"cdk"`
	Channel string `mapstructure:"channel"`
	// ProviderBaseURL is the keyed distribution API root.
	ProviderBaseURL string `mapstructure:"provider_base_url"`
	// FallbackURL is the public release feed queried without a key.
	FallbackURL string `mapstructure:"fallback_url"`
	// AutoCheck runs an update check on startup.
	AutoCheck bool `mapstructure:"auto_check"`
	// AutoDownload starts the download as soon as a check yields a
	// direct URL. Tunable: some deployments want explicit consent
	// before spending bandwidth.
	AutoDownload bool `mapstructure:"auto_download"`
	// DownloadDir overrides where artifacts are saved.
	DownloadDir string `mapstructure:"download_dir"`
	// InstallDir overrides the directory updates are applied to.
	// Empty means the directory of the running executable.
	InstallDir string `mapstructure:"install_dir"`
}

// DatabaseConfig holds update-state database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ChannelValue returns the configured release channel as a domain value.
func (u UpdateConfig) ChannelValue() entity.Channel {
	if u.Channel == string(entity.ChannelBeta) {
		return entity.ChannelBeta
	}
	return entity.ChannelStable
}

func validateConfig(config *Config) error {
	switch config.Update.Channel {
	case string(entity.ChannelStable), string(entity.ChannelBeta):
	default:
		return fmt.Errorf("update.channel must be %q or %q, got %q",
			entity.ChannelStable, entity.ChannelBeta, config.Update.Channel)
	}

	for name, value := range map[string]string{
		"update.provider_base_url": config.Update.ProviderBaseURL,
		"update.fallback_url":      config.Update.FallbackURL,
	} {
		if value == "" {
			continue
		}
		if _, err := url.ParseRequestURI(value); err != nil {
			return fmt.Errorf("%s is not a valid URL: %w", name, err)
		}
	}

	switch config.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", config.Logging.Level)
	}

	return nil
}

func normalizeConfig(config *Config) {
	if config.Update.Channel == "" {
		config.Update.Channel = string(entity.ChannelStable)
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "console"
	}
}
