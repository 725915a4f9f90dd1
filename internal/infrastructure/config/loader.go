package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Manager handles configuration loading, watching, and reloading.
type Manager struct {
	config    *Config
	viper     *viper.Viper
	mu        sync.RWMutex
	callbacks []func(*Config)
	watching  bool
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")

	configDir, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine config directory: %w\nCheck XDG_CONFIG_HOME environment variable or HOME directory", err)
	}
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Current directory for development

	v.SetEnvPrefix("UPWELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit bindings for env vars with non-derivable names
	if err := v.BindEnv("update.cdk", "UPWELL_CDK"); err != nil {
		return nil, fmt.Errorf("failed to bind UPWELL_CDK: %w", err)
	}
	if err := v.BindEnv("logging.level", "UPWELL_LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("failed to bind UPWELL_LOG_LEVEL: %w", err)
	}
	if err := v.BindEnv("logging.format", "UPWELL_LOG_FORMAT"); err != nil {
		return nil, fmt.Errorf("failed to bind UPWELL_LOG_FORMAT: %w", err)
	}

	return &Manager{
		viper:     v,
		callbacks: make([]func(*Config), 0),
	}, nil
}

// Load loads the configuration from file and environment variables.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	m.setDefaults()

	if err := m.readConfigFile(); err != nil {
		return err
	}

	config, err := m.unmarshalConfig()
	if err != nil {
		return err
	}
	if err := ensureDatabasePath(config); err != nil {
		return err
	}
	normalizeConfig(config)

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	m.config = config
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return nil
	}
	// Return a copy to prevent external modification
	configCopy := *m.config
	return &configCopy
}

func (m *Manager) setDefaults() {
	m.viper.SetDefault("update.channel", "stable")
	m.viper.SetDefault("update.auto_check", true)
	m.viper.SetDefault("update.auto_download", false)
	m.viper.SetDefault("update.provider_base_url", "https://updates.nevna.dev/api/v1")
	m.viper.SetDefault("update.fallback_url", "https://api.github.com/repos/nevna/upwell/releases/latest")
	m.viper.SetDefault("logging.level", "info")
	m.viper.SetDefault("logging.format", "console")
}

func (m *Manager) readConfigFile() error {
	if err := m.viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			if createErr := m.createDefaultConfig(); createErr != nil {
				configDir, _ := GetConfigDir()
				return fmt.Errorf(
					"failed to create default config at %s: %w\nTry creating the directory manually or check permissions",
					configDir,
					createErr,
				)
			}
			if rereadErr := m.viper.ReadInConfig(); rereadErr != nil {
				return fmt.Errorf(
					"failed to read newly created config file: %w\nThe config file was created but couldn't be read. Please check the file format",
					rereadErr,
				)
			}
		} else {
			configFile := m.viper.ConfigFileUsed()
			if configFile == "" {
				configDir, _ := GetConfigDir()
				configFile = filepath.Join(configDir, "config.toml")
			}
			return fmt.Errorf("failed to read config file at %s: %w\nCheck the file format (must be valid TOML) and permissions", configFile, err)
		}
	}
	return nil
}

func (m *Manager) unmarshalConfig() (*Config, error) {
	config := &Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		configFile := m.viper.ConfigFileUsed()
		return nil, fmt.Errorf(
			"failed to parse config file at %s: %w\nCheck for syntax errors, invalid values, or type mismatches",
			configFile,
			err,
		)
	}
	return config, nil
}

func ensureDatabasePath(config *Config) error {
	if config.Database.Path != "" {
		return nil
	}
	dbPath, err := GetDatabaseFile()
	if err != nil {
		return fmt.Errorf("failed to get database path: %w", err)
	}
	config.Database.Path = dbPath
	return nil
}

func (m *Manager) createDefaultConfig() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, dirPerm); err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.toml")
	return os.WriteFile(configPath, []byte(defaultConfigTemplate), filePerm)
}

// SetCDK writes a new access key to the config file. The running
// orchestrator picks the change up through the config watcher.
func (m *Manager) SetCDK(cdk string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.viper.Set("update.cdk", cdk)
	if err := m.viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to persist access key: %w", err)
	}
	if m.config != nil {
		m.config.Update.CDK = cdk
	}
	return nil
}

const defaultConfigTemplate = `# upwell configuration

[update]
# Identifier of this application on the keyed update provider.
resource_id = ""

# Access key (CDK) for the keyed provider. Leave empty to use only
# the public release feed.
cdk = ""

# Release channel: "stable" or "beta".
channel = "stable"

# Check for updates on startup.
auto_check = true

# Start downloading as soon as an update with a direct URL is found.
auto_download = false

[logging]
# trace, debug, info, warn, error
level = "info"

# console or json
format = "console"
`
