// Package cli wires the update core into the Cobra/Bubble Tea CLI.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/nevna/upwell/internal/application/port"
	"github.com/nevna/upwell/internal/application/usecase"
	"github.com/nevna/upwell/internal/cli/styles"
	"github.com/nevna/upwell/internal/domain/build"
	"github.com/nevna/upwell/internal/infrastructure/config"
	"github.com/nevna/upwell/internal/infrastructure/download"
	"github.com/nevna/upwell/internal/infrastructure/host"
	"github.com/nevna/upwell/internal/infrastructure/installer"
	"github.com/nevna/upwell/internal/infrastructure/persistence/sqlite"
	"github.com/nevna/upwell/internal/infrastructure/provider"
	"github.com/nevna/upwell/internal/logging"
	"github.com/nevna/upwell/services"
)

// App holds CLI dependencies.
type App struct {
	Config    *config.Manager
	Theme     *styles.Theme
	BuildInfo build.Info
	Store     port.PendingStore
	Update    *services.UpdateService

	db  *sql.DB
	ctx context.Context
}

// NewApp creates the CLI application with all dependencies wired.
func NewApp(info build.Info) (*App, error) {
	manager, err := config.NewManager()
	if err != nil {
		return nil, fmt.Errorf("create config manager: %w", err)
	}
	if err := manager.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := manager.Get()

	logger := logging.New(logging.Config{
		Level:      logging.ParseLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		TimeFormat: "15:04:05",
	})
	ctx := logging.WithContext(context.Background(), logger)
	ctx = logging.WithVersion(ctx, info.Version)

	db, err := sqlite.NewConnection(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open update-state database: %w", err)
	}
	store := sqlite.NewUpdateStateStore(db)

	settings := services.SettingsFromConfig(cfg, info)

	keyed := provider.NewKeyedClient(cfg.Update.ProviderBaseURL)
	github := provider.NewGitHubClient()
	checker := usecase.NewCheckUpdateUseCase(keyed, github)

	downloader := download.NewManager(settings.UserAgent)

	cacheDir, err := config.GetCacheDir()
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}

	svc := services.NewUpdateService(
		checker,
		downloader,
		store,
		installer.New(cacheDir),
		host.NewConsole(os.Stdout),
		settings,
	)

	// Edits to the config file take effect live, including entering an
	// access key while a download runs.
	manager.OnConfigChange(func(c *config.Config) {
		svc.ApplySettings(ctx, services.SettingsFromConfig(c, info))
	})
	if err := manager.Watch(); err != nil {
		logger.Warn().Err(err).Msg("config watch unavailable")
	}

	return &App{
		Config:    manager,
		Theme:     styles.NewTheme(),
		BuildInfo: info,
		Store:     store,
		Update:    svc,
		db:        db,
		ctx:       ctx,
	}, nil
}

// Context returns the app context carrying the logger.
func (a *App) Context() context.Context {
	return a.ctx
}

// Close releases the app's resources.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
