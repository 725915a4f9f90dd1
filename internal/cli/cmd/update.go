package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nevna/upwell/internal/cli/styles"
	"github.com/nevna/upwell/internal/domain/entity"
	"github.com/nevna/upwell/services"
)

var updateNoInstall bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for, download, and install updates",
	Long: `Check for an update, download it, and install it.

The keyed provider is used when an access key is configured; otherwise
the public release feed supplies the download. Use --no-install to stop
after the download; the staged update installs on the next run.`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().BoolVar(&updateNoInstall, "no-install", false, "download only, install on next run")
}

const statusPollInterval = 150 * time.Millisecond

// updateState represents the current state of the update flow.
type updateState int

const (
	stateChecking updateState = iota
	stateDownloading
	stateDone
)

// updateModel is the bubbletea model for the update command.
type updateModel struct {
	spinner  spinner.Model
	bar      progress.Model
	renderer *styles.UpdateRenderer
	state    updateState

	currentVersion string
	info           *entity.UpdateInfo
	keyCode        int
	keyMsg         string
	snapshot       services.Status

	result   string
	err      error
	quitting bool
	staged   bool
}

// checkResultMsg is sent when the update check completes.
type checkResultMsg struct {
	info *entity.UpdateInfo
	err  error
}

// downloadStartedMsg is sent once the download has been kicked off.
type downloadStartedMsg struct {
	err error
}

// pollMsg carries a fresh orchestrator snapshot while downloading.
type pollMsg struct {
	status services.Status
}

func newUpdateModel(renderer *styles.UpdateRenderer, accentColor lipgloss.Color, currentVersion string) updateModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentColor)

	return updateModel{
		spinner:        s,
		bar:            progress.New(progress.WithDefaultGradient()),
		renderer:       renderer,
		state:          stateChecking,
		currentVersion: currentVersion,
	}
}

func (m updateModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, checkForUpdates())
}

func (m updateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			GetApp().Update.CancelDownload()
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case checkResultMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateDone
			return m, tea.Quit
		}
		m.info = msg.info
		if msg.info.ErrorCode != 0 {
			m.keyCode = msg.info.ErrorCode
			m.keyMsg = msg.info.ErrorMessage
		}

		switch {
		case !msg.info.HasUpdate:
			m.result = m.renderer.RenderUpToDate(m.currentVersion)
			m.state = stateDone
			return m, tea.Quit

		case msg.info.DownloadURL == "":
			m.result = m.renderer.RenderAvailable(msg.info, m.currentVersion) +
				"     No download link available from any source.\n"
			m.state = stateDone
			return m, tea.Quit

		default:
			m.state = stateDownloading
			return m, startDownload()
		}

	case downloadStartedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateDone
			return m, tea.Quit
		}
		return m, pollStatus()

	case pollMsg:
		m.snapshot = msg.status
		switch msg.status.DownloadStatus {
		case entity.DownloadCompleted:
			m.staged = true
			m.result = m.renderer.RenderDownloaded(m.info.VersionName)
			m.state = stateDone
			return m, tea.Quit
		case entity.DownloadFailed:
			m.err = errors.New(msg.status.LastError)
			m.state = stateDone
			return m, tea.Quit
		default:
			return m, pollStatus()
		}
	}

	return m, nil
}

func (m updateModel) View() string {
	if m.quitting {
		return ""
	}

	var notice string
	if m.keyCode != 0 {
		notice = m.renderer.RenderKeyNotice(m.keyCode, m.keyMsg)
	}

	if m.err != nil {
		return notice + m.renderer.RenderError(m.err)
	}
	if m.state == stateDone {
		return notice + m.result
	}

	switch m.state {
	case stateChecking:
		return m.renderer.RenderChecking(m.spinner.View())
	case stateDownloading:
		bar := m.bar.ViewAs(m.snapshot.Progress.Progress / 100)
		return notice + m.renderer.RenderDownloading(bar, m.info.VersionName, m.snapshot.Progress)
	default:
		return notice
	}
}

func checkForUpdates() tea.Cmd {
	return func() tea.Msg {
		app := GetApp()
		info, err := app.Update.CheckOnly(app.Context())
		return checkResultMsg{info: info, err: err}
	}
}

func startDownload() tea.Cmd {
	return func() tea.Msg {
		app := GetApp()
		return downloadStartedMsg{err: app.Update.StartDownload(app.Context())}
	}
}

func pollStatus() tea.Cmd {
	return tea.Tick(statusPollInterval, func(time.Time) tea.Msg {
		return pollMsg{status: GetApp().Update.Snapshot()}
	})
}

func runUpdate(_ *cobra.Command, _ []string) error {
	app := GetApp()
	ctx := app.Context()
	renderer := styles.NewUpdateRenderer(app.Theme)

	m := newUpdateModel(renderer, app.Theme.Accent, app.BuildInfo.Version)
	p := tea.NewProgram(m)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	// Install after the TUI has released the terminal; the host
	// restart replaces this process.
	if model, ok := finalModel.(updateModel); ok && model.staged && !updateNoInstall {
		fmt.Print(renderer.RenderInstalling(model.info.VersionName))
		if err := app.Update.Install(ctx); err != nil {
			fmt.Print(renderer.RenderError(err))
			return err
		}
	}
	return nil
}
