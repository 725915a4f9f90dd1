// Package services wires the update workflow together: checking,
// downloading, persisting pending state, and installing.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nevna/upwell/internal/application/port"
	"github.com/nevna/upwell/internal/domain/entity"
	"github.com/nevna/upwell/internal/logging"
)

// UpdateChecker answers update checks. Satisfied by
// usecase.CheckUpdateUseCase.
type UpdateChecker interface {
	Execute(ctx context.Context, params port.CheckParams) (*entity.UpdateInfo, error)
}

// Settings is the slice of configuration the update service acts on.
// A new value is pushed through ApplySettings whenever the config
// file changes.
type Settings struct {
	ResourceID     string
	CurrentVersion string
	CDK            string
	Channel        entity.Channel
	FallbackURL    string
	UserAgent      string
	DownloadDir    string
	// InstallDir is where updates are applied. Empty means the
	// directory of the running executable.
	InstallDir   string
	AutoCheck    bool
	AutoDownload bool
}

// Status is a point-in-time snapshot of the update state machine.
type Status struct {
	DownloadStatus entity.DownloadStatus
	InstallStatus  entity.InstallStatus
	UpdateInfo     *entity.UpdateInfo
	Progress       entity.DownloadProgress
	LastError      string
}

// UpdateService orchestrates the whole update lifecycle. All state
// transitions go through it; everything it hands out is a copy.
type UpdateService struct {
	checker    UpdateChecker
	downloader port.Downloader
	store      port.PendingStore
	installer  port.Installer
	host       port.Host

	checkGroup singleflight.Group

	mu             sync.Mutex
	settings       Settings
	downloadStatus entity.DownloadStatus
	installStatus  entity.InstallStatus
	updateInfo     *entity.UpdateInfo
	progress       entity.DownloadProgress
	lastError      string
	// autoDownloadFired limits the automatic download kick-off to once
	// per process lifetime; manual starts are not limited.
	autoDownloadFired bool
	// switching serializes the provider-switch cycle.
	switching bool
	// downloadSeq invalidates completion handling of a superseded
	// download session.
	downloadSeq int
	handle      port.DownloadHandle
	savePath    string
}

// NewUpdateService creates the update orchestrator.
func NewUpdateService(
	checker UpdateChecker,
	downloader port.Downloader,
	store port.PendingStore,
	installer port.Installer,
	host port.Host,
	settings Settings,
) *UpdateService {
	return &UpdateService{
		checker:    checker,
		downloader: downloader,
		store:      store,
		installer:  installer,
		host:       host,
		settings:   settings,
	}
}

// Snapshot returns a copy of the current update state.
func (s *UpdateService) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		DownloadStatus: s.downloadStatus,
		InstallStatus:  s.installStatus,
		Progress:       s.progress,
		LastError:      s.lastError,
	}
	if s.updateInfo != nil {
		infoCopy := *s.updateInfo
		st.UpdateInfo = &infoCopy
	}
	return st
}

// Startup runs the resume sequence before any other update logic.
// Exactly one of three paths is taken: a just-finished installation is
// returned for the caller to surface and automatic checking is skipped
// for this session; a pending downloaded update is restored and
// installed; or a background update check starts.
func (s *UpdateService) Startup(ctx context.Context) (*entity.JustUpdated, error) {
	log := logging.FromContext(ctx)

	just, err := s.store.ConsumeJustUpdated(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read just-updated record")
	}

	s.installer.CleanupLeftovers(ctx, s.installTarget())

	if just != nil {
		log.Info().Str("version", just.NewVersion).Msg("restart after installation")
		return just, nil
	}

	rec, err := s.store.GetPending(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read pending update record")
	}
	if rec != nil {
		if _, statErr := os.Stat(rec.SavePath); statErr != nil {
			// The artifact vanished between sessions; drop the record
			// and fall through to a fresh check.
			log.Warn().Str("path", rec.SavePath).Msg("pending artifact missing, discarding record")
			_ = s.store.ClearPending(ctx)
		} else {
			s.mu.Lock()
			s.updateInfo = rec.ToUpdateInfo()
			s.downloadStatus = entity.DownloadCompleted
			s.savePath = rec.SavePath
			s.mu.Unlock()

			s.host.Notify(ctx, port.NoticeInfo,
				fmt.Sprintf("Update %s is downloaded and ready to install", rec.VersionName))
			if installErr := s.Install(ctx); installErr != nil {
				log.Error().Err(installErr).Msg("automatic installation of pending update failed")
			}
			return nil, nil
		}
	}

	s.mu.Lock()
	settings := s.settings
	s.mu.Unlock()

	if !settings.AutoCheck || settings.ResourceID == "" || settings.CurrentVersion == "" {
		return nil, nil
	}
	// Non-blocking: the rest of startup must not wait on the network.
	go func() {
		if _, checkErr := s.CheckForUpdates(ctx); checkErr != nil {
			log.Warn().Err(checkErr).Msg("startup update check failed")
		}
	}()
	return nil, nil
}

// CheckForUpdates runs one deduplicated update check and records the
// result. When the answer carries a usable URL and the auto-download
// policy allows it, the download starts automatically, at most once
// per session.
func (s *UpdateService) CheckForUpdates(ctx context.Context) (*entity.UpdateInfo, error) {
	return s.check(ctx, true)
}

// CheckOnly runs a deduplicated update check without triggering the
// automatic download.
func (s *UpdateService) CheckOnly(ctx context.Context) (*entity.UpdateInfo, error) {
	return s.check(ctx, false)
}

func (s *UpdateService) check(ctx context.Context, allowAuto bool) (*entity.UpdateInfo, error) {
	v, err, _ := s.checkGroup.Do("check", func() (any, error) {
		return s.checker.Execute(ctx, s.checkParams())
	})
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.mu.Unlock()
		return nil, err
	}
	info := v.(*entity.UpdateInfo)

	s.mu.Lock()
	s.updateInfo = info
	s.lastError = ""
	fire := allowAuto &&
		s.settings.AutoDownload &&
		!s.autoDownloadFired &&
		s.downloadStatus == entity.DownloadIdle &&
		info.HasUpdate && info.DownloadURL != ""
	if fire {
		s.autoDownloadFired = true
	}
	s.mu.Unlock()

	if fire {
		if dlErr := s.StartDownload(ctx); dlErr != nil {
			logging.FromContext(ctx).Warn().Err(dlErr).Msg("automatic download failed to start")
		}
	}
	return info, nil
}

func (s *UpdateService) checkParams() port.CheckParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return port.CheckParams{
		ResourceID:     s.settings.ResourceID,
		CurrentVersion: s.settings.CurrentVersion,
		CDK:            s.settings.CDK,
		Channel:        s.settings.Channel,
		UserAgent:      s.settings.UserAgent,
		FallbackURL:    s.settings.FallbackURL,
	}
}

// StartDownload begins downloading the update found by the last check.
// Only one download runs at a time.
func (s *UpdateService) StartDownload(ctx context.Context) error {
	s.mu.Lock()
	if s.downloadStatus == entity.Downloading {
		s.mu.Unlock()
		return errors.New("a download is already in progress")
	}
	info := s.updateInfo
	if info == nil || !info.HasUpdate || info.DownloadURL == "" {
		s.mu.Unlock()
		return errors.New("no downloadable update available")
	}
	savePath := filepath.Join(s.settings.DownloadDir, artifactName(info))
	s.downloadStatus = entity.Downloading
	s.progress = entity.DownloadProgress{TotalSize: info.FileSize}
	s.lastError = ""
	s.savePath = savePath
	s.downloadSeq++
	seq := s.downloadSeq
	infoCopy := *info
	s.mu.Unlock()

	handle, err := s.downloader.Start(ctx, port.DownloadRequest{
		URL:           infoCopy.DownloadURL,
		SavePath:      savePath,
		TotalSizeHint: infoCopy.FileSize,
		OnProgress: func(p entity.DownloadProgress) {
			s.mu.Lock()
			if s.downloadSeq == seq {
				s.progress = p
			}
			s.mu.Unlock()
		},
	})
	if err != nil {
		s.mu.Lock()
		if s.downloadSeq == seq {
			s.downloadStatus = entity.DownloadFailed
			s.lastError = err.Error()
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.downloadSeq == seq {
		s.handle = handle
	}
	s.mu.Unlock()

	go s.awaitDownload(ctx, handle, seq, &infoCopy, savePath)
	return nil
}

func (s *UpdateService) awaitDownload(
	ctx context.Context,
	handle port.DownloadHandle,
	seq int,
	info *entity.UpdateInfo,
	savePath string,
) {
	<-handle.Done()
	err := handle.Err()

	s.mu.Lock()
	if s.downloadSeq != seq {
		// A provider switch superseded this session; its outcome no
		// longer matters.
		s.mu.Unlock()
		return
	}
	s.handle = nil
	switch {
	case err == nil:
		s.downloadStatus = entity.DownloadCompleted
	case errors.Is(err, context.Canceled):
		s.downloadStatus = entity.DownloadIdle
		s.progress = entity.DownloadProgress{}
	default:
		s.downloadStatus = entity.DownloadFailed
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	log := logging.FromContext(ctx)
	switch {
	case err == nil:
		rec := &entity.PendingUpdate{
			VersionName:    info.VersionName,
			ReleaseNote:    info.ReleaseNote,
			Channel:        info.Channel,
			SavePath:       savePath,
			FileSize:       info.FileSize,
			UpdateType:     info.UpdateType,
			DownloadSource: info.DownloadSource,
			SHA256:         info.SHA256,
			Timestamp:      time.Now().UTC(),
		}
		if saveErr := s.store.SavePending(ctx, rec); saveErr != nil {
			log.Error().Err(saveErr).Msg("failed to persist pending update")
		}
		s.host.Notify(ctx, port.NoticeInfo,
			fmt.Sprintf("Update %s downloaded and ready to install", info.VersionName))
	case errors.Is(err, context.Canceled):
		log.Debug().Str("version", info.VersionName).Msg("download cancelled")
	default:
		log.Warn().Err(err).Str("version", info.VersionName).Msg("download failed")
		s.host.Notify(ctx, port.NoticeWarning,
			fmt.Sprintf("Download of update %s failed: %v", info.VersionName, err))
	}
}

// RetryDownload restarts a failed download with the last known update
// info.
func (s *UpdateService) RetryDownload(ctx context.Context) error {
	s.mu.Lock()
	if s.downloadStatus != entity.DownloadFailed {
		s.mu.Unlock()
		return errors.New("no failed download to retry")
	}
	s.downloadStatus = entity.DownloadIdle
	s.lastError = ""
	s.mu.Unlock()

	return s.StartDownload(ctx)
}

// ResetDownload returns a failed download to idle, dropping the
// recorded error and progress.
func (s *UpdateService) ResetDownload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downloadStatus != entity.DownloadFailed {
		return
	}
	s.downloadStatus = entity.DownloadIdle
	s.progress = entity.DownloadProgress{}
	s.lastError = ""
}

// CancelDownload aborts the in-flight download, if any.
func (s *UpdateService) CancelDownload() {
	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()

	if handle != nil {
		handle.Cancel()
	}
}

// Install applies the completed download and asks the host to restart.
// The just-updated record is written before the pending record is
// cleared, so a crash between the two surfaces the update notice
// rather than re-installing.
func (s *UpdateService) Install(ctx context.Context) error {
	s.mu.Lock()
	if s.installStatus == entity.Installing {
		s.mu.Unlock()
		return errors.New("an installation is already in progress")
	}
	if s.downloadStatus != entity.DownloadCompleted {
		s.mu.Unlock()
		return errors.New("no completed download to install")
	}
	s.installStatus = entity.Installing
	settings := s.settings
	s.mu.Unlock()

	fail := func(err error) error {
		s.mu.Lock()
		s.installStatus = entity.InstallIdle
		s.lastError = err.Error()
		s.mu.Unlock()
		s.host.Notify(ctx, port.NoticeError, fmt.Sprintf("Installation failed: %v", err))
		return err
	}

	rec, err := s.store.GetPending(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to read pending update: %w", err))
	}
	if rec == nil {
		return fail(errors.New("no pending update recorded"))
	}

	targetDir := s.installTarget()
	if err := s.installer.Install(ctx, rec, targetDir); err != nil {
		return fail(err)
	}

	just := &entity.JustUpdated{
		PreviousVersion: settings.CurrentVersion,
		NewVersion:      rec.VersionName,
		ReleaseNote:     rec.ReleaseNote,
		Channel:         rec.Channel,
	}
	if err := s.store.SaveJustUpdated(ctx, just); err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("failed to record finished installation")
	}
	if err := s.store.ClearPending(ctx); err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("failed to clear pending update record")
	}

	s.host.Notify(ctx, port.NoticeInfo,
		fmt.Sprintf("Update %s installed, restarting", rec.VersionName))
	if err := s.host.Restart(ctx); err != nil {
		s.mu.Lock()
		s.installStatus = entity.InstallIdle
		s.mu.Unlock()
		return fmt.Errorf("restart request failed: %w", err)
	}
	return nil
}

// ApplySettings replaces the active settings. When the access key
// changes to a non-empty value while a fallback download is running,
// the keyed source is retried mid-flight.
func (s *UpdateService) ApplySettings(ctx context.Context, next Settings) {
	s.mu.Lock()
	prev := s.settings
	s.settings = next
	needSwitch := next.CDK != "" && next.CDK != prev.CDK &&
		s.downloadStatus == entity.Downloading &&
		s.updateInfo != nil && s.updateInfo.DownloadSource == entity.SourceFallback &&
		!s.switching
	if needSwitch {
		s.switching = true
	}
	s.mu.Unlock()

	if needSwitch {
		go s.switchToKeyedSource(ctx)
	}
}

// ResetError clears the last recorded error without touching the rest
// of the state.
func (s *UpdateService) ResetError() {
	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
}

// switchToKeyedSource cancels the running fallback download, re-checks
// with the new key, and starts over from whichever source now wins.
func (s *UpdateService) switchToKeyedSource(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.switching = false
		s.mu.Unlock()
	}()

	log := logging.FromContext(ctx)

	s.mu.Lock()
	handle := s.handle
	s.handle = nil
	s.downloadSeq++
	s.downloadStatus = entity.DownloadIdle
	s.progress = entity.DownloadProgress{}
	s.mu.Unlock()

	if handle != nil {
		handle.Cancel()
		<-handle.Done()
	}

	info, err := s.check(ctx, false)
	if err != nil {
		log.Warn().Err(err).Msg("re-check after key change failed")
		s.host.Notify(ctx, port.NoticeWarning, "could not obtain a keyed download link")
		return
	}
	if !info.HasUpdate || info.DownloadURL == "" {
		if info.HasUpdate {
			s.host.Notify(ctx, port.NoticeWarning, "could not obtain a keyed download link")
		}
		return
	}
	if info.DownloadSource != entity.SourceProvider {
		s.host.Notify(ctx, port.NoticeWarning, "could not obtain a keyed download link")
	}
	if err := s.StartDownload(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to restart download after key change")
	}
}

// installTarget resolves the directory updates are applied to.
func (s *UpdateService) installTarget() string {
	s.mu.Lock()
	dir := s.settings.InstallDir
	s.mu.Unlock()

	if dir != "" {
		return dir
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func artifactName(info *entity.UpdateInfo) string {
	name := info.Filename
	if name == "" {
		if base := path.Base(info.DownloadURL); base != "." && base != "/" {
			name = base
		}
	}
	if name == "" {
		return fmt.Sprintf("update-%s", info.VersionName)
	}
	// Release assets are often version-less; two releases must not map
	// to the same save path.
	version := strings.TrimPrefix(info.VersionName, "v")
	if version != "" && !strings.Contains(name, version) {
		name = fmt.Sprintf("%s-%s", version, name)
	}
	return name
}
