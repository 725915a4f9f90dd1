package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nevna/upwell/internal/application/port"
	"github.com/nevna/upwell/internal/domain/entity"
)

type stubChecker struct {
	mu    sync.Mutex
	fn    func(port.CheckParams) (*entity.UpdateInfo, error)
	calls int
}

func (c *stubChecker) Execute(_ context.Context, params port.CheckParams) (*entity.UpdateInfo, error) {
	c.mu.Lock()
	c.calls++
	fn := c.fn
	c.mu.Unlock()
	return fn(params)
}

func (c *stubChecker) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *stubChecker) set(fn func(port.CheckParams) (*entity.UpdateInfo, error)) {
	c.mu.Lock()
	c.fn = fn
	c.mu.Unlock()
}

type fakeHandle struct {
	mu     sync.Mutex
	done   chan struct{}
	err    error
	closed bool
}

func (h *fakeHandle) finish(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.err = err
	h.closed = true
	close(h.done)
}

func (h *fakeHandle) Cancel() { h.finish(context.Canceled) }

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

func (h *fakeHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

type stubDownloader struct {
	mu      sync.Mutex
	handles []*fakeHandle
	reqs    []port.DownloadRequest
}

func (d *stubDownloader) Start(_ context.Context, req port.DownloadRequest) (port.DownloadHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := &fakeHandle{done: make(chan struct{})}
	d.handles = append(d.handles, h)
	d.reqs = append(d.reqs, req)
	return h, nil
}

func (d *stubDownloader) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handles)
}

func (d *stubDownloader) handleAt(i int) *fakeHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handles[i]
}

func (d *stubDownloader) requestAt(i int) port.DownloadRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reqs[i]
}

type memStore struct {
	mu      sync.Mutex
	pending *entity.PendingUpdate
	just    *entity.JustUpdated
}

func (s *memStore) SavePending(_ context.Context, rec *entity.PendingUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.pending = &cp
	return nil
}

func (s *memStore) GetPending(_ context.Context) (*entity.PendingUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil, nil
	}
	cp := *s.pending
	return &cp, nil
}

func (s *memStore) ClearPending(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	return nil
}

func (s *memStore) SaveJustUpdated(_ context.Context, rec *entity.JustUpdated) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.just = &cp
	return nil
}

func (s *memStore) ConsumeJustUpdated(_ context.Context) (*entity.JustUpdated, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.just
	s.just = nil
	return rec, nil
}

func (s *memStore) pendingRecord() *entity.PendingUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	cp := *s.pending
	return &cp
}

func (s *memStore) justRecord() *entity.JustUpdated {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.just == nil {
		return nil
	}
	cp := *s.just
	return &cp
}

type stubInstaller struct {
	mu         sync.Mutex
	installed  []string
	cleanups   int
	installErr error
}

func (i *stubInstaller) Install(_ context.Context, rec *entity.PendingUpdate, _ string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.installErr != nil {
		return i.installErr
	}
	i.installed = append(i.installed, rec.VersionName)
	return nil
}

func (i *stubInstaller) CleanupLeftovers(_ context.Context, _ string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.cleanups++
}

func (i *stubInstaller) installedVersions() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.installed...)
}

type stubHost struct {
	mu         sync.Mutex
	notices    []string
	restarts   int
	restartErr error
}

func (h *stubHost) Notify(_ context.Context, _ port.HostNoticeLevel, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = append(h.notices, message)
}

func (h *stubHost) Restart(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.restarts++
	return h.restartErr
}

func (h *stubHost) restartCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.restarts
}

func (h *stubHost) hasNotice(substr string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, n := range h.notices {
		if strings.Contains(n, substr) {
			return true
		}
	}
	return false
}

type fixture struct {
	svc        *UpdateService
	checker    *stubChecker
	downloader *stubDownloader
	store      *memStore
	installer  *stubInstaller
	host       *stubHost
}

func newFixture(t *testing.T, settings Settings) *fixture {
	t.Helper()
	if settings.DownloadDir == "" {
		settings.DownloadDir = t.TempDir()
	}
	if settings.InstallDir == "" {
		settings.InstallDir = t.TempDir()
	}
	f := &fixture{
		checker:    &stubChecker{fn: func(port.CheckParams) (*entity.UpdateInfo, error) { return &entity.UpdateInfo{}, nil }},
		downloader: &stubDownloader{},
		store:      &memStore{},
		installer:  &stubInstaller{},
		host:       &stubHost{},
	}
	f.svc = NewUpdateService(f.checker, f.downloader, f.store, f.installer, f.host, settings)
	return f
}

func baseSettings() Settings {
	return Settings{
		ResourceID:     "upwell",
		CurrentVersion: "1.0.0",
		Channel:        entity.ChannelStable,
		FallbackURL:    "https://api.github.com/repos/nevna/upwell/releases/latest",
		AutoCheck:      true,
		AutoDownload:   true,
	}
}

func fallbackUpdate() *entity.UpdateInfo {
	return &entity.UpdateInfo{
		HasUpdate:      true,
		VersionName:    "1.1.0",
		Filename:       "upwell-1.1.0.zip",
		DownloadURL:    "https://releases.example.com/upwell-1.1.0.zip",
		FileSize:       1024,
		Channel:        entity.ChannelStable,
		DownloadSource: entity.SourceFallback,
		UpdateType:     entity.UpdateTypeFull,
	}
}

func keyedUpdate() *entity.UpdateInfo {
	info := fallbackUpdate()
	info.DownloadURL = "https://cdn.example.com/upwell-1.1.0.zip"
	info.SHA256 = "deadbeef"
	info.DownloadSource = entity.SourceProvider
	return info
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartupConsumesJustUpdatedExactlyOnce(t *testing.T) {
	f := newFixture(t, baseSettings())
	f.store.just = &entity.JustUpdated{
		PreviousVersion: "1.0.0",
		NewVersion:      "1.1.0",
		Channel:         entity.ChannelStable,
	}

	just, err := f.svc.Startup(context.Background())
	if err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	if just == nil || just.NewVersion != "1.1.0" {
		t.Fatalf("Startup() just = %+v, want the stored record", just)
	}
	if f.checker.callCount() != 0 {
		t.Errorf("checker called %d times, automatic check should be skipped", f.checker.callCount())
	}
	if f.store.justRecord() != nil {
		t.Error("just-updated record still present after consume")
	}

	// A second startup in a later session finds nothing.
	just2, err := f.svc.Startup(context.Background())
	if err != nil {
		t.Fatalf("second Startup() error = %v", err)
	}
	if just2 != nil {
		t.Errorf("second Startup() just = %+v, want nil", just2)
	}
}

func TestStartupResumesPendingAndInstalls(t *testing.T) {
	settings := baseSettings()
	settings.DownloadDir = t.TempDir()
	settings.InstallDir = t.TempDir()
	f := newFixture(t, settings)

	artifact := filepath.Join(settings.DownloadDir, "upwell-1.1.0.zip")
	if err := os.WriteFile(artifact, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	f.store.pending = &entity.PendingUpdate{
		VersionName: "1.1.0",
		Channel:     entity.ChannelStable,
		SavePath:    artifact,
		Timestamp:   time.Now().UTC(),
	}

	if _, err := f.svc.Startup(context.Background()); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}

	if got := f.installer.installedVersions(); len(got) != 1 || got[0] != "1.1.0" {
		t.Errorf("installed versions = %v, want [1.1.0]", got)
	}
	if f.store.pendingRecord() != nil {
		t.Error("pending record not cleared after installation")
	}
	just := f.store.justRecord()
	if just == nil || just.PreviousVersion != "1.0.0" || just.NewVersion != "1.1.0" {
		t.Errorf("just-updated record = %+v", just)
	}
	if f.host.restartCount() != 1 {
		t.Errorf("restarts = %d, want 1", f.host.restartCount())
	}
	if f.checker.callCount() != 0 {
		t.Errorf("checker called %d times during pending resume", f.checker.callCount())
	}
}

func TestStartupDiscardsPendingWithMissingArtifact(t *testing.T) {
	f := newFixture(t, baseSettings())
	f.store.pending = &entity.PendingUpdate{
		VersionName: "1.1.0",
		Channel:     entity.ChannelStable,
		SavePath:    filepath.Join(t.TempDir(), "gone.zip"),
		Timestamp:   time.Now().UTC(),
	}
	f.checker.set(func(port.CheckParams) (*entity.UpdateInfo, error) {
		return &entity.UpdateInfo{VersionName: "1.0.0"}, nil
	})

	if _, err := f.svc.Startup(context.Background()); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	if f.store.pendingRecord() != nil {
		t.Error("stale pending record kept despite missing artifact")
	}
	waitFor(t, "fresh check", func() bool { return f.checker.callCount() == 1 })
	if got := f.installer.installedVersions(); len(got) != 0 {
		t.Errorf("installed versions = %v, want none", got)
	}
}

func TestStartupStaleJustUpdatedDoesNotSwallowPending(t *testing.T) {
	settings := baseSettings()
	settings.AutoCheck = false
	settings.DownloadDir = t.TempDir()
	settings.InstallDir = t.TempDir()
	f := newFixture(t, settings)

	artifact := filepath.Join(settings.DownloadDir, "upwell-1.2.0.zip")
	if err := os.WriteFile(artifact, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	f.store.just = &entity.JustUpdated{
		PreviousVersion: "0.9.0",
		NewVersion:      "1.0.0",
		Channel:         entity.ChannelStable,
	}
	f.store.pending = &entity.PendingUpdate{
		VersionName: "1.2.0",
		Channel:     entity.ChannelStable,
		SavePath:    artifact,
		Timestamp:   time.Now().UTC(),
	}

	// First session: the restart record wins and the staged update is
	// left untouched for the next session.
	just, err := f.svc.Startup(context.Background())
	if err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	if just == nil || just.NewVersion != "1.0.0" {
		t.Fatalf("Startup() just = %+v, want the restart record", just)
	}
	if got := f.installer.installedVersions(); len(got) != 0 {
		t.Errorf("installed versions after first session = %v, want none", got)
	}
	if f.store.pendingRecord() == nil {
		t.Fatal("staged update discarded by the restart record")
	}

	// Next session: only the staged update remains and it installs.
	svc2 := NewUpdateService(f.checker, f.downloader, f.store, f.installer, f.host, settings)
	if _, err := svc2.Startup(context.Background()); err != nil {
		t.Fatalf("second session Startup() error = %v", err)
	}
	if got := f.installer.installedVersions(); len(got) != 1 || got[0] != "1.2.0" {
		t.Errorf("installed versions = %v, want [1.2.0]", got)
	}
	if f.store.pendingRecord() != nil {
		t.Error("pending record not cleared after installation")
	}
	if f.host.restartCount() != 1 {
		t.Errorf("restarts = %d, want 1", f.host.restartCount())
	}
}

func TestCheckAutoStartsDownloadOncePerSession(t *testing.T) {
	f := newFixture(t, baseSettings())
	f.checker.set(func(port.CheckParams) (*entity.UpdateInfo, error) {
		return fallbackUpdate(), nil
	})

	ctx := context.Background()
	if _, err := f.svc.CheckForUpdates(ctx); err != nil {
		t.Fatalf("CheckForUpdates() error = %v", err)
	}
	waitFor(t, "first automatic download", func() bool { return f.downloader.count() == 1 })

	// Fail the download, then check again: the automatic kick-off is
	// spent for this session.
	f.downloader.handleAt(0).finish(errors.New("connection reset"))
	waitFor(t, "failed status", func() bool {
		return f.svc.Snapshot().DownloadStatus == entity.DownloadFailed
	})

	if _, err := f.svc.CheckForUpdates(ctx); err != nil {
		t.Fatalf("second CheckForUpdates() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if f.downloader.count() != 1 {
		t.Errorf("downloads started = %d, want 1 (auto-download is once per session)", f.downloader.count())
	}

	// Manual retry is always allowed.
	if err := f.svc.RetryDownload(ctx); err != nil {
		t.Fatalf("RetryDownload() error = %v", err)
	}
	waitFor(t, "retry download", func() bool { return f.downloader.count() == 2 })
}

func TestDownloadCompletionPersistsPending(t *testing.T) {
	f := newFixture(t, baseSettings())
	f.checker.set(func(port.CheckParams) (*entity.UpdateInfo, error) {
		return fallbackUpdate(), nil
	})

	if _, err := f.svc.CheckForUpdates(context.Background()); err != nil {
		t.Fatalf("CheckForUpdates() error = %v", err)
	}
	waitFor(t, "download start", func() bool { return f.downloader.count() == 1 })

	f.downloader.handleAt(0).finish(nil)
	waitFor(t, "completed status", func() bool {
		return f.svc.Snapshot().DownloadStatus == entity.DownloadCompleted
	})

	waitFor(t, "pending record", func() bool { return f.store.pendingRecord() != nil })
	rec := f.store.pendingRecord()
	if rec.VersionName != "1.1.0" || rec.DownloadSource != entity.SourceFallback {
		t.Errorf("pending record = %+v", rec)
	}
	if rec.SavePath != f.downloader.requestAt(0).SavePath {
		t.Errorf("pending SavePath = %q, want %q", rec.SavePath, f.downloader.requestAt(0).SavePath)
	}
}

func TestStartDownloadRejectsConcurrentDownload(t *testing.T) {
	f := newFixture(t, baseSettings())
	f.checker.set(func(port.CheckParams) (*entity.UpdateInfo, error) {
		return fallbackUpdate(), nil
	})

	if _, err := f.svc.CheckForUpdates(context.Background()); err != nil {
		t.Fatalf("CheckForUpdates() error = %v", err)
	}
	waitFor(t, "download start", func() bool { return f.downloader.count() == 1 })

	if err := f.svc.StartDownload(context.Background()); err == nil {
		t.Error("StartDownload() = nil error while another download is running")
	}
}

func TestDownloadFailureDoesNotPersistPending(t *testing.T) {
	f := newFixture(t, baseSettings())
	f.checker.set(func(port.CheckParams) (*entity.UpdateInfo, error) {
		return fallbackUpdate(), nil
	})

	if _, err := f.svc.CheckForUpdates(context.Background()); err != nil {
		t.Fatalf("CheckForUpdates() error = %v", err)
	}
	waitFor(t, "download start", func() bool { return f.downloader.count() == 1 })

	f.downloader.handleAt(0).finish(errors.New("disk full"))
	waitFor(t, "failed status", func() bool {
		return f.svc.Snapshot().DownloadStatus == entity.DownloadFailed
	})

	st := f.svc.Snapshot()
	if st.LastError == "" {
		t.Error("LastError empty after failed download")
	}
	if st.UpdateInfo == nil || !st.UpdateInfo.HasUpdate {
		t.Error("update info lost after failed download, retry needs it")
	}
	if f.store.pendingRecord() != nil {
		t.Error("pending record written for a failed download")
	}
}

func TestProviderSwitchMidDownload(t *testing.T) {
	f := newFixture(t, baseSettings())
	f.checker.set(func(port.CheckParams) (*entity.UpdateInfo, error) {
		return fallbackUpdate(), nil
	})

	ctx := context.Background()
	if _, err := f.svc.CheckForUpdates(ctx); err != nil {
		t.Fatalf("CheckForUpdates() error = %v", err)
	}
	waitFor(t, "fallback download start", func() bool { return f.downloader.count() == 1 })

	// The user enters a key mid-download and the keyed source now
	// answers with a direct link.
	f.checker.set(func(params port.CheckParams) (*entity.UpdateInfo, error) {
		if params.CDK != "fresh-key" {
			t.Errorf("re-check used CDK %q, want fresh-key", params.CDK)
		}
		return keyedUpdate(), nil
	})
	settings := baseSettings()
	settings.CDK = "fresh-key"
	f.svc.ApplySettings(ctx, settings)

	waitFor(t, "keyed download start", func() bool { return f.downloader.count() == 2 })

	// The old session was cancelled, not failed.
	select {
	case <-f.downloader.handleAt(0).Done():
	default:
		t.Error("fallback download not cancelled after key change")
	}
	if st := f.svc.Snapshot(); st.DownloadStatus != entity.Downloading {
		t.Errorf("status after switch = %v, want downloading", st.DownloadStatus)
	}

	f.downloader.handleAt(1).finish(nil)
	waitFor(t, "completed status", func() bool {
		return f.svc.Snapshot().DownloadStatus == entity.DownloadCompleted
	})

	waitFor(t, "pending record", func() bool { return f.store.pendingRecord() != nil })
	if rec := f.store.pendingRecord(); rec.DownloadSource != entity.SourceProvider {
		t.Errorf("pending DownloadSource = %q, want provider", rec.DownloadSource)
	}
	if f.downloader.count() != 2 {
		t.Errorf("downloads started = %d, want exactly 2", f.downloader.count())
	}
}

func TestProviderSwitchWithoutKeyedLink(t *testing.T) {
	f := newFixture(t, baseSettings())
	f.checker.set(func(port.CheckParams) (*entity.UpdateInfo, error) {
		return fallbackUpdate(), nil
	})

	ctx := context.Background()
	if _, err := f.svc.CheckForUpdates(ctx); err != nil {
		t.Fatalf("CheckForUpdates() error = %v", err)
	}
	waitFor(t, "fallback download start", func() bool { return f.downloader.count() == 1 })

	// The key does not unlock a keyed link; the re-check falls back to
	// the public host again.
	settings := baseSettings()
	settings.CDK = "expired-key"
	f.svc.ApplySettings(ctx, settings)

	waitFor(t, "restarted download", func() bool { return f.downloader.count() == 2 })
	waitFor(t, "keyed link notice", func() bool {
		return f.host.hasNotice("could not obtain a keyed download link")
	})
}

func TestApplySettingsWithoutKeyChangeDoesNotSwitch(t *testing.T) {
	f := newFixture(t, baseSettings())
	f.checker.set(func(port.CheckParams) (*entity.UpdateInfo, error) {
		return fallbackUpdate(), nil
	})

	ctx := context.Background()
	if _, err := f.svc.CheckForUpdates(ctx); err != nil {
		t.Fatalf("CheckForUpdates() error = %v", err)
	}
	waitFor(t, "download start", func() bool { return f.downloader.count() == 1 })

	settings := baseSettings()
	settings.AutoDownload = false
	f.svc.ApplySettings(ctx, settings)

	time.Sleep(20 * time.Millisecond)
	if f.downloader.count() != 1 {
		t.Errorf("downloads started = %d, want 1 (no key change)", f.downloader.count())
	}
	if st := f.svc.Snapshot(); st.DownloadStatus != entity.Downloading {
		t.Errorf("status = %v, want still downloading", st.DownloadStatus)
	}
}

func TestInstallRequiresCompletedDownload(t *testing.T) {
	f := newFixture(t, baseSettings())
	if err := f.svc.Install(context.Background()); err == nil {
		t.Error("Install() = nil error without a completed download")
	}
}

func TestInstallFailureResetsInstallStatus(t *testing.T) {
	f := newFixture(t, baseSettings())
	f.checker.set(func(port.CheckParams) (*entity.UpdateInfo, error) {
		return fallbackUpdate(), nil
	})
	f.installer.installErr = errors.New("target not writable")

	ctx := context.Background()
	if _, err := f.svc.CheckForUpdates(ctx); err != nil {
		t.Fatalf("CheckForUpdates() error = %v", err)
	}
	waitFor(t, "download start", func() bool { return f.downloader.count() == 1 })
	f.downloader.handleAt(0).finish(nil)
	waitFor(t, "completed status", func() bool {
		return f.svc.Snapshot().DownloadStatus == entity.DownloadCompleted
	})
	waitFor(t, "pending record", func() bool { return f.store.pendingRecord() != nil })

	if err := f.svc.Install(ctx); err == nil {
		t.Fatal("Install() = nil error, want installer failure")
	}
	st := f.svc.Snapshot()
	if st.InstallStatus != entity.InstallIdle {
		t.Errorf("InstallStatus = %v, want idle after failure", st.InstallStatus)
	}
	if f.store.pendingRecord() == nil {
		t.Error("pending record cleared despite failed installation")
	}
	if f.host.restartCount() != 0 {
		t.Errorf("restarts = %d, want 0", f.host.restartCount())
	}
}

func TestKeyErrorWithoutURLDoesNotDownload(t *testing.T) {
	f := newFixture(t, baseSettings())
	f.checker.set(func(port.CheckParams) (*entity.UpdateInfo, error) {
		return &entity.UpdateInfo{
			HasUpdate:    true,
			VersionName:  "1.1.0",
			Channel:      entity.ChannelStable,
			ErrorCode:    7001,
			ErrorMessage: "access key has expired",
		}, nil
	})

	info, err := f.svc.CheckForUpdates(context.Background())
	if err != nil {
		t.Fatalf("CheckForUpdates() error = %v", err)
	}
	if info.ErrorCode != 7001 || info.ErrorMessage == "" {
		t.Errorf("provider error not surfaced: %+v", info)
	}

	time.Sleep(20 * time.Millisecond)
	if f.downloader.count() != 0 {
		t.Errorf("downloads started = %d, want 0 without a URL", f.downloader.count())
	}
	if st := f.svc.Snapshot(); st.DownloadStatus != entity.DownloadIdle {
		t.Errorf("status = %v, want idle", st.DownloadStatus)
	}
}

func TestResetDownloadAfterFailure(t *testing.T) {
	f := newFixture(t, baseSettings())
	f.checker.set(func(port.CheckParams) (*entity.UpdateInfo, error) {
		return fallbackUpdate(), nil
	})

	if _, err := f.svc.CheckForUpdates(context.Background()); err != nil {
		t.Fatalf("CheckForUpdates() error = %v", err)
	}
	waitFor(t, "download start", func() bool { return f.downloader.count() == 1 })
	f.downloader.handleAt(0).finish(errors.New("connection reset"))
	waitFor(t, "failed status", func() bool {
		return f.svc.Snapshot().DownloadStatus == entity.DownloadFailed
	})

	f.svc.ResetDownload()
	st := f.svc.Snapshot()
	if st.DownloadStatus != entity.DownloadIdle || st.LastError != "" {
		t.Errorf("after reset: status = %v, lastError = %q", st.DownloadStatus, st.LastError)
	}
}

func TestArtifactNameDisambiguatesVersionlessAssets(t *testing.T) {
	older := &entity.UpdateInfo{VersionName: "v1.1.0", Filename: "upwell-linux-amd64.tar.gz"}
	newer := &entity.UpdateInfo{VersionName: "v1.2.0", Filename: "upwell-linux-amd64.tar.gz"}

	a, b := artifactName(older), artifactName(newer)
	if a == b {
		t.Fatalf("artifact names collide across versions: %q", a)
	}
	if a != "1.1.0-upwell-linux-amd64.tar.gz" {
		t.Errorf("artifactName(older) = %q", a)
	}

	versioned := &entity.UpdateInfo{VersionName: "1.1.0", Filename: "upwell-1.1.0.zip"}
	if got := artifactName(versioned); got != "upwell-1.1.0.zip" {
		t.Errorf("artifactName(versioned) = %q, want the asset name unchanged", got)
	}
}

func TestCheckFailureRecordsError(t *testing.T) {
	f := newFixture(t, baseSettings())
	f.checker.set(func(port.CheckParams) (*entity.UpdateInfo, error) {
		return nil, errors.New("all update sources failed")
	})

	if _, err := f.svc.CheckForUpdates(context.Background()); err == nil {
		t.Fatal("CheckForUpdates() = nil error, want failure")
	}
	if st := f.svc.Snapshot(); st.LastError == "" {
		t.Error("LastError empty after failed check")
	}

	f.svc.ResetError()
	if st := f.svc.Snapshot(); st.LastError != "" {
		t.Errorf("LastError = %q after reset", st.LastError)
	}
}
