package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/nevna/upwell/internal/application/port"
	"github.com/nevna/upwell/internal/domain/entity"
	"github.com/nevna/upwell/internal/domain/version"
	"github.com/nevna/upwell/internal/logging"
)

// githubRelease represents the release-host API response.
type githubRelease struct {
	TagName     string        `json:"tag_name"`
	HTMLURL     string        `json:"html_url"`
	PublishedAt time.Time     `json:"published_at"`
	Body        string        `json:"body"`
	Prerelease  bool          `json:"prerelease"`
	Assets      []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// GitHubClient queries a public release feed as the unauthenticated
// fallback source.
type GitHubClient struct {
	client    *http.Client
	randInt63 func(n int64) int64
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewGitHubClient creates the fallback release-host client.
func NewGitHubClient() *GitHubClient {
	return &GitHubClient{
		client:    &http.Client{Timeout: apiTimeout},
		randInt63: rand.Int63n,
		sleep:     waitForBackoff,
	}
}

// Check fetches the latest published release from params.FallbackURL
// and compares its tag against the current version.
func (g *GitHubClient) Check(ctx context.Context, params port.CheckParams) (*entity.UpdateInfo, error) {
	log := logging.FromContext(ctx)

	if params.FallbackURL == "" {
		return nil, fmt.Errorf("no fallback release URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, params.FallbackURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", params.UserAgent)

	resp, err := doRequestWithRetry(ctx, g.client, req, g.sleep, g.randInt63)
	if err != nil {
		if isRetryableRequestError(err) {
			return nil, fmt.Errorf("%w: %w", port.ErrCheckTransient, err)
		}
		return nil, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		if isRetryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("%w: release host returned status %d", port.ErrCheckTransient, resp.StatusCode)
		}
		return nil, fmt.Errorf("release host returned status %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode release: %w", err)
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	hasUpdate := version.IsNewer(latest, params.CurrentVersion)

	info := &entity.UpdateInfo{
		HasUpdate:      hasUpdate,
		VersionName:    latest,
		ReleaseNote:    release.Body,
		Channel:        params.Channel,
		UpdateType:     entity.UpdateTypeFull,
		DownloadSource: entity.SourceFallback,
	}
	if hasUpdate {
		if asset := pickAsset(release.Assets); asset != nil {
			info.DownloadURL = asset.BrowserDownloadURL
			info.Filename = asset.Name
			info.FileSize = asset.Size
		}
	}

	log.Debug().
		Str("current", params.CurrentVersion).
		Str("latest", latest).
		Bool("has_update", hasUpdate).
		Int("assets", len(release.Assets)).
		Msg("fallback release check completed")

	return info, nil
}

// pickAsset selects the release asset matching the running platform,
// preferring an exact os+arch match over an os-only match.
func pickAsset(assets []githubAsset) *githubAsset {
	osName := runtime.GOOS
	archNames := []string{runtime.GOARCH, altArchName()}

	var osMatch *githubAsset
	for i := range assets {
		name := strings.ToLower(assets[i].Name)
		if !strings.Contains(name, osName) {
			continue
		}
		for _, arch := range archNames {
			if arch != "" && strings.Contains(name, arch) {
				return &assets[i]
			}
		}
		if osMatch == nil {
			osMatch = &assets[i]
		}
	}
	return osMatch
}

// altArchName returns the alternate architecture spelling used in
// release asset names.
func altArchName() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "386":
		return "i386"
	case "arm64":
		return "aarch64"
	default:
		return ""
	}
}
