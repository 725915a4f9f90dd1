// Package provider implements the two update sources: the keyed
// distribution API and the public release-host fallback.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"path"
	"runtime"
	"time"

	"github.com/nevna/upwell/internal/application/port"
	"github.com/nevna/upwell/internal/domain/entity"
	"github.com/nevna/upwell/internal/domain/version"
	"github.com/nevna/upwell/internal/logging"
)

const (
	// HTTP client timeout for check requests.
	apiTimeout = 10 * time.Second
)

// latestQueryResponse is the keyed API envelope. A non-zero code is a
// provider-reported error and is surfaced verbatim.
type latestQueryResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data latestQueryData `json:"data"`
}

type latestQueryData struct {
	VersionName string `json:"version_name"`
	URL         string `json:"url,omitempty"`
	SHA256      string `json:"sha256,omitempty"`
	Channel     string `json:"channel"`
	OS          string `json:"os"`
	Arch        string `json:"arch"`
	UpdateType  string `json:"update_type,omitempty"`
	ReleaseNote string `json:"release_note"`
	FileSize    int64  `json:"filesize,omitempty"`
	CustomData  string `json:"custom_data,omitempty"`
}

// KeyedClient queries the keyed commercial distribution API.
type KeyedClient struct {
	baseURL   string
	client    *http.Client
	randInt63 func(n int64) int64
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewKeyedClient creates a client for the keyed provider rooted at baseURL.
func NewKeyedClient(baseURL string) *KeyedClient {
	return &KeyedClient{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: apiTimeout},
		randInt63: rand.Int63n,
		sleep:     waitForBackoff,
	}
}

// Check queries the keyed provider for the latest release of the
// resource. A non-empty CDK unlocks the direct download URL.
func (k *KeyedClient) Check(ctx context.Context, params port.CheckParams) (*entity.UpdateInfo, error) {
	log := logging.FromContext(ctx)

	endpoint, err := k.latestURL(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", params.UserAgent)

	resp, err := doRequestWithRetry(ctx, k.client, req, k.sleep, k.randInt63)
	if err != nil {
		if isRetryableRequestError(err) {
			return nil, fmt.Errorf("%w: %w", port.ErrCheckTransient, err)
		}
		return nil, fmt.Errorf("failed to query keyed provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// The API reports errors through the envelope code even on non-2xx
	// statuses, so decode before judging the status line.
	var envelope latestQueryResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("keyed provider returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode provider response: %w", decodeErr)
	}

	if envelope.Code != 0 {
		log.Debug().
			Int("code", envelope.Code).
			Str("msg", envelope.Msg).
			Msg("keyed provider reported error")
		return nil, &entity.ProviderError{Code: envelope.Code, Msg: envelope.Msg}
	}

	data := envelope.Data
	hasUpdate := version.IsNewer(data.VersionName, params.CurrentVersion)

	info := &entity.UpdateInfo{
		HasUpdate:      hasUpdate,
		VersionName:    data.VersionName,
		ReleaseNote:    data.ReleaseNote,
		Channel:        channelOrDefault(data.Channel, params.Channel),
		UpdateType:     entity.UpdateType(data.UpdateType),
		DownloadSource: entity.SourceProvider,
	}
	if hasUpdate && data.URL != "" {
		info.DownloadURL = data.URL
		info.SHA256 = data.SHA256
		info.FileSize = data.FileSize
		info.Filename = artifactFilename(data.URL, params.ResourceID, data.VersionName)
	}

	log.Debug().
		Str("current", params.CurrentVersion).
		Str("latest", data.VersionName).
		Bool("has_update", hasUpdate).
		Bool("direct_url", info.DownloadURL != "").
		Msg("keyed provider check completed")

	return info, nil
}

// latestURL builds {base}/resources/{rid}/latest with the query
// parameters the keyed API expects.
func (k *KeyedClient) latestURL(params port.CheckParams) (string, error) {
	base, err := url.Parse(k.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid provider base URL: %w", err)
	}
	base.Path = path.Join(base.Path, "resources", params.ResourceID, "latest")

	query := base.Query()
	query.Set("current_version", params.CurrentVersion)
	query.Set("channel", string(params.Channel))
	query.Set("os", runtime.GOOS)
	query.Set("arch", runtime.GOARCH)
	if params.CDK != "" {
		query.Set("cdk", params.CDK)
	}
	base.RawQuery = query.Encode()

	return base.String(), nil
}

// artifactFilename derives the local artifact name from the download
// URL, falling back to a resource-version name so that a filename
// uniquely identifies the artifact it names.
func artifactFilename(downloadURL, resourceID, versionName string) string {
	if parsed, err := url.Parse(downloadURL); err == nil {
		if name := path.Base(parsed.Path); name != "" && name != "." && name != "/" {
			return name
		}
	}
	return fmt.Sprintf("%s-%s.zip", resourceID, versionName)
}

func channelOrDefault(remote string, fallback entity.Channel) entity.Channel {
	switch entity.Channel(remote) {
	case entity.ChannelStable, entity.ChannelBeta:
		return entity.Channel(remote)
	}
	return fallback
}
