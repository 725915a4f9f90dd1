// Package entity defines domain entities for upwell.
package entity

// Channel is a release track used to select the remote version stream.
type Channel string

const (
	ChannelStable Channel = "stable"
	ChannelBeta   Channel = "beta"
)

// DownloadSource identifies which remote produced a download URL.
type DownloadSource string

const (
	// SourceProvider is the keyed commercial distribution API.
	SourceProvider DownloadSource = "provider"
	// SourceFallback is the public release host.
	SourceFallback DownloadSource = "fallback"
)

// UpdateType distinguishes full packages from incremental patches.
type UpdateType string

const (
	UpdateTypeFull        UpdateType = "full"
	UpdateTypeIncremental UpdateType = "incremental"
)

// UpdateInfo is the result of an update check.
//
// HasUpdate=false implies DownloadURL is empty. ErrorCode may coexist
// with either value of HasUpdate: a provider error does not prevent
// falling back to the public release host.
type UpdateInfo struct {
	HasUpdate   bool
	VersionName string
	// ReleaseNote is the release changelog in markdown.
	ReleaseNote    string
	Channel        Channel
	FileSize       int64
	Filename       string
	DownloadURL    string
	SHA256         string
	DownloadSource DownloadSource
	UpdateType     UpdateType
	// ErrorCode/ErrorMessage carry a provider-reported error verbatim.
	ErrorCode    int
	ErrorMessage string
}

// DownloadStatus represents the state of the single per-process download.
type DownloadStatus int

const (
	DownloadIdle DownloadStatus = iota
	Downloading
	DownloadCompleted
	DownloadFailed
)

// String returns a human-readable string for the download status.
func (s DownloadStatus) String() string {
	switch s {
	case DownloadIdle:
		return "idle"
	case Downloading:
		return "downloading"
	case DownloadCompleted:
		return "completed"
	case DownloadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// InstallStatus represents the state of the install hand-off.
type InstallStatus int

const (
	InstallIdle InstallStatus = iota
	Installing
)

// String returns a human-readable string for the install status.
func (s InstallStatus) String() string {
	switch s {
	case InstallIdle:
		return "idle"
	case Installing:
		return "installing"
	default:
		return "unknown"
	}
}

// DownloadProgress is an ephemeral snapshot of an in-flight download.
type DownloadProgress struct {
	DownloadedSize int64
	TotalSize      int64
	// Speed is instantaneous bytes/sec over a short sliding window.
	Speed int64
	// Progress is 0-100, derived, non-decreasing within one session.
	Progress float64
}
