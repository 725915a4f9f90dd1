package port

import (
	"context"

	"github.com/nevna/upwell/internal/domain/entity"
)

// ProgressFunc receives throttled download progress snapshots.
// DownloadedSize is non-decreasing across successive calls within one
// download session.
type ProgressFunc func(entity.DownloadProgress)

// DownloadRequest describes one artifact transfer.
type DownloadRequest struct {
	URL      string
	SavePath string
	// TotalSizeHint is the expected size when the provider reported
	// one; zero means unknown until the response arrives.
	TotalSizeHint int64
	OnProgress    ProgressFunc
}

// DownloadHandle is the caller's grip on an in-flight download.
type DownloadHandle interface {
	// Cancel aborts the transfer. Safe to call more than once; only
	// the first call has effect.
	Cancel()
	// Done is closed when the transfer terminates, successfully or not.
	Done() <-chan struct{}
	// Err returns the terminal error, nil on success. Only valid after
	// Done is closed.
	Err() error
}

// Downloader streams a remote artifact to a local path.
type Downloader interface {
	// Start begins the transfer and returns immediately. The artifact
	// becomes visible at SavePath only after a fully successful write.
	Start(ctx context.Context, req DownloadRequest) (DownloadHandle, error)
}
