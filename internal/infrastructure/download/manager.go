// Package download streams update artifacts to disk with progress
// reporting and cooperative cancellation.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nevna/upwell/internal/application/port"
	"github.com/nevna/upwell/internal/domain/entity"
	"github.com/nevna/upwell/internal/logging"
)

const (
	// HTTP client timeout for artifact downloads.
	downloadTimeout = 30 * time.Minute

	// Minimum interval between progress callbacks.
	progressInterval = 200 * time.Millisecond

	// Sliding window over which instantaneous speed is computed.
	speedWindow = 3 * time.Second

	// Copy buffer size.
	copyBufSize = 64 * 1024

	// Suffix for the in-flight temporary file; the final path only
	// becomes visible after a fully successful write and rename.
	partSuffix = ".part"

	// File permission for download directories.
	dirPerm = 0o755
)

// Manager implements port.Downloader over plain HTTP streaming.
type Manager struct {
	client    *http.Client
	userAgent string
}

// NewManager creates a download manager.
func NewManager(userAgent string) *Manager {
	return &Manager{
		client:    &http.Client{Timeout: downloadTimeout},
		userAgent: userAgent,
	}
}

type handle struct {
	cancel     context.CancelFunc
	cancelOnce sync.Once
	done       chan struct{}
	err        error
}

func (h *handle) Cancel() {
	h.cancelOnce.Do(h.cancel)
}

func (h *handle) Done() <-chan struct{} {
	return h.done
}

func (h *handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Start begins the transfer and returns a cancellable handle. The
// caller is responsible for not issuing a second concurrent download
// for the same logical update.
func (m *Manager) Start(ctx context.Context, req port.DownloadRequest) (port.DownloadHandle, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("download URL cannot be empty")
	}
	if req.SavePath == "" {
		return nil, fmt.Errorf("save path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(req.SavePath), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	dctx, cancel := context.WithCancel(ctx)
	h := &handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer cancel()
		h.err = m.run(dctx, req)
		close(h.done)
	}()

	return h, nil
}

func (m *Manager) run(ctx context.Context, req port.DownloadRequest) error {
	log := logging.FromContext(ctx)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	if m.userAgent != "" {
		httpReq.Header.Set("User-Agent", m.userAgent)
	}

	log.Debug().Str("url", req.URL).Str("path", req.SavePath).Msg("starting download")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = req.TotalSizeHint
	}

	partPath := req.SavePath + partSuffix
	file, err := os.Create(partPath)
	if err != nil {
		return fmt.Errorf("failed to create artifact file: %w", err)
	}

	written, copyErr := m.copyWithProgress(ctx, file, resp.Body, total, req.OnProgress)
	if closeErr := file.Close(); closeErr != nil && copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(partPath)
		return fmt.Errorf("failed to write artifact: %w", copyErr)
	}

	if total > 0 && written != total {
		_ = os.Remove(partPath)
		return fmt.Errorf("size mismatch: got %d bytes, expected %d", written, total)
	}

	if err := os.Rename(partPath, req.SavePath); err != nil {
		_ = os.Remove(partPath)
		return fmt.Errorf("failed to finalize artifact: %w", err)
	}

	log.Debug().Int64("bytes", written).Str("path", req.SavePath).Msg("download completed")
	return nil
}

type speedSample struct {
	at    time.Time
	bytes int64
}

// copyWithProgress streams body to dst, invoking onProgress at a
// bounded rate with non-decreasing byte counts and a sliding-window
// speed (zero before the first bytes arrive).
func (*Manager) copyWithProgress(
	ctx context.Context,
	dst io.Writer,
	body io.Reader,
	total int64,
	onProgress port.ProgressFunc,
) (int64, error) {
	var (
		written  int64
		buf      = make([]byte, copyBufSize)
		lastEmit time.Time
		samples  []speedSample
	)

	emit := func(now time.Time, final bool) {
		if onProgress == nil {
			return
		}
		if !final && now.Sub(lastEmit) < progressInterval {
			return
		}
		lastEmit = now

		samples = append(samples, speedSample{at: now, bytes: written})
		cutoff := now.Add(-speedWindow)
		for len(samples) > 1 && samples[0].at.Before(cutoff) {
			samples = samples[1:]
		}

		var speed int64
		if n := len(samples); n > 1 {
			elapsed := samples[n-1].at.Sub(samples[0].at).Seconds()
			if elapsed > 0 {
				speed = int64(float64(samples[n-1].bytes-samples[0].bytes) / elapsed)
			}
		}

		progress := 0.0
		if total > 0 {
			progress = float64(written) / float64(total) * 100
			if progress > 100 {
				progress = 100
			}
		}

		onProgress(entity.DownloadProgress{
			DownloadedSize: written,
			TotalSize:      total,
			Speed:          speed,
			Progress:       progress,
		})
	}

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			wn, writeErr := dst.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, writeErr
			}
			if wn != n {
				return written, io.ErrShortWrite
			}
			emit(time.Now(), false)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return written, readErr
		}
	}

	// Chunked responses carry no Content-Length; once the body is fully
	// read the byte count is the total.
	if total <= 0 {
		total = written
	}
	emit(time.Now(), true)
	return written, nil
}
