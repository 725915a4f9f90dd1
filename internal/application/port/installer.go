package port

import (
	"context"

	"github.com/nevna/upwell/internal/domain/entity"
)

// Installer applies a downloaded artifact to the installation directory.
type Installer interface {
	// Install extracts the artifact and applies it to targetDir as a
	// full or incremental update. The artifact's digest is verified
	// first when one is known.
	Install(ctx context.Context, rec *entity.PendingUpdate, targetDir string) error
	// CleanupLeftovers removes files parked aside by a previous
	// installation. Best effort, never fatal.
	CleanupLeftovers(ctx context.Context, targetDir string)
}

// Host is the windowed-application surface the update core calls into.
type Host interface {
	// Notify surfaces a user-facing message.
	Notify(ctx context.Context, level HostNoticeLevel, message string)
	// Restart asks the host to restart the application so a staged
	// installation can take effect.
	Restart(ctx context.Context) error
}

// HostNoticeLevel classifies host notifications.
type HostNoticeLevel int

const (
	NoticeInfo HostNoticeLevel = iota
	NoticeWarning
	NoticeError
)

// String returns a human-readable label for the notice level.
func (l HostNoticeLevel) String() string {
	switch l {
	case NoticeInfo:
		return "info"
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "unknown"
	}
}
