package port

import (
	"context"

	"github.com/nevna/upwell/internal/domain/entity"
)

// PendingStore is durable storage for update state that must survive a
// process restart. Only the orchestrator writes it.
type PendingStore interface {
	// SavePending records a completed-but-not-installed download,
	// superseding any previous record.
	SavePending(ctx context.Context, rec *entity.PendingUpdate) error
	// GetPending returns the pending record, or nil when none exists.
	GetPending(ctx context.Context) (*entity.PendingUpdate, error)
	// ClearPending removes the pending record.
	ClearPending(ctx context.Context) error

	// SaveJustUpdated records a finished installation just before the
	// restart that completes it.
	SaveJustUpdated(ctx context.Context, rec *entity.JustUpdated) error
	// ConsumeJustUpdated returns and deletes the just-updated record,
	// or returns nil when none exists. Read-and-delete, exactly once.
	ConsumeJustUpdated(ctx context.Context) (*entity.JustUpdated, error)
}
