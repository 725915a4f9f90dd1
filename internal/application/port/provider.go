// Package port defines interfaces for external dependencies.
package port

import (
	"context"
	"errors"

	"github.com/nevna/upwell/internal/domain/entity"
)

// ErrCheckTransient marks update check failures caused by transient
// network conditions. Callers treat it as "check failed, try again
// later" rather than "no update".
var ErrCheckTransient = errors.New("transient update check failure")

// CheckParams carries everything a provider needs to answer an update
// check. The local save location is derived by the orchestrator and
// never sent over the wire.
type CheckParams struct {
	ResourceID     string
	CurrentVersion string
	// CDK is the access key unlocking the keyed provider. Empty means
	// the keyed provider is skipped.
	CDK       string
	Channel   entity.Channel
	UserAgent string
	// FallbackURL is the public release-listing endpoint queried when
	// no keyed download URL is available.
	FallbackURL string
}

// UpdateProvider answers "is there a newer version" for one remote
// source, returning a normalized result or a typed failure.
type UpdateProvider interface {
	// Check compares the current version against the provider's latest
	// release. Provider-reported errors surface as *entity.ProviderError
	// with the original code preserved.
	Check(ctx context.Context, params CheckParams) (*entity.UpdateInfo, error)
}
