// Package usecase implements application use cases for upwell.
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/nevna/upwell/internal/application/port"
	"github.com/nevna/upwell/internal/domain/entity"
	"github.com/nevna/upwell/internal/logging"
)

// CheckUpdateUseCase answers "is there a newer version" by combining
// the keyed provider with the public release host.
//
// The keyed provider is asked first whenever an access key is
// configured. Its answer wins outright when it includes a usable
// download URL. When it reports a newer version without a URL (expired
// or missing key entitlement) the public host supplies the URL and the
// keyed error code is preserved on the merged result so the caller can
// tell the user why the keyed link was unavailable.
type CheckUpdateUseCase struct {
	keyed    port.UpdateProvider
	fallback port.UpdateProvider
}

// NewCheckUpdateUseCase creates a new check update use case.
func NewCheckUpdateUseCase(keyed, fallback port.UpdateProvider) *CheckUpdateUseCase {
	return &CheckUpdateUseCase{
		keyed:    keyed,
		fallback: fallback,
	}
}

// Execute runs one update check. It returns (nil, err) only when no
// branch produced an answer; a provider-reported error with a usable
// fallback answer is not a failure.
func (uc *CheckUpdateUseCase) Execute(ctx context.Context, params port.CheckParams) (*entity.UpdateInfo, error) {
	ctx = logging.WithComponent(ctx, "check_update")
	log := logging.FromContext(ctx)

	var (
		keyedInfo *entity.UpdateInfo
		keyedErr  error
	)

	if params.CDK != "" && uc.keyed != nil {
		keyedInfo, keyedErr = uc.keyed.Check(ctx, params)
		switch {
		case keyedErr != nil:
			log.Warn().Err(keyedErr).Msg("keyed provider check failed, trying release host")
		case keyedInfo == nil:
			keyedErr = errors.New("keyed provider returned no result")
		case !keyedInfo.HasUpdate:
			// Up to date according to the authoritative source.
			return keyedInfo, nil
		case keyedInfo.DownloadURL != "":
			return keyedInfo, nil
		default:
			log.Debug().Str("version", keyedInfo.VersionName).
				Msg("keyed provider reported update without download URL")
		}
	}

	if uc.fallback == nil {
		if keyedInfo != nil {
			return uc.merge(keyedInfo, nil, keyedErr), nil
		}
		if keyedErr != nil {
			return nil, keyedErr
		}
		return nil, errors.New("no update provider configured")
	}

	fbInfo, fbErr := uc.fallback.Check(ctx, params)
	if fbErr != nil {
		if keyedInfo != nil {
			// A keyed answer without a URL still tells the user an
			// update exists.
			log.Warn().Err(fbErr).Msg("release host check failed, keeping keyed answer")
			return uc.merge(keyedInfo, nil, keyedErr), nil
		}
		if keyedErr != nil {
			return nil, fmt.Errorf("all update sources failed: %w", errors.Join(keyedErr, fbErr))
		}
		return nil, fbErr
	}

	return uc.merge(keyedInfo, fbInfo, keyedErr), nil
}

// merge combines the keyed branch's answer and error with the fallback
// result. A keyed existence answer stands even when the release host
// lags behind it; the fallback only contributes the artifact fields.
// The branch that produced the winning URL determines DownloadSource.
func (uc *CheckUpdateUseCase) merge(keyedInfo, fbInfo *entity.UpdateInfo, keyedErr error) *entity.UpdateInfo {
	var result *entity.UpdateInfo
	switch {
	case keyedInfo == nil:
		result = fbInfo
	case fbInfo == nil:
		cp := *keyedInfo
		result = &cp
	default:
		cp := *keyedInfo
		cp.DownloadURL = fbInfo.DownloadURL
		cp.Filename = fbInfo.Filename
		cp.FileSize = fbInfo.FileSize
		cp.SHA256 = fbInfo.SHA256
		cp.UpdateType = fbInfo.UpdateType
		cp.DownloadSource = fbInfo.DownloadSource
		if cp.ReleaseNote == "" {
			cp.ReleaseNote = fbInfo.ReleaseNote
		}
		result = &cp
	}

	// Server-reported codes carry the provider's verbatim message; the
	// client-side bucket is transport noise, not a key problem to show.
	var provErr *entity.ProviderError
	if errors.As(keyedErr, &provErr) && !provErr.IsClientSide() {
		result.ErrorCode = provErr.Code
		result.ErrorMessage = provErr.Msg
	}

	return result
}
