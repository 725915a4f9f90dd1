package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nevna/upwell/internal/application/port"
	"github.com/nevna/upwell/internal/domain/entity"
	"github.com/nevna/upwell/internal/logging"
)

// State keys in the update_state table.
const (
	keyPendingUpdate = "pending_update"
	keyJustUpdated   = "just_updated"
)

type updateStateRepo struct {
	db *sql.DB
}

// NewUpdateStateStore creates the durable pending-state store backed
// by the given database. Records are stored as JSON payloads so that a
// newer application version can read records written by an older one
// (unknown fields ignored, missing fields zero-valued).
func NewUpdateStateStore(db *sql.DB) port.PendingStore {
	return &updateStateRepo{db: db}
}

// SavePending records a completed-but-not-installed download.
func (r *updateStateRepo) SavePending(ctx context.Context, rec *entity.PendingUpdate) error {
	if rec == nil {
		return errors.New("pending update cannot be nil")
	}
	if rec.SavePath == "" {
		return errors.New("pending update must reference a downloaded artifact")
	}

	logging.FromContext(ctx).Debug().
		Str("version", rec.VersionName).
		Str("save_path", rec.SavePath).
		Msg("saving pending update record")

	return r.put(ctx, keyPendingUpdate, rec)
}

// GetPending returns the pending record, or nil when none exists.
func (r *updateStateRepo) GetPending(ctx context.Context) (*entity.PendingUpdate, error) {
	var rec entity.PendingUpdate
	found, err := r.get(ctx, keyPendingUpdate, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// ClearPending removes the pending record.
func (r *updateStateRepo) ClearPending(ctx context.Context) error {
	logging.FromContext(ctx).Debug().Msg("clearing pending update record")
	return r.delete(ctx, keyPendingUpdate)
}

// SaveJustUpdated records a finished installation.
func (r *updateStateRepo) SaveJustUpdated(ctx context.Context, rec *entity.JustUpdated) error {
	if rec == nil {
		return errors.New("just-updated record cannot be nil")
	}

	logging.FromContext(ctx).Debug().
		Str("previous", rec.PreviousVersion).
		Str("new", rec.NewVersion).
		Msg("saving just-updated record")

	return r.put(ctx, keyJustUpdated, rec)
}

// ConsumeJustUpdated returns and deletes the just-updated record in
// one transaction, so it is observed exactly once.
func (r *updateStateRepo) ConsumeJustUpdated(ctx context.Context) (*entity.JustUpdated, error) {
	log := logging.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin consume transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			log.Debug().Err(rollbackErr).Msg("consume rollback reported non-terminal error")
		}
	}()

	var payload string
	err = tx.QueryRowContext(ctx,
		"SELECT payload FROM update_state WHERE key = ?", keyJustUpdated,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM update_state WHERE key = ?", keyJustUpdated,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit consume transaction: %w", err)
	}

	var rec entity.JustUpdated
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		log.Warn().Err(err).Msg("discarding corrupted just-updated record")
		return nil, nil
	}

	return &rec, nil
}

func (r *updateStateRepo) put(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", key, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO update_state (key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, string(payload), time.Now().UTC(),
	)
	return err
}

func (r *updateStateRepo) get(ctx context.Context, key string, dest any) (bool, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		"SELECT payload FROM update_state WHERE key = ?", key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("key", key).Msg("skipping corrupted state record")
		return false, nil
	}

	return true, nil
}

func (r *updateStateRepo) delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM update_state WHERE key = ?", key)
	return err
}
