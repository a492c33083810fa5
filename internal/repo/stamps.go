package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/smilefoto/klicka/internal/store"
)

// StampRepo records the lastSync/lastUpload/lastScan instants the UI shows
// on the offline-status line. Stored as RFC3339 strings.
type StampRepo struct {
	kv store.KVStore
}

func (r *StampRepo) get(ctx context.Context, key string) (*time.Time, error) {
	raw, found, err := r.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stamp %s: %w", key, err)
	}
	return &t, nil
}

func (r *StampRepo) set(ctx context.Context, key string, at time.Time) error {
	return r.kv.Set(ctx, key, at.UTC().Format(time.RFC3339))
}

func (r *StampRepo) LastSync(ctx context.Context, eventID string) (*time.Time, error) {
	return r.get(ctx, store.LastSyncKey(eventID))
}

func (r *StampRepo) SetLastSync(ctx context.Context, eventID string, at time.Time) error {
	return r.set(ctx, store.LastSyncKey(eventID), at)
}

func (r *StampRepo) LastUpload(ctx context.Context, eventID string) (*time.Time, error) {
	return r.get(ctx, store.LastUploadKey(eventID))
}

func (r *StampRepo) SetLastUpload(ctx context.Context, eventID string, at time.Time) error {
	return r.set(ctx, store.LastUploadKey(eventID), at)
}

func (r *StampRepo) LastScan(ctx context.Context, eventID string) (*time.Time, error) {
	return r.get(ctx, store.LastScanKey(eventID))
}

func (r *StampRepo) SetLastScan(ctx context.Context, eventID string, at time.Time) error {
	return r.set(ctx, store.LastScanKey(eventID), at)
}
