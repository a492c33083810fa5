// Package repo exposes typed repositories over the raw KV substrate.
// The repositories own all JSON encoding; callers never touch key strings.
package repo

import (
	"context"
	"fmt"

	"github.com/smilefoto/klicka/internal/store"
)

type Store struct {
	kv store.KVStore

	Events      *EventRepo
	Students    *StudentRepo
	QRCodes     *QRCodeRepo
	Preferences *PreferenceRepo
	Sessions    *SessionRepo
	Stamps      *StampRepo
}

func New(kv store.KVStore) *Store {
	return &Store{
		kv:          kv,
		Events:      &EventRepo{kv: kv},
		Students:    &StudentRepo{kv: kv},
		QRCodes:     &QRCodeRepo{kv: kv},
		Preferences: &PreferenceRepo{kv: kv},
		Sessions:    NewSessionRepo(kv),
		Stamps:      &StampRepo{kv: kv},
	}
}

// ClearEventData removes the server-driven entities for one event ahead of
// a re-sync. Sessions and the sync/upload/scan stamps survive: everything
// captured offline must outlive a refetch of reference data.
func (s *Store) ClearEventData(ctx context.Context, eventID string) error {
	if err := s.kv.MultiRemove(ctx, store.ServerDrivenKeys(eventID)); err != nil {
		return fmt.Errorf("failed to clear event data: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.kv.Close()
}
