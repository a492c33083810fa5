package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/smilefoto/klicka/internal/models"
	"github.com/smilefoto/klicka/internal/store"
)

// SessionRepo owns the per-event session list. The list is stored as one
// JSON value, so every mutation is a read-modify-write cycle; a per-event
// mutex serializes those cycles so capture and finalization cannot race
// each other into a lost update.
type SessionRepo struct {
	kv store.KVStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionRepo(kv store.KVStore) *SessionRepo {
	return &SessionRepo{
		kv:    kv,
		locks: make(map[string]*sync.Mutex),
	}
}

func (r *SessionRepo) eventLock(eventID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[eventID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[eventID] = lock
	}
	return lock
}

func (r *SessionRepo) List(ctx context.Context, eventID string) ([]models.PhotoSession, error) {
	raw, found, err := r.kv.Get(ctx, store.SessionsKey(eventID))
	if err != nil {
		return nil, err
	}
	if !found {
		return []models.PhotoSession{}, nil
	}

	var sessions []models.PhotoSession
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions for %s: %w", eventID, err)
	}
	return sessions, nil
}

func (r *SessionRepo) saveAll(ctx context.Context, eventID string, sessions []models.PhotoSession) error {
	raw, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to encode sessions for %s: %w", eventID, err)
	}
	return r.kv.Set(ctx, store.SessionsKey(eventID), string(raw))
}

// Upsert replaces any session with the same id and appends the new one.
// Exactly one session per id exists afterwards, last write wins.
func (r *SessionRepo) Upsert(ctx context.Context, eventID string, session models.PhotoSession) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("invalid session %s: %w", session.SessionID, err)
	}

	lock := r.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	sessions, err := r.List(ctx, eventID)
	if err != nil {
		return err
	}

	kept := sessions[:0]
	for _, s := range sessions {
		if s.SessionID != session.SessionID {
			kept = append(kept, s)
		}
	}
	kept = append(kept, session)

	return r.saveAll(ctx, eventID, kept)
}
