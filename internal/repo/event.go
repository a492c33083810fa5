package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smilefoto/klicka/internal/models"
	"github.com/smilefoto/klicka/internal/store"
)

type EventRepo struct {
	kv store.KVStore
}

// Get returns the locally stored event, or nil when no sync-down has
// populated it yet.
func (r *EventRepo) Get(ctx context.Context, eventID string) (*models.Event, error) {
	raw, found, err := r.kv.Get(ctx, store.EventKey(eventID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var event models.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return nil, fmt.Errorf("failed to decode event %s: %w", eventID, err)
	}
	return &event, nil
}

func (r *EventRepo) Save(ctx context.Context, event models.Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
	}
	return r.kv.Set(ctx, store.EventKey(event.ID), string(raw))
}

// MarkFinished flips IsFinished to true. The transition only ever goes
// false to true and repeating it is a no-op.
func (r *EventRepo) MarkFinished(ctx context.Context, eventID string) error {
	event, err := r.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if event == nil {
		return fmt.Errorf("no local event %s to finish", eventID)
	}
	if event.IsFinished {
		return nil
	}
	event.IsFinished = true
	return r.Save(ctx, *event)
}
