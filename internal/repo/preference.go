package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smilefoto/klicka/internal/models"
	"github.com/smilefoto/klicka/internal/store"
)

type PreferenceRepo struct {
	kv store.KVStore
}

func (r *PreferenceRepo) List(ctx context.Context, eventID string) ([]models.PhotoPreference, error) {
	raw, found, err := r.kv.Get(ctx, store.PreferencesKey(eventID))
	if err != nil {
		return nil, err
	}
	if !found {
		return []models.PhotoPreference{}, nil
	}

	var prefs []models.PhotoPreference
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return nil, fmt.Errorf("failed to decode preferences for %s: %w", eventID, err)
	}
	return prefs, nil
}

func (r *PreferenceRepo) Save(ctx context.Context, eventID string, prefs []models.PhotoPreference) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences for %s: %w", eventID, err)
	}
	return r.kv.Set(ctx, store.PreferencesKey(eventID), string(raw))
}

// ForStudent returns the ordered photo type for a student, or nil when the
// family made no choice.
func (r *PreferenceRepo) ForStudent(ctx context.Context, eventID, studentID string) (*models.PhotoType, error) {
	prefs, err := r.List(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for _, p := range prefs {
		if p.StudentID == studentID {
			photoType := p.PhotoType
			return &photoType, nil
		}
	}
	return nil, nil
}
