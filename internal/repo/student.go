package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smilefoto/klicka/internal/models"
	"github.com/smilefoto/klicka/internal/store"
)

type StudentRepo struct {
	kv store.KVStore
}

// List returns the roster for an event, empty when never synced.
func (r *StudentRepo) List(ctx context.Context, eventID string) ([]models.Student, error) {
	raw, found, err := r.kv.Get(ctx, store.StudentsKey(eventID))
	if err != nil {
		return nil, err
	}
	if !found {
		return []models.Student{}, nil
	}

	var students []models.Student
	if err := json.Unmarshal([]byte(raw), &students); err != nil {
		return nil, fmt.Errorf("failed to decode students for %s: %w", eventID, err)
	}
	return students, nil
}

func (r *StudentRepo) Save(ctx context.Context, eventID string, students []models.Student) error {
	raw, err := json.Marshal(students)
	if err != nil {
		return fmt.Errorf("failed to encode students for %s: %w", eventID, err)
	}
	return r.kv.Set(ctx, store.StudentsKey(eventID), string(raw))
}

// Search does a case-insensitive substring match on student names, which
// is how the manual-capture screen filters the roster.
func (r *StudentRepo) Search(ctx context.Context, eventID, query string) ([]models.Student, error) {
	students, err := r.List(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return students, nil
	}

	needle := strings.ToLower(query)
	var matches []models.Student
	for _, s := range students {
		if strings.Contains(strings.ToLower(s.Name), needle) {
			matches = append(matches, s)
		}
	}
	return matches, nil
}
