package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, found, err := s.Get(ctx, "event_e1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "event_e1", `{"id":"e1"}`))

	value, found, err := s.Get(ctx, "event_e1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"id":"e1"}`, value)

	require.NoError(t, s.Remove(ctx, "event_e1"))

	_, found, err = s.Get(ctx, "event_e1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_MultiRemoveAndKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "event_e1", "a"))
	require.NoError(t, s.Set(ctx, "students_e1", "b"))
	require.NoError(t, s.Set(ctx, "sessions_e1", "c"))

	require.NoError(t, s.MultiRemove(ctx, []string{"event_e1", "students_e1"}))

	assert.ElementsMatch(t, []string{"sessions_e1"}, s.Keys())

	require.NoError(t, s.MultiRemove(ctx, nil))
	assert.ElementsMatch(t, []string{"sessions_e1"}, s.Keys())
}
