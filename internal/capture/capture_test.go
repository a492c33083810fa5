package capture

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilefoto/klicka/internal/models"
	"github.com/smilefoto/klicka/internal/repo"
	"github.com/smilefoto/klicka/internal/store/memory"
)

// failingSetStore rejects writes to keys with the given prefix, for
// exercising storage error paths.
type failingSetStore struct {
	*memory.MemoryStore
	failPrefix string
}

func (s *failingSetStore) Set(ctx context.Context, key, value string) error {
	if strings.HasPrefix(key, s.failPrefix) {
		return errors.New("disk full")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func newTestCapturer(t *testing.T) (*Capturer, *repo.Store) {
	t.Helper()
	repos := repo.New(memory.NewMemoryStore())

	ctx := context.Background()
	require.NoError(t, repos.Students.Save(ctx, "e1", []models.Student{
		{ID: "s1", Name: "Alva Lind", Class: "3A"},
		{ID: "s2", Name: "Bo Ek", Class: "3A"},
	}))
	require.NoError(t, repos.QRCodes.Save(ctx, "e1", []models.QRCode{
		{ID: "q1", Code: "KLK-001", PhotoType: models.PhotoSibling, StudentIDs: []string{"s1", "s2"}},
	}))

	capturer := New(repos)
	capturer.now = func() time.Time {
		return time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)
	}
	return capturer, repos
}

func TestCaptureQR(t *testing.T) {
	ctx := context.Background()
	capturer, repos := newTestCapturer(t)

	session, err := capturer.CaptureQR(ctx, "e1", "KLK-001", models.StatusPresent)
	require.NoError(t, err)

	assert.Equal(t, "q1_1778578200000", session.SessionID)
	require.NotNil(t, session.QRCodeID)
	assert.Equal(t, "q1", *session.QRCodeID)
	assert.Equal(t, models.PhotoSibling, session.PhotoType)
	assert.Equal(t, []string{"s1", "s2"}, session.StudentIDs)
	assert.Equal(t, models.StatusPresent, session.Status)

	// the qr code is flagged scanned and the scan stamp advances
	codes, err := repos.QRCodes.List(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, codes[0].IsScanned)
	require.NotNil(t, codes[0].ScannedAt)

	lastScan, err := repos.Stamps.LastScan(ctx, "e1")
	require.NoError(t, err)
	assert.NotNil(t, lastScan)

	sessions, err := repos.Sessions.List(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestCaptureQR_SameInstantIsIdempotent(t *testing.T) {
	ctx := context.Background()
	capturer, repos := newTestCapturer(t)

	// Frozen clock: both captures generate the same session id, so the
	// retry collapses onto one session instead of duplicating.
	_, err := capturer.CaptureQR(ctx, "e1", "KLK-001", models.StatusPresent)
	require.NoError(t, err)
	_, err = capturer.CaptureQR(ctx, "e1", "KLK-001", models.StatusPresent)
	require.NoError(t, err)

	sessions, err := repos.Sessions.List(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestCaptureQR_UnknownCode(t *testing.T) {
	ctx := context.Background()
	capturer, repos := newTestCapturer(t)

	_, err := capturer.CaptureQR(ctx, "e1", "KLK-999", models.StatusPresent)
	assert.ErrorIs(t, err, ErrCodeNotFound)

	// nothing mutated
	sessions, listErr := repos.Sessions.List(ctx, "e1")
	require.NoError(t, listErr)
	assert.Empty(t, sessions)

	codes, listErr := repos.QRCodes.List(ctx, "e1")
	require.NoError(t, listErr)
	assert.False(t, codes[0].IsScanned)
}

func TestCaptureQR_StorageFailureLeavesCodeUnscanned(t *testing.T) {
	ctx := context.Background()

	kv := &failingSetStore{
		MemoryStore: memory.NewMemoryStore(),
		failPrefix:  "sessions_",
	}
	repos := repo.New(kv)
	require.NoError(t, repos.QRCodes.Save(ctx, "e1", []models.QRCode{
		{ID: "q1", Code: "KLK-001", PhotoType: models.PhotoIndividual, StudentIDs: []string{"s1"}},
	}))

	capturer := New(repos)
	_, err := capturer.CaptureQR(ctx, "e1", "KLK-001", models.StatusPresent)
	require.Error(t, err)

	// the session never landed, so the code must not read as scanned
	codes, listErr := repos.QRCodes.List(ctx, "e1")
	require.NoError(t, listErr)
	assert.False(t, codes[0].IsScanned)

	lastScan, stampErr := repos.Stamps.LastScan(ctx, "e1")
	require.NoError(t, stampErr)
	assert.Nil(t, lastScan)
}

func TestCaptureQR_RejectsTerminalStatus(t *testing.T) {
	ctx := context.Background()
	capturer, _ := newTestCapturer(t)

	_, err := capturer.CaptureQR(ctx, "e1", "KLK-001", models.StatusMissed)
	assert.ErrorIs(t, err, ErrBadStatus)
}

func TestScanPayload(t *testing.T) {
	ctx := context.Background()
	capturer, _ := newTestCapturer(t)

	testCases := []struct {
		name    string
		payload string
		wantErr error
	}{
		{
			name:    "valid payload",
			payload: `{"code": "KLK-001", "school": "eriksdal"}`,
		},
		{
			name:    "not json",
			payload: `KLK-001`,
			wantErr: ErrBadPayload,
		},
		{
			name:    "json without code",
			payload: `{"school": "eriksdal"}`,
			wantErr: ErrBadPayload,
		},
		{
			name:    "unknown code",
			payload: `{"code": "KLK-404"}`,
			wantErr: ErrCodeNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := capturer.ScanPayload(ctx, "e1", tc.payload, models.StatusPresent)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestCaptureManual(t *testing.T) {
	ctx := context.Background()
	capturer, repos := newTestCapturer(t)

	session, err := capturer.CaptureManual(ctx, "e1", []string{"s2"}, models.PhotoGroup)
	require.NoError(t, err)

	assert.Equal(t, "manual_1778578200000", session.SessionID)
	assert.Nil(t, session.QRCodeID)
	assert.Equal(t, models.PhotoGroup, session.PhotoType)
	assert.Equal(t, models.StatusPresent, session.Status)

	sessions, err := repos.Sessions.List(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestCaptureManual_DefaultsToFamilyPreference(t *testing.T) {
	ctx := context.Background()
	capturer, repos := newTestCapturer(t)

	require.NoError(t, repos.Preferences.Save(ctx, "e1", []models.PhotoPreference{
		{StudentID: "s1", PhotoType: models.PhotoSibling},
	}))

	t.Run("ordered type fills an empty photo type", func(t *testing.T) {
		session, err := capturer.CaptureManual(ctx, "e1", []string{"s1"}, "")
		require.NoError(t, err)
		assert.Equal(t, models.PhotoSibling, session.PhotoType)
	})

	t.Run("no preference falls back to individual", func(t *testing.T) {
		session, err := capturer.CaptureManual(ctx, "e1", []string{"s2"}, "")
		require.NoError(t, err)
		assert.Equal(t, models.PhotoIndividual, session.PhotoType)
	})

	t.Run("explicit type wins over the preference", func(t *testing.T) {
		session, err := capturer.CaptureManual(ctx, "e1", []string{"s1"}, models.PhotoGroup)
		require.NoError(t, err)
		assert.Equal(t, models.PhotoGroup, session.PhotoType)
	})
}

func TestCaptureManual_EmptySelection(t *testing.T) {
	ctx := context.Background()
	capturer, _ := newTestCapturer(t)

	_, err := capturer.CaptureManual(ctx, "e1", nil, models.PhotoIndividual)
	assert.ErrorIs(t, err, ErrNoStudents)
}

func TestSearchStudents(t *testing.T) {
	ctx := context.Background()
	capturer, _ := newTestCapturer(t)

	matches, err := capturer.SearchStudents(ctx, "e1", "alva")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "s1", matches[0].ID)
}
