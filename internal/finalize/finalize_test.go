package finalize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/smilefoto/klicka/internal/models"
	"github.com/smilefoto/klicka/internal/repo"
	"github.com/smilefoto/klicka/internal/store/memory"
)

type MockEventAPI struct {
	mock.Mock
}

func (m *MockEventAPI) PullEventBundle(ctx context.Context, eventID string) (*models.EventBundle, error) {
	args := m.Called(eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EventBundle), args.Error(1)
}

func (m *MockEventAPI) PushSessions(ctx context.Context, eventID string, sessions []models.PhotoSession) (*models.PushResult, error) {
	args := m.Called(eventID, sessions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PushResult), args.Error(1)
}

func (m *MockEventAPI) FinishEvent(ctx context.Context, eventID string) error {
	args := m.Called(eventID)
	return args.Error(0)
}

func seedEvent(t *testing.T, repos *repo.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repos.Events.Save(ctx, models.Event{ID: "e1", Name: "Spring photos"}))
	require.NoError(t, repos.Students.Save(ctx, "e1", []models.Student{
		{ID: "s1", Name: "Alva Lind", Class: "3A"},
		{ID: "s2", Name: "Bo Ek", Class: "3B"},
	}))
	require.NoError(t, repos.QRCodes.Save(ctx, "e1", []models.QRCode{
		{ID: "q1", Code: "KLK-001", PhotoType: models.PhotoIndividual, StudentIDs: []string{"s1"}},
	}))
}

func captureQ1Present(t *testing.T, repos *repo.Store) {
	t.Helper()
	qrID := "q1"
	require.NoError(t, repos.Sessions.Upsert(context.Background(), "e1", models.PhotoSession{
		SessionID:  "q1_1700000000001",
		QRCodeID:   &qrID,
		PhotoType:  models.PhotoIndividual,
		StudentIDs: []string{"s1"},
		Timestamp:  time.Now().UTC(),
		Status:     models.StatusPresent,
	}))
}

// The end-to-end reconciliation scenario: S1 is covered by a QR scan, S2
// never shows up anywhere, gets assigned absent and the event closes.
func TestFinalize_AbsentStudent(t *testing.T) {
	ctx := context.Background()
	repos := repo.New(memory.NewMemoryStore())
	seedEvent(t, repos)
	captureQ1Present(t, repos)

	api := new(MockEventAPI)
	api.On("FinishEvent", "e1").Return(nil).Once()

	finalizer := New(repos, api)

	rows, err := finalizer.Rows(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "s2", rows[0].StudentID)

	result, err := finalizer.Finalize(ctx, "e1", map[string]models.SessionStatus{
		"s2": models.StatusAbsent,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Upserted)
	assert.Equal(t, 0, result.Remaining)
	assert.True(t, result.Finished)

	rows, err = finalizer.Rows(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	sessions, err := repos.Sessions.List(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	var terminal *models.PhotoSession
	for i := range sessions {
		if sessions[i].SessionID == "abs_s2" {
			terminal = &sessions[i]
		}
	}
	require.NotNil(t, terminal)
	assert.Equal(t, []string{"s2"}, terminal.StudentIDs)
	assert.Equal(t, models.StatusAbsent, terminal.Status)
	assert.Equal(t, models.PhotoIndividual, terminal.PhotoType)
	assert.Nil(t, terminal.QRCodeID)

	event, err := repos.Events.Get(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, event.IsFinished)

	api.AssertExpectations(t)
}

func TestFinalize_IsDeterministic(t *testing.T) {
	ctx := context.Background()
	repos := repo.New(memory.NewMemoryStore())
	seedEvent(t, repos)
	captureQ1Present(t, repos)

	api := new(MockEventAPI)
	api.On("FinishEvent", "e1").Return(nil).Twice()

	finalizer := New(repos, api)
	assignments := map[string]models.SessionStatus{"s2": models.StatusAbsent}

	_, err := finalizer.Finalize(ctx, "e1", assignments)
	require.NoError(t, err)
	first, err := repos.Sessions.List(ctx, "e1")
	require.NoError(t, err)

	_, err = finalizer.Finalize(ctx, "e1", assignments)
	require.NoError(t, err)
	second, err := repos.Sessions.List(ctx, "e1")
	require.NoError(t, err)

	// same ids, same size: the upsert collapses onto the existing sessions
	assert.Equal(t, len(first), len(second))
	firstIDs := map[string]bool{}
	for _, s := range first {
		firstIDs[s.SessionID] = true
	}
	for _, s := range second {
		assert.True(t, firstIDs[s.SessionID], "unexpected session %s", s.SessionID)
	}
}

func TestFinalize_PhotoTypePrecedence(t *testing.T) {
	ctx := context.Background()

	t.Run("existing session wins over qr code", func(t *testing.T) {
		repos := repo.New(memory.NewMemoryStore())
		seedEvent(t, repos)

		// s1 has a manual group capture, which does not exempt them but
		// does donate its photo type and session id to finalization.
		require.NoError(t, repos.Sessions.Upsert(ctx, "e1", models.PhotoSession{
			SessionID:  "manual_1700000000002",
			PhotoType:  models.PhotoGroup,
			StudentIDs: []string{"s1"},
			Timestamp:  time.Now().UTC(),
			Status:     models.StatusPresent,
		}))

		api := new(MockEventAPI)
		api.On("FinishEvent", "e1").Return(nil).Once()
		finalizer := New(repos, api)

		_, err := finalizer.Finalize(ctx, "e1", map[string]models.SessionStatus{
			"s1": models.StatusRefused,
			"s2": models.StatusMissed,
		})
		require.NoError(t, err)

		sessions, err := repos.Sessions.List(ctx, "e1")
		require.NoError(t, err)

		byID := map[string]models.PhotoSession{}
		for _, s := range sessions {
			byID[s.SessionID] = s
		}

		s1 := byID["manual_1700000000002"]
		assert.Equal(t, models.PhotoGroup, s1.PhotoType)
		assert.Equal(t, models.StatusRefused, s1.Status)
		assert.Equal(t, []string{"s1"}, s1.StudentIDs)
		// qr falls back to the student's mapped code
		require.NotNil(t, s1.QRCodeID)
		assert.Equal(t, "q1", *s1.QRCodeID)

		s2 := byID["abs_s2"]
		assert.Equal(t, models.PhotoIndividual, s2.PhotoType)
		assert.Equal(t, models.StatusMissed, s2.Status)
	})

	t.Run("qr code type when no existing session", func(t *testing.T) {
		repos := repo.New(memory.NewMemoryStore())
		require.NoError(t, repos.Events.Save(ctx, models.Event{ID: "e1"}))
		require.NoError(t, repos.Students.Save(ctx, "e1", []models.Student{
			{ID: "s1", Name: "Alva Lind", Class: "3A"},
		}))
		require.NoError(t, repos.QRCodes.Save(ctx, "e1", []models.QRCode{
			{ID: "q1", Code: "KLK-001", PhotoType: models.PhotoSibling, StudentIDs: []string{"s1"}},
		}))

		api := new(MockEventAPI)
		api.On("FinishEvent", "e1").Return(nil).Once()
		finalizer := New(repos, api)

		_, err := finalizer.Finalize(ctx, "e1", map[string]models.SessionStatus{
			"s1": models.StatusAbsent,
		})
		require.NoError(t, err)

		sessions, err := repos.Sessions.List(ctx, "e1")
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, "abs_s1", sessions[0].SessionID)
		assert.Equal(t, models.PhotoSibling, sessions[0].PhotoType)
		require.NotNil(t, sessions[0].QRCodeID)
		assert.Equal(t, "q1", *sessions[0].QRCodeID)
	})
}

// Two students whose most recent session is the same manual group capture:
// the first row claims that session id, so the second must not resolve to
// it too and overwrite the first student's terminal status.
func TestFinalize_StudentsSharingOneSession(t *testing.T) {
	ctx := context.Background()
	repos := repo.New(memory.NewMemoryStore())
	require.NoError(t, repos.Events.Save(ctx, models.Event{ID: "e1", Name: "Spring photos"}))
	require.NoError(t, repos.Students.Save(ctx, "e1", []models.Student{
		{ID: "s1", Name: "Alva Lind", Class: "3A"},
		{ID: "s2", Name: "Bo Ek", Class: "3A"},
	}))
	require.NoError(t, repos.Sessions.Upsert(ctx, "e1", models.PhotoSession{
		SessionID:  "manual_1700000000001",
		PhotoType:  models.PhotoGroup,
		StudentIDs: []string{"s1", "s2"},
		Timestamp:  time.Now().UTC(),
		Status:     models.StatusPresent,
	}))

	api := new(MockEventAPI)
	api.On("FinishEvent", "e1").Return(nil).Once()
	finalizer := New(repos, api)

	result, err := finalizer.Finalize(ctx, "e1", map[string]models.SessionStatus{
		"s1": models.StatusAbsent,
		"s2": models.StatusAbsent,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Upserted)
	assert.Equal(t, 0, result.Remaining)
	assert.True(t, result.Finished)

	rows, err := finalizer.Rows(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	sessions, err := repos.Sessions.List(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	byID := map[string]models.PhotoSession{}
	for _, s := range sessions {
		byID[s.SessionID] = s
	}
	// the first row reuses the shared session, the second gets its own
	shared := byID["manual_1700000000001"]
	assert.Equal(t, []string{"s1"}, shared.StudentIDs)
	assert.Equal(t, models.StatusAbsent, shared.Status)

	own := byID["abs_s2"]
	assert.Equal(t, []string{"s2"}, own.StudentIDs)
	assert.Equal(t, models.StatusAbsent, own.Status)

	api.AssertExpectations(t)
}

func TestFinalize_RejectsNonTerminalStatus(t *testing.T) {
	repos := repo.New(memory.NewMemoryStore())
	seedEvent(t, repos)

	finalizer := New(repos, new(MockEventAPI))
	_, err := finalizer.Finalize(context.Background(), "e1", map[string]models.SessionStatus{
		"s1": models.StatusPresent,
	})
	assert.ErrorIs(t, err, ErrBadStatus)
}

func TestFinalize_RequiresFullAssignment(t *testing.T) {
	repos := repo.New(memory.NewMemoryStore())
	seedEvent(t, repos)

	finalizer := New(repos, new(MockEventAPI))
	_, err := finalizer.Finalize(context.Background(), "e1", map[string]models.SessionStatus{
		"s1": models.StatusAbsent,
		// s2 missing
	})
	assert.ErrorIs(t, err, ErrUnassigned)
}

func TestFinalize_RemoteFinishFailureKeepsLocalData(t *testing.T) {
	ctx := context.Background()
	repos := repo.New(memory.NewMemoryStore())
	seedEvent(t, repos)
	captureQ1Present(t, repos)

	api := new(MockEventAPI)
	api.On("FinishEvent", "e1").Return(errors.New("venue wifi is down")).Once()

	finalizer := New(repos, api)
	result, err := finalizer.Finalize(ctx, "e1", map[string]models.SessionStatus{
		"s2": models.StatusAbsent,
	})

	assert.ErrorIs(t, err, ErrFinishRemote)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Upserted)
	assert.False(t, result.Finished)

	// the terminal session is durable, only the finished flag lags
	sessions, listErr := repos.Sessions.List(ctx, "e1")
	require.NoError(t, listErr)
	assert.Len(t, sessions, 2)

	event, getErr := repos.Events.Get(ctx, "e1")
	require.NoError(t, getErr)
	assert.False(t, event.IsFinished)

	// retrying just the finish step completes the workflow
	api.On("FinishEvent", "e1").Return(nil).Once()
	require.NoError(t, finalizer.FinishOnly(ctx, "e1"))

	event, getErr = repos.Events.Get(ctx, "e1")
	require.NoError(t, getErr)
	assert.True(t, event.IsFinished)
}
