// Package finalize closes out an event: every student reconciliation still
// lists gets a terminal status, one session per student is upserted, and
// the event is marked finished locally and remotely.
package finalize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/smilefoto/klicka/internal/metrics"
	"github.com/smilefoto/klicka/internal/models"
	"github.com/smilefoto/klicka/internal/reconcile"
	"github.com/smilefoto/klicka/internal/remote"
	"github.com/smilefoto/klicka/internal/repo"
)

var (
	// ErrBadStatus means an assignment is not one of absent/missed/refused.
	ErrBadStatus = errors.New("finalization status must be absent, missed or refused")
	// ErrUnassigned means some unphotographed student got no status.
	ErrUnassigned = errors.New("every unphotographed student needs a status")
	// ErrFinishRemote wraps a failed remote finish call. The upserted
	// sessions are already durable locally; only the finished flag failed
	// to advance, and FinishOnly retries just that step.
	ErrFinishRemote = errors.New("remote finish failed")
)

type Finalizer struct {
	repos *repo.Store
	api   remote.EventAPI

	now func() time.Time
}

func New(repos *repo.Store, api remote.EventAPI) *Finalizer {
	return &Finalizer{
		repos: repos,
		api:   api,
		now:   time.Now,
	}
}

type Result struct {
	Upserted  int
	Remaining int
	Finished  bool
}

// Rows recomputes the unphotographed list from current local data.
func (f *Finalizer) Rows(ctx context.Context, eventID string) ([]models.UnphotographedRow, error) {
	students, err := f.repos.Students.List(ctx, eventID)
	if err != nil {
		return nil, err
	}
	sessions, err := f.repos.Sessions.List(ctx, eventID)
	if err != nil {
		return nil, err
	}
	qrCodes, err := f.repos.QRCodes.List(ctx, eventID)
	if err != nil {
		return nil, err
	}

	rows := reconcile.Unphotographed(students, sessions, qrCodes)
	metrics.UnphotographedCount.WithLabelValues(eventID).Set(float64(len(rows)))
	return rows, nil
}

// Finalize applies the operator's per-student statuses and closes the
// event. Assignments are keyed by student id and must cover every
// unphotographed row. Running it twice with the same input collapses onto
// the same session ids, so it is safe to repeat.
func (f *Finalizer) Finalize(ctx context.Context, eventID string, assignments map[string]models.SessionStatus) (*Result, error) {
	for studentID, status := range assignments {
		if !isTerminal(status) {
			return nil, fmt.Errorf("%w: student %s got %q", ErrBadStatus, studentID, status)
		}
	}

	rows, err := f.Rows(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if _, ok := assignments[row.StudentID]; !ok {
			return nil, fmt.Errorf("%w: %s (%s)", ErrUnassigned, row.Name, row.StudentID)
		}
	}

	qrCodes, err := f.repos.QRCodes.List(ctx, eventID)
	if err != nil {
		return nil, err
	}
	photoTypeByQr := make(map[string]models.PhotoType, len(qrCodes))
	for _, code := range qrCodes {
		photoTypeByQr[code.ID] = code.PhotoType
	}

	result := &Result{}
	now := f.now().UTC()
	for _, row := range rows {
		// Sessions are re-read per row: two students can share their
		// latest session (one group capture covers both), and the first
		// row's upsert narrows that session to one student. The second
		// row must see that write or it would reclaim the same session
		// id and erase the first student's terminal status.
		sessions, err := f.repos.Sessions.List(ctx, eventID)
		if err != nil {
			return nil, err
		}
		latestByStudent := latestSessions(sessions)

		session := buildTerminalSession(row, assignments[row.StudentID], latestByStudent[row.StudentID], photoTypeByQr, now)
		if err := f.repos.Sessions.Upsert(ctx, eventID, session); err != nil {
			return nil, err
		}
		result.Upserted++
	}

	remaining, err := f.Rows(ctx, eventID)
	if err != nil {
		return nil, err
	}
	result.Remaining = len(remaining)
	if result.Remaining > 0 {
		// Can only happen when a re-sync grew the roster mid-workflow.
		logger.Info.Printf("event %s still has %d unaccounted students after finalization", eventID, result.Remaining)
	}

	if err := f.FinishOnly(ctx, eventID); err != nil {
		return result, err
	}
	result.Finished = true
	return result, nil
}

// FinishOnly runs just the remote finish call and the local flag flip.
// It is the retry path after ErrFinishRemote.
func (f *Finalizer) FinishOnly(ctx context.Context, eventID string) error {
	if err := f.api.FinishEvent(ctx, eventID); err != nil {
		return fmt.Errorf("%w: %v", ErrFinishRemote, err)
	}
	if err := f.repos.Events.MarkFinished(ctx, eventID); err != nil {
		return err
	}
	logger.Info.Printf("event %s finished", eventID)
	return nil
}

func isTerminal(status models.SessionStatus) bool {
	for _, s := range models.TerminalStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// latestSessions indexes sessions by student, keeping the most recent
// session touching each one.
func latestSessions(sessions []models.PhotoSession) map[string]*models.PhotoSession {
	latest := make(map[string]*models.PhotoSession)
	for i := range sessions {
		session := sessions[i]
		for _, studentID := range session.StudentIDs {
			current, ok := latest[studentID]
			if !ok || session.Timestamp.After(current.Timestamp) {
				s := session
				latest[studentID] = &s
			}
		}
	}
	return latest
}

// buildTerminalSession resolves the qr code and photo type for one
// unphotographed student. The qr code falls back from the row's mapping
// to the existing session's; the photo type from the existing session to
// the qr code's registered type to plain individual.
func buildTerminalSession(
	row models.UnphotographedRow,
	status models.SessionStatus,
	existing *models.PhotoSession,
	photoTypeByQr map[string]models.PhotoType,
	now time.Time,
) models.PhotoSession {
	qrCodeID := row.QRCodeID
	if qrCodeID == nil && existing != nil {
		qrCodeID = existing.QRCodeID
	}

	photoType := models.PhotoIndividual
	switch {
	case existing != nil && existing.PhotoType != "":
		photoType = existing.PhotoType
	case qrCodeID != nil:
		if t, ok := photoTypeByQr[*qrCodeID]; ok && t != "" {
			photoType = t
		}
	}

	sessionID := "abs_" + row.StudentID
	if existing != nil {
		sessionID = existing.SessionID
	}

	return models.PhotoSession{
		SessionID:  sessionID,
		QRCodeID:   qrCodeID,
		PhotoType:  photoType,
		StudentIDs: []string{row.StudentID},
		Timestamp:  now,
		Status:     status,
	}
}
