// Package syncer moves data across the connectivity boundary: sync-down
// pulls the canonical reference data for an event, sync-up pushes every
// locally captured session. Both are safe to repeat.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/smilefoto/klicka/internal/metrics"
	"github.com/smilefoto/klicka/internal/models"
	"github.com/smilefoto/klicka/internal/remote"
	"github.com/smilefoto/klicka/internal/repo"
)

// ErrNothingToSend means sync-up found no local sessions for the event.
var ErrNothingToSend = errors.New("no sessions to send")

type Syncer struct {
	repos *repo.Store
	api   remote.EventAPI

	now func() time.Time
}

func New(repos *repo.Store, api remote.EventAPI) *Syncer {
	return &Syncer{
		repos: repos,
		api:   api,
		now:   time.Now,
	}
}

// SyncDown replaces the local reference data for an event with the
// server's canonical copy. Sessions always survive: the clear step never
// touches them, so a failed pull costs at most stale reference data, never
// captured work.
func (s *Syncer) SyncDown(ctx context.Context, eventID string) error {
	start := time.Now()
	defer func() {
		metrics.SyncDuration.WithLabelValues("down").Observe(time.Since(start).Seconds())
	}()

	if err := s.repos.ClearEventData(ctx, eventID); err != nil {
		return err
	}

	bundle, err := s.api.PullEventBundle(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to pull event bundle: %w", err)
	}

	if err := s.repos.Events.Save(ctx, bundle.Event); err != nil {
		return err
	}
	if err := s.repos.Students.Save(ctx, eventID, bundle.Students); err != nil {
		return err
	}
	if err := s.repos.QRCodes.Save(ctx, eventID, bundle.QRCodes); err != nil {
		return err
	}
	if err := s.repos.Preferences.Save(ctx, eventID, bundle.PhotoPreferences); err != nil {
		return err
	}

	if err := s.repos.Stamps.SetLastSync(ctx, eventID, s.now().UTC()); err != nil {
		return err
	}

	logger.Info.Printf(
		"synced event %s: %d students, %d qr codes, %d preferences",
		eventID, len(bundle.Students), len(bundle.QRCodes), len(bundle.PhotoPreferences),
	)
	return nil
}

// SyncUp pushes the full local session set in one request. No delta: the
// server dedupes on session id, so retrying after a failure just re-sends
// the same list.
func (s *Syncer) SyncUp(ctx context.Context, eventID string) (*models.PushResult, error) {
	start := time.Now()
	defer func() {
		metrics.SyncDuration.WithLabelValues("up").Observe(time.Since(start).Seconds())
	}()

	sessions, err := s.repos.Sessions.List(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrNothingToSend
	}

	result, err := s.api.PushSessions(ctx, eventID, sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to push sessions: %w", err)
	}

	if err := s.repos.Stamps.SetLastUpload(ctx, eventID, s.now().UTC()); err != nil {
		return nil, err
	}

	metrics.SessionsPushed.WithLabelValues(eventID).Add(float64(result.AcceptedCount))
	logger.Info.Printf("pushed %d sessions for event %s: %s", len(sessions), eventID, result.Summary)
	return result, nil
}
