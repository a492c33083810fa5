// Package capture turns QR scans and manual roster picks into stored
// photo sessions. Both paths funnel into the same session upsert, so a
// retried capture with the same generated id never duplicates.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/smilefoto/klicka/internal/metrics"
	"github.com/smilefoto/klicka/internal/models"
	"github.com/smilefoto/klicka/internal/repo"
)

var (
	// ErrCodeNotFound means the scanned or typed code matches no QR code
	// synced for this event. Nothing is mutated.
	ErrCodeNotFound = errors.New("no qr code matches this code")
	// ErrBadPayload means the scan produced something that is not a valid
	// QR payload. Nothing is mutated.
	ErrBadPayload = errors.New("malformed qr payload")
	// ErrNoStudents means a manual capture was submitted with an empty
	// selection.
	ErrNoStudents = errors.New("no students selected")
	// ErrBadStatus means the operator status is not valid for a QR capture.
	ErrBadStatus = errors.New("qr capture status must be present or absent")
)

type Capturer struct {
	repos *repo.Store

	now func() time.Time
}

func New(repos *repo.Store) *Capturer {
	return &Capturer{
		repos: repos,
		now:   time.Now,
	}
}

// ScanPayload handles a camera scan: the raw payload is JSON carrying a
// code field. Manual code entry skips this and calls CaptureQR directly.
func (c *Capturer) ScanPayload(ctx context.Context, eventID, raw string, status models.SessionStatus) (*models.PhotoSession, error) {
	payload, err := models.ParseQRPayload(raw)
	if err != nil {
		metrics.CaptureErrorsTotal.WithLabelValues(eventID, "bad_payload").Inc()
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return c.CaptureQR(ctx, eventID, payload.Code, status)
}

// CaptureQR records a QR-driven session. The code must match a locally
// synced QR code exactly; the session inherits the code's photo type and
// student list, and the operator decides present or absent.
func (c *Capturer) CaptureQR(ctx context.Context, eventID, code string, status models.SessionStatus) (*models.PhotoSession, error) {
	if status != models.StatusPresent && status != models.StatusAbsent {
		return nil, ErrBadStatus
	}

	qrCode, err := c.repos.QRCodes.FindByCode(ctx, eventID, code)
	if err != nil {
		return nil, err
	}
	if qrCode == nil {
		metrics.CaptureErrorsTotal.WithLabelValues(eventID, "code_not_found").Inc()
		return nil, fmt.Errorf("%w: %q", ErrCodeNotFound, code)
	}

	now := c.now().UTC()
	qrCodeID := qrCode.ID
	session := models.PhotoSession{
		SessionID:  qrCode.ID + "_" + strconv.FormatInt(now.UnixMilli(), 10),
		QRCodeID:   &qrCodeID,
		PhotoType:  qrCode.PhotoType,
		StudentIDs: append([]string{}, qrCode.StudentIDs...),
		Timestamp:  now,
		Status:     status,
	}

	// The session lands first: a storage failure here must not leave the
	// code flagged scanned with nothing recorded.
	if err := c.repos.Sessions.Upsert(ctx, eventID, session); err != nil {
		return nil, err
	}
	if err := c.repos.QRCodes.MarkScanned(ctx, eventID, qrCode.ID, now); err != nil {
		return nil, err
	}
	if err := c.repos.Stamps.SetLastScan(ctx, eventID, now); err != nil {
		return nil, err
	}

	logger.Debug.Printf("captured qr session %s for %d students", session.SessionID, len(session.StudentIDs))
	metrics.CapturesTotal.WithLabelValues(eventID, "qr", string(status)).Inc()
	return &session, nil
}

// CaptureManual records a free-form session for a multi-selected set of
// students. Manual capture only records a positive observation, so the
// status is always present. An empty photo type falls back to the first
// student's ordered preference, then to individual.
func (c *Capturer) CaptureManual(ctx context.Context, eventID string, studentIDs []string, photoType models.PhotoType) (*models.PhotoSession, error) {
	if len(studentIDs) == 0 {
		return nil, ErrNoStudents
	}

	if photoType == "" {
		photoType = models.PhotoIndividual
		pref, err := c.repos.Preferences.ForStudent(ctx, eventID, studentIDs[0])
		if err != nil {
			return nil, err
		}
		if pref != nil {
			photoType = *pref
		}
	}

	now := c.now().UTC()
	session := models.PhotoSession{
		SessionID:  "manual_" + strconv.FormatInt(now.UnixMilli(), 10),
		QRCodeID:   nil,
		PhotoType:  photoType,
		StudentIDs: append([]string{}, studentIDs...),
		Timestamp:  now,
		Status:     models.StatusPresent,
	}

	if err := c.repos.Sessions.Upsert(ctx, eventID, session); err != nil {
		return nil, err
	}

	logger.Debug.Printf("captured manual session %s for %d students", session.SessionID, len(session.StudentIDs))
	metrics.CapturesTotal.WithLabelValues(eventID, "manual", string(models.StatusPresent)).Inc()
	return &session, nil
}

// SearchStudents filters the roster the way the manual-capture screen does.
func (c *Capturer) SearchStudents(ctx context.Context, eventID, query string) ([]models.Student, error) {
	return c.repos.Students.Search(ctx, eventID, query)
}
