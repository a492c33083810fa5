// Package reconcile decides which students are still unaccounted for.
// The predicate here is the single source of truth for "photographed";
// nothing caches its output, callers recompute it whenever sessions or
// the roster change.
package reconcile

import (
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/smilefoto/klicka/internal/models"
)

// Unphotographed returns one row per student no session accounts for.
//
// A student counts as accounted for when either
//   - any QR-linked session lists them, whatever its status (an absent
//     observation at the QR station is still an observation), or
//   - a manual session lists them with status present and photo type
//     individual. Manual group/sibling/friend captures do not exempt a
//     student: those record a shared photo, not that the student's own
//     portrait was handled, or
//   - any session carries a terminal status (absent, missed, refused),
//     which only finalization writes.
func Unphotographed(students []models.Student, sessions []models.PhotoSession, qrCodes []models.QRCode) []models.UnphotographedRow {
	studentToQr := make(map[string]string)
	for _, code := range qrCodes {
		for _, studentID := range code.StudentIDs {
			if prev, ok := studentToQr[studentID]; ok && prev != code.ID {
				// Codes are supposed to partition the roster. When they
				// don't, the last mapping wins; make it visible.
				logger.Debug.Printf(
					"student %s appears on qr codes %s and %s, keeping %s",
					studentID, prev, code.ID, code.ID,
				)
			}
			studentToQr[studentID] = code.ID
		}
	}

	accounted := make(map[string]bool)
	for _, session := range sessions {
		if session.QRCodeID != nil || isTerminal(session.Status) {
			// Any QR-linked observation counts, and so does a terminal
			// status written by finalization: that student is settled even
			// when no qr code ever covered them.
			for _, studentID := range session.StudentIDs {
				accounted[studentID] = true
			}
			continue
		}
		if session.Status == models.StatusPresent && session.PhotoType == models.PhotoIndividual {
			for _, studentID := range session.StudentIDs {
				accounted[studentID] = true
			}
		}
	}

	rows := []models.UnphotographedRow{}
	for _, student := range students {
		if accounted[student.ID] {
			continue
		}

		var qrCodeID *string
		if id, ok := studentToQr[student.ID]; ok {
			qrCodeID = &id
		}
		rows = append(rows, models.UnphotographedRow{
			StudentID: student.ID,
			Name:      student.Name,
			Class:     student.Class,
			QRCodeID:  qrCodeID,
		})
	}
	return rows
}

func isTerminal(status models.SessionStatus) bool {
	return status == models.StatusAbsent ||
		status == models.StatusMissed ||
		status == models.StatusRefused
}
