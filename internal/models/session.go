package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type PhotoType string

const (
	PhotoIndividual PhotoType = "individual"
	PhotoSibling    PhotoType = "with_sibling"
	PhotoFriend     PhotoType = "with_friend"
	PhotoGroup      PhotoType = "group"
)

type SessionStatus string

const (
	StatusPresent SessionStatus = "present"
	StatusAbsent  SessionStatus = "absent"
	StatusMissed  SessionStatus = "missed"
	StatusRefused SessionStatus = "refused"
	StatusManual  SessionStatus = "manual"
)

// TerminalStatuses are the statuses an operator may assign during
// finalization to students nobody photographed.
var TerminalStatuses = []SessionStatus{StatusAbsent, StatusMissed, StatusRefused}

// PhotoSession is one recorded attendance observation for one or more
// students. SessionID is the upsert key: exactly one session per id exists
// at any time, last write wins. A nil QRCodeID means the session was
// captured manually.
type PhotoSession struct {
	SessionID  string        `json:"sessionId" validate:"required"`
	QRCodeID   *string       `json:"qrcodeId"`
	PhotoType  PhotoType     `json:"photoType" validate:"required,oneof=individual with_sibling with_friend group"`
	StudentIDs []string      `json:"studentIds" validate:"required,min=1"`
	Timestamp  time.Time     `json:"timestamp"`
	Status     SessionStatus `json:"status" validate:"required,oneof=present absent missed refused manual"`
}

func (s *PhotoSession) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

// EventBundle is what one sync-down round trip pulls from the server.
type EventBundle struct {
	Event            Event             `json:"event"`
	Students         []Student         `json:"students"`
	QRCodes          []QRCode          `json:"qrCodes"`
	PhotoPreferences []PhotoPreference `json:"photoPreferences"`
}

// PushResult is the server's acknowledgement of a session upload.
type PushResult struct {
	AcceptedCount int    `json:"acceptedCount"`
	Summary       string `json:"summary"`
}

// UnphotographedRow is one reconciliation result: a student no session
// accounts for, plus the QR code they were expected on. Status stays nil
// until the operator assigns a terminal status during finalization.
type UnphotographedRow struct {
	StudentID string         `json:"studentId"`
	Name      string         `json:"name"`
	Class     string         `json:"class"`
	QRCodeID  *string        `json:"qrcodeId"`
	Status    *SessionStatus `json:"status"`
}
