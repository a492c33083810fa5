package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// QRCode is a printed token linking one or more students to a planned
// photo session. IsScanned is the only field mutated locally; everything
// else is replaced wholesale by sync-down.
type QRCode struct {
	ID         string     `json:"id" validate:"required"`
	Code       string     `json:"code" validate:"required"`
	PhotoType  PhotoType  `json:"photoType"`
	StudentIDs []string   `json:"studentIds"`
	IsScanned  bool       `json:"isScanned"`
	ScannedAt  *time.Time `json:"scannedAt,omitempty"`
}

func (q *QRCode) Validate() error {
	validate := validator.New()
	return validate.Struct(q)
}

// QRPayload is the JSON a printed code decodes to. Only the code field
// matters for lookup; anything else the print shop embeds is ignored.
type QRPayload struct {
	Code string `json:"code" validate:"required"`
}

// ParseQRPayload decodes a scanned payload.
func ParseQRPayload(raw string) (*QRPayload, error) {
	var payload QRPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse qr payload: %w", err)
	}
	if payload.Code == "" {
		return nil, fmt.Errorf("qr payload has no code field")
	}
	return &payload, nil
}
