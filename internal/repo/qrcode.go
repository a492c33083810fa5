package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smilefoto/klicka/internal/models"
	"github.com/smilefoto/klicka/internal/store"
)

type QRCodeRepo struct {
	kv store.KVStore
}

func (r *QRCodeRepo) List(ctx context.Context, eventID string) ([]models.QRCode, error) {
	raw, found, err := r.kv.Get(ctx, store.QRCodesKey(eventID))
	if err != nil {
		return nil, err
	}
	if !found {
		return []models.QRCode{}, nil
	}

	var codes []models.QRCode
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return nil, fmt.Errorf("failed to decode qr codes for %s: %w", eventID, err)
	}
	return codes, nil
}

func (r *QRCodeRepo) Save(ctx context.Context, eventID string, codes []models.QRCode) error {
	raw, err := json.Marshal(codes)
	if err != nil {
		return fmt.Errorf("failed to encode qr codes for %s: %w", eventID, err)
	}
	return r.kv.Set(ctx, store.QRCodesKey(eventID), string(raw))
}

// FindByCode looks a scanned or typed code up by exact string match.
// Returns nil when nothing matches.
func (r *QRCodeRepo) FindByCode(ctx context.Context, eventID, code string) (*models.QRCode, error) {
	codes, err := r.List(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for i := range codes {
		if codes[i].Code == code {
			return &codes[i], nil
		}
	}
	return nil, nil
}

// MarkScanned flags a code as scanned and records when. IsScanned is the
// only QRCode field capture is allowed to touch.
func (r *QRCodeRepo) MarkScanned(ctx context.Context, eventID, qrCodeID string, at time.Time) error {
	codes, err := r.List(ctx, eventID)
	if err != nil {
		return err
	}

	updated := false
	for i := range codes {
		if codes[i].ID == qrCodeID {
			codes[i].IsScanned = true
			codes[i].ScannedAt = &at
			updated = true
			break
		}
	}
	if !updated {
		return fmt.Errorf("no qr code %s in event %s", qrCodeID, eventID)
	}

	return r.Save(ctx, eventID, codes)
}
