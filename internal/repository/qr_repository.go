package repository // repository for QR document persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/trovoapp/family-qr/internal/model"
	"github.com/trovoapp/family-qr/internal/store"
)

// QrRepo wraps the document store and translates between stored JSON
// documents and model.QrCode values.  It is the only component that talks
// to the store; the allocation service works purely on decoded snapshots.
type QrRepo struct {
	store store.DocumentStore
}

// NewQrRepo constructs a QrRepo over the given document store.
func NewQrRepo(s store.DocumentStore) *QrRepo {
	if s == nil {
		panic("nil store passed to NewQrRepo")
	}
	return &QrRepo{store: s}
}

// GetQr fetches and decodes the QR code stored under id.  The returned
// version must be passed back to UpdateQr to guard the read-modify-write
// cycle.  Returns ErrQrNotFound when no document exists.
func (r *QrRepo) GetQr(ctx context.Context, id string) (model.QrCode, uint64, error) {
	doc, err := r.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.QrCode{}, 0, ErrQrNotFound
	}
	if err != nil {
		return model.QrCode{}, 0, fmt.Errorf("get qr %s: %w", id, err)
	}
	var qr model.QrCode
	if err := json.Unmarshal(doc.Data, &qr); err != nil {
		return model.QrCode{}, 0, fmt.Errorf("decode qr %s: %w", id, err)
	}
	return qr, doc.Version, nil
}

// UpdateQr applies a merge-update of the given top-level fields to the
// document stored under id, conditional on the version read earlier.
// Fields not named keep whatever value the store holds.  Returns
// ErrQrNotFound or ErrVersionConflict for the two expected failure modes.
func (r *QrRepo) UpdateQr(ctx context.Context, id string, fields map[string]any, version uint64) error {
	err := r.store.Update(ctx, id, fields, version)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrQrNotFound
	case errors.Is(err, store.ErrVersionConflict):
		return ErrVersionConflict
	case err != nil:
		return fmt.Errorf("update qr %s: %w", id, err)
	}
	return nil
}

// CreateBatch persists freshly generated QR codes as one atomic batch.
// Readers never observe a partially written batch.
func (r *QrRepo) CreateBatch(ctx context.Context, qrs []model.QrCode) error {
	if len(qrs) == 0 {
		return nil
	}
	docs := make(map[string]json.RawMessage, len(qrs))
	for _, qr := range qrs {
		data, err := json.Marshal(qr)
		if err != nil {
			return fmt.Errorf("encode qr %s: %w", qr.ID, err)
		}
		docs[qr.ID] = data
	}
	if err := r.store.BatchPut(ctx, docs); err != nil {
		return fmt.Errorf("create qr batch: %w", err)
	}
	return nil
}
