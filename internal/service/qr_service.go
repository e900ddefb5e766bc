// Package service implements the slot allocation engine: validation of
// incoming identifiers, the claim/release state transitions on a QR code's
// slot array and scan history, and bulk generation of fresh codes.  All
// entity state lives in the document store; the engine keeps no cache
// across requests.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trovoapp/family-qr/internal/model"
	"github.com/trovoapp/family-qr/internal/qrid"
	"github.com/trovoapp/family-qr/internal/repository"
)

// maxWriteRetries bounds how often a claim or release re-runs its state
// transition after losing a version race against a concurrent writer.
const maxWriteRetries = 3

// QrService coordinates the repository and the slot allocation rules.  The
// shared API secret is passed in at construction and is read-only
// afterwards; there is no ambient global configuration.
type QrService struct {
	repo      *repository.QrRepo
	apiSecret string
	now       func() time.Time // injectable clock, defaults to time.Now
	newScanID func() string    // injectable scan id source, defaults to uuid
}

// NewQrService constructs the service.  The repository must be non-nil;
// the secret may be empty, in which case every GenerateBatch call is
// rejected as unauthorized.
func NewQrService(repo *repository.QrRepo, apiSecret string) *QrService {
	if repo == nil {
		panic("nil repository passed to NewQrService")
	}
	return &QrService{
		repo:      repo,
		apiSecret: apiSecret,
		now:       time.Now,
		newScanID: uuid.NewString,
	}
}

// GenerateBatch creates quantity new QR codes and persists them as a
// single atomic batch.  The shared secret gates the operation; quantities
// below 1 are coerced to 1.  It returns the effective quantity.
func (s *QrService) GenerateBatch(ctx context.Context, secret string, quantity int) (int, error) {
	if secret == "" || s.apiSecret == "" || secret != s.apiSecret {
		return 0, ErrUnauthorized
	}
	if quantity < 1 {
		quantity = 1
	}
	now := s.now().UTC()
	ids := qrid.Generate(quantity)
	qrs := make([]model.QrCode, 0, len(ids))
	for _, id := range ids {
		qrs = append(qrs, model.NewQrCode(id, now))
	}
	if err := s.repo.CreateBatch(ctx, qrs); err != nil {
		return 0, fmt.Errorf("generate batch: %w", err)
	}
	return quantity, nil
}

// Get returns the stored snapshot of a QR code.  Pure read, no side
// effects.
func (s *QrService) Get(ctx context.Context, rawID string) (model.QrCode, error) {
	id, err := s.normalizeID(rawID)
	if err != nil {
		return model.QrCode{}, err
	}
	qr, _, err := s.loadQr(ctx, id)
	return qr, err
}

// Claim assigns the first empty slot of the QR code to uid, appends a scan
// event and, when the filled slot is index 0, stamps the registration
// fields.  The write is conditional on the version read at load time; on
// conflict the whole transition re-runs against a fresh read.  The value
// returned on success is the store's post-write state, re-read rather than
// the locally computed snapshot.
func (s *QrService) Claim(ctx context.Context, rawID, uid string) (model.QrCode, error) {
	id, err := s.validateClaimInput(rawID, uid)
	if err != nil {
		return model.QrCode{}, err
	}
	for attempt := 0; attempt <= maxWriteRetries; attempt++ {
		qr, version, err := s.loadQr(ctx, id)
		if err != nil {
			return model.QrCode{}, err
		}
		if qr.SlotIndexOf(uid) >= 0 {
			return model.QrCode{}, ErrAlreadyRegistered
		}
		idx := qr.FirstEmptySlot()
		if idx < 0 {
			return model.QrCode{}, ErrNoSlotsAvailable
		}

		scanID := s.newScanID()
		now := s.now().UTC()
		slots := append([]model.Slot(nil), qr.Slots...)
		slots[idx] = model.FulfilledSlot(uid, scanID)
		scans := append(append([]model.ScanEvent(nil), qr.Scans...),
			model.ScanEvent{ScanID: scanID, ScannedAt: now, Successful: true})

		fields := map[string]any{
			"slots": slots,
			"scans": scans,
		}
		if idx == 0 {
			// Every index-0 claim stamps the registration fields, even a
			// re-claim after the slot was vacated: latest index-0 claim
			// wins, and a release never clears them.
			fields["registeredAt"] = now
			fields["registeredBy"] = uid
		}

		err = s.repo.UpdateQr(ctx, id, fields, version)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, repository.ErrQrNotFound) {
			return model.QrCode{}, ErrNotFound
		}
		if err != nil {
			return model.QrCode{}, fmt.Errorf("claim %s: %w", id, err)
		}
		fresh, _, err := s.loadQr(ctx, id)
		return fresh, err
	}
	return model.QrCode{}, fmt.Errorf("claim %s: retries exhausted: %w", id, repository.ErrVersionConflict)
}

// Release empties the slot held by uid and appends a scan event.  The
// registration fields are left untouched even when the released slot is
// index 0.  Same conditional-write and re-read discipline as Claim.
func (s *QrService) Release(ctx context.Context, rawID, uid string) (model.QrCode, error) {
	id, err := s.validateClaimInput(rawID, uid)
	if err != nil {
		return model.QrCode{}, err
	}
	for attempt := 0; attempt <= maxWriteRetries; attempt++ {
		qr, version, err := s.loadQr(ctx, id)
		if err != nil {
			return model.QrCode{}, err
		}
		idx := qr.SlotIndexOf(uid)
		if idx < 0 {
			return model.QrCode{}, ErrUserNotRegistered
		}

		scanID := s.newScanID()
		now := s.now().UTC()
		slots := append([]model.Slot(nil), qr.Slots...)
		slots[idx] = model.EmptySlot()
		scans := append(append([]model.ScanEvent(nil), qr.Scans...),
			model.ScanEvent{ScanID: scanID, ScannedAt: now, Successful: true})

		err = s.repo.UpdateQr(ctx, id, map[string]any{
			"slots": slots,
			"scans": scans,
		}, version)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, repository.ErrQrNotFound) {
			return model.QrCode{}, ErrNotFound
		}
		if err != nil {
			return model.QrCode{}, fmt.Errorf("release %s: %w", id, err)
		}
		fresh, _, err := s.loadQr(ctx, id)
		return fresh, err
	}
	return model.QrCode{}, fmt.Errorf("release %s: retries exhausted: %w", id, repository.ErrVersionConflict)
}

// normalizeID distinguishes an absent identifier from a malformed one and
// canonicalises valid input.  Runs before any store access.
func (s *QrService) normalizeID(rawID string) (string, error) {
	if strings.TrimSpace(rawID) == "" {
		return "", ErrMissingID
	}
	id, err := qrid.Normalize(rawID)
	if err != nil {
		return "", ErrInvalidID
	}
	return id, nil
}

// validateClaimInput checks the mutation inputs in a fixed order: absent
// identifier, then absent user id, then identifier shape.  A request that
// names no user is reported as missing-uid even when the identifier is
// also malformed.
func (s *QrService) validateClaimInput(rawID, uid string) (string, error) {
	if strings.TrimSpace(rawID) == "" {
		return "", ErrMissingID
	}
	if uid == "" {
		return "", ErrMissingUID
	}
	id, err := qrid.Normalize(rawID)
	if err != nil {
		return "", ErrInvalidID
	}
	return id, nil
}

// loadQr fetches a code and maps the repository's not-found sentinel onto
// the taxonomy.
func (s *QrService) loadQr(ctx context.Context, id string) (model.QrCode, uint64, error) {
	qr, version, err := s.repo.GetQr(ctx, id)
	if errors.Is(err, repository.ErrQrNotFound) {
		return model.QrCode{}, 0, ErrNotFound
	}
	if err != nil {
		return model.QrCode{}, 0, fmt.Errorf("load qr %s: %w", id, err)
	}
	return qr, version, nil
}
