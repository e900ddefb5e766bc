package service

import "errors"

// The allocation service reports failures through a closed set of
// sentinel errors.  Each error's message is the stable machine-readable
// code that callers and tests rely on verbatim; the handler layer owns
// the mapping to HTTP statuses and human-readable text.  Store failures
// are not part of this set and propagate wrapped, to be surfaced as a
// generic internal error.
var (
	// ErrUnauthorized is returned by GenerateBatch when the shared API
	// secret is absent or does not match the configured value.
	ErrUnauthorized = errors.New("internal/unauthorized")

	// ErrMissingID is returned when no QR identifier was supplied at all.
	ErrMissingID = errors.New("bad-request/missing-id")

	// ErrInvalidID is returned when the supplied identifier does not have
	// the four-groups-of-five-digits shape.  Checked before any store
	// access.
	ErrInvalidID = errors.New("bad-request/invalid-id")

	// ErrNotFound is returned when no QR code exists under a
	// syntactically valid identifier.
	ErrNotFound = errors.New("bad-request/not-found")

	// ErrMissingUID is returned by Claim and Release when no user
	// identifier was supplied.
	ErrMissingUID = errors.New("bad-request/missing-uid")

	// ErrAlreadyRegistered is returned when the claiming user already
	// holds a slot on the code.  A user can never hold two slots on the
	// same QR code.
	ErrAlreadyRegistered = errors.New("forbidden/already-registered")

	// ErrNoSlotsAvailable is returned when all slots are fulfilled.
	ErrNoSlotsAvailable = errors.New("forbidden/no-slots-available")

	// ErrUserNotRegistered is returned by Release when the user holds no
	// slot on the code.
	ErrUserNotRegistered = errors.New("not-found/user-not-registered")
)
