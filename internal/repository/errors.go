// Package repository defines error types that are reused across the data
// access layer.  These sentinel values allow higher layers such as the
// allocation service to distinguish between different failure scenarios
// without inspecting store internals.
package repository

import "errors"

// ErrQrNotFound is returned when no QR document exists under the
// requested identifier.  The service maps this onto its not-found
// taxonomy code.
var ErrQrNotFound = errors.New("qr code not found")

// ErrVersionConflict is returned when a merge-update lost the race
// against a concurrent writer.  Callers should re-read the document and
// re-run their state transition.
var ErrVersionConflict = errors.New("qr document version conflict")
