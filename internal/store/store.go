// Package store abstracts the document store that holds QR code documents.
// The allocation engine only needs single-document reads, versioned
// merge-updates and an all-or-nothing batch create, so the interface stays
// deliberately small and can be backed by MySQL in production or by an
// in-memory map in tests.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned by Get and Update when no document exists under
// the given id.
var ErrNotFound = errors.New("document not found")

// ErrVersionConflict is returned by Update when the document was modified
// since the version the caller read.  Callers should re-read and retry.
var ErrVersionConflict = errors.New("document version conflict")

// Document is a stored snapshot together with its version counter.  The
// version increments on every write and guards the read-modify-write cycle
// of claim and release.
type Document struct {
	ID      string
	Data    json.RawMessage
	Version uint64
}

// DocumentStore is the minimal persistence contract for QR documents.
type DocumentStore interface {
	// Get loads the document stored under id, or ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)
	// Put writes a full document under id at version 1, replacing any
	// previous content.  Used only by bulk generation.
	Put(ctx context.Context, id string, data json.RawMessage) error
	// BatchPut writes all given documents atomically: either every
	// document is visible afterwards or none is.
	BatchPut(ctx context.Context, docs map[string]json.RawMessage) error
	// Update merges the given top-level fields into the document stored
	// under id, but only when its current version still equals version.
	// Fields not named are left untouched.  Returns ErrNotFound or
	// ErrVersionConflict accordingly.
	Update(ctx context.Context, id string, fields map[string]any, version uint64) error
}
