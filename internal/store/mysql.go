package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// MySQL stores each QR document as one row of the qr_documents table with
// a JSON payload and a version counter.  Merge-updates use
// JSON_MERGE_PATCH guarded by the version column, which turns the
// engine's read-modify-write cycle into a conditional write.
type MySQL struct {
	db *sql.DB
}

// NewMySQL returns a MySQL-backed DocumentStore bound to the given handle.
func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

// EnsureSchema creates the qr_documents table when it does not exist yet.
// Called once at startup.
func (s *MySQL) EnsureSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS qr_documents (
		id         VARCHAR(32)     NOT NULL,
		doc        JSON            NOT NULL,
		version    BIGINT UNSIGNED NOT NULL DEFAULT 1,
		created_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id)
	)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure qr_documents schema: %w", err)
	}
	return nil
}

// Get loads one document row by primary key.
func (s *MySQL) Get(ctx context.Context, id string) (Document, error) {
	const q = `SELECT doc, version FROM qr_documents WHERE id = ?`
	var (
		data    []byte
		version uint64
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s: %w", id, err)
	}
	return Document{ID: id, Data: data, Version: version}, nil
}

// Put writes a full document, replacing any previous row and resetting the
// version to 1.  Only bulk generation uses this path.
func (s *MySQL) Put(ctx context.Context, id string, data json.RawMessage) error {
	const q = `REPLACE INTO qr_documents (id, doc, version) VALUES (?, ?, 1)`
	if _, err := s.db.ExecContext(ctx, q, id, []byte(data)); err != nil {
		return fmt.Errorf("put %s: %w", id, err)
	}
	return nil
}

// BatchPut inserts all documents inside a single transaction so readers
// never observe a partially applied batch.
func (s *MySQL) BatchPut(ctx context.Context, docs map[string]json.RawMessage) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("batch put: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	// Build one multi-row REPLACE with placeholders per document.
	query := `REPLACE INTO qr_documents (id, doc, version) VALUES `
	args := make([]interface{}, 0, len(docs)*2)
	first := true
	for id, data := range docs {
		if !first {
			query += ","
		}
		first = false
		query += "(?, ?, 1)"
		args = append(args, id, []byte(data))
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("batch put: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("batch put: commit: %w", err)
	}
	committed = true
	return nil
}

// Update merges fields into the stored JSON document if and only if the
// row still carries the caller's version.  Top-level keys named in fields
// are replaced wholesale (arrays included), everything else is preserved.
func (s *MySQL) Update(ctx context.Context, id string, fields map[string]any, version uint64) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("update %s: encode patch: %w", id, err)
	}
	const q = `UPDATE qr_documents
		SET doc = JSON_MERGE_PATCH(doc, CAST(? AS JSON)), version = version + 1
		WHERE id = ? AND version = ?`
	res, err := s.db.ExecContext(ctx, q, patch, id, version)
	if err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: rows affected: %w", id, err)
	}
	if n > 0 {
		return nil
	}
	// No row matched: either the document is gone or someone wrote in
	// between.  A follow-up existence check tells the two apart.
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM qr_documents WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s: existence check: %w", id, err)
	}
	return ErrVersionConflict
}
