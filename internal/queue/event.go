// Package queue defines message payloads exchanged over the message broker.
package queue

// ScanRecordedEvent is published after a claim or release succeeded and
// the new state was persisted.  It contains enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the document store.
type ScanRecordedEvent struct {
	QrID      string `json:"qr_id"`
	UID       string `json:"uid"`
	Action    string `json:"action"` // "claim" or "release"
	ScanID    string `json:"scan_id"`
	ScannedAt string `json:"scanned_at"`
}
