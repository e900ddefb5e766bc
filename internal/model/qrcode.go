package model

import "time"

// SlotCount is the fixed number of family slots on every QR code.  The
// capacity is never expanded; a code with all five slots fulfilled rejects
// further claims.
const SlotCount = 5

// Slot is one of the five positions on a QR code.  A slot is either empty
// or fulfilled by exactly one user.  The JSON field names match the
// persisted document layout.
//
// Fields:
//  Empty  – true when the slot is unoccupied.
//  UID    – identifier of the user holding the slot; nil when empty.
//  ScanID – id of the scan event that fulfilled the slot; nil when empty.
type Slot struct {
	Empty  bool    `json:"empty"`
	UID    *string `json:"uid"`
	ScanID *string `json:"scanId"`
}

// EmptySlot returns an unoccupied slot.
func EmptySlot() Slot {
	return Slot{Empty: true}
}

// FulfilledSlot returns a slot held by the given user, tagged with the scan
// id of the claim that created it.
func FulfilledSlot(uid, scanID string) Slot {
	return Slot{Empty: false, UID: &uid, ScanID: &scanID}
}

// HeldBy reports whether the slot is fulfilled by the given user.
func (s Slot) HeldBy(uid string) bool {
	return !s.Empty && s.UID != nil && *s.UID == uid
}

// ScanEvent is one entry of the append-only audit log kept on every QR
// code.  A record is appended per successful claim or release and is never
// trimmed or reordered.
type ScanEvent struct {
	ScanID     string    `json:"scanId"`
	ScannedAt  time.Time `json:"scannedAt"`
	Successful bool      `json:"successful"`
}

// QrCode is the central entity: a shared family access token with a fixed
// number of claimable slots.  Instances are created only by bulk
// generation and mutated only through claim and release.
//
// Fields:
//  ID           – the 20-digit hyphen-grouped identifier, immutable.
//  GeneratedAt  – creation timestamp, immutable.
//  RegisteredAt – set whenever slot 0 is filled; never cleared afterwards,
//                 even when slot 0 is later released.
//  RegisteredBy – the user who filled slot 0; follows the same sticky rule.
//  Slots        – exactly SlotCount ordered slots; index 0 is distinguished.
//  Scans        – append-only scan history.
type QrCode struct {
	ID           string      `json:"id"`
	GeneratedAt  time.Time   `json:"generatedAt"`
	RegisteredAt *time.Time  `json:"registeredAt"`
	RegisteredBy *string     `json:"registeredBy"`
	Slots        []Slot      `json:"slots"`
	Scans        []ScanEvent `json:"scans"`
}

// NewQrCode returns a fresh, fully empty QR code snapshot for the given
// identifier: all slots empty, no scans, registration fields unset.
func NewQrCode(id string, generatedAt time.Time) QrCode {
	slots := make([]Slot, SlotCount)
	for i := range slots {
		slots[i] = EmptySlot()
	}
	return QrCode{
		ID:          id,
		GeneratedAt: generatedAt,
		Slots:       slots,
		Scans:       []ScanEvent{},
	}
}

// SlotIndexOf returns the index of the slot held by uid, or -1 when the
// user holds no slot on this code.
func (q QrCode) SlotIndexOf(uid string) int {
	for i, s := range q.Slots {
		if s.HeldBy(uid) {
			return i
		}
	}
	return -1
}

// FirstEmptySlot returns the lowest index of an empty slot, or -1 when the
// code is at capacity.
func (q QrCode) FirstEmptySlot() int {
	for i, s := range q.Slots {
		if s.Empty {
			return i
		}
	}
	return -1
}
