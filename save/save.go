// Package save implements the persistence gateway: a single
// overwritable save slot with staleness and integrity checks.
// Corruption never surfaces as an error: a record that cannot be
// trusted reads as absent.
package save

import (
	"encoding/json"
	"time"
)

// DefaultStaleAfter is the age past which a record is treated as
// absent: 7 days.
const DefaultStaleAfter = 7 * 24 * time.Hour

// DefaultSlot is the fixed save-slot identifier for the
// single-save-game model.
const DefaultSlot = "autosave"

// Record is the persisted snapshot. Field names are part of the save
// format and must not change.
type Record struct {
	SceneID       string `json:"sceneId"`
	DialogID      string `json:"dialogId"`
	RemainingTime int    `json:"remainingTime"`
	Timestamp     int64  `json:"timestamp"` // unix seconds at write
}

// Gateway persists and restores the single save slot.
type Gateway interface {
	// Save overwrites the slot with the record.
	Save(rec Record) error
	// Load returns the slot's record, or ok=false when the slot is
	// empty, unreadable, malformed, or stale.
	Load() (Record, bool)
	// Clear empties the slot.
	Clear() error
	Close() error
}

// Encode serializes a record for storage.
func Encode(rec Record) ([]byte, error) {
	return json.Marshal(rec)
}

// Decode parses stored bytes and checks required fields. ok=false on
// parse failure or a record missing scene, dialogue, or timestamp.
func Decode(data []byte) (Record, bool) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false
	}
	if rec.SceneID == "" || rec.DialogID == "" || rec.Timestamp == 0 {
		return Record{}, false
	}
	return rec, true
}

// Stale reports whether a record's age exceeds the threshold at the
// given reference time.
func Stale(rec Record, now time.Time, staleAfter time.Duration) bool {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	age := now.Unix() - rec.Timestamp
	return age > int64(staleAfter/time.Second)
}
