package model

import (
	"encoding/json"
	"time"
)

// Pending write lifecycle. A pending write stays on the device until the
// remote store acknowledges it; entries that exceed the retry budget are
// parked in "error" and surfaced for manual resolution.
const (
	WritePending = "pending"
	WriteSynced  = "synced"
	WriteError   = "error"
)

// Pending write actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Document is one mirrored record in the local replica. The replica is a
// document store keyed by (collection, id), matching the remote store's
// collection contract. Unsynced marks records created or updated locally
// while the remote store was unreachable; pulls never overwrite them.
type Document struct {
	Collection string `gorm:"primaryKey;size:32"`
	ID         string `gorm:"primaryKey;size:64"`
	Data       []byte `gorm:"not null"`
	// OperatorID tags operator-scoped records (receipts, tickets) so an
	// operator switch can purge the previous operator's view.
	OperatorID string `gorm:"index;size:64"`
	Unsynced   bool   `gorm:"not null;default:false;index"`
	UpdatedAt  time.Time
}

// Record decodes the stored JSON document.
func (d Document) Record() (Record, error) {
	var r Record
	err := json.Unmarshal(d.Data, &r)
	return r, err
}

// PendingWrite is one durable queue entry awaiting remote acknowledgement.
// Seq preserves the order writes were committed locally; the flusher always
// pushes in Seq order.
type PendingWrite struct {
	Seq        int64  `gorm:"primaryKey;autoIncrement"`
	ID         string `gorm:"uniqueIndex;size:64;not null"`
	Collection string `gorm:"size:32;not null"`
	RecordID   string `gorm:"size:64;not null"`
	Action     string `gorm:"size:16;not null"`
	Payload    []byte
	OperatorID string `gorm:"index;size:64"`
	Status     string `gorm:"size:16;not null;default:'pending';index"`

	// Conditional deletes carry the dependency guard to re-validate against
	// the remote store, plus a stash of the deleted record so a failed
	// re-validation can revert the local delete.
	Conditional bool `gorm:"not null;default:false"`
	Guard       []byte
	Stash       []byte

	Attempts    int `gorm:"not null;default:0"`
	LastError   *string
	NextRetryAt *time.Time `gorm:"index"`
	EnqueuedAt  time.Time
	LastAttempt *time.Time
}

// Setting is a device-local key/value pair (session marker, last sync time).
type Setting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string
	UpdatedAt time.Time
}

// Well-known setting keys.
const (
	SettingSession      = "session_state"
	SettingLastSyncTime = "last_sync_time"
)
