// Package audit keeps an append-only trail of every mutating operation.
// Entries are written inside the same transaction as the mutation they
// describe, so the trail never references state that was rolled back.
package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actions recorded in the trail.
const (
	ActionImport        = "import"
	ActionMatch         = "match"
	ActionUnmatch       = "unmatch"
	ActionAdjust        = "adjust"
	ActionComplete      = "complete"
	ActionSessionCreate = "session_create"
	ActionIgnore        = "ignore"
)

// Entry is one row in the audit trail.
type Entry struct {
	ID            string    `gorm:"primaryKey"`
	Timestamp     time.Time `gorm:"index"`
	Actor         string
	Action        string `gorm:"index"`
	TransactionID string
	SessionID     string `gorm:"index"`
	Details       string
}

// Append writes an entry, filling the id and timestamp if unset.
func Append(db *gorm.DB, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if err := db.Create(&e).Error; err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

// List returns entries oldest first, optionally filtered to one session.
func List(db *gorm.DB, sessionID string) ([]Entry, error) {
	q := db.Order("timestamp asc")
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	var entries []Entry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	return entries, nil
}
