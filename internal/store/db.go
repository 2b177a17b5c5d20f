// Package store persists transactions, matches and reconciliation
// sessions in sqlite. Every mutating operation runs through WithTx so the
// state change and its balance recalculation commit or roll back as one
// unit.
package store

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/concilia-dev/concilia/internal/audit"
	"github.com/concilia-dev/concilia/internal/model"
)

// Database owns the sqlite connection.
type Database struct {
	db *gorm.DB
}

// Open connects to the sqlite file at path and migrates the schema.
func Open(path string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Transaction{},
		&model.MatchRecord{},
		&model.ReconciliationSession{},
		&model.Adjustment{},
		&model.Payment{},
		&model.Invoice{},
		&model.Expense{},
		&audit.Entry{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Database{db: db}, nil
}

// Store is a connection- or transaction-scoped view of the database.
type Store struct {
	db *gorm.DB
}

// WithTx runs fn inside one database transaction. This is the ACID unit
// of work wrapping each mutating operation together with its
// recalculation.
func (d *Database) WithTx(ctx context.Context, fn func(s *Store) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// View returns a read-only store outside any transaction, for reports and
// suggestions that must not hold the mutation lock.
func (d *Database) View(ctx context.Context) *Store {
	return &Store{db: d.db.WithContext(ctx)}
}

// AppendAudit writes an audit entry within this store's scope.
func (s *Store) AppendAudit(e audit.Entry) error {
	return audit.Append(s.db, e)
}

// AuditTrail lists audit entries, optionally filtered to one session.
func (s *Store) AuditTrail(sessionID string) ([]audit.Entry, error) {
	return audit.List(s.db, sessionID)
}
