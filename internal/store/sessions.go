package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/concilia-dev/concilia/internal/model"
)

// CreateSession inserts a draft session, assigning an id if unset.
func (s *Store) CreateSession(sess *model.ReconciliationSession) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.Status == "" {
		sess.Status = model.SessionDraft
	}
	if err := s.db.Create(sess).Error; err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// GetSession fetches one session with its adjustments.
func (s *Store) GetSession(id string) (model.ReconciliationSession, error) {
	var sess model.ReconciliationSession
	err := s.db.Preload("Adjustments").First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ReconciliationSession{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.ReconciliationSession{}, fmt.Errorf("fetching session: %w", err)
	}
	return sess, nil
}

// OpenSessionCovering returns the account's draft session whose period
// contains date, or nil when none is open.
func (s *Store) OpenSessionCovering(bankAccountID string, date time.Time) (*model.ReconciliationSession, error) {
	var sess model.ReconciliationSession
	err := s.db.Preload("Adjustments").
		Where("bank_account_id = ? AND status = ? AND period_start <= ? AND period_end >= ?",
			bankAccountID, model.SessionDraft, date, date).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding open session: %w", err)
	}
	return &sess, nil
}

// AddAdjustment appends a correction entry to a session.
func (s *Store) AddAdjustment(adj *model.Adjustment) error {
	if adj.ID == "" {
		adj.ID = uuid.NewString()
	}
	if adj.CreatedAt.IsZero() {
		adj.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Create(adj).Error; err != nil {
		return fmt.Errorf("adding adjustment: %w", err)
	}
	return nil
}

// CompleteSession marks a draft session completed. The guard on the
// current status makes the draft -> completed transition happen exactly
// once even under concurrent writers.
func (s *Store) CompleteSession(id, completedBy string) error {
	now := time.Now().UTC()
	res := s.db.Model(&model.ReconciliationSession{}).
		Where("id = ? AND status = ?", id, model.SessionDraft).
		Updates(map[string]any{
			"status":       model.SessionCompleted,
			"completed_by": completedBy,
			"completed_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("completing session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("session %s: %w", id, ErrConflict)
	}
	return nil
}

// RecalculateSession recomputes the session's derived balances from
// current transaction state. It must run in the same transaction as the
// mutation that made it necessary.
func (s *Store) RecalculateSession(id string) (model.ReconciliationSession, error) {
	sess, err := s.GetSession(id)
	if err != nil {
		return model.ReconciliationSession{}, err
	}

	txns, err := s.TransactionsInPeriod(sess.BankAccountID, sess.PeriodStart, sess.PeriodEnd)
	if err != nil {
		return model.ReconciliationSession{}, err
	}

	system := decimal.Zero
	for _, t := range txns {
		if t.Status == model.StatusMatched || t.Status == model.StatusReconciled {
			system = system.Add(t.SignedAmount())
		}
	}

	sess.SystemBalance = system
	sess.Difference = sess.StatementBalance.Sub(system)
	err = s.db.Model(&model.ReconciliationSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"system_balance": sess.SystemBalance,
			"difference":     sess.Difference,
		}).Error
	if err != nil {
		return model.ReconciliationSession{}, fmt.Errorf("saving recalculated balances: %w", err)
	}
	return sess, nil
}

// RecalculateOpenSessions recomputes every draft session of the account
// whose period overlaps [start, end]. Imports call this so a batch landing
// inside an open period updates its balances in the same transaction.
func (s *Store) RecalculateOpenSessions(bankAccountID string, start, end time.Time) error {
	var sessions []model.ReconciliationSession
	err := s.db.
		Where("bank_account_id = ? AND status = ? AND period_start <= ? AND period_end >= ?",
			bankAccountID, model.SessionDraft, end, start).
		Find(&sessions).Error
	if err != nil {
		return fmt.Errorf("finding overlapping sessions: %w", err)
	}
	for _, sess := range sessions {
		if _, err := s.RecalculateSession(sess.ID); err != nil {
			return err
		}
	}
	return nil
}
