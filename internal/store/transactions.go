package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/concilia-dev/concilia/internal/model"
)

// CreateTransaction inserts a new transaction, assigning an id if unset.
func (s *Store) CreateTransaction(t *model.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	if err := s.db.Create(t).Error; err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}
	return nil
}

// TransactionExists reports whether the dedup key is already present for
// the bank account.
func (s *Store) TransactionExists(bankAccountID, externalID string) (bool, error) {
	var count int64
	err := s.db.Model(&model.Transaction{}).
		Where("bank_account_id = ? AND external_id = ?", bankAccountID, externalID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking dedup key: %w", err)
	}
	return count > 0, nil
}

// GetTransaction fetches one transaction by id.
func (s *Store) GetTransaction(id string) (model.Transaction, error) {
	var t model.Transaction
	err := s.db.First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("fetching transaction: %w", err)
	}
	return t, nil
}

// TransactionsInPeriod returns the account's transactions inside the date
// range, oldest first.
func (s *Store) TransactionsInPeriod(bankAccountID string, start, end time.Time) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := s.db.
		Where("bank_account_id = ? AND date >= ? AND date <= ?", bankAccountID, start, end).
		Order("date asc, id asc").
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txns, nil
}

// PendingInPeriod returns the account's pending transactions in range.
func (s *Store) PendingInPeriod(bankAccountID string, start, end time.Time) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := s.db.
		Where("bank_account_id = ? AND date >= ? AND date <= ? AND status = ?",
			bankAccountID, start, end, model.StatusPending).
		Order("date asc, id asc").
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("listing pending transactions: %w", err)
	}
	return txns, nil
}

// UpdateTransactionStatus sets one transaction's status.
func (s *Store) UpdateTransactionStatus(id string, status model.TransactionStatus) error {
	res := s.db.Model(&model.Transaction{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("updating transaction status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return nil
}

// ReconcileMatchedInPeriod flips the account's matched transactions in
// range to reconciled. Called once, at session completion.
func (s *Store) ReconcileMatchedInPeriod(bankAccountID string, start, end time.Time) error {
	err := s.db.Model(&model.Transaction{}).
		Where("bank_account_id = ? AND date >= ? AND date <= ? AND status = ?",
			bankAccountID, start, end, model.StatusMatched).
		Update("status", model.StatusReconciled).Error
	if err != nil {
		return fmt.Errorf("reconciling matched transactions: %w", err)
	}
	return nil
}
