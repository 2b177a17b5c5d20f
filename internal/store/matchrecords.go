package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/concilia-dev/concilia/internal/model"
)

// ActiveMatch returns the transaction's active match record, or nil.
func (s *Store) ActiveMatch(transactionID string) (*model.MatchRecord, error) {
	var rec model.MatchRecord
	err := s.db.First(&rec, "transaction_id = ? AND active = ?", transactionID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching active match: %w", err)
	}
	return &rec, nil
}

// CreateMatch inserts an active match record and flips the transaction to
// matched. Fails with ErrAlreadyMatched when either the transaction or the
// matchable already holds an active record; this is what makes matching
// exactly-once on both sides.
func (s *Store) CreateMatch(rec *model.MatchRecord) error {
	existing, err := s.ActiveMatch(rec.TransactionID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("transaction %s: %w", rec.TransactionID, ErrAlreadyMatched)
	}

	var claimed int64
	err = s.db.Model(&model.MatchRecord{}).
		Where("matchable_kind = ? AND matchable_id = ? AND active = ?", rec.MatchableKind, rec.MatchableID, true).
		Count(&claimed).Error
	if err != nil {
		return fmt.Errorf("checking matchable: %w", err)
	}
	if claimed > 0 {
		return fmt.Errorf("%s %s: %w", rec.MatchableKind, rec.MatchableID, ErrAlreadyMatched)
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Active = true
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("creating match record: %w", err)
	}
	return s.UpdateTransactionStatus(rec.TransactionID, model.StatusMatched)
}

// GetMatch fetches one match record by id.
func (s *Store) GetMatch(id string) (model.MatchRecord, error) {
	var rec model.MatchRecord
	err := s.db.First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.MatchRecord{}, fmt.Errorf("match record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("fetching match record: %w", err)
	}
	return rec, nil
}

// DeactivateMatch soft-removes a match record (kept for audit) and reverts
// the transaction to pending.
func (s *Store) DeactivateMatch(id string) (model.MatchRecord, error) {
	rec, err := s.GetMatch(id)
	if err != nil {
		return model.MatchRecord{}, err
	}
	if !rec.Active {
		return model.MatchRecord{}, fmt.Errorf("match record %s already inactive: %w", id, ErrNotFound)
	}

	if err := s.db.Model(&rec).Update("active", false).Error; err != nil {
		return model.MatchRecord{}, fmt.Errorf("deactivating match record: %w", err)
	}
	rec.Active = false
	if err := s.UpdateTransactionStatus(rec.TransactionID, model.StatusPending); err != nil {
		return model.MatchRecord{}, err
	}
	return rec, nil
}

// MatchedIDs returns the matchable ids of the given kind that currently
// hold an active match, for exclusion from candidate pools.
func (s *Store) MatchedIDs(kind model.MatchableKind) (map[string]bool, error) {
	var ids []string
	err := s.db.Model(&model.MatchRecord{}).
		Where("matchable_kind = ? AND active = ?", kind, true).
		Pluck("matchable_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("listing matched ids: %w", err)
	}
	matched := make(map[string]bool, len(ids))
	for _, id := range ids {
		matched[id] = true
	}
	return matched, nil
}
