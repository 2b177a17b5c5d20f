package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of an imported statement line.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusMatched    TransactionStatus = "matched"
	StatusReconciled TransactionStatus = "reconciled"
	StatusIgnored    TransactionStatus = "ignored"
)

// Polarity records which side of the account a transaction moved.
type Polarity string

const (
	PolarityCredit Polarity = "credit"
	PolarityDebit  Polarity = "debit"
)

// Transaction is one normalized line item from an imported bank statement.
// Amount is an unsigned magnitude; the sign lives in Polarity.
type Transaction struct {
	ID            string `gorm:"primaryKey"`
	BankAccountID string `gorm:"index;uniqueIndex:idx_txn_dedup"`
	// ExternalID is the dedup key: a deterministic hash of
	// (date, reference, amount). Immutable once set.
	ExternalID   string    `gorm:"uniqueIndex:idx_txn_dedup"`
	Date         time.Time `gorm:"index"`
	Description  string
	Amount       decimal.Decimal     `gorm:"type:numeric"`
	Polarity     Polarity            `gorm:"size:8"`
	BalanceAfter decimal.NullDecimal `gorm:"type:numeric"`
	Reference    string
	Category     string
	Status       TransactionStatus `gorm:"size:16;index"`
	CreatedAt    time.Time
}

// SignedAmount returns the amount with the polarity applied
// (credits positive, debits negative).
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Polarity == PolarityDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
