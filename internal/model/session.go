package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus is the workflow state of a reconciliation session.
// The only transition is draft -> completed, exactly once.
type SessionStatus string

const (
	SessionDraft     SessionStatus = "draft"
	SessionCompleted SessionStatus = "completed"
)

// ReconciliationSession is a bounded period over which a bank account's
// statement balance is reconciled against matched transactions.
// SystemBalance and Difference are derived and recomputed after every
// mutation touching the period; they are never left stale.
type ReconciliationSession struct {
	ID               string `gorm:"primaryKey"`
	BankAccountID    string `gorm:"index"`
	PeriodStart      time.Time
	PeriodEnd        time.Time
	StatementBalance decimal.Decimal `gorm:"type:numeric"`
	SystemBalance    decimal.Decimal `gorm:"type:numeric"`
	Difference       decimal.Decimal `gorm:"type:numeric"`
	Status           SessionStatus   `gorm:"size:16;index"`
	CompletedBy      string
	CompletedAt      *time.Time
	Adjustments      []Adjustment `gorm:"foreignKey:SessionID"`
	CreatedAt        time.Time
}

// Adjustment is a manual correction entry on a draft session, e.g. an
// unrecorded bank fee.
type Adjustment struct {
	ID        string          `gorm:"primaryKey"`
	SessionID string          `gorm:"index"`
	Amount    decimal.Decimal `gorm:"type:numeric"`
	Reason    string
	CreatedAt time.Time
}

// AdjustmentTotal sums the session's adjustments.
func (s ReconciliationSession) AdjustmentTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range s.Adjustments {
		total = total.Add(a.Amount)
	}
	return total
}

// AdjustedDifference is the residual the operator must drive to zero:
// statement balance minus system balance minus manual adjustments.
func (s ReconciliationSession) AdjustedDifference() decimal.Decimal {
	return s.Difference.Sub(s.AdjustmentTotal())
}
