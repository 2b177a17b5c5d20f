package recon

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError rejects malformed input before any mutation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IncompleteReconciliationError reports why a session cannot complete:
// the residual difference and how many transactions are still pending,
// so the operator knows exactly what is left.
type IncompleteReconciliationError struct {
	AdjustedDifference  decimal.Decimal
	PendingTransactions int
}

func (e *IncompleteReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation incomplete: residual difference %s, %d pending transactions",
		e.AdjustedDifference.StringFixed(2), e.PendingTransactions)
}
