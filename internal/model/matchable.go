package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchableKind tags the business record a transaction can link to.
type MatchableKind string

const (
	KindPayment MatchableKind = "payment"
	KindInvoice MatchableKind = "invoice"
	KindExpense MatchableKind = "expense"
)

// MatchMethodManual marks a match created by an operator rather than the
// scoring engine.
const MatchMethodManual = "manual"

// MatchRecord is the persisted link between a transaction and a matchable.
// At most one active record may exist per transaction; unmatch flips Active
// off but keeps the row for audit.
type MatchRecord struct {
	ID              string        `gorm:"primaryKey"`
	TransactionID   string        `gorm:"index"`
	MatchableKind   MatchableKind `gorm:"size:16"`
	MatchableID     string
	ConfidenceScore float64
	MatchMethod     string
	MatchedBy       string
	SessionID       string `gorm:"index"`
	Active          bool   `gorm:"index"`
	CreatedAt       time.Time
}

// Payment is money received from a customer.
type Payment struct {
	ID            string `gorm:"primaryKey"`
	BankAccountID string `gorm:"index"`
	CustomerName  string
	Reference     string
	Amount        decimal.Decimal `gorm:"type:numeric"`
	PaidAt        time.Time       `gorm:"index"`
	Outgoing      bool            // supplier payment, candidate for debits
}

// InvoiceStatus is the billing state of an invoice.
type InvoiceStatus string

const (
	InvoiceUnpaid InvoiceStatus = "unpaid"
	InvoicePaid   InvoiceStatus = "paid"
)

// Invoice is a bill issued to a customer.
type Invoice struct {
	ID           string `gorm:"primaryKey"`
	CustomerName string
	Number       string
	Amount       decimal.Decimal `gorm:"type:numeric"`
	IssuedAt     time.Time       `gorm:"index"`
	DueAt        time.Time
	Status       InvoiceStatus `gorm:"size:16;index"`
}

// Expense is money paid out to a supplier.
type Expense struct {
	ID           string `gorm:"primaryKey"`
	SupplierName string
	Reference    string
	Amount       decimal.Decimal `gorm:"type:numeric"`
	IncurredAt   time.Time       `gorm:"index"`
}
