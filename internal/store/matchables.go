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

// Window bounds a candidate query by date and amount, keeping pool lookups
// off unbounded table scans.
type Window struct {
	Start     time.Time
	End       time.Time
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
}

// PaymentsInWindow returns payments inside the window, skipping ids in
// exclude (those already holding an active match).
func (s *Store) PaymentsInWindow(w Window, outgoing bool, exclude map[string]bool) ([]model.Payment, error) {
	q := s.db.
		Where("paid_at >= ? AND paid_at <= ?", w.Start, w.End).
		Where("amount >= ? AND amount <= ?", w.MinAmount, w.MaxAmount).
		Where("outgoing = ?", outgoing)
	q = excludeIDs(q, exclude)

	var payments []model.Payment
	if err := q.Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	return payments, nil
}

// UnpaidInvoicesInWindow returns unpaid invoices whose issue or due date
// falls inside the window, skipping excluded ids.
func (s *Store) UnpaidInvoicesInWindow(w Window, exclude map[string]bool) ([]model.Invoice, error) {
	q := s.db.
		Where("status = ?", model.InvoiceUnpaid).
		Where("(issued_at >= ? AND issued_at <= ?) OR (due_at >= ? AND due_at <= ?)",
			w.Start, w.End, w.Start, w.End).
		Where("amount >= ? AND amount <= ?", w.MinAmount, w.MaxAmount)
	q = excludeIDs(q, exclude)

	var invoices []model.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	return invoices, nil
}

// ExpensesInWindow returns expenses inside the window, skipping excluded
// ids.
func (s *Store) ExpensesInWindow(w Window, exclude map[string]bool) ([]model.Expense, error) {
	q := s.db.
		Where("incurred_at >= ? AND incurred_at <= ?", w.Start, w.End).
		Where("amount >= ? AND amount <= ?", w.MinAmount, w.MaxAmount)
	q = excludeIDs(q, exclude)

	var expenses []model.Expense
	if err := q.Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return expenses, nil
}

func excludeIDs(q *gorm.DB, exclude map[string]bool) *gorm.DB {
	if len(exclude) == 0 {
		return q
	}
	ids := make([]string, 0, len(exclude))
	for id := range exclude {
		ids = append(ids, id)
	}
	return q.Where("id NOT IN ?", ids)
}

// SavePayment inserts a payment, assigning an id if unset.
func (s *Store) SavePayment(p *model.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.db.Create(p).Error; err != nil {
		return fmt.Errorf("saving payment: %w", err)
	}
	return nil
}

// SaveInvoice inserts an invoice, assigning an id if unset.
func (s *Store) SaveInvoice(inv *model.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Status == "" {
		inv.Status = model.InvoiceUnpaid
	}
	if err := s.db.Create(inv).Error; err != nil {
		return fmt.Errorf("saving invoice: %w", err)
	}
	return nil
}

// SaveExpense inserts an expense, assigning an id if unset.
func (s *Store) SaveExpense(e *model.Expense) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := s.db.Create(e).Error; err != nil {
		return fmt.Errorf("saving expense: %w", err)
	}
	return nil
}

// MatchableInfo is the kind-independent view of a matchable record,
// resolved through the per-kind lookup registry.
type MatchableInfo struct {
	Kind      model.MatchableKind
	ID        string
	Name      string
	Reference string
	Amount    decimal.Decimal
	Date      time.Time
	DueDate   *time.Time
}

type matchableLookup func(s *Store, id string) (MatchableInfo, error)

// matchableLookups is the closed registry of kinds. Resolution goes
// through typed lookup functions, never reflection.
var matchableLookups = map[model.MatchableKind]matchableLookup{
	model.KindPayment: lookupPayment,
	model.KindInvoice: lookupInvoice,
	model.KindExpense: lookupExpense,
}

// ResolveMatchable loads the (kind, id) pair through the registry.
func (s *Store) ResolveMatchable(kind model.MatchableKind, id string) (MatchableInfo, error) {
	lookup, ok := matchableLookups[kind]
	if !ok {
		return MatchableInfo{}, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}
	return lookup(s, id)
}

func lookupPayment(s *Store, id string) (MatchableInfo, error) {
	var p model.Payment
	if err := s.db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MatchableInfo{}, fmt.Errorf("payment %s: %w", id, ErrNotFound)
		}
		return MatchableInfo{}, fmt.Errorf("fetching payment: %w", err)
	}
	return MatchableInfo{
		Kind:      model.KindPayment,
		ID:        p.ID,
		Name:      p.CustomerName,
		Reference: p.Reference,
		Amount:    p.Amount,
		Date:      p.PaidAt,
	}, nil
}

func lookupInvoice(s *Store, id string) (MatchableInfo, error) {
	var inv model.Invoice
	if err := s.db.First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MatchableInfo{}, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
		}
		return MatchableInfo{}, fmt.Errorf("fetching invoice: %w", err)
	}
	due := inv.DueAt
	return MatchableInfo{
		Kind:      model.KindInvoice,
		ID:        inv.ID,
		Name:      inv.CustomerName,
		Reference: inv.Number,
		Amount:    inv.Amount,
		Date:      inv.IssuedAt,
		DueDate:   &due,
	}, nil
}

func lookupExpense(s *Store, id string) (MatchableInfo, error) {
	var e model.Expense
	if err := s.db.First(&e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MatchableInfo{}, fmt.Errorf("expense %s: %w", id, ErrNotFound)
		}
		return MatchableInfo{}, fmt.Errorf("fetching expense: %w", err)
	}
	return MatchableInfo{
		Kind:      model.KindExpense,
		ID:        e.ID,
		Name:      e.SupplierName,
		Reference: e.Reference,
		Amount:    e.Amount,
		Date:      e.IncurredAt,
	}, nil
}
