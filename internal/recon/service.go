// Package recon drives the reconciliation workflow: session lifecycle,
// balance recalculation, auto-matching and manual match operations.
package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/audit"
	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/match"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/store"
)

// poolAmountSpread widens the candidate amount window around the
// transaction amount, keeping pool queries bounded without cutting off
// plausible partial matches.
const poolAmountSpread = 0.5

// Service orchestrates reconciliation over the store and the match
// engine. Every mutating operation runs inside one transaction that also
// covers the resulting recalculation.
type Service struct {
	db     *store.Database
	engine *match.Engine
	cfg    *config.Config
	log    zerolog.Logger
}

// NewService creates a Service.
func NewService(db *store.Database, cfg *config.Config, log zerolog.Logger) *Service {
	return &Service{
		db:     db,
		engine: match.NewEngine(cfg.Matching),
		cfg:    cfg,
		log:    log,
	}
}

// CreateSessionParams holds parameters for opening a session.
type CreateSessionParams struct {
	BankAccountID    string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	StatementBalance decimal.Decimal
	CreatedBy        string
}

// CreateSession opens a draft session and computes its initial balances.
func (svc *Service) CreateSession(ctx context.Context, p CreateSessionParams) (model.ReconciliationSession, error) {
	if p.BankAccountID == "" {
		return model.ReconciliationSession{}, &ValidationError{Field: "bank account", Reason: "required"}
	}
	if p.PeriodStart.IsZero() || p.PeriodEnd.IsZero() {
		return model.ReconciliationSession{}, &ValidationError{Field: "period", Reason: "start and end are required"}
	}
	if p.PeriodEnd.Before(p.PeriodStart) {
		return model.ReconciliationSession{}, &ValidationError{Field: "period", Reason: "end before start"}
	}

	var sess model.ReconciliationSession
	err := svc.db.WithTx(ctx, func(s *store.Store) error {
		sess = model.ReconciliationSession{
			BankAccountID:    p.BankAccountID,
			PeriodStart:      p.PeriodStart,
			PeriodEnd:        p.PeriodEnd,
			StatementBalance: p.StatementBalance,
			Status:           model.SessionDraft,
			CreatedAt:        time.Now().UTC(),
		}
		if err := s.CreateSession(&sess); err != nil {
			return err
		}
		recalced, err := s.RecalculateSession(sess.ID)
		if err != nil {
			return err
		}
		sess = recalced
		return s.AppendAudit(audit.Entry{
			Actor:     p.CreatedBy,
			Action:    audit.ActionSessionCreate,
			SessionID: sess.ID,
			Details: fmt.Sprintf("account=%s period=%s..%s statement_balance=%s",
				p.BankAccountID, p.PeriodStart.Format("2006-01-02"), p.PeriodEnd.Format("2006-01-02"),
				p.StatementBalance.StringFixed(2)),
		})
	})
	if err != nil {
		return model.ReconciliationSession{}, err
	}
	svc.log.Info().Str("session", sess.ID).Str("bank_account", p.BankAccountID).Msg("session created")
	return sess, nil
}

// Suggest scores the transaction against its candidate pool without
// creating anything. Read-only: safe to run while other sessions match.
func (svc *Service) Suggest(ctx context.Context, transactionID string) (match.Result, error) {
	s := svc.db.View(ctx)
	txn, err := s.GetTransaction(transactionID)
	if err != nil {
		return match.Result{}, err
	}
	pool, err := svc.candidatePool(s, txn)
	if err != nil {
		return match.Result{}, err
	}
	return svc.engine.FindMatch(txn, pool, match.Options{}), nil
}

// MatchParams holds parameters for a manual match.
type MatchParams struct {
	TransactionID string
	Kind          model.MatchableKind
	MatchableID   string
	MatchedBy     string
}

// Match links a transaction to a matchable record. The confidence is
// recomputed from the same inputs the engine would use, so re-creating a
// match after unmatch reproduces the score.
func (svc *Service) Match(ctx context.Context, p MatchParams) (model.MatchRecord, error) {
	var rec model.MatchRecord
	err := svc.db.WithTx(ctx, func(s *store.Store) error {
		txn, err := s.GetTransaction(p.TransactionID)
		if err != nil {
			return err
		}
		if txn.Status == model.StatusReconciled {
			return &ValidationError{Field: "transaction", Reason: "already reconciled"}
		}
		if txn.Status == model.StatusIgnored {
			return &ValidationError{Field: "transaction", Reason: "ignored transactions cannot be matched"}
		}

		info, err := s.ResolveMatchable(p.Kind, p.MatchableID)
		if err != nil {
			return err
		}
		scored := svc.engine.Score(txn, candidateFromInfo(info))

		sess, err := s.OpenSessionCovering(txn.BankAccountID, txn.Date)
		if err != nil {
			return err
		}

		rec = model.MatchRecord{
			TransactionID:   p.TransactionID,
			MatchableKind:   p.Kind,
			MatchableID:     p.MatchableID,
			ConfidenceScore: scored.Confidence,
			MatchMethod:     model.MatchMethodManual,
			MatchedBy:       p.MatchedBy,
		}
		if sess != nil {
			rec.SessionID = sess.ID
		}
		if err := s.CreateMatch(&rec); err != nil {
			return err
		}
		if sess != nil {
			if _, err := s.RecalculateSession(sess.ID); err != nil {
				return err
			}
		}
		return s.AppendAudit(audit.Entry{
			Actor:         p.MatchedBy,
			Action:        audit.ActionMatch,
			TransactionID: p.TransactionID,
			SessionID:     rec.SessionID,
			Details: fmt.Sprintf("%s=%s confidence=%.4f method=%s",
				p.Kind, p.MatchableID, scored.Confidence, model.MatchMethodManual),
		})
	})
	if err != nil {
		return model.MatchRecord{}, err
	}
	return rec, nil
}

// Unmatch soft-removes a match record and reverts the transaction to
// pending. The owning open session is recalculated in the same
// transaction.
func (svc *Service) Unmatch(ctx context.Context, matchRecordID, actor string) error {
	return svc.db.WithTx(ctx, func(s *store.Store) error {
		rec, err := s.GetMatch(matchRecordID)
		if err != nil {
			return err
		}
		txn, err := s.GetTransaction(rec.TransactionID)
		if err != nil {
			return err
		}
		if txn.Status == model.StatusReconciled {
			return &ValidationError{Field: "transaction", Reason: "already reconciled"}
		}

		if _, err := s.DeactivateMatch(matchRecordID); err != nil {
			return err
		}
		sess, err := s.OpenSessionCovering(txn.BankAccountID, txn.Date)
		if err != nil {
			return err
		}
		sessionID := ""
		if sess != nil {
			if _, err := s.RecalculateSession(sess.ID); err != nil {
				return err
			}
			sessionID = sess.ID
		}
		return s.AppendAudit(audit.Entry{
			Actor:         actor,
			Action:        audit.ActionUnmatch,
			TransactionID: rec.TransactionID,
			SessionID:     sessionID,
			Details:       fmt.Sprintf("record=%s %s=%s", rec.ID, rec.MatchableKind, rec.MatchableID),
		})
	})
}

// AutoMatchResult reports one auto-match pass.
type AutoMatchResult struct {
	Matched int
	Total   int
}

// AutoMatch walks the session's pending transactions and commits only
// unambiguous, high-confidence matches: exactly one candidate at or above
// its kind's threshold. Everything else is left for manual review.
func (svc *Service) AutoMatch(ctx context.Context, sessionID, actor string) (AutoMatchResult, error) {
	var result AutoMatchResult
	err := svc.db.WithTx(ctx, func(s *store.Store) error {
		sess, err := s.GetSession(sessionID)
		if err != nil {
			return err
		}
		if sess.Status != model.SessionDraft {
			return fmt.Errorf("session %s: %w", sessionID, store.ErrSessionCompleted)
		}

		pending, err := s.PendingInPeriod(sess.BankAccountID, sess.PeriodStart, sess.PeriodEnd)
		if err != nil {
			return err
		}
		result.Total = len(pending)

		for _, txn := range pending {
			// The pool is rebuilt per transaction so records matched
			// earlier in this pass are already excluded.
			pool, err := svc.candidatePool(s, txn)
			if err != nil {
				return err
			}
			res := svc.engine.FindMatch(txn, pool, match.Options{})
			eligible := svc.aboveThreshold(res)
			if len(eligible) != 1 {
				continue
			}

			chosen := eligible[0]
			rec := model.MatchRecord{
				TransactionID:   txn.ID,
				MatchableKind:   chosen.Kind,
				MatchableID:     chosen.ID,
				ConfidenceScore: chosen.Confidence,
				MatchMethod:     chosen.Method,
				MatchedBy:       actor,
				SessionID:       sessionID,
			}
			if err := s.CreateMatch(&rec); err != nil {
				return err
			}
			result.Matched++
		}

		if _, err := s.RecalculateSession(sessionID); err != nil {
			return err
		}
		return s.AppendAudit(audit.Entry{
			Actor:     actor,
			Action:    audit.ActionMatch,
			SessionID: sessionID,
			Details:   fmt.Sprintf("auto-match matched=%d total=%d", result.Matched, result.Total),
		})
	})
	if err != nil {
		return AutoMatchResult{}, err
	}
	svc.log.Info().Str("session", sessionID).Int("matched", result.Matched).Int("total", result.Total).Msg("auto-match finished")
	return result, nil
}

// aboveThreshold collects the candidates clearing their kind's auto-match
// threshold, across the best match and its alternatives.
func (svc *Service) aboveThreshold(res match.Result) []match.Scored {
	var eligible []match.Scored
	consider := res.Alternatives
	if res.Match != nil {
		consider = append([]match.Scored{*res.Match}, consider...)
	}
	for _, c := range consider {
		if c.Confidence >= svc.cfg.Matching.ForKind(c.Kind).AutoMatchThreshold {
			eligible = append(eligible, c)
		}
	}
	return eligible
}

// AddAdjustment appends a manual correction to a draft session.
func (svc *Service) AddAdjustment(ctx context.Context, sessionID string, amount decimal.Decimal, reason, actor string) (model.Adjustment, error) {
	if reason == "" {
		return model.Adjustment{}, &ValidationError{Field: "reason", Reason: "required"}
	}
	if amount.IsZero() {
		return model.Adjustment{}, &ValidationError{Field: "amount", Reason: "must be non-zero"}
	}

	var adj model.Adjustment
	err := svc.db.WithTx(ctx, func(s *store.Store) error {
		sess, err := s.GetSession(sessionID)
		if err != nil {
			return err
		}
		if sess.Status != model.SessionDraft {
			return fmt.Errorf("session %s: %w", sessionID, store.ErrSessionCompleted)
		}

		adj = model.Adjustment{SessionID: sessionID, Amount: amount, Reason: reason}
		if err := s.AddAdjustment(&adj); err != nil {
			return err
		}
		if _, err := s.RecalculateSession(sessionID); err != nil {
			return err
		}
		return s.AppendAudit(audit.Entry{
			Actor:     actor,
			Action:    audit.ActionAdjust,
			SessionID: sessionID,
			Details:   fmt.Sprintf("amount=%s reason=%s", amount.StringFixed(2), reason),
		})
	})
	if err != nil {
		return model.Adjustment{}, err
	}
	return adj, nil
}

// Complete closes a session. It fails with IncompleteReconciliationError
// unless the adjusted difference is within the completion epsilon and no
// transaction in the period is still pending. On success all matched
// transactions in the period become reconciled and the session is
// immutable thereafter.
func (svc *Service) Complete(ctx context.Context, sessionID, completedBy string) (model.ReconciliationSession, error) {
	var sess model.ReconciliationSession
	err := svc.db.WithTx(ctx, func(s *store.Store) error {
		current, err := s.GetSession(sessionID)
		if err != nil {
			return err
		}
		if current.Status != model.SessionDraft {
			return fmt.Errorf("session %s: %w", sessionID, store.ErrSessionCompleted)
		}

		// Balances are recomputed here, not trusted from the last write.
		current, err = s.RecalculateSession(sessionID)
		if err != nil {
			return err
		}

		pending, err := s.PendingInPeriod(current.BankAccountID, current.PeriodStart, current.PeriodEnd)
		if err != nil {
			return err
		}

		adjusted := current.AdjustedDifference()
		epsilon := decimal.NewFromFloat(svc.cfg.Reconciliation.CompletionEpsilon)
		if adjusted.Abs().GreaterThan(epsilon) || len(pending) > 0 {
			return &IncompleteReconciliationError{
				AdjustedDifference:  adjusted,
				PendingTransactions: len(pending),
			}
		}

		if err := s.ReconcileMatchedInPeriod(current.BankAccountID, current.PeriodStart, current.PeriodEnd); err != nil {
			return err
		}
		if err := s.CompleteSession(sessionID, completedBy); err != nil {
			return err
		}
		if _, err := s.RecalculateSession(sessionID); err != nil {
			return err
		}

		sess, err = s.GetSession(sessionID)
		if err != nil {
			return err
		}
		return s.AppendAudit(audit.Entry{
			Actor:     completedBy,
			Action:    audit.ActionComplete,
			SessionID: sessionID,
			Details:   fmt.Sprintf("difference=%s adjusted=%s", sess.Difference.StringFixed(2), adjusted.StringFixed(2)),
		})
	})
	if err != nil {
		return model.ReconciliationSession{}, err
	}
	svc.log.Info().Str("session", sessionID).Str("completed_by", completedBy).Msg("session completed")
	return sess, nil
}

// SetIgnored flags a pending transaction as ignored, or reverts an
// ignored one to pending. Ignored transactions are excluded from the
// completion check.
func (svc *Service) SetIgnored(ctx context.Context, transactionID string, ignored bool, actor string) error {
	return svc.db.WithTx(ctx, func(s *store.Store) error {
		txn, err := s.GetTransaction(transactionID)
		if err != nil {
			return err
		}
		var target model.TransactionStatus
		switch {
		case ignored && txn.Status == model.StatusPending:
			target = model.StatusIgnored
		case !ignored && txn.Status == model.StatusIgnored:
			target = model.StatusPending
		default:
			return &ValidationError{Field: "transaction", Reason: fmt.Sprintf("cannot toggle ignore from status %s", txn.Status)}
		}
		if err := s.UpdateTransactionStatus(transactionID, target); err != nil {
			return err
		}
		sess, err := s.OpenSessionCovering(txn.BankAccountID, txn.Date)
		if err != nil {
			return err
		}
		sessionID := ""
		if sess != nil {
			if _, err := s.RecalculateSession(sess.ID); err != nil {
				return err
			}
			sessionID = sess.ID
		}
		return s.AppendAudit(audit.Entry{
			Actor:         actor,
			Action:        audit.ActionIgnore,
			TransactionID: transactionID,
			SessionID:     sessionID,
			Details:       fmt.Sprintf("ignored=%t", ignored),
		})
	})
}

// Summary is the read-only report of a session's state.
type Summary struct {
	Session            model.ReconciliationSession
	AdjustedDifference decimal.Decimal
	CountsByStatus     map[model.TransactionStatus]int
	TotalTransactions  int
}

// Summary reads a consistent view of the session without holding the
// mutation lock: balances, per-status transaction counts, adjustments.
func (svc *Service) Summary(ctx context.Context, sessionID string) (Summary, error) {
	s := svc.db.View(ctx)
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return Summary{}, err
	}
	txns, err := s.TransactionsInPeriod(sess.BankAccountID, sess.PeriodStart, sess.PeriodEnd)
	if err != nil {
		return Summary{}, err
	}

	counts := make(map[model.TransactionStatus]int)
	for _, t := range txns {
		counts[t.Status]++
	}
	return Summary{
		Session:            sess,
		AdjustedDifference: sess.AdjustedDifference(),
		CountsByStatus:     counts,
		TotalTransactions:  len(txns),
	}, nil
}

// candidatePool gathers unmatched business records for a transaction.
// Credits search incoming payments and unpaid invoices; debits search
// expenses and supplier payments. Queries are bounded by date and amount
// windows and exclude records holding an active match.
func (svc *Service) candidatePool(s *store.Store, txn model.Transaction) ([]match.Candidate, error) {
	minAmount := txn.Amount.Mul(decimal.NewFromFloat(1 - poolAmountSpread))
	maxAmount := txn.Amount.Mul(decimal.NewFromFloat(1 + poolAmountSpread))

	paymentWindow := svc.window(txn.Date, svc.cfg.Matching.Payments.DateWindowDays, minAmount, maxAmount)
	var pool []match.Candidate

	if txn.Polarity == model.PolarityCredit {
		matchedPayments, err := s.MatchedIDs(model.KindPayment)
		if err != nil {
			return nil, err
		}
		payments, err := s.PaymentsInWindow(paymentWindow, false, matchedPayments)
		if err != nil {
			return nil, err
		}
		for _, p := range payments {
			pool = append(pool, match.Candidate{
				Kind: model.KindPayment, ID: p.ID, Name: p.CustomerName,
				Reference: p.Reference, Amount: p.Amount, Date: p.PaidAt,
			})
		}

		matchedInvoices, err := s.MatchedIDs(model.KindInvoice)
		if err != nil {
			return nil, err
		}
		invoiceWindow := svc.window(txn.Date, svc.cfg.Matching.Invoices.DateWindowDays, minAmount, maxAmount)
		invoices, err := s.UnpaidInvoicesInWindow(invoiceWindow, matchedInvoices)
		if err != nil {
			return nil, err
		}
		for _, inv := range invoices {
			due := inv.DueAt
			pool = append(pool, match.Candidate{
				Kind: model.KindInvoice, ID: inv.ID, Name: inv.CustomerName,
				Reference: inv.Number, Amount: inv.Amount, Date: inv.IssuedAt, DueDate: &due,
			})
		}
		return pool, nil
	}

	matchedExpenses, err := s.MatchedIDs(model.KindExpense)
	if err != nil {
		return nil, err
	}
	expenseWindow := svc.window(txn.Date, svc.cfg.Matching.Expenses.DateWindowDays, minAmount, maxAmount)
	expenses, err := s.ExpensesInWindow(expenseWindow, matchedExpenses)
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		pool = append(pool, match.Candidate{
			Kind: model.KindExpense, ID: e.ID, Name: e.SupplierName,
			Reference: e.Reference, Amount: e.Amount, Date: e.IncurredAt,
		})
	}

	matchedPayments, err := s.MatchedIDs(model.KindPayment)
	if err != nil {
		return nil, err
	}
	supplierPayments, err := s.PaymentsInWindow(paymentWindow, true, matchedPayments)
	if err != nil {
		return nil, err
	}
	for _, p := range supplierPayments {
		pool = append(pool, match.Candidate{
			Kind: model.KindPayment, ID: p.ID, Name: p.CustomerName,
			Reference: p.Reference, Amount: p.Amount, Date: p.PaidAt,
		})
	}
	return pool, nil
}

func (svc *Service) window(center time.Time, days int, minAmount, maxAmount decimal.Decimal) store.Window {
	return store.Window{
		Start:     center.AddDate(0, 0, -days),
		End:       center.AddDate(0, 0, days),
		MinAmount: minAmount,
		MaxAmount: maxAmount,
	}
}

func candidateFromInfo(info store.MatchableInfo) match.Candidate {
	return match.Candidate{
		Kind:      info.Kind,
		ID:        info.ID,
		Name:      info.Name,
		Reference: info.Reference,
		Amount:    info.Amount,
		Date:      info.Date,
		DueDate:   info.DueDate,
	}
}
