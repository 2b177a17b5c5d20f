package recon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concilia-dev/concilia/internal/audit"
	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/store"
)

const testAccount = "acc-main"

func newTestService(t *testing.T) (*Service, *store.Database) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "concilia.db"))
	require.NoError(t, err)
	return NewService(db, config.Default(), zerolog.Nop()), db
}

func date(day int) time.Time {
	return time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC)
}

func seedTransaction(t *testing.T, db *store.Database, txn *model.Transaction) {
	t.Helper()
	if txn.BankAccountID == "" {
		txn.BankAccountID = testAccount
	}
	if txn.ExternalID == "" {
		txn.ExternalID = "ext-" + txn.Description
	}
	if txn.Status == "" {
		txn.Status = model.StatusPending
	}
	require.NoError(t, db.WithTx(context.Background(), func(s *store.Store) error {
		return s.CreateTransaction(txn)
	}))
}

func seedPayment(t *testing.T, db *store.Database, p *model.Payment) {
	t.Helper()
	require.NoError(t, db.WithTx(context.Background(), func(s *store.Store) error {
		return s.SavePayment(p)
	}))
}

func seedExpense(t *testing.T, db *store.Database, e *model.Expense) {
	t.Helper()
	require.NoError(t, db.WithTx(context.Background(), func(s *store.Store) error {
		return s.SaveExpense(e)
	}))
}

func getTransaction(t *testing.T, db *store.Database, id string) model.Transaction {
	t.Helper()
	txn, err := db.View(context.Background()).GetTransaction(id)
	require.NoError(t, err)
	return txn
}

func marchSession(t *testing.T, svc *Service, statementBalance decimal.Decimal) model.ReconciliationSession {
	t.Helper()
	sess, err := svc.CreateSession(context.Background(), CreateSessionParams{
		BankAccountID:    testAccount,
		PeriodStart:      date(1),
		PeriodEnd:        date(31),
		StatementBalance: statementBalance,
		CreatedBy:        "tester",
	})
	require.NoError(t, err)
	return sess
}

func TestCreateSessionValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var vErr *ValidationError

	_, err := svc.CreateSession(ctx, CreateSessionParams{
		PeriodStart: date(1), PeriodEnd: date(31),
	})
	require.ErrorAs(t, err, &vErr)

	_, err = svc.CreateSession(ctx, CreateSessionParams{
		BankAccountID: testAccount,
		PeriodStart:   date(31), PeriodEnd: date(1),
	})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "period", vErr.Field)
}

func TestCreateSessionComputesBalances(t *testing.T) {
	svc, db := newTestService(t)

	seedTransaction(t, db, &model.Transaction{
		Date: date(5), Description: "deposit", Amount: decimal.NewFromInt(500),
		Polarity: model.PolarityCredit, Status: model.StatusMatched,
	})
	seedTransaction(t, db, &model.Transaction{
		Date: date(6), Description: "fee", Amount: decimal.NewFromInt(100),
		Polarity: model.PolarityDebit, Status: model.StatusMatched,
	})
	// Pending transactions do not count toward the system balance.
	seedTransaction(t, db, &model.Transaction{
		Date: date(7), Description: "unknown", Amount: decimal.NewFromInt(999),
		Polarity: model.PolarityCredit,
	})

	sess := marchSession(t, svc, decimal.NewFromInt(450))
	assert.Equal(t, model.SessionDraft, sess.Status)
	assert.True(t, sess.SystemBalance.Equal(decimal.NewFromInt(400)), "system balance = %s", sess.SystemBalance)
	assert.True(t, sess.Difference.Equal(decimal.NewFromInt(50)), "difference = %s", sess.Difference)
}

func TestAutoMatchCommitsUnambiguousCandidate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	txn := &model.Transaction{
		Date: date(1), Description: "PAGO CLIENTE ABC",
		Amount: decimal.NewFromInt(150000), Polarity: model.PolarityCredit,
	}
	seedTransaction(t, db, txn)
	pay := &model.Payment{
		BankAccountID: testAccount, CustomerName: "Cliente ABC SpA",
		Amount: decimal.NewFromInt(150000), PaidAt: date(1),
	}
	seedPayment(t, db, pay)

	sess := marchSession(t, svc, decimal.NewFromInt(150000))
	result, err := svc.AutoMatch(ctx, sess.ID, "auto")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, 1, result.Total)

	got := getTransaction(t, db, txn.ID)
	assert.Equal(t, model.StatusMatched, got.Status)

	rec, err := db.View(ctx).ActiveMatch(txn.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.KindPayment, rec.MatchableKind)
	assert.Equal(t, pay.ID, rec.MatchableID)
	assert.GreaterOrEqual(t, rec.ConfidenceScore, 0.9)
	assert.Contains(t, rec.MatchMethod, "amount")

	updated, err := db.View(ctx).GetSession(sess.ID)
	require.NoError(t, err)
	assert.True(t, updated.Difference.IsZero(), "difference = %s", updated.Difference)
}

func TestAutoMatchLeavesAmbiguousPending(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	txn := &model.Transaction{
		Date: date(10), Description: "TRANSFERENCIA PROVEEDOR XYZ",
		Amount: decimal.NewFromInt(75000), Polarity: model.PolarityDebit,
	}
	seedTransaction(t, db, txn)
	seedExpense(t, db, &model.Expense{
		SupplierName: "Proveedor XYZ", Amount: decimal.NewFromInt(75000), IncurredAt: date(9),
	})
	seedExpense(t, db, &model.Expense{
		SupplierName: "Proveedor XYZ", Amount: decimal.NewFromInt(75000), IncurredAt: date(11),
	})

	sess := marchSession(t, svc, decimal.Zero)
	result, err := svc.AutoMatch(ctx, sess.ID, "auto")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, model.StatusPending, getTransaction(t, db, txn.ID).Status)

	// The operator still sees both as ranked suggestions.
	res, err := svc.Suggest(ctx, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	assert.Len(t, res.Alternatives, 1)
	assert.Less(t, res.Match.Confidence, 0.9)
}

func TestManualMatchUnmatchRoundTrip(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	txn := &model.Transaction{
		Date: date(3), Description: "TRANSF COMERCIAL SUR", Reference: "OP-1234",
		Amount: decimal.NewFromInt(82000), Polarity: model.PolarityCredit,
	}
	seedTransaction(t, db, txn)
	pay := &model.Payment{
		BankAccountID: testAccount, CustomerName: "Comercial Sur Ltda",
		Reference: "OP-1234", Amount: decimal.NewFromInt(82000), PaidAt: date(3),
	}
	seedPayment(t, db, pay)
	marchSession(t, svc, decimal.NewFromInt(82000))

	rec, err := svc.Match(ctx, MatchParams{
		TransactionID: txn.ID, Kind: model.KindPayment, MatchableID: pay.ID, MatchedBy: "ana",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MatchMethodManual, rec.MatchMethod)
	assert.Equal(t, "ana", rec.MatchedBy)
	assert.Equal(t, model.StatusMatched, getTransaction(t, db, txn.ID).Status)

	_, err = svc.Match(ctx, MatchParams{
		TransactionID: txn.ID, Kind: model.KindPayment, MatchableID: pay.ID, MatchedBy: "ana",
	})
	require.ErrorIs(t, err, store.ErrAlreadyMatched)

	require.NoError(t, svc.Unmatch(ctx, rec.ID, "ana"))
	assert.Equal(t, model.StatusPending, getTransaction(t, db, txn.ID).Status)

	again, err := svc.Match(ctx, MatchParams{
		TransactionID: txn.ID, Kind: model.KindPayment, MatchableID: pay.ID, MatchedBy: "ana",
	})
	require.NoError(t, err)
	assert.Equal(t, rec.ConfidenceScore, again.ConfidenceScore, "re-created match reproduces the confidence")
}

func TestMatchedCandidateLeavesThePool(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	first := &model.Transaction{
		Date: date(4), Description: "ABONO DISTRIBUIDORA LUNA",
		Amount: decimal.NewFromInt(30000), Polarity: model.PolarityCredit,
	}
	second := &model.Transaction{
		Date: date(4), Description: "ABONO DISTRIBUIDORA LUNA 2",
		Amount: decimal.NewFromInt(30000), Polarity: model.PolarityCredit,
	}
	seedTransaction(t, db, first)
	seedTransaction(t, db, second)
	pay := &model.Payment{
		BankAccountID: testAccount, CustomerName: "Distribuidora Luna",
		Amount: decimal.NewFromInt(30000), PaidAt: date(4),
	}
	seedPayment(t, db, pay)

	_, err := svc.Match(ctx, MatchParams{
		TransactionID: first.ID, Kind: model.KindPayment, MatchableID: pay.ID, MatchedBy: "ana",
	})
	require.NoError(t, err)

	res, err := svc.Suggest(ctx, second.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Match)
	assert.Empty(t, res.Alternatives)
	assert.Empty(t, res.Suggestions)

	// Claiming it directly fails too.
	_, err = svc.Match(ctx, MatchParams{
		TransactionID: second.ID, Kind: model.KindPayment, MatchableID: pay.ID, MatchedBy: "ana",
	})
	require.ErrorIs(t, err, store.ErrAlreadyMatched)
}

func TestCompleteReportsResidualAndPending(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedTransaction(t, db, &model.Transaction{
		Date: date(2), Description: "mystery deposit",
		Amount: decimal.NewFromInt(12345), Polarity: model.PolarityCredit,
	})
	sess := marchSession(t, svc, decimal.NewFromInt(12345))

	_, err := svc.Complete(ctx, sess.ID, "ana")
	var incomplete *IncompleteReconciliationError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, 1, incomplete.PendingTransactions)
	assert.True(t, incomplete.AdjustedDifference.Equal(decimal.NewFromInt(12345)),
		"residual = %s", incomplete.AdjustedDifference)

	got, err := db.View(ctx).GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionDraft, got.Status)
}

func TestCompleteWithAdjustment(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	txn := &model.Transaction{
		Date: date(15), Description: "big settlement",
		Amount: decimal.NewFromInt(950000), Polarity: model.PolarityCredit,
		Status: model.StatusMatched,
	}
	seedTransaction(t, db, txn)

	sess := marchSession(t, svc, decimal.NewFromInt(1000000))
	assert.True(t, sess.Difference.Equal(decimal.NewFromInt(50000)))

	_, err := svc.Complete(ctx, sess.ID, "ana")
	var incomplete *IncompleteReconciliationError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, 0, incomplete.PendingTransactions)

	_, err = svc.AddAdjustment(ctx, sess.ID, decimal.NewFromInt(50000), "bank fee not recorded", "ana")
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, sess.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, completed.Status)
	assert.Equal(t, "ana", completed.CompletedBy)
	require.NotNil(t, completed.CompletedAt)

	assert.Equal(t, model.StatusReconciled, getTransaction(t, db, txn.ID).Status)

	// Completed sessions are immutable.
	_, err = svc.Complete(ctx, sess.ID, "ana")
	require.ErrorIs(t, err, store.ErrSessionCompleted)
	_, err = svc.AddAdjustment(ctx, sess.ID, decimal.NewFromInt(1), "late", "ana")
	require.ErrorIs(t, err, store.ErrSessionCompleted)
}

func TestAdjustmentValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	sess := marchSession(t, svc, decimal.Zero)

	var vErr *ValidationError
	_, err := svc.AddAdjustment(ctx, sess.ID, decimal.NewFromInt(10), "", "ana")
	require.ErrorAs(t, err, &vErr)
	_, err = svc.AddAdjustment(ctx, sess.ID, decimal.Zero, "noop", "ana")
	require.ErrorAs(t, err, &vErr)
}

func TestIgnoredTransactionsDoNotBlockCompletion(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	txn := &model.Transaction{
		Date: date(8), Description: "internal sweep",
		Amount: decimal.NewFromInt(700), Polarity: model.PolarityDebit,
	}
	seedTransaction(t, db, txn)
	sess := marchSession(t, svc, decimal.Zero)

	_, err := svc.Complete(ctx, sess.ID, "ana")
	var incomplete *IncompleteReconciliationError
	require.ErrorAs(t, err, &incomplete)

	require.NoError(t, svc.SetIgnored(ctx, txn.ID, true, "ana"))
	assert.Equal(t, model.StatusIgnored, getTransaction(t, db, txn.ID).Status)

	completed, err := svc.Complete(ctx, sess.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, completed.Status)

	// Ignoring an already-ignored transaction is rejected.
	var vErr *ValidationError
	err = svc.SetIgnored(ctx, txn.ID, true, "ana")
	require.ErrorAs(t, err, &vErr)
}

func TestSummaryCountsByStatus(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedTransaction(t, db, &model.Transaction{
		Date: date(1), Description: "a", Amount: decimal.NewFromInt(1),
		Polarity: model.PolarityCredit,
	})
	seedTransaction(t, db, &model.Transaction{
		Date: date(2), Description: "b", Amount: decimal.NewFromInt(2),
		Polarity: model.PolarityCredit, Status: model.StatusMatched,
	})
	seedTransaction(t, db, &model.Transaction{
		Date: date(3), Description: "c", Amount: decimal.NewFromInt(3),
		Polarity: model.PolarityDebit, Status: model.StatusIgnored,
	})

	sess := marchSession(t, svc, decimal.NewFromInt(2))
	summary, err := svc.Summary(ctx, sess.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalTransactions)
	assert.Equal(t, 1, summary.CountsByStatus[model.StatusPending])
	assert.Equal(t, 1, summary.CountsByStatus[model.StatusMatched])
	assert.Equal(t, 1, summary.CountsByStatus[model.StatusIgnored])
	assert.True(t, summary.Session.SystemBalance.Equal(decimal.NewFromInt(2)))
	assert.True(t, summary.AdjustedDifference.IsZero())
}

func TestDebitPoolSearchesSupplierPayments(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	txn := &model.Transaction{
		Date: date(5), Description: "PAGO PROVEEDOR ANDINO",
		Amount: decimal.NewFromInt(60000), Polarity: model.PolarityDebit,
	}
	seedTransaction(t, db, txn)

	outgoing := &model.Payment{
		BankAccountID: testAccount, CustomerName: "Proveedor Andino",
		Amount: decimal.NewFromInt(60000), PaidAt: date(5), Outgoing: true,
	}
	incoming := &model.Payment{
		BankAccountID: testAccount, CustomerName: "Proveedor Andino",
		Amount: decimal.NewFromInt(60000), PaidAt: date(5),
	}
	seedPayment(t, db, outgoing)
	seedPayment(t, db, incoming)

	res, err := svc.Suggest(ctx, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	assert.Equal(t, outgoing.ID, res.Match.ID)

	// The identical incoming payment belongs to the credit pool only.
	assert.Empty(t, res.Alternatives)
	for _, s := range res.Suggestions {
		assert.NotEqual(t, incoming.ID, s.ID)
	}
}

func TestMatchRejectsIgnoredTransaction(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	txn := &model.Transaction{
		Date: date(6), Description: "ABONO CLIENTE DELTA",
		Amount: decimal.NewFromInt(20000), Polarity: model.PolarityCredit,
	}
	seedTransaction(t, db, txn)
	pay := &model.Payment{
		BankAccountID: testAccount, CustomerName: "Cliente Delta",
		Amount: decimal.NewFromInt(20000), PaidAt: date(6),
	}
	seedPayment(t, db, pay)

	require.NoError(t, svc.SetIgnored(ctx, txn.ID, true, "ana"))

	var vErr *ValidationError
	_, err := svc.Match(ctx, MatchParams{
		TransactionID: txn.ID, Kind: model.KindPayment, MatchableID: pay.ID, MatchedBy: "ana",
	})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, model.StatusIgnored, getTransaction(t, db, txn.ID).Status)

	// Reverting to pending reopens the path.
	require.NoError(t, svc.SetIgnored(ctx, txn.ID, false, "ana"))
	_, err = svc.Match(ctx, MatchParams{
		TransactionID: txn.ID, Kind: model.KindPayment, MatchableID: pay.ID, MatchedBy: "ana",
	})
	require.NoError(t, err)
}

func TestAuditTrailRecordsMutations(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	txn := &model.Transaction{
		Date: date(9), Description: "ABONO AGRICOLA VALLE",
		Amount: decimal.NewFromInt(33000), Polarity: model.PolarityCredit,
	}
	seedTransaction(t, db, txn)
	pay := &model.Payment{
		BankAccountID: testAccount, CustomerName: "Agricola Valle",
		Amount: decimal.NewFromInt(33000), PaidAt: date(9),
	}
	seedPayment(t, db, pay)

	sess := marchSession(t, svc, decimal.NewFromInt(33000))
	rec, err := svc.Match(ctx, MatchParams{
		TransactionID: txn.ID, Kind: model.KindPayment, MatchableID: pay.ID, MatchedBy: "ana",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Unmatch(ctx, rec.ID, "bob"))

	entries, err := db.View(ctx).AuditTrail(sess.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	assert.Equal(t, []string{audit.ActionSessionCreate, audit.ActionMatch, audit.ActionUnmatch}, actions)
	assert.Equal(t, "ana", entries[1].Actor)
	assert.Equal(t, txn.ID, entries[1].TransactionID)
	assert.Equal(t, "bob", entries[2].Actor)

	// The trail is scoped to the session it is asked about.
	other, err := db.View(ctx).AuditTrail("no-such-session")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestUnmatchRecalculatesOpenSession(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	txn := &model.Transaction{
		Date: date(12), Description: "PAGO FERRETERIA CENTRO",
		Amount: decimal.NewFromInt(45000), Polarity: model.PolarityCredit,
	}
	seedTransaction(t, db, txn)
	pay := &model.Payment{
		BankAccountID: testAccount, CustomerName: "Ferreteria Centro",
		Amount: decimal.NewFromInt(45000), PaidAt: date(12),
	}
	seedPayment(t, db, pay)
	sess := marchSession(t, svc, decimal.NewFromInt(45000))

	rec, err := svc.Match(ctx, MatchParams{
		TransactionID: txn.ID, Kind: model.KindPayment, MatchableID: pay.ID, MatchedBy: "ana",
	})
	require.NoError(t, err)

	got, err := db.View(ctx).GetSession(sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Difference.IsZero())

	require.NoError(t, svc.Unmatch(ctx, rec.ID, "ana"))
	got, err = db.View(ctx).GetSession(sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Difference.Equal(decimal.NewFromInt(45000)), "difference = %s", got.Difference)
}
