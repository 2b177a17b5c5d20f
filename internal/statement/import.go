package statement

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/concilia-dev/concilia/internal/audit"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/store"
)

// ImportResult reports the outcome of one import call. Duplicates are not
// errors; they are what the dedup key is for.
type ImportResult struct {
	Imported   int
	Duplicates int
	Errors     int
	Total      int
}

// Importer parses raw statement bytes and inserts the unseen drafts for a
// bank account. Each call's rows commit atomically as one unit.
type Importer struct {
	db  *store.Database
	log zerolog.Logger
}

// NewImporter creates an Importer.
func NewImporter(db *store.Database, log zerolog.Logger) *Importer {
	return &Importer{db: db, log: log}
}

// ImportFile parses raw content in the named format and imports the
// drafts. Malformed rows are counted and skipped; an unknown format fails
// the whole call. Open sessions overlapping the imported dates are
// recalculated in the same transaction.
func (i *Importer) ImportFile(ctx context.Context, raw []byte, format, bankAccountID string) (ImportResult, error) {
	if bankAccountID == "" {
		return ImportResult{}, fmt.Errorf("bank account id is required")
	}

	drafts, rowErrs, err := Parse(raw, format)
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{
		Errors: len(rowErrs),
		Total:  len(drafts) + len(rowErrs),
	}
	for _, re := range rowErrs {
		i.log.Debug().Int("line", re.Line).Str("reason", re.Reason).Msg("skipped statement row")
	}

	err = i.db.WithTx(ctx, func(s *store.Store) error {
		var minDate, maxDate time.Time
		for _, d := range drafts {
			exists, err := s.TransactionExists(bankAccountID, d.ExternalID)
			if err != nil {
				return err
			}
			if exists {
				result.Duplicates++
				continue
			}

			txn := draftTransaction(d, bankAccountID)
			if err := s.CreateTransaction(&txn); err != nil {
				return err
			}
			result.Imported++

			if minDate.IsZero() || d.Date.Before(minDate) {
				minDate = d.Date
			}
			if maxDate.IsZero() || d.Date.After(maxDate) {
				maxDate = d.Date
			}
		}

		if result.Imported > 0 {
			if err := s.RecalculateOpenSessions(bankAccountID, minDate, maxDate); err != nil {
				return err
			}
		}

		return s.AppendAudit(audit.Entry{
			Actor:  "importer",
			Action: audit.ActionImport,
			Details: fmt.Sprintf("format=%s account=%s imported=%d duplicates=%d errors=%d",
				format, bankAccountID, result.Imported, result.Duplicates, result.Errors),
		})
	})
	if err != nil {
		return ImportResult{}, err
	}

	i.log.Info().
		Str("format", format).
		Str("bank_account", bankAccountID).
		Int("imported", result.Imported).
		Int("duplicates", result.Duplicates).
		Int("errors", result.Errors).
		Msg("statement imported")
	return result, nil
}

// draftTransaction splits the draft's signed amount into magnitude and
// polarity and fills the stored fields.
func draftTransaction(d TransactionDraft, bankAccountID string) model.Transaction {
	polarity := model.PolarityCredit
	amount := d.Amount
	if amount.IsNegative() {
		polarity = model.PolarityDebit
		amount = amount.Abs()
	}
	return model.Transaction{
		BankAccountID: bankAccountID,
		ExternalID:    d.ExternalID,
		Date:          d.Date,
		Description:   d.Description,
		Amount:        amount,
		Polarity:      polarity,
		BalanceAfter:  d.Balance,
		Reference:     d.Reference,
		Category:      d.Category,
		Status:        model.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}
