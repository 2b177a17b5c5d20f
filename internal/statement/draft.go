// Package statement parses raw bank statement exports in several formats
// into canonical transaction drafts and imports them with dedup.
package statement

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/extid"
)

// ErrUnsupportedFormat is returned when no parser is registered for the
// requested format name. Unlike row-level errors it fails the whole call.
var ErrUnsupportedFormat = errors.New("statement: unsupported format")

// FormatError reports a file that a parser recognized but could not read.
type FormatError struct {
	Format string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("parsing %s statement: %s", e.Format, e.Reason)
}

// RowError records one malformed row that was skipped. Row errors are
// counted, not fatal; the rest of the batch still imports.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}

// TransactionDraft is a parsed statement line before import. Amount is
// signed here; polarity is split out at insert time.
type TransactionDraft struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Balance     decimal.NullDecimal
	Reference   string
	Category    string
	ExternalID  string
}

// finalize trims the description, fills the reference fallback and the
// category hint, and computes the dedup key. Every parser calls this as
// its last step so all formats converge on the same canonical draft.
func (d *TransactionDraft) finalize() {
	d.Description = strings.TrimSpace(d.Description)
	d.Reference = strings.TrimSpace(d.Reference)
	if d.Reference == "" {
		d.Reference = extid.Placeholder(d.Date, d.Amount.Abs())
	}
	d.Category = Categorize(d.Description)
	d.ExternalID = extid.Compute(d.Date, d.Reference, d.Amount)
}
