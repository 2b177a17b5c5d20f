package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// headerAliases maps canonical column roles to the header names banks use
// for them, across locales.
var headerAliases = map[string][]string{
	"date":        {"date", "fecha", "posting date", "transaction date", "fecha movimiento"},
	"description": {"description", "descripcion", "descripción", "detail", "detalle", "glosa", "concepto", "memo"},
	"amount":      {"amount", "monto", "importe", "valor"},
	"debit":       {"debit", "debito", "débito", "cargo", "withdrawal"},
	"credit":      {"credit", "credito", "crédito", "abono", "deposit"},
	"balance":     {"balance", "saldo"},
	"reference":   {"reference", "referencia", "nro documento", "documento", "doc", "check"},
}

// DelimitedParser reads CSV-like statements whose first row is a header.
// Column positions are resolved by header-name aliasing, so the same parser
// covers exports from different banks.
type DelimitedParser struct{}

// Format returns the parser name.
func (p *DelimitedParser) Format() string { return "delimited" }

// Parse reads a delimited statement and returns drafts plus skipped rows.
func (p *DelimitedParser) Parse(r io.Reader) ([]TransactionDraft, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, &FormatError{Format: p.Format(), Reason: err.Error()}
	}
	if len(records) == 0 {
		return nil, nil, &FormatError{Format: p.Format(), Reason: "empty file"}
	}

	cols := resolveColumns(records[0])
	if _, ok := cols["date"]; !ok {
		return nil, nil, &FormatError{Format: p.Format(), Reason: "no date column in header"}
	}
	_, hasAmount := cols["amount"]
	_, hasDebit := cols["debit"]
	_, hasCredit := cols["credit"]
	if !hasAmount && !hasDebit && !hasCredit {
		return nil, nil, &FormatError{Format: p.Format(), Reason: "no amount columns in header"}
	}

	var drafts []TransactionDraft
	var rowErrs []RowError
	for i, rec := range records[1:] {
		line := i + 2
		draft, err := p.parseRow(rec, cols)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		drafts = append(drafts, draft)
	}
	return drafts, rowErrs, nil
}

func (p *DelimitedParser) parseRow(rec []string, cols map[string]int) (TransactionDraft, error) {
	date, err := ParseDate(cell(rec, cols, "date"))
	if err != nil {
		return TransactionDraft{}, err
	}

	amount, err := p.rowAmount(rec, cols)
	if err != nil {
		return TransactionDraft{}, err
	}

	draft := TransactionDraft{
		Date:        date,
		Description: cell(rec, cols, "description"),
		Amount:      amount,
		Reference:   cell(rec, cols, "reference"),
	}

	if raw := cell(rec, cols, "balance"); raw != "" {
		balance, err := ParseAmount(raw)
		if err != nil {
			return TransactionDraft{}, fmt.Errorf("balance: %w", err)
		}
		draft.Balance = decimal.NewNullDecimal(balance)
	}

	draft.finalize()
	return draft, nil
}

// rowAmount reads the single signed amount column, or folds separate
// debit/credit columns into one signed amount.
func (p *DelimitedParser) rowAmount(rec []string, cols map[string]int) (decimal.Decimal, error) {
	if raw := cell(rec, cols, "amount"); raw != "" {
		return ParseAmount(raw)
	}

	debitRaw := cell(rec, cols, "debit")
	creditRaw := cell(rec, cols, "credit")
	if debitRaw == "" && creditRaw == "" {
		return decimal.Decimal{}, fmt.Errorf("row has no amount")
	}

	amount := decimal.Zero
	if creditRaw != "" {
		credit, err := ParseAmount(creditRaw)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("credit: %w", err)
		}
		amount = amount.Add(credit.Abs())
	}
	if debitRaw != "" {
		debit, err := ParseAmount(debitRaw)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("debit: %w", err)
		}
		amount = amount.Sub(debit.Abs())
	}
	return amount, nil
}

// resolveColumns maps column roles to indexes by header aliasing.
func resolveColumns(header []string) map[string]int {
	cols := make(map[string]int)
	for idx, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(name))
		for role, aliases := range headerAliases {
			if _, taken := cols[role]; taken {
				continue
			}
			for _, alias := range aliases {
				if normalized == alias {
					cols[role] = idx
					break
				}
			}
		}
	}
	return cols
}

func cell(rec []string, cols map[string]int, role string) string {
	idx, ok := cols[role]
	if !ok || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}
