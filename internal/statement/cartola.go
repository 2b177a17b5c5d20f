package statement

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// AndesParser reads Banco Andes cartola exports: semicolon-delimited lines
// with fixed positions and Latin amounts.
//
//	dd/mm/yyyy;GLOSA;DOCUMENTO;CARGO;ABONO;SALDO
type AndesParser struct{}

const andesNumFields = 6

// Format returns the parser name.
func (p *AndesParser) Format() string { return "andes" }

// Parse reads semicolon-delimited cartola lines into drafts.
func (p *AndesParser) Parse(r io.Reader) ([]TransactionDraft, []RowError, error) {
	scanner := bufio.NewScanner(r)

	var drafts []TransactionDraft
	var rowErrs []RowError
	line := 0
	first := true

	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		draft, err := p.parseLine(raw)
		if err != nil {
			// The first line is usually a header; drop it silently.
			if !first {
				rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			}
			first = false
			continue
		}
		first = false
		drafts = append(drafts, draft)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, &FormatError{Format: p.Format(), Reason: err.Error()}
	}
	return drafts, rowErrs, nil
}

func (p *AndesParser) parseLine(raw string) (TransactionDraft, error) {
	fields := strings.Split(raw, ";")
	if len(fields) != andesNumFields {
		return TransactionDraft{}, fmt.Errorf("expected %d fields, got %d", andesNumFields, len(fields))
	}

	date, err := ParseDate(fields[0])
	if err != nil {
		return TransactionDraft{}, err
	}

	amount := decimal.Zero
	if cargo := strings.TrimSpace(fields[3]); cargo != "" {
		d, err := ParseAmount(cargo)
		if err != nil {
			return TransactionDraft{}, fmt.Errorf("cargo: %w", err)
		}
		amount = amount.Sub(d.Abs())
	}
	if abono := strings.TrimSpace(fields[4]); abono != "" {
		d, err := ParseAmount(abono)
		if err != nil {
			return TransactionDraft{}, fmt.Errorf("abono: %w", err)
		}
		amount = amount.Add(d.Abs())
	}
	if amount.IsZero() {
		return TransactionDraft{}, fmt.Errorf("line has neither cargo nor abono")
	}

	draft := TransactionDraft{
		Date:        date,
		Description: fields[1],
		Amount:      amount,
		Reference:   fields[2],
	}
	if saldo := strings.TrimSpace(fields[5]); saldo != "" {
		balance, err := ParseAmount(saldo)
		if err != nil {
			return TransactionDraft{}, fmt.Errorf("saldo: %w", err)
		}
		draft.Balance = decimal.NewNullDecimal(balance)
	}
	draft.finalize()
	return draft, nil
}

// CartolaTextParser reads free-form cartola text where each movement is one
// pattern-matched line: a date, a description, a signed amount (trailing
// minus marks a debit) and an optional running balance.
//
//	01/03/2024 PAGO CLIENTE ABC 150.000 1.250.000
type CartolaTextParser struct{}

var (
	cartolaDateStart = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}\b`)
	cartolaLine      = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{4})\s+(.*?)\s+(-?[\d.,]+-?)(?:\s+(-?[\d.,]+))?\s*$`)
)

// Format returns the parser name.
func (p *CartolaTextParser) Format() string { return "cartola" }

// Parse pattern-matches movement lines; lines not starting with a date are
// headers or footers and are dropped silently.
func (p *CartolaTextParser) Parse(r io.Reader) ([]TransactionDraft, []RowError, error) {
	scanner := bufio.NewScanner(r)

	var drafts []TransactionDraft
	var rowErrs []RowError
	line := 0

	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || !cartolaDateStart.MatchString(raw) {
			continue
		}
		m := cartolaLine.FindStringSubmatch(raw)
		if m == nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "line does not match movement pattern"})
			continue
		}

		date, err := ParseDate(m[1])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		amount, err := ParseAmount(m[3])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}

		draft := TransactionDraft{
			Date:        date,
			Description: m[2],
			Amount:      amount,
		}
		if m[4] != "" {
			balance, err := ParseAmount(m[4])
			if err != nil {
				rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
				continue
			}
			draft.Balance = decimal.NewNullDecimal(balance)
		}
		draft.finalize()
		drafts = append(drafts, draft)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, &FormatError{Format: p.Format(), Reason: err.Error()}
	}
	return drafts, rowErrs, nil
}
