package statement

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// OFXParser reads the tagged SGML bank-export format. Transactions are
// <STMTTRN> blocks with one tag per line; values may or may not carry a
// closing tag.
type OFXParser struct{}

// Format returns the parser name.
func (p *OFXParser) Format() string { return "ofx" }

// Parse scans STMTTRN blocks and converts each to a draft.
func (p *OFXParser) Parse(r io.Reader) ([]TransactionDraft, []RowError, error) {
	scanner := bufio.NewScanner(r)

	var drafts []TransactionDraft
	var rowErrs []RowError
	var fields map[string]string
	blocks := 0
	line := 0

	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		switch {
		case strings.EqualFold(raw, "<STMTTRN>"):
			blocks++
			fields = make(map[string]string)
		case strings.EqualFold(raw, "</STMTTRN>"):
			if fields == nil {
				continue
			}
			draft, err := p.buildDraft(fields)
			if err != nil {
				rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			} else {
				drafts = append(drafts, draft)
			}
			fields = nil
		default:
			if fields == nil {
				continue
			}
			tag, value, ok := splitTag(raw)
			if ok {
				fields[tag] = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, &FormatError{Format: p.Format(), Reason: err.Error()}
	}
	if blocks == 0 {
		return nil, nil, &FormatError{Format: p.Format(), Reason: "no STMTTRN records"}
	}
	return drafts, rowErrs, nil
}

func (p *OFXParser) buildDraft(fields map[string]string) (TransactionDraft, error) {
	posted := fields["DTPOSTED"]
	if len(posted) < 8 {
		return TransactionDraft{}, fmt.Errorf("missing DTPOSTED")
	}
	// DTPOSTED may carry time and timezone after the date: 20240301120000[-4:CLT].
	date, err := time.Parse("20060102", posted[:8])
	if err != nil {
		return TransactionDraft{}, fmt.Errorf("parsing DTPOSTED %q: %w", posted, err)
	}

	amount, err := ParseAmount(fields["TRNAMT"])
	if err != nil {
		return TransactionDraft{}, fmt.Errorf("TRNAMT: %w", err)
	}

	description := fields["NAME"]
	if memo := fields["MEMO"]; memo != "" {
		if description == "" {
			description = memo
		} else {
			description += " " + memo
		}
	}

	reference := fields["FITID"]
	if reference == "" {
		reference = fields["CHECKNUM"]
	}

	draft := TransactionDraft{
		Date:        date,
		Description: description,
		Amount:      amount,
		Reference:   reference,
	}
	draft.finalize()
	return draft, nil
}

// splitTag reads one "<TAG>value" line, dropping a trailing closing tag
// when present.
func splitTag(line string) (tag, value string, ok bool) {
	if !strings.HasPrefix(line, "<") {
		return "", "", false
	}
	end := strings.Index(line, ">")
	if end < 2 {
		return "", "", false
	}
	tag = strings.ToUpper(line[1:end])
	if strings.HasPrefix(tag, "/") {
		return "", "", false
	}
	value = line[end+1:]
	if close := strings.Index(value, "</"); close >= 0 {
		value = value[:close]
	}
	return tag, strings.TrimSpace(value), true
}
