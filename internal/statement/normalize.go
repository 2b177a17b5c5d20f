package statement

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// datePatterns are tried in order; day-first locales win over US month-first,
// which only kicks in when the day-first read is impossible (month > 12).
var datePatterns = []string{
	"2/1/2006",
	"2-1-2006",
	"2006-1-2",
	"2.1.2006",
	"20060102",
	"2006/1/2",
	"1/2/2006",
}

// ParseDate tries the known locale date patterns in order; the first
// successful parse wins.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, pattern := range datePatterns {
		if t, err := time.Parse(pattern, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseAmount normalizes a locale-formatted amount string. It strips
// everything but digits, separators and the sign, then disambiguates the
// decimal separator: "1.234,56" is Latin, "1,234.56" is US, and a single
// separator followed by exactly three digits is read as a thousands group
// ("150.000" -> 150000), otherwise as a decimal point.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		default:
			return -1
		}
	}, s)

	negative := strings.Contains(cleaned, "-")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("no digits in amount %q", s)
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// Latin: dots group thousands, comma is the decimal mark.
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			// US: commas group thousands.
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		cleaned = resolveSingleSeparator(cleaned, ",", lastComma)
	case lastDot >= 0:
		cleaned = resolveSingleSeparator(cleaned, ".", lastDot)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// resolveSingleSeparator decides whether sep marks thousands or decimals in
// a string containing only that separator kind.
func resolveSingleSeparator(s, sep string, last int) string {
	if strings.Count(s, sep) > 1 {
		// Repeated separators can only be thousands grouping.
		return strings.ReplaceAll(s, sep, "")
	}
	if len(s)-last-1 == 3 && s[:last] != "0" && s[:last] != "" {
		// Triple grouping: "1,234" / "150.000" are thousands. A lone
		// zero before the separator can only mean a decimal: "0.500".
		return strings.ReplaceAll(s, sep, "")
	}
	return s[:last] + "." + s[last+1:]
}

// categoryKeywords maps description keywords to category hints. Order
// matters: the first hit wins.
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"transfer", []string{"transferencia", "transfer", "traspaso", "giro"}},
	{"fee", []string{"comision", "commission", "fee", "mantencion"}},
	{"tax", []string{"impuesto", "iva", "tax", "tesoreria"}},
	{"payroll", []string{"remuneracion", "sueldo", "nomina", "payroll", "salary"}},
	{"card", []string{"tarjeta", "card", "pos"}},
	{"interest", []string{"interes", "interest"}},
	{"check", []string{"cheque", "check"}},
}

// Categorize returns a keyword-based category hint for a description.
// The hint is informational only; matching never depends on it.
func Categorize(description string) string {
	lower := strings.ToLower(description)
	for _, entry := range categoryKeywords {
		for _, w := range entry.words {
			if strings.Contains(lower, w) {
				return entry.category
			}
		}
	}
	return "other"
}
