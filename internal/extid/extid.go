// Package extid derives deterministic identifiers for imported statement
// lines. The external id is the dedup key: re-parsing identical raw input
// must always produce the same id.
package extid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateFormat = "2006-01-02"

// Compute returns the external id for a statement line, a hash of
// (date, reference, amount). The amount is normalized to two decimal
// places so "150000" and "150000.00" hash identically.
func Compute(date time.Time, reference string, amount decimal.Decimal) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", date.Format(dateFormat), strings.TrimSpace(reference), amount.StringFixed(2))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Placeholder builds a reference for rows that carry none, derived from
// date and amount like "gen_20240301_7f3a9b".
func Placeholder(date time.Time, amount decimal.Decimal) string {
	h := sha256.Sum256([]byte(date.Format(dateFormat) + "|" + amount.StringFixed(2)))
	return fmt.Sprintf("gen_%s_%s", date.Format("20060102"), hex.EncodeToString(h[:])[:6])
}
