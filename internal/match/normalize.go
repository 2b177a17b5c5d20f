package match

import (
	"strings"
	"unicode"
)

// legalStopwords are entity-type suffixes dropped from counterparty names
// before comparison. Words of two characters or fewer are dropped anyway,
// which covers "sa", "de" and friends.
var legalStopwords = map[string]bool{
	"ltda":     true,
	"spa":      true,
	"eirl":     true,
	"srl":      true,
	"limitada": true,
	"sociedad": true,
	"anonima":  true,
	"inc":      true,
	"llc":      true,
	"ltd":      true,
	"corp":     true,
}

// NormalizeReference uppercases and keeps only alphanumerics, so
// "ref-1042" and "REF 1042" compare equal.
func NormalizeReference(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeCounterparty lowercases, splits on non-alphanumerics, and drops
// legal-entity stopwords and words of two characters or fewer.
func NormalizeCounterparty(s string) string {
	lower := strings.ToLower(s)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	kept := words[:0]
	for _, w := range words {
		if len(w) <= 2 || legalStopwords[w] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// similarityRatio is 1 minus the normalized Levenshtein distance.
func similarityRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
