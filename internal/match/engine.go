// Package match scores bank transactions against candidate business
// records. The engine is pure: it never persists anything, so linking a
// match is always a separate, explicit step.
package match

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/model"
)

// Candidate is one business record offered to the engine. Amount is an
// unsigned magnitude like the transaction's.
type Candidate struct {
	Kind      model.MatchableKind
	ID        string
	Name      string
	Reference string
	Amount    decimal.Decimal
	Date      time.Time
	// DueDate is set for invoices; the date signal measures whichever of
	// Date and DueDate lies closer to the transaction.
	DueDate *time.Time
}

// Scored is a candidate with its confidence breakdown.
type Scored struct {
	Candidate
	Confidence float64
	Method     string
	Signals    map[string]float64
}

// Result is the outcome of FindMatch. When no candidate clears the
// confidence floor, Match is nil and Suggestions carries the closest
// misses for manual review.
type Result struct {
	Match        *Scored
	Alternatives []Scored
	Suggestions  []Scored
}

// Options tunes one FindMatch call.
type Options struct {
	// MinConfidence overrides the engine default when > 0.
	MinConfidence float64
}

const maxAlternatives = 3

// Engine scores transactions against candidates using configured weights.
type Engine struct {
	cfg config.Matching
}

// NewEngine creates an Engine with the given tuning.
func NewEngine(cfg config.Matching) *Engine {
	return &Engine{cfg: cfg}
}

// FindMatch scores every candidate in the pool, discards those below the
// confidence floor, and returns the best match with up to three
// alternatives. Ties on confidence break toward the nearest date.
func (e *Engine) FindMatch(txn model.Transaction, pool []Candidate, opts Options) Result {
	minConfidence := opts.MinConfidence
	if minConfidence <= 0 {
		minConfidence = e.cfg.MinConfidence
	}

	scored := make([]Scored, 0, len(pool))
	for _, c := range pool {
		scored = append(scored, e.Score(txn, c))
	}
	sortScored(scored, txn.Date)

	var eligible []Scored
	for _, s := range scored {
		if s.Confidence >= minConfidence {
			eligible = append(eligible, s)
		}
	}

	if len(eligible) == 0 {
		n := len(scored)
		if n > maxAlternatives {
			n = maxAlternatives
		}
		return Result{Suggestions: scored[:n]}
	}

	alternatives := eligible[1:]
	if len(alternatives) > maxAlternatives {
		alternatives = alternatives[:maxAlternatives]
	}
	return Result{Match: &eligible[0], Alternatives: alternatives}
}

// Score computes the weighted confidence of one candidate. The result is
// deterministic for identical inputs and rounded to four decimals so
// re-scoring a re-created match reproduces the stored confidence.
func (e *Engine) Score(txn model.Transaction, c Candidate) Scored {
	kindCfg := e.cfg.ForKind(c.Kind)
	w := kindCfg.Weights

	signals := map[string]float64{
		"amount":       amountScore(txn.Amount, c.Amount),
		"date":         dateScore(txn.Date, c, kindCfg.DateWindowDays),
		"reference":    referenceScore(txn.Reference, c.Reference),
		"counterparty": counterpartyScore(txn.Description, c.Name, e.cfg.SimilarityThreshold),
	}

	confidence := w.Amount*signals["amount"] +
		w.Date*signals["date"] +
		w.Reference*signals["reference"] +
		w.Counterparty*signals["counterparty"]
	confidence = math.Round(math.Min(math.Max(confidence, 0), 1)*1e4) / 1e4

	return Scored{
		Candidate:  c,
		Confidence: confidence,
		Method:     method(signals),
		Signals:    signals,
	}
}

// method names the signals that carried the match, e.g. "amount+date".
func method(signals map[string]float64) string {
	var parts []string
	for _, name := range []string{"amount", "date", "reference", "counterparty"} {
		if signals[name] >= 0.5 {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return "weak"
	}
	return strings.Join(parts, "+")
}

// amountScore decays linearly with the relative amount difference.
func amountScore(txnAmount, candAmount decimal.Decimal) float64 {
	if txnAmount.IsZero() {
		if candAmount.IsZero() {
			return 1
		}
		return 0
	}
	ratio, _ := txnAmount.Sub(candAmount).Abs().Div(txnAmount).Float64()
	return math.Max(0, 1-ratio)
}

// dateScore decays linearly to zero over the kind's window.
func dateScore(txnDate time.Time, c Candidate, windowDays int) float64 {
	days := daysApart(txnDate, c.Date)
	if c.DueDate != nil {
		if alt := daysApart(txnDate, *c.DueDate); alt < days {
			days = alt
		}
	}
	if windowDays <= 0 {
		windowDays = 1
	}
	return math.Max(0, 1-float64(days)/float64(windowDays))
}

func daysApart(a, b time.Time) float64 {
	return math.Abs(a.Sub(b).Hours()) / 24
}

// referenceScore: 1 for exact normalized equality, 0.5 when one contains
// the other, else 0.
func referenceScore(txnRef, candRef string) float64 {
	a := NormalizeReference(txnRef)
	b := NormalizeReference(candRef)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.5
	}
	return 0
}

// counterpartyScore: 1 on exact or substring match of the normalized
// description against the counterparty name, or when the character
// similarity clears the configured ratio; else 0.
func counterpartyScore(description, name string, similarityThreshold float64) float64 {
	a := NormalizeCounterparty(description)
	b := NormalizeCounterparty(name)
	if a == "" || b == "" {
		return 0
	}
	if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
		return 1
	}
	if similarityRatio(a, b) > similarityThreshold {
		return 1
	}
	return 0
}

// sortScored orders by confidence descending, breaking ties toward the
// candidate date nearest the transaction.
func sortScored(scored []Scored, txnDate time.Time) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Confidence != scored[j].Confidence {
			return scored[i].Confidence > scored[j].Confidence
		}
		return daysApart(txnDate, scored[i].Date) < daysApart(txnDate, scored[j].Date)
	})
}
