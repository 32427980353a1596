// Package dedup decides whether a parsed transaction is already in the
// ledger.
package dedup

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/extracto-dev/extracto/internal/matcher"
	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/normalize"
)

// Tolerance is the largest amount difference still considered the same
// amount. The bound is inclusive.
var Tolerance = decimal.New(1, -2)

// Result partitions a batch. Duplicates are returned to the caller, not
// discarded, so the user can override.
type Result struct {
	ToImport   []matcher.Matched
	Duplicates []matcher.Matched
}

// IsDuplicate reports whether m already exists in existing.
//
// Rule A: same day, same signed amount and the same description ignoring
// case. Rule B, only for FixedExpense: same month and absolute amount, and
// either both
// relate to the matched template, their descriptions are similar, or the
// existing row is also a FixedExpense.
func IsDuplicate(m matcher.Matched, existing []model.LedgerTransaction) bool {
	desc := strings.TrimSpace(m.Tx.Description)
	key := normalize.Normalize(m.Tx.Description)
	var tplKey string
	if m.Template != nil {
		tplKey = normalize.Normalize(m.Template.Description)
	}

	for _, e := range existing {
		if sameAmount(m.Tx.Amount, e.Amount) && model.SameDay(m.Tx.Date, e.Date) &&
			strings.EqualFold(desc, strings.TrimSpace(e.Description)) {
			return true
		}
		if m.Tx.Kind != model.KindFixedExpense || !model.SameMonth(m.Tx.Date, e.Date) ||
			!sameAmount(m.Tx.Amount.Abs(), e.Amount.Abs()) {
			continue
		}
		ek := normalize.Normalize(e.Description)
		switch {
		case tplKey != "" && relates(ek, tplKey):
			return true
		case normalize.SimilarKeys(key, ek):
			return true
		case e.Kind == model.KindFixedExpense:
			return true
		}
	}
	return false
}

// Partition splits ms into rows to import and duplicates, preserving order.
func Partition(ms []matcher.Matched, existing []model.LedgerTransaction) Result {
	var r Result
	for _, m := range ms {
		if IsDuplicate(m, existing) {
			r.Duplicates = append(r.Duplicates, m)
		} else {
			r.ToImport = append(r.ToImport, m)
		}
	}
	return r
}

func sameAmount(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// relates reports whether an existing row's key equals or contains the
// template's key.
func relates(existingKey, templateKey string) bool {
	if existingKey == templateKey {
		return true
	}
	return utf8.RuneCountInString(templateKey) > normalize.MinContainLen &&
		strings.Contains(existingKey, templateKey)
}
