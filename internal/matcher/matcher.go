// Package matcher links parsed transactions to the user's recurring
// templates by normalized description.
package matcher

import (
	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/normalize"
)

// Matched is a transaction after template matching. Template is nil when
// no active template matched.
type Matched struct {
	Tx       model.ParsedTransaction
	Template *model.RecurringTemplate
}

// Matcher holds a set of active templates with precomputed keys.
type Matcher struct {
	templates []model.RecurringTemplate
	keys      []string
}

// New builds a Matcher over templates, keeping their order. Inactive
// templates are ignored.
func New(templates []model.RecurringTemplate) *Matcher {
	m := &Matcher{}
	for _, t := range templates {
		if !t.Active {
			continue
		}
		m.templates = append(m.templates, t)
		m.keys = append(m.keys, normalize.Normalize(t.Description))
	}
	return m
}

// Match returns the first template whose normalized description is equal
// to, contains, or is contained in the transaction's.
func (m *Matcher) Match(tx model.ParsedTransaction) (model.RecurringTemplate, bool) {
	key := normalize.Normalize(tx.Description)
	for i, k := range m.keys {
		if normalize.SimilarKeys(key, k) {
			return m.templates[i], true
		}
	}
	return model.RecurringTemplate{}, false
}

// Apply matches every transaction. A matched transaction becomes a
// FixedExpense with the template's category. The input is not modified.
func (m *Matcher) Apply(txs []model.ParsedTransaction) []Matched {
	out := make([]Matched, 0, len(txs))
	for _, tx := range txs {
		tpl, ok := m.Match(tx)
		if !ok {
			out = append(out, Matched{Tx: tx})
			continue
		}
		tx.Kind = model.KindFixedExpense
		tx.Category = tpl.Category
		out = append(out, Matched{Tx: tx, Template: &tpl})
	}
	return out
}

// Apply is New(templates).Apply(txs).
func Apply(txs []model.ParsedTransaction, templates []model.RecurringTemplate) []Matched {
	return New(templates).Apply(txs)
}
