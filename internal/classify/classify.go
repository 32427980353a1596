// Package classify guesses a transaction's Category and Kind from keyword
// heuristics over its description.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/normalize"
)

// CategoryRule maps a description pattern to a Category.
type CategoryRule struct {
	Name     string
	Category model.Category
	Regex    string
}

// KindRule maps a description pattern to a Kind.
type KindRule struct {
	Name  string
	Kind  model.Kind
	Regex string
}

type compiledCategory struct {
	re       *regexp.Regexp
	category model.Category
}

type compiledKind struct {
	re   *regexp.Regexp
	kind model.Kind
}

// Classifier evaluates ordered rule tables. The first matching rule wins.
type Classifier struct {
	investment *regexp.Regexp
	categories []compiledCategory
	kinds      []compiledKind
}

// New compiles the given rule tables. Patterns are matched against the
// uppercased description.
func New(investment string, categories []CategoryRule, kinds []KindRule) (*Classifier, error) {
	c := &Classifier{}

	re, err := regexp.Compile(investment)
	if err != nil {
		return nil, fmt.Errorf("compiling investment pattern: %w", err)
	}
	c.investment = re

	for _, r := range categories {
		if !r.Category.Valid() {
			return nil, fmt.Errorf("rule %q: unknown category %q", r.Name, r.Category)
		}
		re, err := regexp.Compile(r.Regex)
		if err != nil {
			return nil, fmt.Errorf("compiling rule %q: %w", r.Name, err)
		}
		c.categories = append(c.categories, compiledCategory{re: re, category: r.Category})
	}

	for _, r := range kinds {
		if !r.Kind.Valid() {
			return nil, fmt.Errorf("rule %q: unknown kind %q", r.Name, r.Kind)
		}
		re, err := regexp.Compile(r.Regex)
		if err != nil {
			return nil, fmt.Errorf("compiling rule %q: %w", r.Name, err)
		}
		c.kinds = append(c.kinds, compiledKind{re: re, kind: r.Kind})
	}

	return c, nil
}

// Default returns a Classifier over the built-in rule tables.
func Default() *Classifier {
	c, err := New(DefaultInvestmentRegex, DefaultCategoryRules(), DefaultKindRules())
	if err != nil {
		panic(err)
	}
	return c
}

// Category returns the first matching rule's category, or CategoryOther.
func (c *Classifier) Category(desc string) model.Category {
	up := strings.ToUpper(desc)
	for _, r := range c.categories {
		if r.re.MatchString(up) {
			return r.category
		}
	}
	return model.CategoryOther
}

// Kind returns the transaction kind. Investment platforms win over the
// amount sign; any other positive amount is Income.
func (c *Classifier) Kind(desc string, amount decimal.Decimal) model.Kind {
	up := strings.ToUpper(desc)
	if c.investment.MatchString(up) {
		return model.KindInvestment
	}
	if amount.IsPositive() {
		return model.KindIncome
	}
	for _, r := range c.kinds {
		if r.re.MatchString(up) {
			return r.kind
		}
	}
	return model.KindVariableExpense
}

// Classify fills in Category and Kind for a transaction.
func (c *Classifier) Classify(tx model.ParsedTransaction) model.ParsedTransaction {
	tx.Kind = c.Kind(tx.Description, tx.Amount)
	tx.Category = c.Category(tx.Description)
	return tx
}

// Learned indexes learning rules by normalized description.
type Learned map[string]model.LearningRule

// NewLearned builds an index over rules. Later rules for the same pattern
// replace earlier ones.
func NewLearned(rules []model.LearningRule) Learned {
	l := make(Learned, len(rules))
	for _, r := range rules {
		l[normalize.Normalize(r.Pattern)] = r
	}
	return l
}

// Apply overrides the guessed category and kind when the user previously
// corrected a transaction with the same normalized description.
func (l Learned) Apply(tx model.ParsedTransaction) model.ParsedTransaction {
	r, ok := l[normalize.Normalize(tx.Description)]
	if !ok {
		return tx
	}
	if r.Category.Valid() {
		tx.Category = r.Category
	}
	if r.Kind.Valid() {
		tx.Kind = r.Kind
	}
	return tx
}
