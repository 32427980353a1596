package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/extracto-dev/extracto/internal/model"
)

func template(id string, amount string) model.RecurringTemplate {
	return model.RecurringTemplate{
		ID:              id,
		Description:     id,
		EstimatedAmount: dec(amount),
		Category:        model.CategoryHousing,
		Active:          true,
	}
}

func ids(ts []model.RecurringTemplate) []string {
	var out []string
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func TestApplicable(t *testing.T) {
	summer := template("summer", "10")
	summer.Months = []int{6, 7, 8}

	future := template("future", "10")
	future.StartDate = ptr(date(2024, 4, 10))

	ended := template("ended", "10")
	ended.EndDate = ptr(date(2024, 2, 29))

	endsInMarch := template("ends-march", "10")
	endsInMarch.EndDate = ptr(date(2024, 3, 1))

	inactive := template("inactive", "10")
	inactive.Active = false

	templates := []model.RecurringTemplate{
		template("always", "10"), summer, future, ended, endsInMarch, inactive, template("skipped", "10"),
	}
	exclusions := []model.Exclusion{
		{TemplateID: "skipped", Month: date(2024, 3, 1)},
		{TemplateID: "always", Month: date(2024, 4, 1)},
	}

	got := Applicable(templates, exclusions, date(2024, 3, 17))
	assert.Equal(t, []string{"always", "ends-march"}, ids(got))

	got = Applicable(templates, exclusions, date(2024, 7, 1))
	assert.Equal(t, []string{"always", "summer", "future", "skipped"}, ids(got))
}

func TestSummarize(t *testing.T) {
	rows := []model.LedgerTransaction{
		{Amount: dec("2100"), Kind: model.KindIncome, Category: model.CategoryWork},
		{Amount: dec("-450"), Kind: model.KindFixedExpense, Category: model.CategoryHousing},
		{Amount: dec("-62.47"), Kind: model.KindVariableExpense, Category: model.CategorySupermarket},
		{Amount: dec("-200"), Kind: model.KindInvestment, Category: model.CategoryInvestment},
		{Amount: dec("-50"), Kind: model.KindVariableExpense, Category: model.CategoryInvestment},
		{Amount: dec("37.53"), Kind: model.KindVariableExpense, Category: model.CategorySupermarket},
	}
	s := Summarize(rows)
	assert.Equal(t, "2100.00", s.Income.StringFixed(2))
	assert.Equal(t, "550.00", s.Expenses.StringFixed(2))
	assert.Equal(t, "250.00", s.Investments.StringFixed(2))
	assert.Equal(t, "1550.00", s.Savings.StringFixed(2))
	assert.Equal(t, "100.00", s.ByCategory[model.CategorySupermarket].StringFixed(2))
	assert.Equal(t, "450.00", s.ByCategory[model.CategoryHousing].StringFixed(2))
}

func TestPending(t *testing.T) {
	due := []model.RecurringTemplate{template("rent", "700"), template("gym", "30")}
	rows := []model.LedgerTransaction{{RecurringID: "rent"}, {Description: "unlinked"}}
	assert.Equal(t, []string{"gym"}, ids(Pending(due, rows)))
}

func TestSignedAmount(t *testing.T) {
	assert.Equal(t, "12.99", SignedAmount(dec("-12.99"), model.KindIncome).String())
	assert.Equal(t, "-12.99", SignedAmount(dec("12.99"), model.KindFixedExpense).String())
	assert.Equal(t, "-200", SignedAmount(dec("-200"), model.KindInvestment).String())
}

func ptr[T any](v T) *T { return &v }

