package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "extracto.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return model.Day(y, m, d)
}

func ptr[T any](v T) *T { return &v }

func ledgerRow(user string, d time.Time, desc, amount string, kind model.Kind) model.LedgerTransaction {
	return model.LedgerTransaction{
		UserID:        user,
		Date:          d,
		Description:   desc,
		Amount:        dec(amount),
		Category:      model.CategoryOther,
		Kind:          kind,
		PaymentMethod: model.PaymentCard,
	}
}

func TestOpen_Migrates(t *testing.T) {
	s := newTestStore(t)
	var v int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&v))
	assert.Equal(t, SchemaVersion, v)

	// Reopening an up-to-date database is a no-op.
	require.NoError(t, s.Migrate(context.Background()))
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestTransactions_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rows := []model.LedgerTransaction{
		ledgerRow("u1", date(2024, 3, 5), "MERCADONA", "-62.47", model.KindVariableExpense),
		ledgerRow("u1", date(2024, 3, 1), "NOMINA", "2100", model.KindIncome),
		ledgerRow("u1", date(2024, 4, 1), "NOMINA", "2100", model.KindIncome),
		ledgerRow("u2", date(2024, 3, 2), "OTHER USER", "-1", model.KindVariableExpense),
	}
	rows[0].Notes = "weekly shop"
	stored, err := s.InsertTransactions(ctx, rows)
	require.NoError(t, err)
	require.Len(t, stored, 4)
	for _, r := range stored {
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.CreatedAt.IsZero())
	}

	got, err := s.FindTransactions(ctx, TxFilter{
		UserID: "u1",
		From:   ptr(date(2024, 3, 1)),
		To:     ptr(date(2024, 3, 31)),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "NOMINA", got[0].Description)
	assert.Equal(t, "MERCADONA", got[1].Description)
	assert.True(t, dec("-62.47").Equal(got[1].Amount))
	assert.Equal(t, date(2024, 3, 5), got[1].Date)
	assert.Equal(t, "weekly shop", got[1].Notes)
	assert.Equal(t, model.PaymentCard, got[1].PaymentMethod)

	income, err := s.FindTransactions(ctx, TxFilter{UserID: "u1", Kind: model.KindIncome})
	require.NoError(t, err)
	assert.Len(t, income, 2)
}

func TestTransactions_FindRequiresUser(t *testing.T) {
	_, err := newTestStore(t).FindTransactions(context.Background(), TxFilter{})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestTransactions_InsertIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := ledgerRow("u1", date(2024, 3, 5), "A", "-1", model.KindVariableExpense)
	first.ID = "dup"
	second := ledgerRow("u1", date(2024, 3, 6), "B", "-2", model.KindVariableExpense)
	second.ID = "dup"

	_, err := s.InsertTransactions(ctx, []model.LedgerTransaction{first, second})
	require.Error(t, err)

	got, err := s.FindTransactions(ctx, TxFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTransactions_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	stored, err := s.InsertTransactions(ctx, []model.LedgerTransaction{
		ledgerRow("u1", date(2024, 3, 5), "GYM 03/24", "-30", model.KindFixedExpense),
	})
	require.NoError(t, err)
	txID := stored[0].ID

	require.NoError(t, s.UpdateTransaction(ctx, "u1", txID, TxPatch{
		Description: ptr("GYM"),
		RecurringID: ptr("tpl-1"),
		Category:    ptr(model.CategoryHealth),
	}))

	got, err := s.FindTransactions(ctx, TxFilter{UserID: "u1", RecurringID: "tpl-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GYM", got[0].Description)
	assert.Equal(t, model.CategoryHealth, got[0].Category)

	require.NoError(t, s.UpdateTransaction(ctx, "u1", txID, TxPatch{
		Date:          ptr(date(2024, 3, 7)),
		PaymentMethod: ptr(model.PaymentDirectDebit),
	}))
	one, err := s.GetTransaction(ctx, "u1", txID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 7), one.Date)
	assert.Equal(t, model.PaymentDirectDebit, one.PaymentMethod)
	assert.Equal(t, "GYM", one.Description)

	_, err = s.GetTransaction(ctx, "u2", txID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = s.UpdateTransaction(ctx, "u2", txID, TxPatch{Description: ptr("x")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, s.DeleteTransaction(ctx, "u1", txID))
	assert.ErrorIs(t, s.DeleteTransaction(ctx, "u1", txID), apperr.ErrNotFound)
	_, err = s.GetTransaction(ctx, "u1", txID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTransactions_DeleteAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.InsertTransactions(ctx, []model.LedgerTransaction{
		ledgerRow("u1", date(2024, 3, 5), "A", "-1", model.KindVariableExpense),
		ledgerRow("u1", date(2024, 3, 6), "B", "-2", model.KindVariableExpense),
		ledgerRow("u2", date(2024, 3, 6), "C", "-3", model.KindVariableExpense),
	})
	require.NoError(t, err)

	n, err := s.DeleteAllTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	other, err := s.FindTransactions(ctx, TxFilter{UserID: "u2"})
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestTemplates_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	start := date(2024, 1, 15)
	gym, err := s.InsertTemplate(ctx, model.RecurringTemplate{
		UserID:          "u1",
		Description:     "GYM",
		EstimatedAmount: dec("30"),
		Category:        model.CategoryHealth,
		Months:          []int{1, 2, 3},
		BillingDay:      15,
		Active:          true,
		StartDate:       &start,
	})
	require.NoError(t, err)
	require.NotEmpty(t, gym.ID)

	_, err = s.InsertTemplate(ctx, model.RecurringTemplate{
		UserID: "u1", Description: "NETFLIX", EstimatedAmount: dec("12.99"),
		Category: model.CategorySubscriptions, BillingDay: 2, Active: false,
	})
	require.NoError(t, err)

	all, err := s.FindTemplates(ctx, TemplateFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "NETFLIX", all[0].Description)
	assert.Empty(t, all[0].Months)
	assert.Nil(t, all[0].StartDate)

	active, err := s.FindTemplates(ctx, TemplateFilter{UserID: "u1", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, []int{1, 2, 3}, active[0].Months)
	require.NotNil(t, active[0].StartDate)
	assert.Equal(t, start, *active[0].StartDate)

	gym.Description = "GYM PLUS"
	gym.EstimatedAmount = dec("35")
	require.NoError(t, s.UpdateTemplate(ctx, gym))
	got, err := s.GetTemplate(ctx, "u1", gym.ID)
	require.NoError(t, err)
	assert.Equal(t, "GYM PLUS", got.Description)
	assert.True(t, dec("35").Equal(got.EstimatedAmount))

	_, err = s.GetTemplate(ctx, "u2", gym.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTemplates_RelinkAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	keep, err := s.InsertTemplate(ctx, model.RecurringTemplate{UserID: "u1", Description: "GYM", EstimatedAmount: dec("30"), Category: model.CategoryHealth, BillingDay: 1, Active: true})
	require.NoError(t, err)
	extra, err := s.InsertTemplate(ctx, model.RecurringTemplate{UserID: "u1", Description: "GYM", EstimatedAmount: dec("30"), Category: model.CategoryHealth, BillingDay: 1, Active: true})
	require.NoError(t, err)

	row := ledgerRow("u1", date(2024, 3, 1), "GYM", "-30", model.KindFixedExpense)
	row.RecurringID = extra.ID
	_, err = s.InsertTransactions(ctx, []model.LedgerTransaction{row})
	require.NoError(t, err)

	_, err = s.InsertExclusion(ctx, model.Exclusion{UserID: "u1", TemplateID: extra.ID, Month: date(2024, 5, 20)})
	require.NoError(t, err)

	n, err := s.RelinkTransactions(ctx, "u1", extra.ID, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.DeleteTemplate(ctx, "u1", extra.ID))
	assert.ErrorIs(t, s.DeleteTemplate(ctx, "u1", extra.ID), apperr.ErrNotFound)

	linked, err := s.FindTransactions(ctx, TxFilter{UserID: "u1", RecurringID: keep.ID})
	require.NoError(t, err)
	assert.Len(t, linked, 1)

	excl, err := s.FindExclusions(ctx, "u1", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, excl)
}

func TestExclusions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tpl, err := s.InsertTemplate(ctx, model.RecurringTemplate{UserID: "u1", Description: "GYM", EstimatedAmount: dec("30"), Category: model.CategoryHealth, BillingDay: 1, Active: true})
	require.NoError(t, err)

	first, err := s.InsertExclusion(ctx, model.Exclusion{UserID: "u1", TemplateID: tpl.ID, Month: date(2024, 5, 20)})
	require.NoError(t, err)
	assert.Equal(t, date(2024, 5, 1), first.Month)

	again, err := s.InsertExclusion(ctx, model.Exclusion{UserID: "u1", TemplateID: tpl.ID, Month: date(2024, 5, 2)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	may, err := s.FindExclusions(ctx, "u1", date(2024, 5, 31))
	require.NoError(t, err)
	require.Len(t, may, 1)
	assert.Equal(t, tpl.ID, may[0].TemplateID)

	june, err := s.FindExclusions(ctx, "u1", date(2024, 6, 1))
	require.NoError(t, err)
	assert.Empty(t, june)

	_, err = s.InsertExclusion(ctx, model.Exclusion{UserID: "u1", TemplateID: "missing", Month: date(2024, 5, 1)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExclusions_Move(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	keep, err := s.InsertTemplate(ctx, model.RecurringTemplate{UserID: "u1", Description: "GYM", EstimatedAmount: dec("30"), Category: model.CategoryHealth, BillingDay: 1, Active: true})
	require.NoError(t, err)
	extra, err := s.InsertTemplate(ctx, model.RecurringTemplate{UserID: "u1", Description: "GYM", EstimatedAmount: dec("30"), Category: model.CategoryHealth, BillingDay: 1, Active: true})
	require.NoError(t, err)

	for _, e := range []model.Exclusion{
		{UserID: "u1", TemplateID: keep.ID, Month: date(2024, 5, 1)},
		{UserID: "u1", TemplateID: extra.ID, Month: date(2024, 5, 1)},
		{UserID: "u1", TemplateID: extra.ID, Month: date(2024, 8, 1)},
	} {
		_, err := s.InsertExclusion(ctx, e)
		require.NoError(t, err)
	}

	n, err := s.MoveExclusions(ctx, "u1", extra.ID, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, s.DeleteTemplate(ctx, "u1", extra.ID))

	excl, err := s.FindExclusions(ctx, "u1", time.Time{})
	require.NoError(t, err)
	require.Len(t, excl, 2)
	assert.Equal(t, date(2024, 5, 1), excl[0].Month)
	assert.Equal(t, date(2024, 8, 1), excl[1].Month)
	for _, e := range excl {
		assert.Equal(t, keep.ID, e.TemplateID)
	}
}

func TestLearningRules_Upsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertLearningRules(ctx, []model.LearningRule{
		{UserID: "u1", Pattern: "GIMNASIO", Category: model.CategoryHealth, Kind: model.KindVariableExpense},
		{UserID: "u1", Pattern: "BAR PEPE", Category: model.CategoryLeisure, Kind: model.KindVariableExpense},
	}))
	require.NoError(t, s.UpsertLearningRules(ctx, []model.LearningRule{
		{UserID: "u1", Pattern: "GIMNASIO", Category: model.CategoryHealth, Kind: model.KindFixedExpense},
	}))

	rules, err := s.FindLearningRules(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "BAR PEPE", rules[0].Pattern)
	assert.Equal(t, "GIMNASIO", rules[1].Pattern)
	assert.Equal(t, model.KindFixedExpense, rules[1].Kind)

	none, err := s.FindLearningRules(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, none)
}
