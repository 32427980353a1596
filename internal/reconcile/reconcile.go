// Package reconcile persists a reviewed import batch: it upserts recurring
// templates for fixed expenses, propagates renames and links through the
// user's fixed-expense history, and bulk-inserts the rows.
//
// Writes are issued sequentially with no transaction spanning them. A failed
// bulk insert leaves template changes in place; re-importing is safe because
// the deduplicator will recognise any rows that did land.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/id"
	"github.com/extracto-dev/extracto/internal/ledger"
	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/normalize"
	"github.com/extracto-dev/extracto/internal/store"
)

// Store is the subset of the record store the reconciler writes through.
type Store interface {
	FindTemplates(ctx context.Context, f store.TemplateFilter) ([]model.RecurringTemplate, error)
	InsertTemplate(ctx context.Context, t model.RecurringTemplate) (model.RecurringTemplate, error)
	UpdateTemplate(ctx context.Context, t model.RecurringTemplate) error
	DeleteTemplate(ctx context.Context, userID, templateID string) error
	RelinkTransactions(ctx context.Context, userID, from, to string) (int64, error)
	MoveExclusions(ctx context.Context, userID, from, to string) (int64, error)
	FindTransactions(ctx context.Context, f store.TxFilter) ([]model.LedgerTransaction, error)
	GetTransaction(ctx context.Context, userID, txID string) (model.LedgerTransaction, error)
	UpdateTransaction(ctx context.Context, userID, txID string, p store.TxPatch) error
	InsertTransactions(ctx context.Context, rows []model.LedgerTransaction) ([]model.LedgerTransaction, error)
	DeleteTransaction(ctx context.Context, userID, txID string) error
}

// Row is one reviewed transaction to save. Tx.RecurringID may carry the
// template the matcher linked. The schedule fields come from a manual-entry
// form and only apply to fixed expenses; nil leaves the template's value.
type Row struct {
	Tx        model.LedgerTransaction
	Months    []int
	StartDate *time.Time
	EndDate   *time.Time
	Active    *bool
}

// Summary reports what a Save did.
type Summary struct {
	Inserted         int
	TemplatesCreated int
	TemplatesUpdated int
	TemplatesMerged  int
	Relinked         int
}

// Reconciler saves reviewed batches.
type Reconciler struct {
	store         Store
	logger        *log.Logger
	defaultMethod model.PaymentMethod
}

// New creates a Reconciler. Rows without a payment method get
// defaultMethod; an empty defaultMethod means card.
func New(s Store, logger *log.Logger, defaultMethod model.PaymentMethod) *Reconciler {
	if defaultMethod == "" {
		defaultMethod = model.PaymentCard
	}
	return &Reconciler{store: s, logger: logger, defaultMethod: defaultMethod}
}

// group is the set of fixed-expense rows sharing one normalized
// description. rep indexes the most recent row.
type group struct {
	key     string
	indexes []int
	rep     int
}

// Save reconciles and stores rows for userID.
func (r *Reconciler) Save(ctx context.Context, userID string, rows []Row) (Summary, error) {
	var sum Summary
	if userID == "" {
		return sum, apperr.NewUserError("missing user", apperr.ErrInvalidInput)
	}
	if len(rows) == 0 {
		return sum, nil
	}
	rows = append([]Row(nil), rows...)

	var verrs []ledger.ValidationError
	for i := range rows {
		rows[i].Tx.UserID = userID
		rows[i].Tx.Description = strings.TrimSpace(rows[i].Tx.Description)
		if rows[i].Tx.PaymentMethod == "" {
			rows[i].Tx.PaymentMethod = r.defaultMethod
		}
		verrs = append(verrs, ledger.Validate(i+1, rows[i].Tx)...)
		verrs = append(verrs, ledger.ValidateSchedule(i+1, rows[i].Months, 0)...)
	}
	if err := ledger.AsError(verrs); err != nil {
		return sum, apperr.NewUserError("invalid transactions", err)
	}

	groups := groupFixed(rows)
	if len(groups) > 0 {
		if err := r.syncTemplates(ctx, userID, rows, groups, "", &sum); err != nil {
			return sum, apperr.NewUserError("could not update recurring expenses", errors.Join(apperr.ErrPersistence, err))
		}
	}

	txs := make([]model.LedgerTransaction, len(rows))
	for i, row := range rows {
		txs[i] = row.Tx
	}
	stored, err := r.store.InsertTransactions(ctx, txs)
	if err != nil {
		r.logger.Error("bulk insert failed", "user", userID, "rows", len(txs), "err", err)
		return sum, apperr.NewUserError("could not save the transactions", errors.Join(apperr.ErrPersistence, err))
	}
	sum.Inserted = len(stored)

	r.logger.Info("import saved",
		"user", userID,
		"inserted", sum.Inserted,
		"templates_created", sum.TemplatesCreated,
		"templates_updated", sum.TemplatesUpdated,
		"templates_merged", sum.TemplatesMerged,
		"relinked", sum.Relinked)
	return sum, nil
}

// Update replaces the stored transaction txID with row. A fixed expense goes
// through the same template sync as Save, so relabelling a linked row renames
// its template and history. Without a payment method the stored one is kept,
// and a fixed expense without a template id keeps its current link.
func (r *Reconciler) Update(ctx context.Context, userID, txID string, row Row) (Summary, error) {
	var sum Summary
	if userID == "" {
		return sum, apperr.NewUserError("missing user", apperr.ErrInvalidInput)
	}
	cur, err := r.store.GetTransaction(ctx, userID, txID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return sum, apperr.NewUserError("transaction not found", err)
		}
		return sum, apperr.NewUserError("could not load the transaction", errors.Join(apperr.ErrPersistence, err))
	}

	row.Tx.ID = txID
	row.Tx.UserID = userID
	row.Tx.Description = strings.TrimSpace(row.Tx.Description)
	if row.Tx.PaymentMethod == "" {
		row.Tx.PaymentMethod = cur.PaymentMethod
	}
	if row.Tx.Kind == model.KindFixedExpense && row.Tx.RecurringID == "" {
		row.Tx.RecurringID = cur.RecurringID
	}
	verrs := ledger.Validate(1, row.Tx)
	verrs = append(verrs, ledger.ValidateSchedule(1, row.Months, 0)...)
	if err := ledger.AsError(verrs); err != nil {
		return sum, apperr.NewUserError("invalid transaction", err)
	}

	rows := []Row{row}
	if groups := groupFixed(rows); len(groups) > 0 {
		if err := r.syncTemplates(ctx, userID, rows, groups, txID, &sum); err != nil {
			return sum, apperr.NewUserError("could not update recurring expenses", errors.Join(apperr.ErrPersistence, err))
		}
	}

	tx := rows[0].Tx
	err = r.store.UpdateTransaction(ctx, userID, txID, store.TxPatch{
		Date:          &tx.Date,
		Description:   &tx.Description,
		Amount:        &tx.Amount,
		Category:      &tx.Category,
		Kind:          &tx.Kind,
		PaymentMethod: &tx.PaymentMethod,
		RecurringID:   &tx.RecurringID,
		Notes:         &tx.Notes,
	})
	if err != nil {
		return sum, apperr.NewUserError("could not update the transaction", errors.Join(apperr.ErrPersistence, err))
	}

	r.logger.Info("transaction updated",
		"user", userID,
		"id", txID,
		"templates_created", sum.TemplatesCreated,
		"templates_updated", sum.TemplatesUpdated,
		"relinked", sum.Relinked)
	return sum, nil
}

// Delete removes one of the user's transactions. Its template, if any, is
// kept.
func (r *Reconciler) Delete(ctx context.Context, userID, txID string) error {
	if userID == "" {
		return apperr.NewUserError("missing user", apperr.ErrInvalidInput)
	}
	if err := r.store.DeleteTransaction(ctx, userID, txID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NewUserError("transaction not found", err)
		}
		return apperr.NewUserError("could not delete the transaction", errors.Join(apperr.ErrPersistence, err))
	}
	r.logger.Info("transaction deleted", "user", userID, "id", txID)
	return nil
}

// groupFixed groups FixedExpense rows by normalized description, in order
// of first appearance.
func groupFixed(rows []Row) []*group {
	var out []*group
	byKey := make(map[string]*group)
	for i, row := range rows {
		if row.Tx.Kind != model.KindFixedExpense {
			continue
		}
		key := normalize.Normalize(row.Tx.Description)
		if key == "" {
			continue
		}
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key, rep: i}
			byKey[key] = g
			out = append(out, g)
		}
		g.indexes = append(g.indexes, i)
		if !rows[i].Tx.Date.Before(rows[g.rep].Tx.Date) {
			g.rep = i
		}
	}
	return out
}

// syncTemplates upserts one template per group and back-links history.
// skipID names a stored row being edited; it is left out of the history.
func (r *Reconciler) syncTemplates(ctx context.Context, userID string, rows []Row, groups []*group, skipID string, sum *Summary) error {
	templates, err := r.store.FindTemplates(ctx, store.TemplateFilter{UserID: userID})
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	history, err := r.store.FindTransactions(ctx, store.TxFilter{UserID: userID, Kind: model.KindFixedExpense})
	if err != nil {
		return fmt.Errorf("loading fixed-expense history: %w", err)
	}
	if skipID != "" {
		history = slices.DeleteFunc(history, func(tx model.LedgerTransaction) bool { return tx.ID == skipID })
	}

	for _, g := range groups {
		rep := rows[g.rep]

		found, how, extras := resolve(templates, g, rows)
		for _, extra := range extras {
			n, err := r.store.RelinkTransactions(ctx, userID, extra.ID, found.ID)
			if err != nil {
				return err
			}
			if _, err := r.store.MoveExclusions(ctx, userID, extra.ID, found.ID); err != nil {
				return err
			}
			if err := r.store.DeleteTemplate(ctx, userID, extra.ID); err != nil {
				return err
			}
			relinkHistory(history, extra.ID, found.ID)
			templates = without(templates, extra.ID)
			sum.TemplatesMerged++
			sum.Relinked += int(n)
			r.logger.Debug("merged duplicate template", "user", userID, "from", extra.ID, "into", found.ID)
		}

		var tpl model.RecurringTemplate
		oldKey := g.key
		if found != nil {
			oldKey = normalize.Normalize(found.Description)
			tpl = *found
			apply(&tpl, rep, schedule(rows, g), how != matchSimilar)
			if err := r.store.UpdateTemplate(ctx, tpl); err != nil {
				return err
			}
			templates = replace(templates, tpl)
			sum.TemplatesUpdated++
		} else {
			tpl = model.RecurringTemplate{ID: id.New(), UserID: userID, Active: true}
			apply(&tpl, rep, schedule(rows, g), true)
			if tpl, err = r.store.InsertTemplate(ctx, tpl); err != nil {
				return err
			}
			templates = append(templates, tpl)
			sum.TemplatesCreated++
		}

		for _, i := range g.indexes {
			rows[i].Tx.RecurringID = tpl.ID
		}

		keys := []string{oldKey, g.key}
		renamed := how == matchID && oldKey != g.key
		n, err := r.backLink(ctx, userID, history, tpl, keys, renamed)
		if err != nil {
			return err
		}
		sum.Relinked += n
	}
	return nil
}

type matchKind int

const (
	matchNone matchKind = iota
	matchID
	matchExact
	matchSimilar
)

// resolve finds the template for a group: by the id a row carries, else by
// exact normalized description, else by similarity to an active template. Other templates with
// the exact same normalized description are returned as extras to merge.
func resolve(templates []model.RecurringTemplate, g *group, rows []Row) (*model.RecurringTemplate, matchKind, []model.RecurringTemplate) {
	linkID := rows[g.rep].Tx.RecurringID
	if linkID == "" {
		for _, i := range g.indexes {
			if rows[i].Tx.RecurringID != "" {
				linkID = rows[i].Tx.RecurringID
				break
			}
		}
	}

	var found *model.RecurringTemplate
	how := matchNone
	if linkID != "" {
		for i := range templates {
			if templates[i].ID == linkID {
				t := templates[i]
				found = &t
				how = matchID
				break
			}
		}
	}

	var exact []model.RecurringTemplate
	for _, t := range templates {
		if normalize.Normalize(t.Description) == g.key && (found == nil || t.ID != found.ID) {
			exact = append(exact, t)
		}
	}
	if found == nil && len(exact) > 0 {
		t := exact[0]
		found = &t
		how = matchExact
		exact = exact[1:]
	}
	if found != nil {
		return found, how, exact
	}

	for _, t := range templates {
		if t.Active && normalize.SimilarKeys(g.key, normalize.Normalize(t.Description)) {
			return &t, matchSimilar, nil
		}
	}
	return nil, matchNone, nil
}

type scheduleFields struct {
	months    []int
	startDate *time.Time
	endDate   *time.Time
	active    *bool
}

// schedule takes each form field from the representative row, falling back
// to the first row in the group that sets it.
func schedule(rows []Row, g *group) scheduleFields {
	order := append([]int{g.rep}, g.indexes...)
	var s scheduleFields
	for _, i := range order {
		row := rows[i]
		if s.months == nil && row.Months != nil {
			s.months = row.Months
		}
		if s.startDate == nil && row.StartDate != nil {
			s.startDate = row.StartDate
		}
		if s.endDate == nil && row.EndDate != nil {
			s.endDate = row.EndDate
		}
		if s.active == nil && row.Active != nil {
			s.active = row.Active
		}
	}
	return s
}

// apply copies the representative row onto t. A template found only by
// similarity keeps its own description.
func apply(t *model.RecurringTemplate, rep Row, s scheduleFields, takeDescription bool) {
	isNew := t.Description == ""
	if takeDescription || isNew {
		t.Description = rep.Tx.Description
	}
	t.EstimatedAmount = rep.Tx.Amount.Abs()
	t.Category = rep.Tx.Category
	t.BillingDay = rep.Tx.Date.Day()
	if s.months != nil {
		t.Months = s.months
	}
	switch {
	case s.startDate != nil:
		d := *s.startDate
		t.StartDate = &d
	case t.StartDate == nil:
		d := rep.Tx.Date
		t.StartDate = &d
	}
	if s.endDate != nil {
		d := *s.endDate
		t.EndDate = &d
	}
	if s.active != nil {
		t.Active = *s.active
	} else if isNew {
		t.Active = true
	}
}

// backLink links every fixed-expense history row that carries tpl's id or
// whose normalized description is one of keys. When the template was
// renamed, those rows also take the new description.
func (r *Reconciler) backLink(ctx context.Context, userID string, history []model.LedgerTransaction, tpl model.RecurringTemplate, keys []string, renamed bool) (int, error) {
	newKey := normalize.Normalize(tpl.Description)

	n := 0
	for i := range history {
		h := &history[i]
		key := normalize.Normalize(h.Description)
		if h.RecurringID != tpl.ID && !contains(keys, key) {
			continue
		}

		var p store.TxPatch
		if h.RecurringID != tpl.ID {
			p.RecurringID = &tpl.ID
		}
		if renamed && key != newKey {
			p.Description = &tpl.Description
		}
		if p.RecurringID == nil && p.Description == nil {
			continue
		}

		if err := r.store.UpdateTransaction(ctx, userID, h.ID, p); err != nil {
			return n, fmt.Errorf("back-linking %s: %w", h.ID, err)
		}
		h.RecurringID = tpl.ID
		if p.Description != nil {
			h.Description = tpl.Description
		}
		n++
	}
	if n > 0 {
		r.logger.Debug("back-linked history", "user", userID, "template", tpl.ID, "rows", n, "renamed", renamed)
	}
	return n, nil
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func relinkHistory(history []model.LedgerTransaction, from, to string) {
	for i := range history {
		if history[i].RecurringID == from {
			history[i].RecurringID = to
		}
	}
}

func without(templates []model.RecurringTemplate, templateID string) []model.RecurringTemplate {
	out := templates[:0:0]
	for _, t := range templates {
		if t.ID != templateID {
			out = append(out, t)
		}
	}
	return out
}

func replace(templates []model.RecurringTemplate, tpl model.RecurringTemplate) []model.RecurringTemplate {
	for i := range templates {
		if templates[i].ID == tpl.ID {
			templates[i] = tpl
		}
	}
	return templates
}
