package server

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/ingest"
	"github.com/extracto-dev/extracto/internal/matcher"
	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/reconcile"
)

const dateLayout = time.DateOnly

type transactionJSON struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    model.Category  `json:"category"`
	Kind        model.Kind      `json:"kind"`
	TemplateID  string          `json:"template_id,omitempty"`
	Template    string          `json:"template,omitempty"`
}

type parseResponse struct {
	Transactions []transactionJSON `json:"transactions"`
	Duplicates   []transactionJSON `json:"duplicates"`
	Ambiguous    []string          `json:"ambiguous"`
}

func newParseResponse(res ingest.Result) parseResponse {
	out := parseResponse{
		Transactions: toJSON(res.Transactions),
		Duplicates:   toJSON(res.Duplicates),
		Ambiguous:    res.Ambiguous,
	}
	if out.Ambiguous == nil {
		out.Ambiguous = []string{}
	}
	return out
}

func toJSON(ms []matcher.Matched) []transactionJSON {
	out := make([]transactionJSON, 0, len(ms))
	for _, m := range ms {
		tj := transactionJSON{
			Date:        m.Tx.Date.Format(dateLayout),
			Description: m.Tx.Description,
			Amount:      m.Tx.Amount,
			Category:    m.Tx.Category,
			Kind:        m.Tx.Kind,
		}
		if m.Template != nil {
			tj.TemplateID = m.Template.ID
			tj.Template = m.Template.Description
		}
		out = append(out, tj)
	}
	return out
}

// rowJSON is one reviewed row in a save request. The schedule fields only
// apply to fixed expenses.
type rowJSON struct {
	Date          string              `json:"date"`
	Description   string              `json:"description"`
	Amount        decimal.Decimal     `json:"amount"`
	Category      model.Category      `json:"category"`
	Kind          model.Kind          `json:"kind"`
	PaymentMethod model.PaymentMethod `json:"payment_method,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	RecurringID   string              `json:"recurring_id,omitempty"`
	Months        []int               `json:"months,omitempty"`
	StartDate     string              `json:"start_date,omitempty"`
	EndDate       string              `json:"end_date,omitempty"`
	Active        *bool               `json:"active,omitempty"`
}

type saveRequest struct {
	Transactions []rowJSON `json:"transactions"`
}

func (r saveRequest) rows() ([]reconcile.Row, error) {
	rows := make([]reconcile.Row, 0, len(r.Transactions))
	for i, rj := range r.Transactions {
		row, err := rj.row(fmt.Sprintf("row %d: ", i+1))
		if err != nil {
			return nil, err
		}
		row.Tx.Automatic = true
		rows = append(rows, row)
	}
	return rows, nil
}

// row converts rj. Field errors are reported as prefix + "invalid <field>".
func (rj rowJSON) row(prefix string) (reconcile.Row, error) {
	d, err := parseDate(rj.Date)
	if err != nil {
		return reconcile.Row{}, invalidField(prefix, "date", err)
	}
	start, err := parseOptionalDate(rj.StartDate)
	if err != nil {
		return reconcile.Row{}, invalidField(prefix, "start_date", err)
	}
	end, err := parseOptionalDate(rj.EndDate)
	if err != nil {
		return reconcile.Row{}, invalidField(prefix, "end_date", err)
	}
	return reconcile.Row{
		Tx: model.LedgerTransaction{
			Date:          d,
			Description:   rj.Description,
			Amount:        rj.Amount,
			Category:      rj.Category,
			Kind:          rj.Kind,
			PaymentMethod: rj.PaymentMethod,
			Notes:         rj.Notes,
			RecurringID:   rj.RecurringID,
		},
		Months:    rj.Months,
		StartDate: start,
		EndDate:   end,
		Active:    rj.Active,
	}, nil
}

func invalidField(prefix, field string, err error) error {
	return apperr.NewUserError(prefix+"invalid "+field,
		fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return model.Day(t.Year(), t.Month(), t.Day()), nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type excludeRequest struct {
	Month string `json:"month"`
}

type exclusionJSON struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id"`
	Month      string `json:"month"`
}
