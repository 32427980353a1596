package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/classify"
	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/scanner"
)

// CSVParser parses semicolon-separated bank exports with columns
// date;description;amount;balance and European number format.
type CSVParser struct {
	// Classifier assigns the initial category and kind. Nil uses
	// classify.Default().
	Classifier *classify.Classifier
}

const (
	csvDateFormat = "02/01/2006"
	csvNumFields  = 4
	csvColDate    = 0
	csvColDesc    = 1
	csvColAmount  = 2
)

// Format returns the parser name.
func (p *CSVParser) Format() string { return "csv" }

// Parse reads a bank CSV export. A leading header row is detected by an
// unparseable date and skipped. Zero-amount rows are skipped.
func (p *CSVParser) Parse(r io.Reader) (Batch, error) {
	c := p.Classifier
	if c == nil {
		c = classify.Default()
	}

	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = csvNumFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Batch{}, fmt.Errorf("reading bank CSV: %w", errors.Join(apperr.ErrParse, err))
	}
	if len(records) == 0 {
		return Batch{}, nil
	}
	// line is the 1-based file line of records[0].
	line := 1
	if _, err := time.Parse(csvDateFormat, strings.TrimSpace(records[0][csvColDate])); err != nil {
		records = records[1:]
		line = 2
	}

	var b Batch
	for i, rec := range records {
		txn, err := parseCSVRow(rec)
		if err != nil {
			return Batch{}, fmt.Errorf("row %d: %w", i+line, err)
		}
		if txn.Amount.IsZero() {
			b.Skipped++
			continue
		}
		b.Transactions = append(b.Transactions, c.Classify(txn))
	}
	return b, nil
}

func parseCSVRow(rec []string) (model.ParsedTransaction, error) {
	date, err := time.Parse(csvDateFormat, strings.TrimSpace(rec[csvColDate]))
	if err != nil {
		return model.ParsedTransaction{}, fmt.Errorf("parsing date %q: %w", rec[csvColDate], apperr.ErrParse)
	}

	amount, err := scanner.ParseAmount(rec[csvColAmount])
	if err != nil {
		return model.ParsedTransaction{}, err
	}

	return model.ParsedTransaction{
		Date:        model.Day(date.Year(), date.Month(), date.Day()),
		Description: strings.TrimSpace(rec[csvColDesc]),
		Amount:      amount,
	}, nil
}
