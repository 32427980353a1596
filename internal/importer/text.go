package importer

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/classify"
	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/scanner"
)

// TextParser parses line-oriented text extracted from a PDF bank statement.
type TextParser struct {
	// Classifier assigns the initial category and kind. Nil uses
	// classify.Default().
	Classifier *classify.Classifier
}

var lineSplitRe = regexp.MustCompile(`\r\n|\n`)

// Format returns the parser name.
func (p *TextParser) Format() string { return "text" }

// Parse scans every non-empty line. Lines without a date and amount are
// skipped; the batch never fails because of a single line.
func (p *TextParser) Parse(r io.Reader) (Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Batch{}, fmt.Errorf("reading statement text: %w", err)
	}
	return p.ParseString(string(data)), nil
}

// ParseString is Parse over an in-memory document.
func (p *TextParser) ParseString(text string) Batch {
	c := p.Classifier
	if c == nil {
		c = classify.Default()
	}

	var b Batch
	for _, line := range lineSplitRe.Split(text, -1) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		line = unescape(line)

		res, err := scanner.Scan(line)
		if err != nil {
			if errors.Is(err, apperr.ErrAmbiguousAmount) {
				b.Ambiguous = append(b.Ambiguous, strings.TrimSpace(line))
			} else {
				b.Skipped++
			}
			continue
		}

		b.Transactions = append(b.Transactions, c.Classify(model.ParsedTransaction{
			Date:        res.Date,
			Description: res.Description,
			Amount:      res.Amount,
		}))
	}
	return b
}

// unescape decodes percent-escapes left by some extractors. Lines that are
// not valid escapes (a literal "21%") are kept as-is.
func unescape(line string) string {
	if !strings.Contains(line, "%") {
		return line
	}
	out, err := url.PathUnescape(line)
	if err != nil {
		return line
	}
	return out
}
