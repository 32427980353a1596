// Package pdftext turns a PDF statement into newline-delimited text, one
// visual row per line.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/extracto-dev/extracto/internal/apperr"
)

// Extract reads data as a PDF and returns its text. Rows are rebuilt with
// GetTextByRow; documents where that yields nothing fall back to the
// library's plain-text reader. Every failure wraps apperr.ErrExtraction.
func Extract(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty document", apperr.ErrExtraction)
	}
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: pdf reader crashed: %v", apperr.ErrExtraction, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrExtraction, err)
	}
	n := r.NumPage()
	if n == 0 {
		return "", fmt.Errorf("%w: document has no pages", apperr.ErrExtraction)
	}

	var lines []string
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		lines = append(lines, rowLines(rows)...)
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n"), nil
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrExtraction, err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("%w: reading plain text: %v", apperr.ErrExtraction, err)
	}
	out := strings.TrimSpace(string(b))
	if out == "" {
		return "", fmt.Errorf("%w: no text found", apperr.ErrExtraction)
	}
	return out, nil
}

// rowLines joins each row's words with single spaces and drops blank rows.
func rowLines(rows pdf.Rows) []string {
	var lines []string
	for _, row := range rows {
		if row == nil {
			continue
		}
		parts := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		line := strings.TrimSpace(strings.Join(parts, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
