// Package scanner extracts a date and a monetary amount from one line of
// bank statement text.
//
// Amounts use the European format: "." thousands separators and a ","
// followed by exactly two decimals. Dates are day-month-year.
package scanner

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/model"
)

// ErrNoTransaction means the line is not a transaction line: no date, no
// amount, a zero amount, or a description too short to be useful.
var ErrNoTransaction = errors.New("not a transaction line")

// minDescriptionLen is the rune length a description must exceed.
const minDescriptionLen = 2

const dashes = `\-\x{2010}-\x{2015}\x{2212}\x{FE63}\x{FF0D}`

var (
	dateRe   = regexp.MustCompile(`(\d{2})[/.\-](\d{2})[/.\-](\d{4}|\d{2})`)
	amountRe = regexp.MustCompile(`[` + dashes + `]?[\s\x{00A0}]*\d+(?:\.\d{3})*,\d{2}`)
	signRe   = regexp.MustCompile(`^[` + dashes + `]`)
	leadRe   = regexp.MustCompile(`^[\s\x{00A0}+` + dashes + `]+`)
	dashRe   = regexp.MustCompile(`[` + dashes + `]`)
	spaceRe  = regexp.MustCompile(`[\s\x{00A0}]+`)
)

// Result is a scanned transaction line.
type Result struct {
	Date        time.Time
	Amount      decimal.Decimal
	Description string

	// Candidates holds every amount token found on the line, in order.
	Candidates []string
}

// Scan extracts the date, amount and description from line.
//
// When a candidate carries an explicit negative sign it is the amount.
// Otherwise the second-to-last candidate is taken, the last one being the
// running balance. A line with a single unsigned candidate returns an
// error wrapping apperr.ErrAmbiguousAmount.
func Scan(line string) (Result, error) {
	dateStr, date, ok := findDate(line)
	if !ok {
		return Result{}, ErrNoTransaction
	}

	candidates := findAmounts(line)
	if len(candidates) == 0 {
		return Result{}, ErrNoTransaction
	}

	desc := describe(line, dateStr, candidates)
	if utf8.RuneCountInString(desc) <= minDescriptionLen {
		return Result{}, ErrNoTransaction
	}

	chosen, err := choose(candidates)
	if err != nil {
		return Result{}, fmt.Errorf("line %q: %w", line, err)
	}

	amount, err := ParseAmount(chosen)
	if err != nil {
		return Result{}, err
	}
	if amount.IsZero() {
		return Result{}, ErrNoTransaction
	}

	return Result{
		Date:        date,
		Amount:      amount,
		Description: desc,
		Candidates:  candidates,
	}, nil
}

// ParseAmount converts a European-format amount token like "-1.053,21" to a
// decimal.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	clean = dashRe.ReplaceAllString(clean, "-")
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.Replace(clean, ",", ".", 1)

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, apperr.ErrParse)
	}
	return d, nil
}

// findDate returns the first date-like token that is a real calendar day.
func findDate(line string) (string, time.Time, bool) {
	for _, m := range dateRe.FindAllStringSubmatch(line, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		if month < 1 || month > 12 || day < 1 {
			continue
		}
		d := model.Day(year, time.Month(month), day)
		if d.Day() != day {
			continue
		}
		return m[0], d, true
	}
	return "", time.Time{}, false
}

// findAmounts returns every amount token on the line. Tokens immediately
// followed by another digit carry more than two decimals and are dropped.
func findAmounts(line string) []string {
	var out []string
	for _, loc := range amountRe.FindAllStringIndex(line, -1) {
		if loc[1] < len(line) && line[loc[1]] >= '0' && line[loc[1]] <= '9' {
			continue
		}
		out = append(out, strings.TrimSpace(line[loc[0]:loc[1]]))
	}
	return out
}

func choose(candidates []string) (string, error) {
	for _, c := range candidates {
		if signRe.MatchString(c) {
			return c, nil
		}
	}
	if len(candidates) < 2 {
		return "", apperr.ErrAmbiguousAmount
	}
	return candidates[len(candidates)-2], nil
}

func describe(line, dateStr string, candidates []string) string {
	desc := strings.Replace(line, dateStr, "", 1)
	for _, c := range candidates {
		desc = strings.Replace(desc, c, "", 1)
	}
	desc = strings.TrimSpace(desc)
	desc = leadRe.ReplaceAllString(desc, "")
	desc = strings.NewReplacer("€", "", "$", "").Replace(desc)
	desc = spaceRe.ReplaceAllString(desc, " ")
	return strings.TrimSpace(desc)
}
