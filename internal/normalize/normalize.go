// Package normalize canonicalizes transaction labels into comparison keys.
//
// A normalized description is used only for fuzzy identity comparisons
// (template matching, deduplication, rename propagation). It is never shown
// to the user.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinContainLen is the rune length both keys must exceed before substring
// containment counts as a match.
const MinContainLen = 3

var (
	prefixRe      = regexp.MustCompile(`(?i)^\s*(?:OP\.?\s*NET|RECIBO|MOVIMIENTO|TRANSF\.?\s*A\s+FAVOR|ABONO)\b[\s.:*,\-/_]*`)
	fullDateRe    = regexp.MustCompile(`\b\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}\b`)
	partialDateRe = regexp.MustCompile(`\b\d{1,2}[/.\-]\d{1,2}\b`)
	punctRe       = regexp.MustCompile(`[*.,\-/_]`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// Normalize returns the canonical comparison key for s. It is a projection:
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	out := pass(s)
	for {
		next := pass(out)
		if next == out {
			return out
		}
		out = next
	}
}

func pass(s string) string {
	for {
		stripped := prefixRe.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = fullDateRe.ReplaceAllString(s, " ")
	s = partialDateRe.ReplaceAllString(s, " ")
	s = punctRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.ToUpper(strings.TrimSpace(s))
}

// Similar reports whether a and b name the same entity: their normalized
// forms are equal, or both are longer than MinContainLen and one contains
// the other.
func Similar(a, b string) bool {
	return SimilarKeys(Normalize(a), Normalize(b))
}

// SimilarKeys is Similar for keys that are already normalized.
func SimilarKeys(na, nb string) bool {
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if utf8.RuneCountInString(na) <= MinContainLen || utf8.RuneCountInString(nb) <= MinContainLen {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}
