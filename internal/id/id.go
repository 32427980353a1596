package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// New returns a fresh random identifier for a stored record.
func New() string {
	return uuid.NewString()
}

// Valid reports whether s is a well-formed record identifier.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// FormatMonth returns a month key like "2024-03".
func FormatMonth(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// ParseMonth parses "2024-03" into the first day of that month at 12:00 UTC.
// A trailing day component ("2024-03-15") is accepted and ignored.
func ParseMonth(key string) (time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(key), "-", 3)
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid month key format: %q", key)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 {
		return time.Time{}, fmt.Errorf("invalid year in month key %q", key)
	}

	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month in month key %q: %w", key, err)
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month out of range in month key %q", key)
	}

	return time.Date(year, time.Month(month), 1, 12, 0, 0, 0, time.UTC), nil
}
