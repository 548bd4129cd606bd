package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sboehler/folio/lib/common/date"
)

// ParseLenientNumber parses hand-edited numeric cells. Everything but
// digits, '.' and '-' is stripped first, so thousands separators, currency
// symbols and units are ignored. An exponent ('e' or 'E' between a digit
// and an optionally signed digit) is kept. A leading '-' makes the result
// negative. Blank or unparsable input yields zero.
func ParseLenientNumber(s string) decimal.Decimal {
	var (
		runes   = []rune(s)
		b       strings.Builder
		isDigit = func(i int) bool { return i >= 0 && i < len(runes) && runes[i] >= '0' && runes[i] <= '9' }
	)
	for i, r := range runes {
		switch {
		case isDigit(i) || r == '.' || r == '-':
			b.WriteRune(r)
		case (r == 'e' || r == 'E') && isDigit(i-1) && exponent(runes[i+1:]):
			b.WriteRune(r)
		case r == '+' && i > 0 && (runes[i-1] == 'e' || runes[i-1] == 'E') && isDigit(i-2) && isDigit(i+1):
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	negative := strings.HasPrefix(cleaned, "-")
	digits := strings.TrimLeft(cleaned, "-")
	if digits == "" || digits == "." {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		return d.Neg()
	}
	return d
}

// exponent reports whether rest starts with an optionally signed digit.
func exponent(rest []rune) bool {
	if len(rest) > 0 && (rest[0] == '+' || rest[0] == '-') {
		rest = rest[1:]
	}
	return len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9'
}

var (
	dateTimeLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
	}
	dateLayouts = []string{
		"2006.1.2",
		"20060102",
	}
)

// ParseDate parses a calendar date in one of the formats found in
// spreadsheet exports: ISO dates with '-', '/' or '.' separators, the
// Korean "2025. 1. 10." style, compact YYYYMMDD and ISO timestamps, whose
// time of day is discarded.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return date.Truncate(t), nil
		}
	}
	compact := strings.NewReplacer(" ", "", "/", ".", "-", ".").Replace(s)
	compact = strings.TrimSuffix(compact, ".")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, compact); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
