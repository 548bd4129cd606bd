package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrAlreadyAdjusted is returned when dividends are applied to a series a
// second time.
var ErrAlreadyAdjusted = errors.New("series is already dividend-adjusted")

// RawDividend is an unvalidated dividend record.
type RawDividend struct {
	Date, Account, Amount string
}

// DividendEvent is a dividend paid to an account on a date.
type DividendEvent struct {
	Date    time.Time
	Account string
	Amount  decimal.Decimal
}

// NormalizeDividends validates raw dividend records. Records with an
// unparsable date or without an account are dropped.
func NormalizeDividends(rows []RawDividend) ([]DividendEvent, Stats) {
	var (
		stats Stats
		res   []DividendEvent
	)
	for _, row := range rows {
		stats.Rows++
		d, err := ParseDate(row.Date)
		if err != nil || row.Account == "" {
			stats.Dropped++
			continue
		}
		res = append(res, DividendEvent{
			Date:    d,
			Account: row.Account,
			Amount:  ParseLenientNumber(row.Amount),
		})
	}
	return res, stats
}

// Dividends holds summed dividend amounts by account and date.
type Dividends map[string]map[time.Time]decimal.Decimal

// GroupDividends sums events per account and date. Zero amounts are
// discarded.
func GroupDividends(events []DividendEvent) Dividends {
	res := make(Dividends)
	for _, e := range events {
		if e.Amount.IsZero() {
			continue
		}
		byDate, ok := res[e.Account]
		if !ok {
			byDate = make(map[time.Time]decimal.Decimal)
			res[e.Account] = byDate
		}
		byDate[e.Date] = byDate[e.Date].Add(e.Amount)
	}
	return res
}

// Adjustment summarizes an applied dividend adjustment.
type Adjustment struct {
	// Applied is the total added to the series' values.
	Applied decimal.Decimal
	// Days is the number of adjusted days.
	Days int
	// Unmatched counts dividend dates which have no day in the series.
	Unmatched int
}

// AdjustDividends returns a copy of s where each day's value is increased
// by the dividends paid to the account on that date. Cash flows are left
// untouched. A series can only be adjusted once.
func AdjustDividends(s Series, dividends Dividends) (Series, Adjustment, error) {
	var adj Adjustment
	if s.DividendAdjusted {
		return s, adj, fmt.Errorf("account %s: %w", s.Account, ErrAlreadyAdjusted)
	}
	var (
		byDate = dividends[s.Account]
		res    = Series{
			Account:          s.Account,
			Days:             make([]Day, len(s.Days)),
			DividendAdjusted: true,
		}
		matched int
	)
	for i, d := range s.Days {
		if amount, ok := byDate[d.Date]; ok {
			d.Value = d.Value.Add(amount)
			adj.Applied = adj.Applied.Add(amount)
			adj.Days++
			matched++
		}
		res.Days[i] = d
	}
	adj.Unmatched = len(byDate) - matched
	return res, adj, nil
}
