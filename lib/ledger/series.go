package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sboehler/folio/lib/common/compare"
	"github.com/sboehler/folio/lib/common/date"
	"github.com/sboehler/folio/lib/common/dict"
)

// RawRow is an unvalidated daily snapshot as read from a source.
type RawRow struct {
	Date, Value, Deposit, Withdrawal string
}

// Day is a validated daily snapshot of one account or of the portfolio.
type Day struct {
	Date       time.Time
	Value      decimal.Decimal
	Deposit    decimal.Decimal
	Withdrawal decimal.Decimal
}

// NetCashFlow returns deposits minus withdrawals.
func (d Day) NetCashFlow() decimal.Decimal {
	return d.Deposit.Sub(d.Withdrawal)
}

// Series is a date-sorted sequence of days with unique dates.
type Series struct {
	Account          string
	Days             []Day
	DividendAdjusted bool
}

// Empty reports whether the series has no days.
func (s Series) Empty() bool {
	return len(s.Days) == 0
}

// Period returns the first and last date of the series.
func (s Series) Period() date.Period {
	if s.Empty() {
		return date.Period{}
	}
	return date.Period{Start: s.Days[0].Date, End: s.Days[len(s.Days)-1].Date}
}

// Last returns the last day of the series.
func (s Series) Last() (Day, bool) {
	if s.Empty() {
		return Day{}, false
	}
	return s.Days[len(s.Days)-1], true
}

// Within returns the days contained in p. The receiver is not modified.
func (s Series) Within(p date.Period) Series {
	res := s
	res.Days = nil
	for _, d := range s.Days {
		if p.Contains(d.Date) {
			res.Days = append(res.Days, d)
		}
	}
	return res
}

// Stats counts what Normalize read and discarded.
type Stats struct {
	Rows       int
	Dropped    int
	Duplicates int
}

// Normalize validates raw rows into a series. Rows with unparsable dates
// are dropped, numbers are parsed leniently and a later row replaces an
// earlier one with the same date.
func Normalize(account string, rows []RawRow) (Series, Stats) {
	var (
		stats  Stats
		byDate = make(map[time.Time]Day)
	)
	for _, row := range rows {
		stats.Rows++
		d, err := ParseDate(row.Date)
		if err != nil {
			stats.Dropped++
			continue
		}
		if _, ok := byDate[d]; ok {
			stats.Duplicates++
		}
		byDate[d] = Day{
			Date:       d,
			Value:      ParseLenientNumber(row.Value),
			Deposit:    ParseLenientNumber(row.Deposit),
			Withdrawal: ParseLenientNumber(row.Withdrawal),
		}
	}
	return Series{
		Account: account,
		Days:    dict.SortedValues(byDate, compare.By(dayDate, compare.Time)),
	}, stats
}

func dayDate(d Day) time.Time {
	return d.Date
}
