// Package aggregate sums account series into a portfolio series and trims
// trailing days on which not every account reports a value.
package aggregate

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sboehler/folio/lib/common/compare"
	"github.com/sboehler/folio/lib/common/date"
	"github.com/sboehler/folio/lib/common/dict"
	"github.com/sboehler/folio/lib/common/set"
	"github.com/sboehler/folio/lib/ledger"
)

// ErrNoAccounts is returned when no account has any data.
var ErrNoAccounts = errors.New("no account data to aggregate")

// Epsilon is the value at or below which an account counts as empty.
var Epsilon = decimal.New(1, -9)

// Options configures an aggregation.
type Options struct {
	// Name labels the aggregated series.
	Name string
	// Required lists the accounts which must all have data for the common
	// horizon to be applied. If empty, every given account is required.
	Required []string
	// Period bounds the result. It is applied after horizon trimming.
	Period date.Period
}

// Result is an aggregated series together with what happened to its tail.
type Result struct {
	Series ledger.Series
	// Horizon is the common horizon date, zero if trimming was skipped.
	Horizon time.Time
	// Trimmed counts the days dropped after the horizon.
	Trimmed int
	// Empty lists accounts excluded because they had no days.
	Empty []string
	// Missing lists required accounts without data. Trimming is skipped
	// if it is not empty.
	Missing []string
	// NotPositive lists required accounts which never had a positive
	// value. Trimming is skipped if it is not empty.
	NotPositive []string
}

// HasHorizon reports whether the series was trimmed to a common horizon.
func (r Result) HasHorizon() bool {
	return !r.Horizon.IsZero()
}

// Aggregate sums the given series by date. Accounts without a row on a
// date contribute nothing to that date. The result does not depend on the
// order of the input.
func Aggregate(series []ledger.Series, opts Options) (Result, error) {
	var (
		res      Result
		loaded   = make(map[string]ledger.Series)
		adjusted = true
	)
	for _, s := range series {
		if _, ok := loaded[s.Account]; ok {
			return res, fmt.Errorf("duplicate account %s", s.Account)
		}
		if s.Empty() {
			res.Empty = append(res.Empty, s.Account)
			continue
		}
		loaded[s.Account] = s
		adjusted = adjusted && s.DividendAdjusted
	}
	compare.Sort(res.Empty, compare.Ordered[string])
	if len(loaded) == 0 {
		return res, ErrNoAccounts
	}

	byDate := make(map[time.Time]ledger.Day)
	for _, s := range loaded {
		for _, d := range s.Days {
			sum, ok := byDate[d.Date]
			if !ok {
				sum.Date = d.Date
			}
			sum.Value = sum.Value.Add(d.Value)
			sum.Deposit = sum.Deposit.Add(d.Deposit)
			sum.Withdrawal = sum.Withdrawal.Add(d.Withdrawal)
			byDate[d.Date] = sum
		}
	}
	res.Series = ledger.Series{
		Account:          opts.Name,
		Days:             dict.SortedValues(byDate, compare.By(dayDate, compare.Time)),
		DividendAdjusted: adjusted,
	}

	required := opts.Required
	if len(required) == 0 {
		required = dict.SortedKeys(loaded, compare.Ordered[string])
	}
	res.Missing = set.Of(dict.Keys(loaded)...).Missing(required)
	if len(res.Missing) == 0 {
		var reqSeries []ledger.Series
		for _, name := range required {
			reqSeries = append(reqSeries, loaded[name])
		}
		horizon, notPositive := CommonHorizon(reqSeries)
		res.NotPositive = notPositive
		if len(notPositive) == 0 {
			res.Horizon = horizon
			before := len(res.Series.Days)
			res.Series = res.Series.Within(date.Period{End: horizon})
			res.Trimmed = before - len(res.Series.Days)
		}
	}
	if !opts.Period.IsZero() {
		res.Series = res.Series.Within(opts.Period)
	}
	return res, nil
}

// LastPositive returns the last date on which the series' value exceeds
// Epsilon.
func LastPositive(s ledger.Series) (time.Time, bool) {
	for i := len(s.Days) - 1; i >= 0; i-- {
		if s.Days[i].Value.GreaterThan(Epsilon) {
			return s.Days[i].Date, true
		}
	}
	return time.Time{}, false
}

// CommonHorizon returns the earliest of the series' last positive dates.
// Accounts without any positive value are returned instead, in which case
// there is no common horizon.
func CommonHorizon(series []ledger.Series) (time.Time, []string) {
	var (
		horizon     time.Time
		notPositive []string
	)
	for _, s := range series {
		last, ok := LastPositive(s)
		if !ok {
			notPositive = append(notPositive, s.Account)
			continue
		}
		if horizon.IsZero() || last.Before(horizon) {
			horizon = last
		}
	}
	if len(notPositive) > 0 || len(series) == 0 {
		return time.Time{}, notPositive
	}
	return horizon, nil
}

func dayDate(d ledger.Day) time.Time {
	return d.Date
}
