// Package calendar decides which days are business days.
package calendar

import (
	"time"

	"github.com/sboehler/folio/lib/common/date"
	"github.com/sboehler/folio/lib/common/set"
)

// Oracle tells whether a date is a business day.
type Oracle interface {
	IsBusinessDay(t time.Time) bool
}

// OracleFunc adapts a function to an Oracle.
type OracleFunc func(t time.Time) bool

// IsBusinessDay implements Oracle.
func (f OracleFunc) IsBusinessDay(t time.Time) bool {
	return f(t)
}

// Calendar is an Oracle based on weekend days and a list of holidays.
type Calendar struct {
	holidays set.Set[time.Time]
	weekend  set.Set[time.Weekday]
}

var _ Oracle = (*Calendar)(nil)

// New creates a calendar. If no weekend days are given, Saturday and
// Sunday are used.
func New(holidays []time.Time, weekend ...time.Weekday) *Calendar {
	if len(weekend) == 0 {
		weekend = []time.Weekday{time.Saturday, time.Sunday}
	}
	c := &Calendar{
		holidays: set.New[time.Time](),
		weekend:  set.Of(weekend...),
	}
	for _, h := range holidays {
		c.holidays.Add(date.Truncate(h))
	}
	return c
}

// IsBusinessDay implements Oracle.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	t = date.Truncate(t)
	return !c.weekend.Has(t.Weekday()) && !c.holidays.Has(t)
}

// LastBusinessDay walks back from day until it finds a business day,
// checking at most maxBack days. If none is found, the day after the last
// step is returned with false.
func LastBusinessDay(o Oracle, day time.Time, maxBack int) (time.Time, bool) {
	day = date.Truncate(day)
	for i := 0; i < maxBack; i++ {
		if o.IsBusinessDay(day) {
			return day, true
		}
		day = day.AddDate(0, 0, -1)
	}
	return day, false
}
