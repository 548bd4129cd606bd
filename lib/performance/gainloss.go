package performance

import (
	"github.com/shopspring/decimal"

	"github.com/sboehler/folio/lib/ledger"
)

// GainLoss returns the series' end value minus its start value, less the
// net cash flows after the first day. The first day's flow is already
// contained in the start value.
func GainLoss(s ledger.Series) (decimal.Decimal, error) {
	if s.Empty() {
		return decimal.Zero, ErrInsufficientData
	}
	var (
		first = s.Days[0]
		last  = s.Days[len(s.Days)-1]
		flows decimal.Decimal
	)
	for _, d := range s.Days[1:] {
		flows = flows.Add(d.NetCashFlow())
	}
	return last.Value.Sub(first.Value).Sub(flows), nil
}
