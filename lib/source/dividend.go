package source

import (
	"context"
	"iter"
	"slices"

	"github.com/sboehler/folio/lib/ledger"
)

// DividendProvider yields raw dividend records.
type DividendProvider interface {
	Dividends(ctx context.Context) iter.Seq2[ledger.RawDividend, error]
}

// DividendFile reads dividends from a CSV journal.
type DividendFile struct {
	Path                  string
	Encoding              string
	HeaderRows            int
	Date, Amount, Account int
}

var _ DividendProvider = (*DividendFile)(nil)

// Dividends implements DividendProvider.
func (p *DividendFile) Dividends(ctx context.Context) iter.Seq2[ledger.RawDividend, error] {
	return func(yield func(ledger.RawDividend, error) bool) {
		width := slices.Max([]int{p.Date, p.Amount, p.Account}) + 1
		for rec, err := range Records(ctx, p.Path, p.Encoding, p.HeaderRows) {
			if err != nil {
				yield(ledger.RawDividend{}, err)
				return
			}
			if len(rec) < width {
				continue
			}
			row := ledger.RawDividend{
				Date:    field(rec, p.Date),
				Amount:  field(rec, p.Amount),
				Account: field(rec, p.Account),
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}
