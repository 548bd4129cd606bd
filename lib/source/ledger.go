package source

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/sboehler/folio/lib/ledger"
)

// ErrUnknownAccount is returned by providers for accounts they do not
// serve.
var ErrUnknownAccount = errors.New("unknown account")

// AccountProvider yields the raw daily snapshots of an account. Every call
// starts a fresh, finite sequence over the whole ledger; evaluation bounds
// are applied after the common horizon is known. The sequence ends after
// the first error.
type AccountProvider interface {
	Rows(ctx context.Context, account string) iter.Seq2[ledger.RawRow, error]
}

// LedgerLayout gives the zero-based columns of a ledger file.
type LedgerLayout struct {
	HeaderRows int
	Date       int
	Deposit    int
	Withdrawal int
	Value      int
}

func (l LedgerLayout) width() int {
	return slices.Max([]int{l.Date, l.Deposit, l.Withdrawal, l.Value}) + 1
}

// LedgerFile is the ledger file of one account.
type LedgerFile struct {
	Path     string
	Encoding string
}

// LedgerFiles reads account ledgers from CSV files sharing one layout.
type LedgerFiles struct {
	Layout LedgerLayout
	Files  map[string]LedgerFile
}

var _ AccountProvider = (*LedgerFiles)(nil)

// Rows implements AccountProvider. Records too short to hold every column
// are skipped.
func (p *LedgerFiles) Rows(ctx context.Context, account string) iter.Seq2[ledger.RawRow, error] {
	return func(yield func(ledger.RawRow, error) bool) {
		file, ok := p.Files[account]
		if !ok {
			yield(ledger.RawRow{}, fmt.Errorf("%w: %s", ErrUnknownAccount, account))
			return
		}
		width := p.Layout.width()
		for rec, err := range Records(ctx, file.Path, file.Encoding, p.Layout.HeaderRows) {
			if err != nil {
				yield(ledger.RawRow{}, err)
				return
			}
			if len(rec) < width {
				continue
			}
			row := ledger.RawRow{
				Date:       field(rec, p.Layout.Date),
				Deposit:    field(rec, p.Layout.Deposit),
				Withdrawal: field(rec, p.Layout.Withdrawal),
				Value:      field(rec, p.Layout.Value),
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Collect drains a sequence into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var res []T
	for t, err := range seq {
		if err != nil {
			return res, err
		}
		res = append(res, t)
	}
	return res, nil
}
