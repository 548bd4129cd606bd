package source

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sboehler/folio/lib/allocation"
	"github.com/sboehler/folio/lib/ledger"
)

// HoldingsProvider returns the current positions and account balances.
type HoldingsProvider interface {
	Holdings(ctx context.Context) ([]allocation.Holding, error)
	// Balances returns the cash-inclusive value per account, or nil if
	// balances are not available.
	Balances(ctx context.Context) (map[string]decimal.Decimal, error)
}

// HoldingsFile reads holdings from a CSV file with the columns account,
// code, name and amount, and balances from a CSV file with the columns
// account and balance.
type HoldingsFile struct {
	Path     string
	Balance  string
	Encoding string
}

var _ HoldingsProvider = (*HoldingsFile)(nil)

// Holdings implements HoldingsProvider. Rows without a code are skipped.
func (p *HoldingsFile) Holdings(ctx context.Context) ([]allocation.Holding, error) {
	rows, col, err := readTable(ctx, p.Path, p.Encoding, "account", "code", "name", "amount")
	if err != nil {
		return nil, err
	}
	var res []allocation.Holding
	for _, rec := range rows {
		h := allocation.Holding{
			Account: field(rec, col["account"]),
			Code:    field(rec, col["code"]),
			Name:    field(rec, col["name"]),
			Amount:  ledger.ParseLenientNumber(field(rec, col["amount"])),
		}
		if h.Code == "" {
			continue
		}
		res = append(res, h)
	}
	return res, nil
}

// Balances implements HoldingsProvider.
func (p *HoldingsFile) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	if p.Balance == "" {
		return nil, nil
	}
	rows, col, err := readTable(ctx, p.Balance, p.Encoding, "account", "balance")
	if err != nil {
		return nil, err
	}
	res := make(map[string]decimal.Decimal)
	for _, rec := range rows {
		account := field(rec, col["account"])
		if account == "" {
			continue
		}
		if _, ok := res[account]; ok {
			return nil, fmt.Errorf("%s: duplicate balance for account %q", p.Balance, account)
		}
		res[account] = ledger.ParseLenientNumber(field(rec, col["balance"]))
	}
	return res, nil
}
