package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/errgroup"

	"github.com/sboehler/folio/lib/allocation"
	"github.com/sboehler/folio/lib/ledger"
	"github.com/sboehler/folio/lib/source"
)

// ErrNotConfigured is recorded for an optional source which is absent.
var ErrNotConfigured = errors.New("not configured")

// Sources are the collaborators of a run. Dividends, Holdings and Catalog
// are optional.
type Sources struct {
	Accounts  source.AccountProvider
	Dividends source.DividendProvider
	Holdings  source.HoldingsProvider
	Catalog   source.CatalogProvider
}

// AccountInput is the normalized ledger of one account.
type AccountInput struct {
	Account string
	Series  ledger.Series
	Stats   ledger.Stats
	Err     error
}

// Input is everything a run reads before computing.
type Input struct {
	Accounts []AccountInput

	Dividends     []ledger.DividendEvent
	DividendStats ledger.Stats
	DividendErr   error

	Holdings    []allocation.Holding
	Balances    map[string]decimal.Decimal
	HoldingsErr error

	Catalog    *allocation.Catalog
	Targets    *allocation.Targets
	CatalogErr error
}

// Loader reads the inputs of a run concurrently. Failing sources are
// recorded in the input and do not fail the load.
type Loader struct {
	Sources  Sources
	Accounts []string
	// Concurrency bounds the number of ledgers read at once.
	Concurrency int
	// OnAccount is called after each account has been read.
	OnAccount func(account string)
}

// Load reads all inputs. It only fails if ctx is cancelled.
func (l *Loader) Load(ctx context.Context) (*Input, error) {
	var (
		in = &Input{Accounts: make([]AccountInput, len(l.Accounts))}
		g  errgroup.Group
	)
	g.Go(func() error {
		l.loadAccounts(ctx, in.Accounts)
		return ctx.Err()
	})
	g.Go(func() error {
		in.Dividends, in.DividendStats, in.DividendErr = l.loadDividends(ctx)
		return ctx.Err()
	})
	g.Go(func() error {
		in.Holdings, in.Balances, in.HoldingsErr = l.loadHoldings(ctx)
		return ctx.Err()
	})
	g.Go(func() error {
		in.Catalog, in.Targets, in.CatalogErr = l.loadCatalog(ctx)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

func (l *Loader) loadAccounts(ctx context.Context, res []AccountInput) {
	p := pool.New().WithMaxGoroutines(max(1, l.Concurrency))
	for i, account := range l.Accounts {
		p.Go(func() {
			if l.OnAccount != nil {
				defer l.OnAccount(account)
			}
			res[i] = l.loadAccount(ctx, account)
		})
	}
	p.Wait()
}

func (l *Loader) loadAccount(ctx context.Context, account string) AccountInput {
	res := AccountInput{Account: account}
	if l.Sources.Accounts == nil {
		res.Err = fmt.Errorf("account provider: %w", ErrNotConfigured)
		return res
	}
	rows, err := source.Collect(l.Sources.Accounts.Rows(ctx, account))
	if err != nil {
		res.Err = err
		return res
	}
	res.Series, res.Stats = ledger.Normalize(account, rows)
	return res
}

func (l *Loader) loadDividends(ctx context.Context) ([]ledger.DividendEvent, ledger.Stats, error) {
	if l.Sources.Dividends == nil {
		return nil, ledger.Stats{}, fmt.Errorf("dividends: %w", ErrNotConfigured)
	}
	rows, err := source.Collect(l.Sources.Dividends.Dividends(ctx))
	if err != nil {
		return nil, ledger.Stats{}, err
	}
	events, stats := ledger.NormalizeDividends(rows)
	return events, stats, nil
}

func (l *Loader) loadHoldings(ctx context.Context) ([]allocation.Holding, map[string]decimal.Decimal, error) {
	if l.Sources.Holdings == nil {
		return nil, nil, fmt.Errorf("holdings: %w", ErrNotConfigured)
	}
	holdings, err := l.Sources.Holdings.Holdings(ctx)
	if err != nil {
		return nil, nil, err
	}
	balances, err := l.Sources.Holdings.Balances(ctx)
	if err != nil {
		return nil, nil, err
	}
	return holdings, balances, nil
}

func (l *Loader) loadCatalog(ctx context.Context) (*allocation.Catalog, *allocation.Targets, error) {
	if l.Sources.Catalog == nil {
		return nil, nil, fmt.Errorf("catalog: %w", ErrNotConfigured)
	}
	return l.Sources.Catalog.Catalog(ctx)
}
