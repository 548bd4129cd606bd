package pipeline

import (
	"github.com/sboehler/folio/lib/allocation"
	"github.com/sboehler/folio/lib/config"
	"github.com/sboehler/folio/lib/source"
)

// DefaultConcurrency is the number of ledgers read at once.
const DefaultConcurrency = 4

// FromConfig creates the loader and options described by a configuration.
func FromConfig(cfg *config.Config) (*Loader, Options, error) {
	var opts Options
	period, err := cfg.DatePeriod()
	if err != nil {
		return nil, opts, err
	}
	baseline, err := cfg.Baseline()
	if err != nil {
		return nil, opts, err
	}
	catalog, err := catalogSource(cfg)
	if err != nil {
		return nil, opts, err
	}
	ledgers := &source.LedgerFiles{
		Layout: source.LedgerLayout{
			HeaderRows: cfg.Ledger.HeaderRows,
			Date:       cfg.Ledger.Columns.Date,
			Deposit:    cfg.Ledger.Columns.Deposit,
			Withdrawal: cfg.Ledger.Columns.Withdrawal,
			Value:      cfg.Ledger.Columns.Value,
		},
		Files: make(map[string]source.LedgerFile),
	}
	for _, a := range cfg.Accounts {
		ledgers.Files[a.Name] = source.LedgerFile{Path: a.File, Encoding: a.EncodingOr(cfg.Ledger.Encoding)}
	}
	loader := &Loader{
		Sources: Sources{
			Accounts: ledgers,
			Catalog:  catalog,
		},
		Accounts:    cfg.AccountNames(),
		Concurrency: DefaultConcurrency,
	}
	if cfg.Dividends.File != "" {
		loader.Sources.Dividends = &source.DividendFile{
			Path:       cfg.Dividends.File,
			Encoding:   cfg.Dividends.Encoding,
			HeaderRows: cfg.Dividends.HeaderRows,
			Date:       cfg.Dividends.Columns.Date,
			Amount:     cfg.Dividends.Columns.Amount,
			Account:    cfg.Dividends.Columns.Account,
		}
	}
	if cfg.Holdings.File != "" {
		loader.Sources.Holdings = &source.HoldingsFile{
			Path:     cfg.Holdings.File,
			Balance:  cfg.Holdings.Balances,
			Encoding: cfg.Holdings.Encoding,
		}
	}
	opts = Options{
		Accounts: cfg.AccountNames(),
		Required: cfg.RequiredAccounts(),
		Period:   period,
		Policy: allocation.Policy{
			AlternativeClass:       cfg.Allocation.AlternativeClass,
			AlternativeNationality: cfg.Allocation.AlternativeNationality,
			AlternativeLabel:       cfg.Allocation.AlternativeLabel,
			Unclassified:           cfg.Allocation.Unclassified,
			GoldCode:               cfg.Allocation.GoldCode,
		},
		Baseline: baseline,
	}
	return loader, opts, nil
}

func catalogSource(cfg *config.Config) (source.CatalogProvider, error) {
	if cfg.Catalog.File == "" {
		return nil, nil
	}
	format, err := cfg.CatalogFormat()
	if err != nil {
		return nil, err
	}
	if format == config.FormatSettings {
		return &source.SettingsCatalog{Path: cfg.Catalog.File, Encoding: cfg.Catalog.Encoding}, nil
	}
	return &source.YAMLCatalog{Path: cfg.Catalog.File}, nil
}
