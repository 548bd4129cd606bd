package pipeline

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sboehler/folio/lib/aggregate"
	"github.com/sboehler/folio/lib/allocation"
	"github.com/sboehler/folio/lib/common/date"
	"github.com/sboehler/folio/lib/ledger"
	"github.com/sboehler/folio/lib/source"
)

var errUnavailable = errors.New("unavailable")

type fakeAccounts map[string][]ledger.RawRow

func (f fakeAccounts) Rows(ctx context.Context, account string) iter.Seq2[ledger.RawRow, error] {
	return func(yield func(ledger.RawRow, error) bool) {
		rows, ok := f[account]
		if !ok {
			yield(ledger.RawRow{}, errUnavailable)
			return
		}
		for _, row := range rows {
			if !yield(row, nil) {
				return
			}
		}
	}
}

type fakeDividends []ledger.RawDividend

func (f fakeDividends) Dividends(ctx context.Context) iter.Seq2[ledger.RawDividend, error] {
	return func(yield func(ledger.RawDividend, error) bool) {
		for _, row := range f {
			if !yield(row, nil) {
				return
			}
		}
	}
}

type fakeHoldings struct {
	holdings []allocation.Holding
	balances map[string]decimal.Decimal
}

func (f fakeHoldings) Holdings(ctx context.Context) ([]allocation.Holding, error) {
	return f.holdings, nil
}

func (f fakeHoldings) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	return f.balances, nil
}

type fakeCatalog struct {
	catalog *allocation.Catalog
	targets *allocation.Targets
	err     error
}

func (f fakeCatalog) Catalog(ctx context.Context) (*allocation.Catalog, *allocation.Targets, error) {
	return f.catalog, f.targets, f.err
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newRunner(sources Sources, accounts ...string) *Runner {
	loader := &Loader{Sources: sources, Accounts: accounts, Concurrency: 2}
	return NewRunner(loader, Options{Accounts: accounts, Policy: allocation.DefaultPolicy()}, zerolog.Nop())
}

type point struct {
	Date string
	TWR  float64
}

func points(e Entity) []point {
	var res []point
	for _, p := range e.Returns {
		res = append(res, point{p.Date.Format(date.Layout), p.TWR})
	}
	return res
}

func TestRunSingleAccount(t *testing.T) {
	r := newRunner(Sources{
		Accounts: fakeAccounts{"X": {
			{Date: "2025-01-01", Value: "1,000", Deposit: "1,000", Withdrawal: "0"},
			{Date: "2025-01-02", Value: "1,100", Deposit: "0", Withdrawal: "0"},
			{Date: "2025-01-03", Value: "1,200", Deposit: "100", Withdrawal: "0"},
		}},
	}, "X")

	rep, err := r.Run(context.Background())

	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	want := []point{{"2025-01-02", 10}, {"2025-01-03", 10}}
	for _, name := range []string{Total, "X"} {
		e, ok := rep.Entity(name)
		if !ok {
			t.Fatalf("Entity(%q) not found", name)
		}
		if diff := cmp.Diff(want, points(e), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("%s returns mismatch (-want +got):\n%s", name, diff)
		}
		if !e.Gain.Valid || !e.Gain.Decimal.Equal(d("100")) {
			t.Errorf("%s gain = %v, want 100", name, e.Gain)
		}
	}
	if !rep.Horizon.Equal(date.Date(2025, 1, 3)) {
		t.Errorf("Horizon = %v, want 2025-01-03", rep.Horizon)
	}
	// No catalog is configured.
	if got := rep.Failures.Of(Returns); len(got) != 0 {
		t.Errorf("returns failures = %v, want none", got)
	}
	if got := rep.Failures.Of(Allocation); len(got) != 1 || got[0].Kind != ConfigurationMissing {
		t.Errorf("allocation failures = %v, want one configuration failure", got)
	}
	if rep.Allocation != nil {
		t.Errorf("Allocation = %v, want nil", rep.Allocation)
	}
}

func TestRunHorizon(t *testing.T) {
	var a, b []ledger.RawRow
	for day := 6; day <= 10; day++ {
		ds := date.Date(2025, 1, day).Format(date.Layout)
		a = append(a, ledger.RawRow{Date: ds, Value: "100"})
		value := "100"
		if day > 8 {
			value = "0"
		}
		b = append(b, ledger.RawRow{Date: ds, Value: value})
	}
	r := newRunner(Sources{Accounts: fakeAccounts{"A": a, "B": b}}, "A", "B")

	rep, err := r.Run(context.Background())

	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if !rep.Horizon.Equal(date.Date(2025, 1, 8)) {
		t.Fatalf("Horizon = %v, want 2025-01-08", rep.Horizon)
	}
	want := []point{{"2025-01-07", 0}, {"2025-01-08", 0}}
	for _, name := range []string{Total, "A", "B"} {
		e, _ := rep.Entity(name)
		if diff := cmp.Diff(want, points(e), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("%s returns mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestRunFailedAccount(t *testing.T) {
	r := newRunner(Sources{
		Accounts: fakeAccounts{"A": {
			{Date: "2025-01-01", Value: "100"},
			{Date: "2025-01-02", Value: "110"},
		}},
	}, "A", "B")

	rep, err := r.Run(context.Background())

	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	failures := rep.Failures.Of(Returns)
	if len(failures) != 1 || failures[0].Entity != "B" || failures[0].Kind != SourceFailure {
		t.Fatalf("failures = %v, want a source failure for B", failures)
	}
	if !errors.Is(rep.Err(), errUnavailable) {
		t.Errorf("Err() = %v, want %v", rep.Err(), errUnavailable)
	}
	var partial bool
	for _, w := range rep.Warnings {
		partial = partial || w.Kind == PartialCoverage
	}
	if !partial {
		t.Errorf("warnings = %v, want partial coverage", rep.Warnings)
	}
	if !rep.Horizon.IsZero() {
		t.Errorf("Horizon = %v, want none", rep.Horizon)
	}
	total, _ := rep.Entity(Total)
	if diff := cmp.Diff([]point{{"2025-01-02", 10}}, points(total), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Total returns mismatch (-want +got):\n%s", diff)
	}
	b, ok := rep.Entity("B")
	if !ok || b.Returns != nil || b.Gain.Valid {
		t.Errorf("Entity(B) = %v, want empty result", b)
	}
}

func TestRunInsufficientData(t *testing.T) {
	r := newRunner(Sources{
		Accounts: fakeAccounts{
			"A": {{Date: "2025-01-01", Value: "100"}, {Date: "2025-01-02", Value: "110"}},
			"B": {{Date: "2025-01-02", Value: "50"}},
			"C": {{Date: "junk", Value: "1"}},
		},
	}, "A", "B", "C")
	r.opts.Pipelines = []string{Returns}

	rep, err := r.Run(context.Background())

	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	var got []string
	for _, f := range rep.Failures {
		if f.Kind != InsufficientData {
			t.Errorf("unexpected failure %v", f)
		}
		got = append(got, f.Entity)
	}
	if diff := cmp.Diff([]string{"B", "C"}, got); diff != "" {
		t.Errorf("failed entities mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(rep.Err(), aggregate.ErrNoAccounts) {
		t.Errorf("Err() = %v, want %v", rep.Err(), aggregate.ErrNoAccounts)
	}
	b, _ := rep.Entity("B")
	if !b.Gain.Valid || !b.Gain.Decimal.IsZero() {
		t.Errorf("B gain = %v, want 0", b.Gain)
	}
}

func TestRunDividends(t *testing.T) {
	r := newRunner(Sources{
		Accounts: fakeAccounts{"A": {
			{Date: "2025-01-01", Value: "1000"},
			{Date: "2025-01-02", Value: "950"},
		}},
		Dividends: fakeDividends{
			{Date: "2025-01-02", Account: "A", Amount: "50"},
			{Date: "2025-01-02", Account: "A", Amount: "0"},
			{Date: "2025-01-05", Account: "A", Amount: "10"},
		},
	}, "A")
	r.opts.Pipelines = []string{Returns}

	rep, err := r.Run(context.Background())

	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	a, _ := rep.Entity("A")
	if diff := cmp.Diff([]point{{"2025-01-02", 0}}, points(a), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("returns mismatch (-want +got):\n%s", diff)
	}
	if !a.Gain.Decimal.IsZero() {
		t.Errorf("gain = %v, want 0", a.Gain.Decimal)
	}
}

func TestRunPeriodAppliedAfterHorizon(t *testing.T) {
	dir := t.TempDir()
	ledgers := map[string]string{
		"A": "date,deposit,withdrawal,note,value\n" +
			"2025-01-01,100,0,,100\n" +
			"2025-01-02,0,0,,100\n" +
			"2025-01-03,0,0,,0\n" +
			"2025-01-04,0,0,,100\n",
		"B": "date,deposit,withdrawal,note,value\n" +
			"2025-01-01,100,0,,100\n" +
			"2025-01-02,0,0,,100\n" +
			"2025-01-03,0,0,,100\n" +
			"2025-01-04,0,0,,100\n",
	}
	files := &source.LedgerFiles{
		Layout: source.LedgerLayout{HeaderRows: 1, Date: 0, Deposit: 1, Withdrawal: 2, Value: 4},
		Files:  make(map[string]source.LedgerFile),
	}
	for account, content := range ledgers {
		path := filepath.Join(dir, account+".csv")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		files.Files[account] = source.LedgerFile{Path: path}
	}
	period := date.Period{End: date.Date(2025, 1, 3)}
	loader := &Loader{Sources: Sources{Accounts: files}, Accounts: []string{"A", "B"}, Concurrency: 2}
	r := NewRunner(loader, Options{Accounts: []string{"A", "B"}, Period: period, Policy: allocation.DefaultPolicy(), Pipelines: []string{Returns}}, zerolog.Nop())

	rep, err := r.Run(context.Background())

	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if !rep.Horizon.Equal(date.Date(2025, 1, 4)) {
		t.Errorf("Horizon = %v, want 2025-01-04", rep.Horizon)
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", rep.Warnings)
	}
	total, ok := rep.Entity(Total)
	if !ok {
		t.Fatalf("Entity(%q) not found", Total)
	}
	// 200 -> 200 -> 100 over the bounded period.
	want := []point{{"2025-01-02", 0}, {"2025-01-03", -50}}
	if diff := cmp.Diff(want, points(total), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Total returns mismatch (-want +got):\n%s", diff)
	}
}

func TestRunAllocation(t *testing.T) {
	targets := allocation.NewTargets()
	targets.Add(allocation.Class{AssetClass: "주식", Nationality: "한국"}, d("50"))
	r := newRunner(Sources{
		Accounts: fakeAccounts{"ISA": {{Date: "2025-01-01", Value: "1"}}},
		Holdings: fakeHoldings{
			holdings: []allocation.Holding{
				{Account: "ISA", Code: "A005930", Name: "삼성전자", Amount: d("600000")},
				{Account: "ISA", Code: "360750", Name: "S&P500", Amount: d("400000")},
			},
			balances: map[string]decimal.Decimal{"ISA": d("1000000"), "IRP": d("-5")},
		},
		Catalog: fakeCatalog{
			catalog: allocation.NewCatalog(
				allocation.Entry{Code: "005930", Class: allocation.Class{AssetClass: "주식", Nationality: "한국"}},
				allocation.Entry{Code: "360750", Class: allocation.Class{AssetClass: "주식", Nationality: "미국"}},
			),
			targets: targets,
		},
	}, "ISA")
	r.opts.Pipelines = []string{Allocation}

	rep, err := r.Run(context.Background())

	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if len(rep.Failures) != 0 {
		t.Fatalf("Failures = %v, want none", rep.Failures)
	}
	if rep.Entities != nil {
		t.Errorf("Entities = %v, want none", rep.Entities)
	}
	type row struct {
		Label                  string
		Current, Target, Delta string
	}
	var got []row
	for _, b := range rep.Allocation.Buckets {
		got = append(got, row{b.Label, b.CurrentPercent.String(), b.TargetPercent.String(), b.DeltaPercent.String()})
	}
	want := []row{
		{"미국 주식", "40", "0", "40"},
		{"한국 주식", "60", "50", "10"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("buckets mismatch (-want +got):\n%s", diff)
	}
}

func TestRunAllocationWithoutTargets(t *testing.T) {
	r := newRunner(Sources{
		Accounts: fakeAccounts{"ISA": {{Date: "2025-01-01", Value: "1"}, {Date: "2025-01-02", Value: "2"}}},
		Holdings: fakeHoldings{},
		Catalog:  fakeCatalog{catalog: allocation.NewCatalog(), targets: allocation.NewTargets()},
	}, "ISA")

	rep, err := r.Run(context.Background())

	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	failures := rep.Failures.Of(Allocation)
	if len(failures) != 1 || !errors.Is(failures[0], allocation.ErrNoTargets) {
		t.Fatalf("allocation failures = %v, want %v", failures, allocation.ErrNoTargets)
	}
	if len(rep.Failures.Of(Returns)) != 0 {
		t.Errorf("returns failures = %v, want none", rep.Failures.Of(Returns))
	}
	total, _ := rep.Entity(Total)
	if len(total.Returns) != 1 {
		t.Errorf("Total returns = %v, want one point", total.Returns)
	}
}

func TestRunCancelled(t *testing.T) {
	r := newRunner(Sources{Accounts: fakeAccounts{}}, "A")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want %v", err, context.Canceled)
	}
}

func TestPortfolioTotal(t *testing.T) {
	series := []ledger.Series{
		{Account: "A", Days: []ledger.Day{{Date: date.Date(2025, 1, 1), Value: d("100")}, {Date: date.Date(2025, 1, 2), Value: d("120")}}},
		{Account: "B", Days: []ledger.Day{{Date: date.Date(2025, 1, 2), Value: d("30")}}},
	}
	tests := []struct {
		desc     string
		balances map[string]decimal.Decimal
		want     decimal.Decimal
	}{
		{"balances", map[string]decimal.Decimal{"A": d("10"), "B": d("-3"), "C": d("5")}, d("15")},
		{"series", nil, d("150")},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			if got := PortfolioTotal(test.balances, series); !got.Equal(test.want) {
				t.Errorf("PortfolioTotal() = %v, want %v", got, test.want)
			}
		})
	}
	if got := PortfolioTotal(nil, nil); !got.IsZero() {
		t.Errorf("PortfolioTotal(nil, nil) = %v, want 0", got)
	}
}

func TestKindString(t *testing.T) {
	if got := PartialCoverage.String(); got != "partial coverage" {
		t.Errorf("String() = %q, want %q", got, "partial coverage")
	}
	f := Failure{Pipeline: Returns, Entity: "A", Kind: SourceFailure, Err: errUnavailable}
	if got, want := f.Error(), "returns: A: source failure: unavailable"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
