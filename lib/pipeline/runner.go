// Package pipeline runs the returns and allocation pipelines of a batch
// and collects their results and failures.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sboehler/folio/lib/aggregate"
	"github.com/sboehler/folio/lib/allocation"
	"github.com/sboehler/folio/lib/common/date"
	"github.com/sboehler/folio/lib/ledger"
	"github.com/sboehler/folio/lib/performance"
)

// Total is the entity name of the aggregated portfolio.
const Total = "Total"

// Entity is the result of the returns pipeline for the portfolio total or
// one account. Returns is nil and Gain invalid if they could not be
// computed.
type Entity struct {
	Name    string
	Returns []performance.ReturnPoint
	Gain    decimal.NullDecimal
}

// Final returns the last return point.
func (e Entity) Final() (performance.ReturnPoint, bool) {
	if len(e.Returns) == 0 {
		return performance.ReturnPoint{}, false
	}
	return e.Returns[len(e.Returns)-1], true
}

// Report is the outcome of a run.
type Report struct {
	ID   uuid.UUID
	Time time.Time
	// Horizon is the common horizon of the total, zero if none applied.
	Horizon time.Time
	// Entities holds the total followed by the accounts.
	Entities   []Entity
	Allocation *allocation.Report
	// Failures lists the entities and pipelines without results.
	Failures Failures
	// Warnings lists recovered problems.
	Warnings Failures
}

// Err combines all failures.
func (r *Report) Err() error {
	return r.Failures.Err()
}

// Entity returns the entity with the given name.
func (r *Report) Entity(name string) (Entity, bool) {
	i := slices.IndexFunc(r.Entities, func(e Entity) bool { return e.Name == name })
	if i < 0 {
		return Entity{}, false
	}
	return r.Entities[i], true
}

func (r *Report) fail(pipeline, entity string, kind Kind, err error) {
	r.Failures = append(r.Failures, Failure{Pipeline: pipeline, Entity: entity, Kind: kind, Err: err})
}

func (r *Report) warn(pipeline, entity string, kind Kind, err error) {
	r.Warnings = append(r.Warnings, Failure{Pipeline: pipeline, Entity: entity, Kind: kind, Err: err})
}

// Options configures a run.
type Options struct {
	// Accounts are the account entities, in reporting order.
	Accounts []string
	// Required are the accounts which define the common horizon. All
	// accounts are required if empty.
	Required []string
	Period   date.Period
	Policy   allocation.Policy
	Baseline decimal.NullDecimal
	// Pipelines selects the pipelines to run. All run if empty.
	Pipelines []string
}

// Runner runs the pipelines.
type Runner struct {
	loader *Loader
	opts   Options
	log    zerolog.Logger
	now    func() time.Time
}

// NewRunner creates a runner.
func NewRunner(loader *Loader, opts Options, log zerolog.Logger) *Runner {
	if len(opts.Required) == 0 {
		opts.Required = opts.Accounts
	}
	return &Runner{
		loader: loader,
		opts:   opts,
		log:    log.With().Str("component", "pipeline").Logger(),
		now:    time.Now,
	}
}

func (r *Runner) enabled(pipeline string) bool {
	return len(r.opts.Pipelines) == 0 || slices.Contains(r.opts.Pipelines, pipeline)
}

// Run loads all inputs and runs the pipelines. A failing entity or
// pipeline is recorded in the report and does not stop the others; Run
// itself only fails if ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{ID: uuid.New(), Time: r.now()}
	log := r.log.With().Str("run", rep.ID.String()).Logger()
	log.Info().Strs("accounts", r.opts.Accounts).Stringer("period", r.opts.Period).Msg("Starting run")

	in, err := r.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	var series []ledger.Series
	for _, a := range in.Accounts {
		if a.Err != nil {
			log.Warn().Str("account", a.Account).Err(a.Err).Msg("Failed to load account, excluding it")
			rep.fail(Returns, a.Account, SourceFailure, a.Err)
			continue
		}
		log.Debug().
			Str("account", a.Account).
			Int("rows", a.Stats.Rows).
			Int("dropped", a.Stats.Dropped).
			Int("duplicates", a.Stats.Duplicates).
			Int("days", len(a.Series.Days)).
			Msg("Loaded account")
		if a.Stats.Dropped > 0 {
			rep.warn(Returns, a.Account, DataQuality, fmt.Errorf("dropped %d rows with unparsable dates", a.Stats.Dropped))
		}
		if a.Series.Empty() {
			log.Warn().Str("account", a.Account).Msg("Account has no data, excluding it")
		}
		series = append(series, a.Series)
	}
	if r.enabled(Returns) {
		r.returns(log, rep, in, series)
	}
	if r.enabled(Allocation) {
		r.allocation(log, rep, in, series)
	}
	log.Info().
		Int("failures", len(rep.Failures)).
		Int("warnings", len(rep.Warnings)).
		Msg("Finished run")
	return rep, nil
}

func (r *Runner) returns(log zerolog.Logger, rep *Report, in *Input, series []ledger.Series) {
	adjusted := r.adjust(log, rep, in, series)

	total := Entity{Name: Total}
	res, err := aggregate.Aggregate(adjusted, aggregate.Options{
		Name:     Total,
		Required: r.opts.Required,
		Period:   r.opts.Period,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Cannot aggregate the portfolio")
		rep.fail(Returns, Total, InsufficientData, err)
	} else {
		r.logAggregation(log, rep, res)
		rep.Horizon = res.Horizon
		total = r.entity(log, rep, res.Series)
	}
	rep.Entities = append(rep.Entities, total)

	byAccount := make(map[string]ledger.Series, len(adjusted))
	for _, s := range adjusted {
		byAccount[s.Account] = s
	}
	for _, account := range r.opts.Accounts {
		s, ok := byAccount[account]
		if !ok {
			// The load failure has been recorded.
			rep.Entities = append(rep.Entities, Entity{Name: account})
			continue
		}
		res, err := aggregate.Aggregate([]ledger.Series{s}, aggregate.Options{Name: account, Period: r.opts.Period})
		if err != nil {
			rep.fail(Returns, account, InsufficientData, err)
			rep.Entities = append(rep.Entities, Entity{Name: account})
			continue
		}
		if res.Trimmed > 0 {
			log.Debug().Str("account", account).Int("days", res.Trimmed).Msg("Trimmed trailing zero values")
		}
		s = res.Series
		if !rep.Horizon.IsZero() {
			s = s.Within(date.Period{End: rep.Horizon})
		}
		rep.Entities = append(rep.Entities, r.entity(log, rep, s))
	}
}

// adjust applies the dividends to every series. Without dividends the
// series are used as they are.
func (r *Runner) adjust(log zerolog.Logger, rep *Report, in *Input, series []ledger.Series) []ledger.Series {
	if in.DividendErr != nil {
		if !errors.Is(in.DividendErr, ErrNotConfigured) {
			log.Warn().Err(in.DividendErr).Msg("Failed to load dividends, continuing without adjustment")
			rep.warn(Returns, "", SourceFailure, in.DividendErr)
		}
		return series
	}
	if in.DividendStats.Dropped > 0 {
		rep.warn(Returns, "", DataQuality, fmt.Errorf("dropped %d dividend rows", in.DividendStats.Dropped))
	}
	var (
		dividends = ledger.GroupDividends(in.Dividends)
		res       = make([]ledger.Series, 0, len(series))
	)
	for _, s := range series {
		adj, stats, err := ledger.AdjustDividends(s, dividends)
		if err != nil {
			rep.warn(Returns, s.Account, DataQuality, err)
			res = append(res, s)
			continue
		}
		if stats.Days > 0 || stats.Unmatched > 0 {
			log.Info().
				Str("account", s.Account).
				Stringer("amount", stats.Applied).
				Int("days", stats.Days).
				Int("unmatched", stats.Unmatched).
				Msg("Applied dividends")
		}
		res = append(res, adj)
	}
	return res
}

func (r *Runner) logAggregation(log zerolog.Logger, rep *Report, res aggregate.Result) {
	if len(res.Missing) > 0 {
		log.Warn().Strs("accounts", res.Missing).Msg("Not all required accounts loaded, skipping horizon trimming")
		rep.warn(Returns, Total, PartialCoverage, fmt.Errorf("accounts without data: %s", strings.Join(res.Missing, ", ")))
	}
	if len(res.NotPositive) > 0 {
		log.Warn().Strs("accounts", res.NotPositive).Msg("Accounts without positive value, skipping horizon trimming")
		rep.warn(Returns, Total, DataQuality, fmt.Errorf("accounts without positive value: %s", strings.Join(res.NotPositive, ", ")))
	}
	if res.HasHorizon() {
		log.Info().
			Str("horizon", res.Horizon.Format(date.Layout)).
			Int("trimmed", res.Trimmed).
			Msg("Trimmed portfolio to common horizon")
	}
}

func (r *Runner) entity(log zerolog.Logger, rep *Report, s ledger.Series) Entity {
	e := Entity{Name: s.Account}
	points, err := performance.Returns(performance.Observations(s))
	if err != nil {
		log.Warn().Str("entity", s.Account).Int("days", len(s.Days)).Err(err).Msg("Cannot compute returns")
		rep.fail(Returns, s.Account, InsufficientData, err)
	} else {
		e.Returns = points
	}
	if gain, err := performance.GainLoss(s); err == nil {
		e.Gain = decimal.NewNullDecimal(gain)
	}
	return e
}

func (r *Runner) allocation(log zerolog.Logger, rep *Report, in *Input, series []ledger.Series) {
	if in.CatalogErr != nil {
		log.Error().Err(in.CatalogErr).Msg("Cannot load catalog")
		rep.fail(Allocation, "", ConfigurationMissing, in.CatalogErr)
		return
	}
	if err := in.Targets.Validate(); err != nil {
		log.Error().Err(err).Msg("Cannot compare allocation")
		rep.fail(Allocation, "", ConfigurationMissing, err)
		return
	}
	if in.HoldingsErr != nil {
		log.Error().Err(in.HoldingsErr).Msg("Cannot load holdings")
		rep.fail(Allocation, "", SourceFailure, in.HoldingsErr)
		return
	}
	if in.Catalog.Len() == 0 {
		log.Warn().Msg("Empty catalog, all holdings are unclassified")
		rep.warn(Allocation, "", ConfigurationMissing, errors.New("empty classification catalog"))
	}
	var (
		total = PortfolioTotal(in.Balances, series)
		c     = allocation.Classifier{Catalog: in.Catalog, Policy: r.opts.Policy}
		res   = allocation.Reconcile(c, in.Targets, in.Holdings, allocation.Options{
			Total:    total,
			Baseline: r.opts.Baseline,
		})
	)
	if res.ZeroTotal() {
		log.Warn().Stringer("total", total).Msg("Portfolio total is not positive, weights are zero")
		rep.warn(Allocation, "", DataQuality, fmt.Errorf("portfolio total %s is not positive", total))
	}
	if len(res.Unclassified) > 0 {
		log.Warn().Strs("codes", res.Unclassified).Msg("Unclassified holdings")
		rep.warn(Allocation, "", DataQuality, fmt.Errorf("unclassified codes: %s", strings.Join(res.Unclassified, ", ")))
	}
	log.Info().
		Stringer("total", res.Total).
		Stringer("baseline", res.Baseline).
		Int("buckets", len(res.Buckets)).
		Int("holdings", len(res.Holdings)).
		Msg("Compared allocation")
	rep.Allocation = res
}

// PortfolioTotal returns the sum of the non-negative account balances. If
// there are none, it returns the latest value of the unadjusted aggregated
// series.
func PortfolioTotal(balances map[string]decimal.Decimal, series []ledger.Series) decimal.Decimal {
	if len(balances) > 0 {
		var total decimal.Decimal
		for _, b := range balances {
			if !b.IsNegative() {
				total = total.Add(b)
			}
		}
		return total
	}
	res, err := aggregate.Aggregate(series, aggregate.Options{Name: Total})
	if err != nil {
		return decimal.Zero
	}
	if last, ok := res.Series.Last(); ok {
		return last.Value
	}
	return decimal.Zero
}
