package allocation

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/sboehler/folio/lib/common/compare"
	"github.com/sboehler/folio/lib/common/dict"
)

// ErrNoTargets is returned by Targets.Validate if there are no targets.
var ErrNoTargets = errors.New("no target allocation")

var hundred = decimal.NewFromInt(100)

// Holding is a position held in an account.
type Holding struct {
	Account string
	Code    string
	Name    string
	Amount  decimal.Decimal
}

// ClassifiedHolding is a holding with its class and weight.
type ClassifiedHolding struct {
	Holding
	Class   Class
	Label   string
	Percent decimal.Decimal
	Matched bool
}

// Bucket compares current and target weights of a class.
type Bucket struct {
	Key            Class
	Label          string
	CurrentValue   decimal.Decimal
	CurrentPercent decimal.Decimal
	TargetPercent  decimal.Decimal
	TargetValue    decimal.Decimal
	DeltaPercent   decimal.Decimal
	DeltaValue     decimal.Decimal
}

// Report is the result of a reconciliation.
type Report struct {
	// Total is the portfolio value weights are computed against.
	Total decimal.Decimal
	// Baseline is the value target amounts are computed against.
	Baseline decimal.Decimal
	Buckets  []Bucket
	Holdings []ClassifiedHolding
	// Unclassified lists the codes not found in the catalog.
	Unclassified []string
	// Skipped counts holdings without a positive amount.
	Skipped int
}

// ZeroTotal reports whether the total is not positive, in which case all
// current weights are zero and the comparison is not actionable.
func (r *Report) ZeroTotal() bool {
	return !r.Total.IsPositive()
}

// Options configures a reconciliation.
type Options struct {
	// Total is the current portfolio value.
	Total decimal.Decimal
	// Baseline replaces Total for target amounts if valid.
	Baseline decimal.NullDecimal
}

// Reconcile classifies holdings, groups them into buckets and compares
// the buckets' weights against the targets. Buckets which only appear in
// the holdings or only in the targets are both reported; missing targets
// count as zero.
func Reconcile(c Classifier, targets *Targets, holdings []Holding, opts Options) *Report {
	rep := &Report{
		Total:    opts.Total,
		Baseline: opts.Total,
	}
	if opts.Baseline.Valid {
		rep.Baseline = opts.Baseline.Decimal
	}
	var (
		buckets      = make(map[Class]*Bucket)
		unclassified = make(map[string]bool)
	)
	bucket := func(key Class) *Bucket {
		return dict.GetDefault(buckets, key, func() *Bucket {
			return &Bucket{Key: key, Label: c.Label(key)}
		})
	}
	for _, h := range holdings {
		if !h.Amount.IsPositive() {
			rep.Skipped++
			continue
		}
		cls, ok := c.Classify(h.Code)
		if !ok && !unclassified[h.Code] {
			unclassified[h.Code] = true
			rep.Unclassified = append(rep.Unclassified, h.Code)
		}
		b := bucket(c.Key(cls))
		ch := ClassifiedHolding{
			Holding: h,
			Class:   cls,
			Label:   b.Label,
			Percent: rep.percentOf(h.Amount),
			Matched: ok,
		}
		b.CurrentValue = b.CurrentValue.Add(h.Amount)
		b.CurrentPercent = b.CurrentPercent.Add(ch.Percent)
		rep.Holdings = append(rep.Holdings, ch)
	}
	seen := make(map[Class]bool)
	for _, cls := range targets.Classes() {
		key := c.Key(cls)
		if seen[key] {
			continue
		}
		seen[key] = true
		p, _ := targets.Get(cls)
		bucket(key).TargetPercent = p
	}
	for _, b := range buckets {
		b.TargetValue = rep.Baseline.Mul(b.TargetPercent).Div(hundred)
		b.DeltaPercent = b.CurrentPercent.Sub(b.TargetPercent)
		b.DeltaValue = b.CurrentValue.Sub(b.TargetValue)
	}
	for _, b := range dict.SortedValues(buckets, compare.By(bucketLabel, compare.Ordered[string])) {
		rep.Buckets = append(rep.Buckets, *b)
	}
	compare.Sort(rep.Unclassified, compare.Ordered[string])
	return rep
}

func (r *Report) percentOf(amount decimal.Decimal) decimal.Decimal {
	if r.ZeroTotal() {
		return decimal.Zero
	}
	return amount.Div(r.Total).Mul(hundred)
}

func bucketLabel(b *Bucket) string {
	return b.Label
}

// Sum returns the totals over all buckets.
func (r *Report) Sum() Bucket {
	var res Bucket
	for _, b := range r.Buckets {
		res.CurrentValue = res.CurrentValue.Add(b.CurrentValue)
		res.CurrentPercent = res.CurrentPercent.Add(b.CurrentPercent)
		res.TargetPercent = res.TargetPercent.Add(b.TargetPercent)
		res.TargetValue = res.TargetValue.Add(b.TargetValue)
		res.DeltaPercent = res.DeltaPercent.Add(b.DeltaPercent)
		res.DeltaValue = res.DeltaValue.Add(b.DeltaValue)
	}
	return res
}
