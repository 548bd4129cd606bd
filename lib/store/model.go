package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Run is a stored run.
type Run struct {
	ID   string    `json:"id"`
	Time time.Time `json:"time"`
	// Horizon is nil if no common horizon was applied.
	Horizon  *Date               `json:"horizon"`
	Total    decimal.NullDecimal `json:"total"`
	Baseline decimal.NullDecimal `json:"baseline"`
}

// Return is one point of an entity's return series.
type Return struct {
	Entity string  `json:"entity"`
	Date   Date    `json:"date"`
	Factor float64 `json:"factor"`
	TWR    float64 `json:"twr"`
}

// Gain is the gain or loss of an entity, null if it could not be
// computed.
type Gain struct {
	Entity string              `json:"entity"`
	Gain   decimal.NullDecimal `json:"gain"`
}

// Bucket is a row of the allocation comparison.
type Bucket struct {
	Label          string          `json:"label"`
	AssetClass     string          `json:"asset_class"`
	Nationality    string          `json:"nationality"`
	CurrentValue   decimal.Decimal `json:"current_value"`
	CurrentPercent decimal.Decimal `json:"current_percent"`
	TargetPercent  decimal.Decimal `json:"target_percent"`
	TargetValue    decimal.Decimal `json:"target_value"`
	DeltaPercent   decimal.Decimal `json:"delta_percent"`
	DeltaValue     decimal.Decimal `json:"delta_value"`
}

// Holding is a classified holding.
type Holding struct {
	Account     string          `json:"account"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	AssetClass  string          `json:"asset_class"`
	Nationality string          `json:"nationality"`
	Label       string          `json:"label"`
	Amount      decimal.Decimal `json:"amount"`
	Percent     decimal.Decimal `json:"percent"`
	Matched     bool            `json:"matched"`
}

// Severities of an issue.
const (
	SeverityFailure = "failure"
	SeverityWarning = "warning"
)

// Issue is a failure or warning of a run.
type Issue struct {
	Severity string `json:"severity"`
	Pipeline string `json:"pipeline"`
	Entity   string `json:"entity,omitempty"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// Date is a calendar date which marshals as YYYY-MM-DD.
type Date time.Time

// Time returns the date as a time.
func (d Date) Time() time.Time {
	return time.Time(d)
}

// Equal reports whether both dates are the same instant.
func (d Date) Equal(o Date) bool {
	return d.Time().Equal(o.Time())
}

func (d Date) String() string {
	return d.Time().Format(layout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	t, err := time.Parse(layout, string(b))
	if err != nil {
		return err
	}
	*d = Date(t)
	return nil
}
