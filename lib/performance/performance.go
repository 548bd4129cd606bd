// Copyright 2021 Silvio Böhler
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package performance

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/sboehler/folio/lib/ledger"
)

// ErrInsufficientData is returned when a series has too few days to
// compute a return.
var ErrInsufficientData = errors.New("insufficient data")

const (
	// Epsilon is the magnitude below which values and flows count as zero.
	Epsilon = 1e-9
	// MinFactor and MaxFactor bound a single day's performance factor.
	MinFactor = 0.1
	MaxFactor = 10.0
)

// Observation is a day's end value and net cash flow.
type Observation struct {
	Date        time.Time
	Value       float64
	NetCashFlow float64
}

// Observations converts a series into observations.
func Observations(s ledger.Series) []Observation {
	res := make([]Observation, 0, len(s.Days))
	for _, d := range s.Days {
		res = append(res, Observation{
			Date:        d.Date,
			Value:       d.Value.InexactFloat64(),
			NetCashFlow: d.NetCashFlow().InexactFloat64(),
		})
	}
	return res
}

// ReturnPoint is the cumulative time-weighted return up to a date.
type ReturnPoint struct {
	Date time.Time
	// Factor is the day's performance factor.
	Factor float64
	// Cumulative is the product of all factors up to and including Date.
	Cumulative float64
	// TWR is the cumulative return in percent.
	TWR float64
}

// DailyFactor computes the performance factor of a day which started at
// startValue and ended at value, with the day's net cash flow assumed to
// arrive before the close. Flows into an empty account are measured
// against themselves. Days without a usable base yield 1. The result is
// clipped to [MinFactor, MaxFactor].
func DailyFactor(startValue, value, netCashFlow float64) float64 {
	var (
		factor      = 1.0
		denominator = startValue + netCashFlow
	)
	switch {
	case math.Abs(startValue) < Epsilon && netCashFlow > Epsilon:
		factor = value / netCashFlow
	case startValue > Epsilon && math.Abs(denominator) > Epsilon:
		factor = value / denominator
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		factor = 1.0
	}
	return math.Max(MinFactor, math.Min(MaxFactor, factor))
}

// Returns chains daily factors into a cumulative return series. The
// first observation is the base and yields no point.
func Returns(obs []Observation) ([]ReturnPoint, error) {
	if len(obs) < 2 {
		return nil, ErrInsufficientData
	}
	factors := make([]float64, len(obs)-1)
	for i := 1; i < len(obs); i++ {
		factors[i-1] = DailyFactor(obs[i-1].Value, obs[i].Value, obs[i].NetCashFlow)
	}
	cumulative := floats.CumProd(make([]float64, len(factors)), factors)
	res := make([]ReturnPoint, len(factors))
	for i := range factors {
		res[i] = ReturnPoint{
			Date:       obs[i+1].Date,
			Factor:     factors[i],
			Cumulative: cumulative[i],
			TWR:        (cumulative[i] - 1) * 100,
		}
	}
	return res, nil
}

// Until returns the points dated on or before t.
func Until(points []ReturnPoint, t time.Time) []ReturnPoint {
	for i, p := range points {
		if p.Date.After(t) {
			return points[:i]
		}
	}
	return points
}
