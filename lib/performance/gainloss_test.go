package performance

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sboehler/folio/lib/ledger"
)

func TestGainLoss(t *testing.T) {
	var tests = []struct {
		desc string
		rows []ledger.RawRow
		want string
	}{
		{
			desc: "initial deposit excluded",
			rows: []ledger.RawRow{
				{Date: "2025-01-01", Value: "1000", Deposit: "1000"},
				{Date: "2025-01-02", Value: "1100"},
				{Date: "2025-01-03", Value: "1200", Deposit: "100"},
			},
			want: "100",
		},
		{
			desc: "withdrawals count as gain",
			rows: []ledger.RawRow{
				{Date: "2025-01-01", Value: "1000"},
				{Date: "2025-01-02", Value: "600", Withdrawal: "500"},
			},
			want: "100",
		},
		{
			desc: "single day",
			rows: []ledger.RawRow{
				{Date: "2025-01-01", Value: "1000", Deposit: "1000"},
			},
			want: "0",
		},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			s, _ := ledger.Normalize("X", test.rows)

			got, err := GainLoss(s)

			if err != nil {
				t.Fatalf("GainLoss() returned unexpected error: %v", err)
			}
			if want := decimal.RequireFromString(test.want); !got.Equal(want) {
				t.Errorf("GainLoss() = %s, want %s", got, want)
			}
		})
	}
}

func TestGainLossEmpty(t *testing.T) {
	if _, err := GainLoss(ledger.Series{Account: "X"}); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("GainLoss() returned error %v, want %v", err, ErrInsufficientData)
	}
}
