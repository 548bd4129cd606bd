package allocation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClassify(t *testing.T) {
	c := Classifier{
		Catalog: NewCatalog(Entry{Code: "005930", Class: Class{"주식", "한국"}}),
		Policy:  DefaultPolicy(),
	}
	var tests = []struct {
		code      string
		want      Class
		wantOK    bool
		wantLabel string
	}{
		{"A005930", Class{"주식", "한국"}, true, "한국 주식"},
		{"GOLD", Class{"대체투자", "기타"}, true, "대체투자 (금현물)"},
		{"XYZ", Class{"미분류", "미분류"}, false, "미분류"},
	}
	for _, test := range tests {
		got, ok := c.Classify(test.code)
		if got != test.want || ok != test.wantOK {
			t.Errorf("Classify(%q) = %v, %t, want %v, %t", test.code, got, ok, test.want, test.wantOK)
		}
		if label := c.Label(c.Key(got)); label != test.wantLabel {
			t.Errorf("Label(%v) = %q, want %q", got, label, test.wantLabel)
		}
	}
}

func TestClassifyGoldFromCatalog(t *testing.T) {
	c := Classifier{
		Catalog: NewCatalog(Entry{Code: "GOLD", Class: Class{"원자재", "기타"}}),
		Policy:  DefaultPolicy(),
	}

	if got, _ := c.Classify("GOLD"); got != (Class{"원자재", "기타"}) {
		t.Errorf("Classify(GOLD) = %v, want catalog class", got)
	}
}

func TestKeyCollapsesAlternative(t *testing.T) {
	c := Classifier{Policy: DefaultPolicy()}

	if got, want := c.Key(Class{"대체투자", "미국"}), (Class{"대체투자", "기타"}); got != want {
		t.Errorf("Key() = %v, want %v", got, want)
	}
}

func TestReconcileWithoutTargets(t *testing.T) {
	var (
		c = Classifier{
			Catalog: NewCatalog(
				Entry{Code: "005930", Class: Class{"주식", "한국"}},
				Entry{Code: "AAPL", Class: Class{"주식", "미국"}},
			),
			Policy: DefaultPolicy(),
		}
		holdings = []Holding{
			{Account: "ISA", Code: "005930", Amount: d("600000")},
			{Account: "ISA", Code: "AAPL", Amount: d("400000")},
		}
	)

	rep := Reconcile(c, nil, holdings, Options{Total: d("1000000")})

	if len(rep.Buckets) != 2 {
		t.Fatalf("Reconcile() returned %d buckets, want 2", len(rep.Buckets))
	}
	for _, b := range rep.Buckets {
		if !b.TargetPercent.IsZero() {
			t.Errorf("bucket %s: target = %s, want 0", b.Label, b.TargetPercent)
		}
		if !b.DeltaPercent.Equal(b.CurrentPercent) {
			t.Errorf("bucket %s: delta = %s, want %s", b.Label, b.DeltaPercent, b.CurrentPercent)
		}
	}
	if !rep.Buckets[1].CurrentPercent.Equal(d("60")) {
		t.Errorf("bucket %s: weight = %s, want 60", rep.Buckets[1].Label, rep.Buckets[1].CurrentPercent)
	}
}

func createReconcileInput() (Classifier, *Targets, []Holding) {
	var (
		c = Classifier{
			Catalog: NewCatalog(
				Entry{Code: "005930", Name: "삼성전자", Class: Class{"주식", "한국"}},
				Entry{Code: "360750", Name: "TIGER 미국S&P500", Class: Class{"주식", "미국"}},
			),
			Policy: DefaultPolicy(),
		}
		targets  = NewTargets()
		holdings = []Holding{
			{Account: "ISA", Code: "A005930", Name: "삼성전자", Amount: d("300000")},
			{Account: "연금", Code: "KRX:360750", Name: "TIGER 미국S&P500", Amount: d("500000")},
			{Account: "금현물", Code: "GOLD", Name: "금현물", Amount: d("100000")},
			{Account: "IRP", Code: "XYZ", Name: "unknown", Amount: d("100000")},
			{Account: "IRP", Code: "000000", Name: "sold", Amount: d("0")},
		}
	)
	targets.Add(Class{"주식", "한국"}, d("30"))
	targets.Add(Class{"주식", "미국"}, d("50"))
	targets.Add(Class{"대체투자", "기타"}, d("10"))
	targets.Add(Class{"채권", "한국"}, d("10"))
	return c, targets, holdings
}

func TestReconcile(t *testing.T) {
	var (
		c, targets, holdings = createReconcileInput()
		want                 = []Bucket{
			{Key: Class{"대체투자", "기타"}, Label: "대체투자 (금현물)", CurrentValue: d("100000"), CurrentPercent: d("10"), TargetPercent: d("10"), TargetValue: d("100000"), DeltaPercent: d("0"), DeltaValue: d("0")},
			{Key: Class{"주식", "미국"}, Label: "미국 주식", CurrentValue: d("500000"), CurrentPercent: d("50"), TargetPercent: d("50"), TargetValue: d("500000"), DeltaPercent: d("0"), DeltaValue: d("0")},
			{Key: Class{"미분류", "미분류"}, Label: "미분류", CurrentValue: d("100000"), CurrentPercent: d("10"), TargetPercent: d("0"), TargetValue: d("0"), DeltaPercent: d("10"), DeltaValue: d("100000")},
			{Key: Class{"주식", "한국"}, Label: "한국 주식", CurrentValue: d("300000"), CurrentPercent: d("30"), TargetPercent: d("30"), TargetValue: d("300000"), DeltaPercent: d("0"), DeltaValue: d("0")},
			{Key: Class{"채권", "한국"}, Label: "한국 채권", CurrentValue: d("0"), CurrentPercent: d("0"), TargetPercent: d("10"), TargetValue: d("100000"), DeltaPercent: d("-10"), DeltaValue: d("-100000")},
		}
	)

	rep := Reconcile(c, targets, holdings, Options{Total: d("1000000")})

	if diff := cmp.Diff(want, rep.Buckets); diff != "" {
		t.Errorf("Reconcile() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"XYZ"}, rep.Unclassified); diff != "" {
		t.Errorf("Reconcile() unclassified mismatch (-want +got):\n%s", diff)
	}
	if rep.Skipped != 1 {
		t.Errorf("Reconcile() skipped %d holdings, want 1", rep.Skipped)
	}
	if len(rep.Holdings) != 4 {
		t.Errorf("Reconcile() classified %d holdings, want 4", len(rep.Holdings))
	}
	sum := rep.Sum()
	if !sum.CurrentPercent.Equal(d("100")) || !sum.TargetPercent.Equal(d("100")) {
		t.Errorf("Sum() = %v, want 100%% current and target", sum)
	}
}

func TestReconcileFixedBaseline(t *testing.T) {
	c, targets, holdings := createReconcileInput()

	rep := Reconcile(c, targets, holdings, Options{
		Total:    d("1000000"),
		Baseline: decimal.NewNullDecimal(d("2000000")),
	})

	b := rep.Buckets[3]
	if b.Label != "한국 주식" {
		t.Fatalf("bucket 3 = %s, want 한국 주식", b.Label)
	}
	if !b.TargetValue.Equal(d("600000")) || !b.DeltaValue.Equal(d("-300000")) {
		t.Errorf("bucket %s: target value %s, delta value %s, want 600000, -300000", b.Label, b.TargetValue, b.DeltaValue)
	}
	if !b.CurrentPercent.Equal(d("30")) {
		t.Errorf("bucket %s: weight = %s, want 30", b.Label, b.CurrentPercent)
	}
}

func TestReconcileZeroTotal(t *testing.T) {
	c, targets, holdings := createReconcileInput()

	rep := Reconcile(c, targets, holdings, Options{Total: decimal.Zero})

	if !rep.ZeroTotal() {
		t.Errorf("ZeroTotal() = false, want true")
	}
	for _, b := range rep.Buckets {
		if !b.CurrentPercent.IsZero() {
			t.Errorf("bucket %s: weight = %s, want 0", b.Label, b.CurrentPercent)
		}
	}
	for _, h := range rep.Holdings {
		if !h.Percent.IsZero() {
			t.Errorf("holding %s: weight = %s, want 0", h.Code, h.Percent)
		}
	}
}

func TestReconcileHoldings(t *testing.T) {
	c, targets, holdings := createReconcileInput()

	rep := Reconcile(c, targets, holdings, Options{Total: d("1000000")})

	want := ClassifiedHolding{
		Holding: holdings[1],
		Class:   Class{"주식", "미국"},
		Label:   "미국 주식",
		Percent: d("50"),
		Matched: true,
	}
	if diff := cmp.Diff(want, rep.Holdings[1], cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Reconcile() holding mismatch (-want +got):\n%s", diff)
	}
}
