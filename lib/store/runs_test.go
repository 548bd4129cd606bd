package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sboehler/folio/lib/allocation"
	"github.com/sboehler/folio/lib/common/date"
	"github.com/sboehler/folio/lib/performance"
	"github.com/sboehler/folio/lib/pipeline"
)

func createAndMigrateInMemoryDB(ctx context.Context, t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("error creating in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleReport(t time.Time) *pipeline.Report {
	return &pipeline.Report{
		ID:      uuid.New(),
		Time:    t,
		Horizon: date.Date(2025, 1, 3),
		Entities: []pipeline.Entity{
			{
				Name: pipeline.Total,
				Returns: []performance.ReturnPoint{
					{Date: date.Date(2025, 1, 2), Factor: 1.1, Cumulative: 1.1, TWR: 10},
					{Date: date.Date(2025, 1, 3), Factor: 1, Cumulative: 1.1, TWR: 10},
				},
				Gain: decimal.NewNullDecimal(d("100")),
			},
			{Name: "IRP"},
		},
		Allocation: &allocation.Report{
			Total:    d("1000000"),
			Baseline: d("2000000"),
			Buckets: []allocation.Bucket{{
				Key:            allocation.Class{AssetClass: "주식", Nationality: "한국"},
				Label:          "한국 주식",
				CurrentValue:   d("600000"),
				CurrentPercent: d("60"),
				TargetPercent:  d("50"),
				TargetValue:    d("1000000"),
				DeltaPercent:   d("10"),
				DeltaValue:     d("-400000"),
			}},
			Holdings: []allocation.ClassifiedHolding{{
				Holding: allocation.Holding{Account: "ISA", Code: "005930", Name: "삼성전자", Amount: d("600000")},
				Class:   allocation.Class{AssetClass: "주식", Nationality: "한국"},
				Label:   "한국 주식",
				Percent: d("60"),
				Matched: true,
			}},
		},
		Failures: pipeline.Failures{
			{Pipeline: pipeline.Returns, Entity: "IRP", Kind: pipeline.SourceFailure, Err: errors.New("unavailable")},
		},
		Warnings: pipeline.Failures{
			{Pipeline: pipeline.Returns, Entity: pipeline.Total, Kind: pipeline.PartialCoverage, Err: errors.New("accounts without data: IRP")},
		},
	}
}

func TestSaveReport(t *testing.T) {
	var (
		ctx = context.Background()
		db  = createAndMigrateInMemoryDB(ctx, t)
		rep = sampleReport(time.Date(2025, 1, 4, 7, 30, 0, 0, time.UTC))
		id  = rep.ID.String()
	)

	require.NoError(t, SaveReport(ctx, db, rep))

	run, err := LatestRun(ctx, db)
	require.NoError(t, err)
	horizon := Date(date.Date(2025, 1, 3))
	wantRun := Run{
		ID:       id,
		Time:     rep.Time,
		Horizon:  &horizon,
		Total:    decimal.NewNullDecimal(d("1000000")),
		Baseline: decimal.NewNullDecimal(d("2000000")),
	}
	if diff := cmp.Diff(wantRun, run); diff != "" {
		t.Errorf("LatestRun() mismatch (-want +got):\n%s", diff)
	}

	returns, err := ListReturns(ctx, db, id, "")
	require.NoError(t, err)
	wantReturns := []Return{
		{Entity: pipeline.Total, Date: Date(date.Date(2025, 1, 2)), Factor: 1.1, TWR: 10},
		{Entity: pipeline.Total, Date: Date(date.Date(2025, 1, 3)), Factor: 1, TWR: 10},
	}
	if diff := cmp.Diff(wantReturns, returns); diff != "" {
		t.Errorf("ListReturns() mismatch (-want +got):\n%s", diff)
	}
	irp, err := ListReturns(ctx, db, id, "IRP")
	require.NoError(t, err)
	assert.Empty(t, irp)

	gains, err := ListGains(ctx, db, id)
	require.NoError(t, err)
	wantGains := []Gain{
		{Entity: pipeline.Total, Gain: decimal.NewNullDecimal(d("100"))},
		{Entity: "IRP"},
	}
	if diff := cmp.Diff(wantGains, gains); diff != "" {
		t.Errorf("ListGains() mismatch (-want +got):\n%s", diff)
	}

	buckets, err := ListAllocation(ctx, db, id)
	require.NoError(t, err)
	wantBuckets := []Bucket{{
		Label:          "한국 주식",
		AssetClass:     "주식",
		Nationality:    "한국",
		CurrentValue:   d("600000"),
		CurrentPercent: d("60"),
		TargetPercent:  d("50"),
		TargetValue:    d("1000000"),
		DeltaPercent:   d("10"),
		DeltaValue:     d("-400000"),
	}}
	if diff := cmp.Diff(wantBuckets, buckets); diff != "" {
		t.Errorf("ListAllocation() mismatch (-want +got):\n%s", diff)
	}

	holdings, err := ListHoldings(ctx, db, id)
	require.NoError(t, err)
	wantHoldings := []Holding{{
		Account: "ISA", Code: "005930", Name: "삼성전자",
		AssetClass: "주식", Nationality: "한국", Label: "한국 주식",
		Amount: d("600000"), Percent: d("60"), Matched: true,
	}}
	if diff := cmp.Diff(wantHoldings, holdings); diff != "" {
		t.Errorf("ListHoldings() mismatch (-want +got):\n%s", diff)
	}

	issues, err := ListIssues(ctx, db, id)
	require.NoError(t, err)
	wantIssues := []Issue{
		{Severity: SeverityFailure, Pipeline: "returns", Entity: "IRP", Kind: "source failure", Message: "unavailable"},
		{Severity: SeverityWarning, Pipeline: "returns", Entity: "Total", Kind: "partial coverage", Message: "accounts without data: IRP"},
	}
	if diff := cmp.Diff(wantIssues, issues); diff != "" {
		t.Errorf("ListIssues() mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveReportWithoutAllocation(t *testing.T) {
	var (
		ctx = context.Background()
		db  = createAndMigrateInMemoryDB(ctx, t)
		rep = sampleReport(time.Date(2025, 1, 4, 7, 30, 0, 0, time.UTC))
	)
	rep.Allocation = nil
	rep.Horizon = time.Time{}

	require.NoError(t, SaveReport(ctx, db, rep))

	run, err := LatestRun(ctx, db)
	require.NoError(t, err)
	assert.Nil(t, run.Horizon)
	assert.False(t, run.Total.Valid)
	buckets, err := ListAllocation(ctx, db, run.ID)
	require.NoError(t, err)
	assert.Empty(t, buckets)
}

func TestSaveReportDuplicate(t *testing.T) {
	var (
		ctx = context.Background()
		db  = createAndMigrateInMemoryDB(ctx, t)
		rep = sampleReport(time.Now())
	)
	require.NoError(t, SaveReport(ctx, db, rep))

	assert.Error(t, SaveReport(ctx, db, rep))

	runs, err := ListRuns(ctx, db, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestLatestRun(t *testing.T) {
	var (
		ctx   = context.Background()
		db    = createAndMigrateInMemoryDB(ctx, t)
		older = sampleReport(time.Date(2025, 1, 4, 7, 30, 0, 0, time.UTC))
		newer = sampleReport(time.Date(2025, 1, 5, 7, 30, 0, 0, time.UTC))
	)

	_, err := LatestRun(ctx, db)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SaveReport(ctx, db, newer))
	require.NoError(t, SaveReport(ctx, db, older))

	run, err := LatestRun(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, newer.ID.String(), run.ID)

	runs, err := ListRuns(ctx, db, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpenMigratesOnce(t *testing.T) {
	var (
		ctx  = context.Background()
		path = t.TempDir() + "/folio.db"
	)
	db, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, SaveReport(ctx, db, sampleReport(time.Now())))
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	runs, err := ListRuns(ctx, db, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestGetRun(t *testing.T) {
	var (
		ctx = context.Background()
		db  = createAndMigrateInMemoryDB(ctx, t)
		rep = sampleReport(time.Date(2025, 1, 4, 7, 30, 0, 0, time.UTC))
	)
	require.NoError(t, SaveReport(ctx, db, rep))

	run, err := GetRun(ctx, db, rep.ID.String())
	require.NoError(t, err)
	assert.Equal(t, rep.ID.String(), run.ID)

	_, err = GetRun(ctx, db, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
