package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/sboehler/folio/lib/common/date"
	"github.com/sboehler/folio/lib/pipeline"
)

// ErrNotFound is returned if no run exists.
var ErrNotFound = errors.New("not found")

const (
	layout     = date.Layout
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// SaveReport stores a run report in a single transaction.
func SaveReport(ctx context.Context, db *sql.DB, rep *pipeline.Report) (err error) {
	txn, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, txn.Rollback())
		}
	}()
	if err = InsertRun(ctx, txn, rep); err != nil {
		return err
	}
	id := rep.ID.String()
	for i, e := range rep.Entities {
		if err = InsertEntity(ctx, txn, id, i, e); err != nil {
			return err
		}
	}
	if rep.Allocation != nil {
		for i, b := range rep.Allocation.Buckets {
			if err = InsertBucket(ctx, txn, id, i, Bucket{
				Label:          b.Label,
				AssetClass:     b.Key.AssetClass,
				Nationality:    b.Key.Nationality,
				CurrentValue:   b.CurrentValue,
				CurrentPercent: b.CurrentPercent,
				TargetPercent:  b.TargetPercent,
				TargetValue:    b.TargetValue,
				DeltaPercent:   b.DeltaPercent,
				DeltaValue:     b.DeltaValue,
			}); err != nil {
				return err
			}
		}
		for i, h := range rep.Allocation.Holdings {
			if err = InsertHolding(ctx, txn, id, i, Holding{
				Account:     h.Account,
				Code:        h.Code,
				Name:        h.Name,
				AssetClass:  h.Class.AssetClass,
				Nationality: h.Class.Nationality,
				Label:       h.Label,
				Amount:      h.Amount,
				Percent:     h.Percent,
				Matched:     h.Matched,
			}); err != nil {
				return err
			}
		}
	}
	var pos int
	for _, issues := range []struct {
		severity string
		fs       pipeline.Failures
	}{{SeverityFailure, rep.Failures}, {SeverityWarning, rep.Warnings}} {
		for _, f := range issues.fs {
			if err = InsertIssue(ctx, txn, id, pos, issues.severity, f); err != nil {
				return err
			}
			pos++
		}
	}
	return txn.Commit()
}

// InsertRun stores the run itself.
func InsertRun(ctx context.Context, db db, rep *pipeline.Report) error {
	var (
		horizon         sql.NullString
		total, baseline decimal.NullDecimal
	)
	if !rep.Horizon.IsZero() {
		horizon = sql.NullString{String: rep.Horizon.Format(layout), Valid: true}
	}
	if rep.Allocation != nil {
		total = decimal.NewNullDecimal(rep.Allocation.Total)
		baseline = decimal.NewNullDecimal(rep.Allocation.Baseline)
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO runs (id, time, horizon, total, baseline) VALUES (?, ?, ?, ?, ?)`,
		rep.ID.String(), rep.Time.UTC().Format(timeLayout), horizon, total, baseline)
	return err
}

// InsertEntity stores the gain and return series of an entity.
func InsertEntity(ctx context.Context, db db, runID string, position int, e pipeline.Entity) error {
	if _, err := db.ExecContext(ctx,
		`INSERT INTO gains (run_id, position, entity, gain) VALUES (?, ?, ?, ?)`,
		runID, position, e.Name, e.Gain); err != nil {
		return err
	}
	for _, p := range e.Returns {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO returns (run_id, position, entity, date, factor, twr) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, position, e.Name, p.Date.Format(layout), p.Factor, p.TWR); err != nil {
			return err
		}
	}
	return nil
}

// InsertBucket stores an allocation bucket.
func InsertBucket(ctx context.Context, db db, runID string, position int, b Bucket) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO allocation (run_id, position, label, asset_class, nationality,
		  current_value, current_percent, target_percent, target_value, delta_percent, delta_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, position, b.Label, b.AssetClass, b.Nationality,
		b.CurrentValue, b.CurrentPercent, b.TargetPercent, b.TargetValue, b.DeltaPercent, b.DeltaValue)
	return err
}

// InsertHolding stores a classified holding.
func InsertHolding(ctx context.Context, db db, runID string, position int, h Holding) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO holdings (run_id, position, account, code, name, asset_class, nationality, label, amount, percent, matched)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, position, h.Account, h.Code, h.Name, h.AssetClass, h.Nationality, h.Label, h.Amount, h.Percent, h.Matched)
	return err
}

// InsertIssue stores a failure or warning.
func InsertIssue(ctx context.Context, db db, runID string, position int, severity string, f pipeline.Failure) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO issues (run_id, position, severity, pipeline, entity, kind, message) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, position, severity, f.Pipeline, f.Entity, f.Kind.String(), f.Err.Error())
	return err
}

// LatestRun returns the most recent run.
func LatestRun(ctx context.Context, db db) (Run, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, time, horizon, total, baseline FROM runs ORDER BY time DESC LIMIT 1`)
	run, err := rowToRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return run, ErrNotFound
	}
	return run, err
}

// GetRun returns the run with the given ID.
func GetRun(ctx context.Context, db db, id string) (Run, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, time, horizon, total, baseline FROM runs WHERE id = ?`, id)
	run, err := rowToRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return run, ErrNotFound
	}
	return run, err
}

// ListRuns lists the most recent runs, newest first.
func ListRuns(ctx context.Context, db db, limit int) ([]Run, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, time, horizon, total, baseline FROM runs ORDER BY time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Run
	for rows.Next() {
		run, err := rowToRun(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}

func rowToRun(row scan) (Run, error) {
	var (
		res     Run
		t       string
		horizon sql.NullString
	)
	if err := row.Scan(&res.ID, &t, &horizon, &res.Total, &res.Baseline); err != nil {
		return res, err
	}
	var err error
	if res.Time, err = time.Parse(timeLayout, t); err != nil {
		return res, err
	}
	if horizon.Valid {
		var d Date
		if err := d.UnmarshalText([]byte(horizon.String)); err != nil {
			return res, err
		}
		res.Horizon = &d
	}
	return res, nil
}

// ListReturns lists the return series of a run, by entity and date. An
// empty entity lists all entities.
func ListReturns(ctx context.Context, db db, runID, entity string) ([]Return, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT entity, date, factor, twr FROM returns
		WHERE run_id = ? AND (? = '' OR entity = ?)
		ORDER BY position, date`,
		runID, entity, entity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Return
	for rows.Next() {
		var (
			r Return
			d string
		)
		if err := rows.Scan(&r.Entity, &d, &r.Factor, &r.TWR); err != nil {
			return nil, err
		}
		if err := r.Date.UnmarshalText([]byte(d)); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

// ListGains lists the gains of a run in entity order.
func ListGains(ctx context.Context, db db, runID string) ([]Gain, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT entity, gain FROM gains WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Gain
	for rows.Next() {
		var g Gain
		if err := rows.Scan(&g.Entity, &g.Gain); err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

// ListAllocation lists the allocation buckets of a run.
func ListAllocation(ctx context.Context, db db, runID string) ([]Bucket, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT label, asset_class, nationality, current_value, current_percent,
		  target_percent, target_value, delta_percent, delta_value
		FROM allocation WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Bucket
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Label, &b.AssetClass, &b.Nationality, &b.CurrentValue, &b.CurrentPercent,
			&b.TargetPercent, &b.TargetValue, &b.DeltaPercent, &b.DeltaValue); err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

// ListHoldings lists the classified holdings of a run.
func ListHoldings(ctx context.Context, db db, runID string) ([]Holding, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT account, code, name, asset_class, nationality, label, amount, percent, matched
		FROM holdings WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Holding
	for rows.Next() {
		var h Holding
		if err := rows.Scan(&h.Account, &h.Code, &h.Name, &h.AssetClass, &h.Nationality, &h.Label,
			&h.Amount, &h.Percent, &h.Matched); err != nil {
			return nil, err
		}
		res = append(res, h)
	}
	return res, rows.Err()
}

// ListIssues lists the failures and warnings of a run.
func ListIssues(ctx context.Context, db db, runID string) ([]Issue, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT severity, pipeline, entity, kind, message FROM issues WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Issue
	for rows.Next() {
		var i Issue
		if err := rows.Scan(&i.Severity, &i.Pipeline, &i.Entity, &i.Kind, &i.Message); err != nil {
			return nil, err
		}
		res = append(res, i)
	}
	return res, rows.Err()
}
