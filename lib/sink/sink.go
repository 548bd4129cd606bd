// Package sink writes run reports to files and databases.
package sink

import (
	"context"
	"database/sql"

	"go.uber.org/multierr"

	"github.com/sboehler/folio/lib/pipeline"
	"github.com/sboehler/folio/lib/store"
)

// Sink accepts the results of a run.
type Sink interface {
	Write(ctx context.Context, rep *pipeline.Report) error
}

// Multi writes to every sink, even if some fail.
type Multi []Sink

var _ Sink = Multi(nil)

// Write implements Sink.
func (m Multi) Write(ctx context.Context, rep *pipeline.Report) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Write(ctx, rep))
	}
	return err
}

// Store writes reports to a results database.
type Store struct {
	DB *sql.DB
}

var _ Sink = (*Store)(nil)

// Write implements Sink.
func (s *Store) Write(ctx context.Context, rep *pipeline.Report) error {
	return store.SaveReport(ctx, s.DB, rep)
}
