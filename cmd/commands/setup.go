package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/cheggaaa/pb/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/sboehler/folio/cmd/flags"
	"github.com/sboehler/folio/lib/config"
	"github.com/sboehler/folio/lib/pipeline"
	"github.com/sboehler/folio/lib/sink"
	"github.com/sboehler/folio/lib/store"
)

// environment holds what a command needs to run the pipelines.
type environment struct {
	cfg    *config.Config
	log    zerolog.Logger
	loader *pipeline.Loader
	opts   pipeline.Options
}

// commonFlags are the flags of every command reading a configuration.
type commonFlags struct {
	logging  flags.LogFlags
	period   flags.PeriodFlags
	encoding flags.EncodingFlag
}

func (cf *commonFlags) setup(cmd *cobra.Command) {
	cf.logging.Setup(cmd)
	cf.period.Setup(cmd)
	cmd.Flags().Var(&cf.encoding, "encoding", "encoding of the ledger files, overrides the configuration")
}

func newEnvironment(cmd *cobra.Command, path string, cf commonFlags) (*environment, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.Ledger.Encoding = cf.encoding.ValueOr(cfg.Ledger.Encoding)
	loader, opts, err := pipeline.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if opts.Period, err = cf.period.Value(opts.Period); err != nil {
		return nil, err
	}
	return &environment{
		cfg:    cfg,
		log:    cf.logging.Logger(cfg.Log, cmd.ErrOrStderr()),
		loader: loader,
		opts:   opts,
	}, nil
}

// run runs the selected pipelines. If progress is non-nil, a progress bar
// over the accounts is written to it.
func (e *environment) run(ctx context.Context, pipelines []string, progress io.Writer) (*pipeline.Report, error) {
	opts := e.opts
	opts.Pipelines = pipelines
	loader := *e.loader
	if progress != nil {
		bar := pb.New(len(loader.Accounts)).SetWriter(progress).Start()
		defer bar.Finish()
		loader.OnAccount = func(string) { bar.Increment() }
	}
	return pipeline.NewRunner(&loader, opts, e.log).Run(ctx)
}

// sinks opens the configured sinks. The returned function releases them.
func (e *environment) sinks(ctx context.Context) (sink.Sink, func() error, error) {
	sinks := sink.Multi{&sink.Files{Dir: e.cfg.Output.Dir, BOM: e.cfg.Output.BOM}}
	if e.cfg.Output.Database == "" {
		return sinks, func() error { return nil }, nil
	}
	db, err := store.Open(ctx, e.cfg.Output.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("opening results database: %w", err)
	}
	return append(sinks, &sink.Store{DB: db}), db.Close, nil
}

// publish writes the report to all sinks.
func (e *environment) publish(ctx context.Context, rep *pipeline.Report) (err error) {
	s, release, err := e.sinks(ctx)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, release()) }()
	if err := s.Write(ctx, rep); err != nil {
		return err
	}
	e.log.Info().
		Str("run", rep.ID.String()).
		Str("dir", e.cfg.Output.Dir).
		Bool("database", e.cfg.Output.Database != "").
		Msg("Published results")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.Output.Database == "" {
		return nil, errors.New("no results database configured (output.database)")
	}
	return store.Open(ctx, cfg.Output.Database)
}
