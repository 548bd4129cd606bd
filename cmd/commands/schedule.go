package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sboehler/folio/lib/calendar"
	"github.com/sboehler/folio/lib/common/date"
)

// CreateScheduleCommand creates the command.
func CreateScheduleCommand() *cobra.Command {
	var r scheduleRunner
	c := &cobra.Command{
		Use:   "schedule <config>",
		Short: "run the pipelines on a schedule",
		Long: `Run the pipelines on every business day according to the configured cron
schedule. The evaluation ends at the last business day before the run.`,

		Args: cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),

		Run: r.run,
	}
	r.setupFlags(c)
	return c
}

type scheduleRunner struct {
	commonFlags

	spec string
	now  bool
}

func (r *scheduleRunner) setupFlags(cmd *cobra.Command) {
	r.commonFlags.setup(cmd)
	cmd.Flags().StringVar(&r.spec, "cron", "", "cron schedule with seconds, overrides the configuration")
	cmd.Flags().BoolVar(&r.now, "now", false, "run once immediately and exit")
}

func (r *scheduleRunner) run(cmd *cobra.Command, args []string) {
	if err := r.execute(cmd, args); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func (r *scheduleRunner) execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnvironment(cmd, args[0], r.commonFlags)
	if err != nil {
		return err
	}
	holidays, err := env.cfg.HolidayDates()
	if err != nil {
		return err
	}
	weekend, err := env.cfg.WeekendDays()
	if err != nil {
		return err
	}
	j := &batchJob{
		env:      env,
		calendar: calendar.New(holidays, weekend...),
		maxBack:  env.cfg.Calendar.MaxBack,
		log:      env.log.With().Str("component", "scheduler").Logger(),
	}
	if r.now {
		return j.run(ctx, date.Today())
	}
	spec := r.spec
	if spec == "" {
		spec = env.cfg.Schedule.Cron
	}
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, func() {
		if err := j.run(ctx, date.Today()); err != nil {
			j.log.Error().Err(err).Msg("Batch failed")
		}
	}); err != nil {
		return fmt.Errorf("cron schedule %q: %w", spec, err)
	}
	c.Start()
	j.log.Info().Str("schedule", spec).Msg("Scheduler started")
	<-ctx.Done()
	<-c.Stop().Done()
	j.log.Info().Msg("Scheduler stopped")
	return nil
}

// batchJob runs the pipelines for the last business day.
type batchJob struct {
	env      *environment
	calendar calendar.Oracle
	maxBack  int
	log      zerolog.Logger
}

// evaluationEnd returns the last business day before now. It returns
// false if now is not a business day or no business day was found.
func (j *batchJob) evaluationEnd(now time.Time) (time.Time, bool) {
	if !j.calendar.IsBusinessDay(now) {
		return time.Time{}, false
	}
	return calendar.LastBusinessDay(j.calendar, date.Truncate(now).AddDate(0, 0, -1), j.maxBack)
}

func (j *batchJob) run(ctx context.Context, now time.Time) error {
	end, ok := j.evaluationEnd(now)
	if !ok {
		j.log.Info().Str("day", now.Format(date.Layout)).Msg("No business day, skipping batch")
		return nil
	}
	env := *j.env
	if env.opts.Period.End.IsZero() || end.Before(env.opts.Period.End) {
		env.opts.Period.End = end
	}
	j.log.Info().Str("end", end.Format(date.Layout)).Msg("Running batch")
	rep, err := env.run(ctx, nil, nil)
	if err != nil {
		return err
	}
	if err := env.publish(ctx, rep); err != nil {
		return err
	}
	if err := rep.Err(); err != nil {
		j.log.Warn().Err(err).Msg("Batch finished with failures")
	}
	return nil
}
