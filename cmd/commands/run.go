package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sboehler/folio/cmd/flags"
	"github.com/sboehler/folio/lib/common/date"
	"github.com/sboehler/folio/lib/common/table"
	"github.com/sboehler/folio/lib/pipeline"
)

// CreateRunCommand creates the command.
func CreateRunCommand() *cobra.Command {
	var r runRunner
	c := &cobra.Command{
		Use:   "run <config>",
		Short: "run the pipelines and publish the results",
		Long: `Run the returns and allocation pipelines and write the results to the
output directory and, if configured, the results database.`,

		Args: cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),

		Run: r.run,
	}
	r.setupFlags(c)
	return c
}

type runRunner struct {
	commonFlags
	pipelines flags.PipelineFlag

	output   string
	database string
	strict   bool
	progress bool
}

func (r *runRunner) setupFlags(cmd *cobra.Command) {
	r.commonFlags.setup(cmd)
	cmd.Flags().VarP(&r.pipelines, "pipeline", "p", "run only the given pipelines (returns, allocation)")
	cmd.Flags().StringVarP(&r.output, "output", "o", "", "output directory, overrides the configuration")
	cmd.Flags().StringVar(&r.database, "database", "", "results database, overrides the configuration")
	cmd.Flags().BoolVar(&r.strict, "strict", false, "fail if any pipeline failed")
	cmd.Flags().BoolVar(&r.progress, "progress", true, "show a progress bar while reading ledgers")
}

func (r *runRunner) run(cmd *cobra.Command, args []string) {
	if err := r.execute(cmd, args); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func (r *runRunner) execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnvironment(cmd, args[0], r.commonFlags)
	if err != nil {
		return err
	}
	if r.output != "" {
		env.cfg.Output.Dir = r.output
	}
	if r.database != "" {
		env.cfg.Output.Database = r.database
	}
	var progress io.Writer
	if r.progress {
		progress = cmd.ErrOrStderr()
	}
	rep, err := env.run(ctx, r.pipelines.Value(), progress)
	if err != nil {
		return err
	}
	if err := env.publish(ctx, rep); err != nil {
		return err
	}
	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()
	if err := printSummary(out, rep); err != nil {
		return err
	}
	if r.strict {
		return rep.Err()
	}
	return nil
}

// printSummary prints an overview of a run.
func printSummary(w io.Writer, rep *pipeline.Report) error {
	fmt.Fprintf(w, "run %s\n", rep.ID)
	if !rep.Horizon.IsZero() {
		fmt.Fprintf(w, "horizon %s\n", rep.Horizon.Format(date.Layout))
	}
	if len(rep.Entities) > 0 {
		tr := table.TextRenderer{Round: 2}
		if err := tr.Render(returnSummary(rep, 2), w); err != nil {
			return err
		}
	}
	if rep.Allocation != nil {
		fmt.Fprintf(w, "allocation: %d buckets, %d holdings, total %s\n",
			len(rep.Allocation.Buckets), len(rep.Allocation.Holdings), rep.Allocation.Total.StringFixed(0))
	}
	for _, f := range rep.Failures {
		fmt.Fprintf(w, "failure: %v\n", f)
	}
	for _, f := range rep.Warnings {
		fmt.Fprintf(w, "warning: %v\n", f)
	}
	_, err := fmt.Fprintf(w, "%d failures, %d warnings\n", len(rep.Failures), len(rep.Warnings))
	return err
}
