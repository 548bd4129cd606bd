package commands

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sboehler/folio/lib/allocation"
	"github.com/sboehler/folio/lib/common/table"
	"github.com/sboehler/folio/lib/pipeline"
)

// CreateAllocationCommand creates the command.
func CreateAllocationCommand() *cobra.Command {
	var r allocationRunner
	c := &cobra.Command{
		Use:   "allocation <config>",
		Short: "compare the current allocation with the targets",
		Long: `Classify the current holdings by asset class and nationality and compare
their weights with the target allocation.`,

		Args: cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),

		Run: r.run,
	}
	r.setupFlags(c)
	return c
}

type allocationRunner struct {
	commonFlags

	flat     bool
	holdings bool

	// formatting
	csv       bool
	color     bool
	thousands bool
	digits    int32
}

func (r *allocationRunner) setupFlags(cmd *cobra.Command) {
	r.commonFlags.setup(cmd)
	cmd.Flags().BoolVar(&r.flat, "flat", false, "render one row per bucket instead of a class tree")
	cmd.Flags().BoolVar(&r.holdings, "holdings", false, "render the classified holdings")
	cmd.Flags().BoolVar(&r.csv, "csv", false, "render csv")
	cmd.Flags().BoolVar(&r.color, "color", true, "print output in color")
	cmd.Flags().BoolVarP(&r.thousands, "thousands", "k", false, "show numbers in units of 1000")
	cmd.Flags().Int32Var(&r.digits, "digits", 0, "round to number of digits")
}

func (r *allocationRunner) run(cmd *cobra.Command, args []string) {
	if err := r.execute(cmd, args); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func (r *allocationRunner) execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnvironment(cmd, args[0], r.commonFlags)
	if err != nil {
		return err
	}
	rep, err := env.run(ctx, []string{pipeline.Allocation}, nil)
	if err != nil {
		return err
	}
	if err := printIssues(cmd.ErrOrStderr(), rep, pipeline.Allocation); err != nil {
		return err
	}
	if rep.Allocation == nil {
		return rep.Failures.Of(pipeline.Allocation).Err()
	}
	var tbl *table.Table
	if r.holdings {
		tbl = renderHoldings(rep.Allocation)
	} else {
		rn := allocation.Renderer{Flat: r.flat}
		tbl = rn.Render(rep.Allocation)
	}
	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()
	return renderer(r.csv, r.color, r.thousands, r.digits).Render(tbl, out)
}

func renderHoldings(rep *allocation.Report) *table.Table {
	tbl := table.New(1, 5)
	tbl.AddSeparatorRow()
	header := tbl.AddRow().AddText("Account", table.Center)
	for _, h := range []string{"Code", "Name", "Class", "Value", "Weight"} {
		header.AddText(h, table.Center)
	}
	tbl.AddSeparatorRow()
	for _, h := range rep.Holdings {
		tbl.AddRow().
			AddText(h.Account, table.Left).
			AddText(h.Code, table.Left).
			AddText(h.Name, table.Left).
			AddText(h.Label, table.Left).
			AddNumber(h.Amount).
			AddPercent(h.Percent)
	}
	tbl.AddSeparatorRow()
	return tbl
}
