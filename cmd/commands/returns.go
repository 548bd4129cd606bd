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

package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sboehler/folio/lib/common/date"
	"github.com/sboehler/folio/lib/common/table"
	"github.com/sboehler/folio/lib/pipeline"
)

// CreateReturnsCommand creates the command.
func CreateReturnsCommand() *cobra.Command {
	var r returnsRunner
	c := &cobra.Command{
		Use:   "returns <config>",
		Short: "compute portfolio returns",
		Long:  `Compute the time-weighted returns and gains of the portfolio and of every account.`,

		Args: cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),

		Run: r.run,
	}
	r.setupFlags(c)
	return c
}

type returnsRunner struct {
	commonFlags

	series bool

	// formatting
	csv       bool
	color     bool
	thousands bool
	digits    int32
}

func (r *returnsRunner) setupFlags(cmd *cobra.Command) {
	r.commonFlags.setup(cmd)
	cmd.Flags().BoolVar(&r.series, "series", false, "print the daily return series")
	cmd.Flags().BoolVar(&r.csv, "csv", false, "render csv")
	cmd.Flags().BoolVar(&r.color, "color", true, "print output in color")
	cmd.Flags().BoolVarP(&r.thousands, "thousands", "k", false, "show gains in units of 1000")
	cmd.Flags().Int32Var(&r.digits, "digits", 2, "round to number of digits")
}

func (r *returnsRunner) run(cmd *cobra.Command, args []string) {
	if err := r.execute(cmd, args); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func (r *returnsRunner) execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnvironment(cmd, args[0], r.commonFlags)
	if err != nil {
		return err
	}
	rep, err := env.run(ctx, []string{pipeline.Returns}, nil)
	if err != nil {
		return err
	}
	var tbl *table.Table
	if r.series {
		tbl = returnSeries(rep, r.digits)
	} else {
		tbl = returnSummary(rep, r.digits)
	}
	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()
	if err := renderer(r.csv, r.color, r.thousands, r.digits).Render(tbl, out); err != nil {
		return err
	}
	return printIssues(cmd.ErrOrStderr(), rep, pipeline.Returns)
}

func returnSummary(rep *pipeline.Report, digits int32) *table.Table {
	tbl := table.New(1, 3)
	tbl.AddSeparatorRow()
	tbl.AddRow().
		AddText("Entity", table.Center).
		AddText("Date", table.Center).
		AddText("TWR", table.Center).
		AddText("Gain", table.Center)
	tbl.AddSeparatorRow()
	for _, e := range rep.Entities {
		row := tbl.AddRow().AddText(e.Name, table.Left)
		if p, ok := e.Final(); ok {
			row.AddText(p.Date.Format(date.Layout), table.Left).AddPercent(round(p.TWR, digits))
		} else {
			row.AddEmpty().AddEmpty()
		}
		if e.Gain.Valid {
			row.AddNumber(e.Gain.Decimal.Round(digits))
		}
		row.FillEmpty()
	}
	tbl.AddSeparatorRow()
	return tbl
}

func returnSeries(rep *pipeline.Report, digits int32) *table.Table {
	tbl := table.New(1, 2)
	tbl.AddSeparatorRow()
	tbl.AddRow().
		AddText("Entity", table.Center).
		AddText("Date", table.Center).
		AddText("TWR", table.Center)
	tbl.AddSeparatorRow()
	for _, e := range rep.Entities {
		for _, p := range e.Returns {
			tbl.AddRow().
				AddText(e.Name, table.Left).
				AddText(p.Date.Format(date.Layout), table.Left).
				AddPercent(round(p.TWR, digits))
		}
	}
	tbl.AddSeparatorRow()
	return tbl
}

func round(f float64, digits int32) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(digits)
}

// Renderer renders a table.
type Renderer interface {
	Render(*table.Table, io.Writer) error
}

func renderer(csv, color, thousands bool, digits int32) Renderer {
	if csv {
		return &table.CSVRenderer{}
	}
	return &table.TextRenderer{
		Color:     color,
		Thousands: thousands,
		Round:     digits,
	}
}

// printIssues prints the failures and warnings of a pipeline.
func printIssues(w io.Writer, rep *pipeline.Report, name string) error {
	for _, f := range rep.Failures.Of(name) {
		if _, err := fmt.Fprintf(w, "failure: %v\n", f); err != nil {
			return err
		}
	}
	for _, f := range rep.Warnings.Of(name) {
		if _, err := fmt.Fprintf(w, "warning: %v\n", f); err != nil {
			return err
		}
	}
	return nil
}
