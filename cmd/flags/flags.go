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

package flags

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sboehler/folio/lib/common/date"
	"github.com/sboehler/folio/lib/config"
	"github.com/sboehler/folio/lib/logger"
	"github.com/sboehler/folio/lib/pipeline"
	"github.com/sboehler/folio/lib/source"
)

// DateFlag manages a flag to determine a date.
type DateFlag time.Time

var _ pflag.Value = (*DateFlag)(nil)

func (tf DateFlag) String() string {
	if tf.Value().IsZero() {
		return ""
	}
	return tf.Value().Format(date.Layout)
}

// Set implements pflag.Value.
func (tf *DateFlag) Set(v string) error {
	t, err := time.Parse(date.Layout, v)
	if err != nil {
		return err
	}
	*tf = (DateFlag)(t)
	return nil
}

// Type implements pflag.Value.
func (tf DateFlag) Type() string {
	return "YYYY-MM-DD"
}

// Value returns the flag value.
func (tf DateFlag) Value() time.Time {
	return time.Time(tf)
}

func (tf DateFlag) ValueOr(t time.Time) time.Time {
	v := tf.Value()
	if v.IsZero() {
		return t
	}
	return v
}

// PeriodFlags manages the flags restricting the evaluation period.
type PeriodFlags struct {
	from, to DateFlag
}

// Setup configures the flags.
func (pf *PeriodFlags) Setup(cmd *cobra.Command) {
	cmd.Flags().Var(&pf.from, "from", "evaluate from this date")
	cmd.Flags().Var(&pf.to, "to", "evaluate until this date")
}

// Value returns the period, falling back to the bounds of def.
func (pf PeriodFlags) Value(def date.Period) (date.Period, error) {
	res := date.Period{
		Start: pf.from.ValueOr(def.Start),
		End:   pf.to.ValueOr(def.End),
	}
	if !res.Start.IsZero() && !res.End.IsZero() && res.End.Before(res.Start) {
		return res, fmt.Errorf("period %s ends before it starts", res)
	}
	return res, nil
}

// EncodingFlag manages a flag to select a text encoding.
type EncodingFlag struct {
	name string
}

var _ pflag.Value = (*EncodingFlag)(nil)

func (ef EncodingFlag) String() string {
	return ef.name
}

// Set implements pflag.Value.
func (ef *EncodingFlag) Set(v string) error {
	if _, err := source.Encoding(v); err != nil {
		return err
	}
	ef.name = v
	return nil
}

// Type implements pflag.Value.
func (ef EncodingFlag) Type() string {
	return "<encoding>"
}

// ValueOr returns the encoding name, or def if none was given.
func (ef EncodingFlag) ValueOr(def string) string {
	if ef.name == "" {
		return def
	}
	return ef.name
}

// PipelineFlag manages a flag selecting pipelines.
type PipelineFlag struct {
	vals []string
}

var _ pflag.Value = (*PipelineFlag)(nil)

var pipelines = []string{pipeline.Returns, pipeline.Allocation}

func (pf PipelineFlag) String() string {
	return strings.Join(pf.vals, ",")
}

// Set implements pflag.Value.
func (pf *PipelineFlag) Set(v string) error {
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if !slices.Contains(pipelines, p) {
			return fmt.Errorf("unknown pipeline %q, expected one of %s", p, strings.Join(pipelines, ", "))
		}
		pf.vals = append(pf.vals, p)
	}
	return nil
}

// Type implements pflag.Value.
func (pf PipelineFlag) Type() string {
	return "<pipeline>"
}

// Value returns the selected pipelines. None means all.
func (pf PipelineFlag) Value() []string {
	return pf.vals
}

// LogFlags manages the logging flags.
type LogFlags struct {
	level  string
	pretty bool
}

// Setup configures the flags.
func (lf *LogFlags) Setup(cmd *cobra.Command) {
	cmd.Flags().StringVar(&lf.level, "log-level", "", "log level (debug, info, warn, error), overrides the configuration")
	cmd.Flags().BoolVar(&lf.pretty, "log-pretty", false, "human-readable log output")
}

// Logger creates the logger, writing to w.
func (lf LogFlags) Logger(cfg config.Log, w io.Writer) zerolog.Logger {
	c := logger.Config{Level: cfg.Level, Pretty: cfg.Pretty || lf.pretty, Output: w}
	if lf.level != "" {
		c.Level = lf.level
	}
	return logger.New(c)
}
