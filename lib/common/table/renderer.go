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

package table

import (
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"
)

// TextRenderer renders a table as text. Column widths account for
// double-width runes such as Hangul.
type TextRenderer struct {
	Color     bool
	Thousands bool
	Round     int32
}

var (
	green    = color.New(color.FgGreen)
	red      = color.New(color.FgRed)
	thousand = decimal.NewFromInt(1000)
)

// Render writes the table to w.
func (r *TextRenderer) Render(t *Table, w io.Writer) error {
	color.NoColor = !r.Color
	var (
		widths = r.widths(t)
		b      strings.Builder
	)
	for _, row := range t.rows {
		cells := row.cells
		b.WriteString(edge(cells[0], "| ", "+-"))
		for i, c := range cells {
			r.writeCell(&b, c, widths[i])
			if i < len(cells)-1 {
				b.WriteString(joint(c, cells[i+1]))
			}
		}
		b.WriteString(edge(cells[len(cells)-1], " |\n", "-+\n"))
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// widths returns the column widths, each the widest cell of its group.
func (r *TextRenderer) widths(t *Table) []int {
	groups := make(map[int]int)
	for _, row := range t.rows {
		for i, c := range row.cells {
			groups[t.groups[i]] = max(groups[t.groups[i]], r.width(c))
		}
	}
	res := make([]int, len(t.groups))
	for i, g := range t.groups {
		res[i] = groups[g]
	}
	return res
}

func (r *TextRenderer) width(c cell) int {
	switch c.kind {
	case text:
		if c.align == Left {
			return c.indent + runewidth.StringWidth(c.text)
		}
		return runewidth.StringWidth(c.text)
	case number, percent:
		return runewidth.StringWidth(r.format(c))
	}
	return 0
}

func (r *TextRenderer) writeCell(b *strings.Builder, c cell, width int) {
	switch c.kind {
	case empty:
		pad(b, width)
	case separator:
		b.WriteString(strings.Repeat("-", width))
	case text:
		w := runewidth.StringWidth(c.text)
		before := c.indent
		if c.align == Center {
			before = (width - w) / 2
		}
		pad(b, before)
		b.WriteString(c.text)
		pad(b, width-before-w)
	case number, percent:
		s := r.format(c)
		pad(b, width-runewidth.StringWidth(s))
		switch c.n.Sign() {
		case -1:
			red.Fprint(b, s)
		case 1:
			green.Fprint(b, s)
		default:
			b.WriteString(s)
		}
	}
}

func (r *TextRenderer) format(c cell) string {
	if c.kind == percent {
		return c.n.StringFixed(r.Round) + "%"
	}
	n := c.n
	if r.Thousands {
		n = n.Div(thousand)
	}
	return addThousandsSep(n.StringFixed(r.Round))
}

func pad(b *strings.Builder, n int) {
	if n > 0 {
		b.WriteString(strings.Repeat(" ", n))
	}
}

// edge returns the row border next to c.
func edge(c cell, plain, sep string) string {
	if c.isSep() {
		return sep
	}
	return plain
}

// joint returns the column border between two cells.
func joint(c1, c2 cell) string {
	switch {
	case c1.isSep() && c2.isSep():
		return "-+-"
	case c1.isSep():
		return "-+ "
	case c2.isSep():
		return " +-"
	}
	return " | "
}

// addThousandsSep groups the integer digits of a formatted number.
func addThousandsSep(s string) string {
	var sign string
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	integer, fraction, ok := strings.Cut(s, ".")
	var b strings.Builder
	b.WriteString(sign)
	for i, ch := range integer {
		if i > 0 && (len(integer)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	if ok {
		b.WriteByte('.')
		b.WriteString(fraction)
	}
	return b.String()
}
