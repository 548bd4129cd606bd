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
	"github.com/shopspring/decimal"
)

// Table is a matrix of cells. Columns of the same group share one width.
type Table struct {
	groups []int
	rows   []*Row
}

// New creates a table whose columns are laid out in groups of the given
// sizes.
func New(groups ...int) *Table {
	var t Table
	for group, size := range groups {
		for range size {
			t.groups = append(t.groups, group)
		}
	}
	return &t
}

// AddRow adds a row.
func (t *Table) AddRow() *Row {
	row := &Row{width: len(t.groups)}
	t.rows = append(t.rows, row)
	return row
}

// AddSeparatorRow adds a row of separators.
func (t *Table) AddSeparatorRow() {
	row := t.AddRow()
	for range row.width {
		row.add(cell{kind: separator})
	}
}

// Row is a table row. Cells are added left to right.
type Row struct {
	cells []cell
	width int
}

func (r *Row) add(c cell) *Row {
	r.cells = append(r.cells, c)
	return r
}

// AddEmpty adds an empty cell.
func (r *Row) AddEmpty() *Row {
	return r.add(cell{})
}

// AddText adds a text cell.
func (r *Row) AddText(content string, align Alignment) *Row {
	return r.add(cell{kind: text, text: content, align: align})
}

// AddIndented adds a left-aligned text cell.
func (r *Row) AddIndented(content string, indent int) *Row {
	return r.add(cell{kind: text, text: content, indent: indent})
}

// AddNumber adds an amount.
func (r *Row) AddNumber(n decimal.Decimal) *Row {
	return r.add(cell{kind: number, n: n})
}

// AddPercent adds a percentage.
func (r *Row) AddPercent(n decimal.Decimal) *Row {
	return r.add(cell{kind: percent, n: n})
}

// FillEmpty pads the row with empty cells.
func (r *Row) FillEmpty() {
	for len(r.cells) < r.width {
		r.AddEmpty()
	}
}

// Alignment is the alignment of a text cell.
type Alignment int

const (
	// Left aligns to the left.
	Left Alignment = iota
	// Center centers.
	Center
)

type kind int

const (
	empty kind = iota
	separator
	text
	number
	percent
)

type cell struct {
	kind   kind
	text   string
	align  Alignment
	indent int
	n      decimal.Decimal
}

func (c cell) isSep() bool {
	return c.kind == separator
}
