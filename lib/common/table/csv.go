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
	"encoding/csv"
	"io"
)

// CSVRenderer renders a table as comma-separated values. Numbers are
// written unformatted and rows without content are skipped.
type CSVRenderer struct{}

// Render writes the table to w.
func (CSVRenderer) Render(t *Table, w io.Writer) error {
	writer := csv.NewWriter(w)
	for _, row := range t.rows {
		var (
			rec   = make([]string, len(row.cells))
			blank = true
		)
		for i, c := range row.cells {
			switch c.kind {
			case text:
				rec[i] = c.text
			case number, percent:
				rec[i] = c.n.String()
			}
			if rec[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		if err := writer.Write(rec); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
