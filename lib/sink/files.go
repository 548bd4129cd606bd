package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/natefinch/atomic"
	"golang.org/x/text/encoding/unicode"

	"github.com/sboehler/folio/lib/common/date"
	"github.com/sboehler/folio/lib/pipeline"
)

// File names written by Files.
const (
	ReturnsFile    = "twr_results.csv"
	GainsFile      = "gain_loss.json"
	AllocationFile = "allocation.csv"
	HoldingsFile   = "holdings.csv"
)

// Files writes reports into a directory. Each file is replaced atomically.
type Files struct {
	Dir string
	// BOM prefixes CSV files with a UTF-8 byte order mark.
	BOM bool
}

var _ Sink = (*Files)(nil)

// Write implements Sink. Allocation files are only written if the
// allocation pipeline produced a result.
func (f *Files) Write(ctx context.Context, rep *pipeline.Report) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return err
	}
	if rep.Entities != nil {
		if err := f.writeCSV(ReturnsFile, returnRecords(rep)); err != nil {
			return err
		}
		b, err := Gains(rep)
		if err != nil {
			return err
		}
		if err := atomic.WriteFile(filepath.Join(f.Dir, GainsFile), bytes.NewReader(b)); err != nil {
			return err
		}
	}
	if rep.Allocation != nil {
		if err := f.writeCSV(AllocationFile, allocationRecords(rep)); err != nil {
			return err
		}
		if err := f.writeCSV(HoldingsFile, holdingRecords(rep)); err != nil {
			return err
		}
	}
	return nil
}

func (f *Files) writeCSV(name string, records [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return err
	}
	b := buf.Bytes()
	if f.BOM {
		var err error
		if b, err = unicode.UTF8BOM.NewEncoder().Bytes(b); err != nil {
			return err
		}
	}
	return atomic.WriteFile(filepath.Join(f.Dir, name), bytes.NewReader(b))
}

func returnRecords(rep *pipeline.Report) [][]string {
	res := [][]string{{"Date", "TWR", "Account"}}
	for _, e := range rep.Entities {
		for _, p := range e.Returns {
			res = append(res, []string{
				p.Date.Format(date.Layout),
				strconv.FormatFloat(p.TWR, 'f', -1, 64),
				e.Name,
			})
		}
	}
	return res
}

func allocationRecords(rep *pipeline.Report) [][]string {
	res := [][]string{{"Class", "AssetClass", "Nationality", "Value", "Weight", "Target", "Delta", "TargetValue", "DeltaValue"}}
	for _, b := range rep.Allocation.Buckets {
		res = append(res, []string{
			b.Label,
			b.Key.AssetClass,
			b.Key.Nationality,
			b.CurrentValue.StringFixed(0),
			b.CurrentPercent.StringFixed(2),
			b.TargetPercent.StringFixed(2),
			b.DeltaPercent.StringFixed(2),
			b.TargetValue.StringFixed(0),
			b.DeltaValue.StringFixed(0),
		})
	}
	return res
}

func holdingRecords(rep *pipeline.Report) [][]string {
	res := [][]string{{"Account", "Code", "Name", "AssetClass", "Nationality", "Class", "Amount", "Weight"}}
	for _, h := range rep.Allocation.Holdings {
		res = append(res, []string{
			h.Account,
			h.Code,
			h.Name,
			h.Class.AssetClass,
			h.Class.Nationality,
			h.Label,
			h.Amount.StringFixed(0),
			h.Percent.StringFixed(2),
		})
	}
	return res
}

// Gains renders the gain or loss per entity as a JSON object in entity
// order, with null for entities without a result.
func Gains(rep *pipeline.Report) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, e := range rep.Entities {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n    ")
		key, err := marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(": ")
		if e.Gain.Valid {
			buf.WriteString(e.Gain.Decimal.String())
		} else {
			buf.WriteString("null")
		}
	}
	if len(rep.Entities) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// marshal encodes a string without escaping HTML characters.
func marshal(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
