// Package source reads the raw inputs of a batch run: account ledgers,
// dividend journals, holdings and classification catalogs.
package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Encoding returns the text encoding with the given name. UTF-8 is the
// default; a leading byte order mark is removed.
func Encoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8", "utf-8-sig":
		return unicode.UTF8BOM, nil
	case "cp949":
		name = "euc-kr"
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

type decodedFile struct {
	io.Reader
	io.Closer
}

// Open opens a file and decodes it to UTF-8.
func Open(path, enc string) (io.ReadCloser, error) {
	e, err := Encoding(enc)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return decodedFile{e.NewDecoder().Reader(f), f}, nil
}

// Records iterates over the CSV records of a file, skipping the given
// number of header rows. Records may have varying lengths.
func Records(ctx context.Context, path, enc string, skip int) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		f, err := Open(path, enc)
		if err != nil {
			yield(nil, err)
			return
		}
		defer f.Close()
		for rec, err := range records(ctx, f, skip) {
			if err != nil {
				yield(nil, fmt.Errorf("%s: %w", path, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func records(ctx context.Context, r io.Reader, skip int) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		reader := newReader(r)
		for line := 0; ; line++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			rec, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if line < skip {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	return reader
}

// readTable reads a CSV file whose first record names the columns, and
// returns the remaining records together with the index of each wanted
// column.
func readTable(ctx context.Context, path, enc string, columns ...string) ([][]string, map[string]int, error) {
	f, err := Open(path, enc)
	if err != nil {
		return nil, nil, err
	}
	var (
		index map[string]int
		rows  [][]string
	)
	for rec, err := range records(ctx, f, 0) {
		if err != nil {
			return nil, nil, multierr.Append(fmt.Errorf("%s: %w", path, err), f.Close())
		}
		if index == nil {
			if index, err = headerIndex(rec, columns); err != nil {
				return nil, nil, multierr.Append(fmt.Errorf("%s: %w", path, err), f.Close())
			}
			continue
		}
		rows = append(rows, rec)
	}
	if err := f.Close(); err != nil {
		return nil, nil, err
	}
	if index == nil {
		return nil, nil, fmt.Errorf("%s: missing header row", path)
	}
	return rows, index, nil
}

func headerIndex(header []string, columns []string) (map[string]int, error) {
	index := make(map[string]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, ok := index[h]; !ok {
			index[h] = i
		}
	}
	res := make(map[string]int, len(columns))
	for _, c := range columns {
		i, ok := index[strings.ToLower(c)]
		if !ok {
			return nil, fmt.Errorf("missing column %q in header %q", c, header)
		}
		res[c] = i
	}
	return res, nil
}

// field returns rec[i], trimmed, or the empty string if the record is too
// short.
func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
