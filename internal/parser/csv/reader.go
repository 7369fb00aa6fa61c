// Package csv implements a streaming reader for occurrence-record CSV
// files. It emits one header-keyed row at a time without whole-file
// buffering, so multi-GB dumps are safe to process.
//
// Row semantics mirror a dict-style CSV reader: every header column is
// present in every emitted row, short rows pad the missing cells with empty
// strings, and cells beyond the header width are dropped. Header names are
// folded to canonical snake_case identifiers (see NormalizeName) before
// they are used as keys.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"arctosloader/internal/records"
)

const utf8BOM = "\uFEFF"

// Reader streams rows from one CSV input. It is not concurrency-safe.
type Reader struct {
	cr      *csv.Reader
	headers []string
	line    int
}

// NewReader wraps r and consumes the header row. The underlying csv.Reader
// runs in lenient mode (lazy quotes, variable field count, no field size
// cap); width oddities are absorbed by the padding/truncation rules rather
// than aborting the file.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	h, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	headers := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		headers[i] = NormalizeName(c)
	}

	return &Reader{cr: cr, headers: headers, line: 1}, nil
}

// Headers returns the normalized column names in file order.
func (r *Reader) Headers() []string { return r.headers }

// Line returns the 1-based line number of the most recently read row.
func (r *Reader) Line() int { return r.line }

// Next returns the next row, or io.EOF when the file is exhausted. Any
// other error refers to a single unparseable line; the reader remains
// usable and the caller may skip and continue.
func (r *Reader) Next() (records.Record, error) {
	row, err := r.cr.Read()
	if err != nil {
		if err != io.EOF {
			r.line++
		}
		return nil, err
	}
	r.line++

	rec := make(records.Record, len(r.headers))
	for i, name := range r.headers {
		if i < len(row) {
			rec[name] = row[i]
		} else {
			rec[name] = ""
		}
	}
	return rec, nil
}
