// Package transform converts raw occurrence rows into typed documents
// according to the schema field table. Row is a pure function: no I/O and
// no state beyond the read-only lookup map, so preview and live runs
// produce byte-identical documents by construction.
package transform

import (
	"strconv"
	"strings"

	"arctosloader/internal/lookup"
	"arctosloader/internal/records"
	"arctosloader/internal/schema"
)

// Row transforms one raw row. Per schema field:
//
//   - column absent from the row → field absent from the document
//   - integer/float → parsed number, or explicit nil when the cell is
//     empty or unparseable
//   - collectors → comma-split list of trimmed, non-empty strings
//   - anything else → trimmed string as-is
//
// The derived type field is filled last: the lookup value for the row's
// guid_prefix, or the prefix itself when unmapped (empty string when the
// prefix is absent). Row never fails.
func Row(row records.Record, types lookup.Map) records.Document {
	doc := make(records.Document, len(schema.Fields))
	for _, f := range schema.Fields {
		if f.Name == schema.DerivedField {
			continue
		}
		raw, ok := row[f.Name]
		if !ok {
			continue
		}
		val := strings.TrimSpace(raw)
		switch {
		case f.Type == schema.Integer:
			doc[f.Name] = parseInt(val)
		case f.Type == schema.Float:
			doc[f.Name] = parseFloat(val)
		case f.Name == schema.CollectorsField:
			doc[f.Name] = splitList(val)
		default:
			doc[f.Name] = val
		}
	}

	prefix, _ := doc[schema.KeyField].(string)
	doc[schema.DerivedField] = types.Resolve(prefix)
	return doc
}

// parseInt returns int or nil; a parse failure is recovered locally as an
// explicit null, never an error and never zero.
func parseInt(s string) any {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return n
}

func parseFloat(s string) any {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return f
}

// splitList splits on commas, trims each piece, and drops empties. Order
// and duplicates are preserved. The result is never nil so an empty cell
// serializes as an empty list, not null.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
