// Package lookup loads the guid_prefix → type table used to derive the
// human-readable record type for each document. The table is a two-column
// CSV with headers "guid_prefix" and "type", loaded once per run and
// read-only afterward.
package lookup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"sort"
	"strings"
)

// Map is the immutable prefix→type mapping. Lookups are case-sensitive
// exact matches.
type Map map[string]string

// Resolve returns the mapped type for key, or key itself when no entry
// exists. It never fails: an unmapped prefix simply names itself.
func (m Map) Resolve(key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}

// SchemaError reports a lookup file that exists but lacks one or both
// required header columns. It is fatal: a malformed table must abort the
// run before any document is produced.
type SchemaError struct {
	Path    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("lookup file %q is missing required columns: %s",
		e.Path, strings.Join(e.Missing, ", "))
}

// Required header names.
const (
	keyColumn   = "guid_prefix"
	valueColumn = "type"
)

const utf8BOM = "\uFEFF"

// Load reads the lookup table at path. A missing file is not an error: a
// warning is logged and an empty Map is returned, which degrades every
// lookup to the identity fallback. A present but malformed file returns a
// *SchemaError.
//
// Row handling: keys and values are trimmed; rows with an empty key are
// skipped; rows with an empty value use the key as its own value; later
// duplicate keys overwrite earlier ones.
func Load(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("lookup: file %q not found; derived type will default to guid_prefix", path)
			return Map{}, nil
		}
		return nil, fmt.Errorf("open lookup file: %w", err)
	}
	defer f.Close()

	m, err := parse(f, path)
	if err != nil {
		return nil, err
	}
	log.Printf("lookup: loaded %d guid_prefix→type mappings from %q", len(m), path)
	return m, nil
}

func parse(r io.Reader, path string) (Map, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			// An empty file has no header row at all.
			return nil, &SchemaError{Path: path, Missing: []string{keyColumn, valueColumn}}
		}
		return nil, fmt.Errorf("read lookup header: %w", err)
	}

	keyIdx, valIdx := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		switch h {
		case keyColumn:
			keyIdx = i
		case valueColumn:
			valIdx = i
		}
	}

	var missing []string
	if keyIdx < 0 {
		missing = append(missing, keyColumn)
	}
	if valIdx < 0 {
		missing = append(missing, valueColumn)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &SchemaError{Path: path, Missing: missing}
	}

	m := Map{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read lookup row: %w", err)
		}
		key := cell(row, keyIdx)
		if key == "" {
			continue
		}
		val := cell(row, valIdx)
		if val == "" {
			val = key
		}
		m[key] = val
	}
	return m, nil
}

// cell returns the trimmed value at idx, or "" when the row is too short.
func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
