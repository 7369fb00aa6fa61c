// Package records defines the row and document shapes shared across the
// ingest pipeline. Keeping them here lets the parser, transformer, and
// loader agree on data without importing each other.
package records

// Record is one raw CSV row: column name → raw cell value, exactly as read
// from the file. Records are transient; nothing retains them after
// transformation.
type Record map[string]string

// Document is one transformed row: field name → typed value. Values are
// string, []string, int, float64, or nil (an explicit null for numeric
// fields that were empty or unparseable). A field that was absent from the
// source row is absent from the Document, not nil.
type Document map[string]any
