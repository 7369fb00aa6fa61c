// Package backend defines the contract between the ingest pipeline and the
// search backend. The pipeline depends only on this interface; the concrete
// Elasticsearch client lives in the elastic subpackage, which keeps the
// transformer and submitter trivially testable against an in-memory fake.
package backend

import (
	"context"

	"arctosloader/internal/records"
)

// Action is one document destined for a named collection. Each action
// carries its own target, so a bulk call may in principle mix collections
// even though this loader always targets one per run. ID is optional; when
// empty the backend assigns one.
type Action struct {
	Collection string
	ID         string
	Doc        records.Document
}

// Indexer is the narrow sink interface the pipeline writes to.
type Indexer interface {
	// Exists reports whether a collection with the given name exists.
	Exists(ctx context.Context, name string) (bool, error)

	// Delete removes the named collection and everything in it.
	Delete(ctx context.Context, name string) error

	// Create makes the named collection with the given field→native-type
	// mapping.
	Create(ctx context.Context, name string, fields map[string]string) error

	// BulkIndex submits all actions in one bulk call. A non-nil error means
	// the batch as a whole cannot be considered indexed; partial item
	// rejections surface as an error too.
	BulkIndex(ctx context.Context, actions []Action) error
}
