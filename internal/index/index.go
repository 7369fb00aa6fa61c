// Package index manages the destination collection lifecycle.
package index

import (
	"context"
	"fmt"
	"log"

	"arctosloader/internal/backend"
	"arctosloader/internal/schema"
)

// EnsureFresh deletes the named collection if it exists, then recreates it
// with the canonical field mapping. Destructive: any prior documents under
// name are irrecoverably lost. Idempotent by construction; a second call
// yields the same empty collection and schema.
//
// Errors are fatal to the run and are surfaced, not retried: without a
// destination collection there is nothing to load into.
func EnsureFresh(ctx context.Context, sink backend.Indexer, name string) error {
	exists, err := sink.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %q: %w", name, err)
	}
	if exists {
		log.Printf("index: collection %q already exists; deleting and recreating", name)
		if err := sink.Delete(ctx, name); err != nil {
			return fmt.Errorf("delete collection %q: %w", name, err)
		}
	}
	if err := sink.Create(ctx, name, schema.Types()); err != nil {
		return fmt.Errorf("create collection %q: %w", name, err)
	}
	log.Printf("index: created collection %q with %d fields", name, len(schema.Fields))
	return nil
}
