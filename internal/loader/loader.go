// Package loader accumulates transformed documents into bounded batches
// and submits each batch to the search backend as one bulk call.
//
// Failure isolation is per batch: a failed submission is logged with its
// sequence number and dropped, and the run continues. This is deliberate
// at-most-once, best-effort semantics: losing an entire batch is the
// documented behavior, not a bug.
//
// Logging: on every successful flush, a concise progress line is emitted
// with running totals and instantaneous rows/sec since the previous flush.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/zeebo/xxh3"

	"arctosloader/internal/backend"
	"arctosloader/internal/metrics"
	"arctosloader/internal/records"
)

// DefaultBatchSize matches the original bulk chunk size.
const DefaultBatchSize = 100000

// Submitter batches documents for one collection. Sequence numbers start
// at 1 and increment per batch, so callers create one Submitter per input
// file to get per-file numbering. Not concurrency-safe; the pipeline is
// strictly sequential.
type Submitter struct {
	sink       backend.Indexer
	collection string
	batchSize  int
	stableIDs  bool

	batch []backend.Action
	seq   int

	submitted     int64
	failedBatches int
	start         time.Time
	lastFlush     time.Time
	lastTotal     int64
}

// Stats summarizes a Submitter's lifetime.
type Stats struct {
	Batches       int
	FailedBatches int
	Submitted     int64 // documents in successfully acknowledged batches
}

// New constructs a Submitter targeting collection. A non-positive
// batchSize falls back to DefaultBatchSize. When stableIDs is set, each
// document gets a deterministic ID hashed from its serialized form, so
// repeated loads of identical data produce identical IDs.
func New(sink backend.Indexer, collection string, batchSize int, stableIDs bool) *Submitter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	now := time.Now()
	return &Submitter{
		sink:       sink,
		collection: collection,
		batchSize:  batchSize,
		stableIDs:  stableIDs,
		batch:      make([]backend.Action, 0, batchSize),
		start:      now,
		lastFlush:  now,
	}
}

// Add queues one document, submitting the current batch first when it is
// full. Submission failures never propagate; see the package comment.
func (s *Submitter) Add(ctx context.Context, doc records.Document) {
	a := backend.Action{Collection: s.collection, Doc: doc}
	if s.stableIDs {
		a.ID = stableID(doc)
	}
	s.batch = append(s.batch, a)
	if len(s.batch) >= s.batchSize {
		s.Flush(ctx)
	}
}

// Flush submits any queued documents as one batch. Safe to call with an
// empty queue. The pipeline calls it after the last row of each file.
func (s *Submitter) Flush(ctx context.Context) {
	if len(s.batch) == 0 {
		return
	}
	s.seq++
	batch := s.batch
	// Batches are submitted and discarded, never reused.
	s.batch = make([]backend.Action, 0, s.batchSize)

	flushStart := time.Now()
	err := s.sink.BulkIndex(ctx, batch)
	metrics.RecordBatch(s.collection, err, time.Since(flushStart))
	if err != nil {
		s.failedBatches++
		log.Printf("loader: chunk #%d (%d docs) failed, dropped: %v", s.seq, len(batch), err)
		return
	}

	s.submitted += int64(len(batch))
	now := time.Now()
	sinceLast := now.Sub(s.lastFlush)
	rps := float64(0)
	if sinceLast > 0 {
		rps = float64(s.submitted-s.lastTotal) / sinceLast.Seconds()
	}
	log.Printf(
		"loader: chunk #%d: rps=%.0f indexed=%d total_indexed=%d elapsed=%s since_last=%s",
		s.seq,
		rps,
		len(batch),
		s.submitted,
		now.Sub(s.start).Truncate(time.Millisecond),
		sinceLast.Truncate(time.Millisecond),
	)
	s.lastFlush = now
	s.lastTotal = s.submitted
}

// Stats returns counters for the run report.
func (s *Submitter) Stats() Stats {
	return Stats{
		Batches:       s.seq,
		FailedBatches: s.failedBatches,
		Submitted:     s.submitted,
	}
}

// stableID derives a deterministic document ID from the serialized
// document. encoding/json writes map keys in sorted order, so equal
// documents hash equally.
func stableID(doc records.Document) string {
	b, err := json.Marshal(doc)
	if err != nil {
		// Documents only hold strings, numbers, nil, and string lists;
		// marshaling them cannot fail in practice.
		return ""
	}
	return fmt.Sprintf("%016x", xxh3.Hash(b))
}
