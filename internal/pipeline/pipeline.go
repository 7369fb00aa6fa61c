// Package pipeline drives the ingest run: it walks the input files in
// order and streams each one's rows through the transformer, feeding
// either the bulk submitter (live mode) or a printing/tallying preview
// sink. Both modes share EachDocument, so the documents a preview shows
// are exactly the documents a live run submits.
//
// Processing is strictly sequential: one file at a time, one row at a
// time, one batch in flight. The dataset sizes and batch granularity make
// this sufficient, and the per-batch failure unit is the only resilience
// mechanism required.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"arctosloader/internal/backend"
	"arctosloader/internal/datasource/file"
	"arctosloader/internal/loader"
	"arctosloader/internal/lookup"
	"arctosloader/internal/metrics"
	csvparser "arctosloader/internal/parser/csv"
	"arctosloader/internal/records"
	"arctosloader/internal/schema"
	"arctosloader/internal/transform"
)

// Config carries the run options the pipeline needs.
type Config struct {
	Collection string
	BatchSize  int
	MaxPreview int
	StableIDs  bool
}

// skipLogLimit caps per-file "skipping row" log lines so one corrupt file
// cannot flood the output.
const skipLogLimit = 400

// EachDocument streams every row of the CSV at path through the
// transformer and calls fn with each resulting document, in file order.
// Unparseable lines are skipped (logged up to a cap) and counted; they
// never abort the file. Returns the number of transformed rows and the
// number of skipped lines.
func EachDocument(path string, types lookup.Map, fn func(records.Document)) (rows, skipped int64, err error) {
	f, err := file.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r, err := csvparser.NewReader(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", path, err)
	}

	for {
		rec, rerr := r.Next()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			if skipped < skipLogLimit {
				log.Printf("pipeline: %s: skipping row %d: %v", filepath.Base(path), r.Line(), rerr)
			}
			skipped++
			continue
		}
		rows++
		fn(transform.Row(rec, types))
	}
	return rows, skipped, nil
}

// unmappedKey reports whether doc's derived type fell back to its
// guid_prefix, returning the prefix to tally when it did.
func unmappedKey(doc records.Document) (string, bool) {
	prefix, _ := doc[schema.KeyField].(string)
	derived, _ := doc[schema.DerivedField].(string)
	return prefix, derived == prefix
}

// Run executes a live load: every file's documents flow into per-file
// submitters targeting cfg.Collection. Per-batch submission failures are
// contained by the submitter and reflected in the returned statistics;
// only file-level failures (unreadable file, missing header) abort the
// run.
func Run(ctx context.Context, sink backend.Indexer, files []string, types lookup.Map, cfg Config) (*RunStats, error) {
	stats := NewRunStats()
	for _, path := range files {
		base := filepath.Base(path)
		log.Printf("pipeline: loading %s → collection %q", base, cfg.Collection)

		sub := loader.New(sink, cfg.Collection, cfg.BatchSize, cfg.StableIDs)
		fileTally := NewTally()
		rows, skipped, err := EachDocument(path, types, func(doc records.Document) {
			if prefix, unmapped := unmappedKey(doc); unmapped {
				fileTally.Inc(prefix)
			}
			sub.Add(ctx, doc)
		})
		if err != nil {
			return stats, err
		}
		sub.Flush(ctx)

		st := sub.Stats()
		stats.addFile(path, rows, skipped, fileTally)
		stats.Batches += st.Batches
		stats.FailedBatches += st.FailedBatches
		stats.Submitted += st.Submitted

		metrics.RecordRows(cfg.Collection, "processed", rows)
		metrics.RecordRows(cfg.Collection, "skipped", skipped)
		metrics.RecordRows(cfg.Collection, "unmapped", fileTally.Total())

		log.Printf("pipeline: done %s: rows=%d chunks=%d failed_chunks=%d", base, rows, st.Batches, st.FailedBatches)
	}
	return stats, nil
}

// Preview executes a dry run: no backend interaction. For each file it
// prints the first MaxPreview transformed documents as JSON, then a
// per-file row count and top-5 unmapped prefixes; after all files, a
// grand-total summary with the top-10 unmapped prefixes run-wide.
func Preview(w io.Writer, files []string, types lookup.Map, cfg Config) (*RunStats, error) {
	stats := NewRunStats()
	for _, path := range files {
		fmt.Fprintf(w, "\npreview: %s\n", filepath.Base(path))

		fileTally := NewTally()
		var printed int
		rows, skipped, err := EachDocument(path, types, func(doc records.Document) {
			if printed < cfg.MaxPreview {
				if b, merr := json.Marshal(doc); merr == nil {
					fmt.Fprintf(w, "%s\n", b)
				}
				printed++
			}
			if prefix, unmapped := unmappedKey(doc); unmapped {
				fileTally.Inc(prefix)
			}
		})
		if err != nil {
			return stats, err
		}
		stats.addFile(path, rows, skipped, fileTally)

		fmt.Fprintf(w, "  rows: %d\n", rows)
		if skipped > 0 {
			fmt.Fprintf(w, "  skipped lines: %d\n", skipped)
		}
		if fileTally.Len() > 0 {
			fmt.Fprintf(w, "  unmapped guid_prefix (top 5): %s\n", formatTop(fileTally.Top(5)))
		} else {
			fmt.Fprintf(w, "  unmapped guid_prefix: none\n")
		}
	}

	fmt.Fprintf(w, "\nsummary: %d total rows across %d file(s)\n", stats.Rows, len(files))
	if stats.Unmapped.Len() > 0 {
		fmt.Fprintf(w, "  distinct unmapped guid_prefix: %d (top 10)\n", stats.Unmapped.Len())
		for _, e := range stats.Unmapped.Top(10) {
			fmt.Fprintf(w, "    - %s: %d\n", displayPrefix(e.Prefix), e.Count)
		}
	} else {
		fmt.Fprintf(w, "  all guid_prefix values mapped\n")
	}
	return stats, nil
}
