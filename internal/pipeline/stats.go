package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// Tally counts occurrences of guid_prefix values whose lookup fell back to
// identity (the unmapped case).
type Tally struct {
	counts map[string]int64
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{counts: map[string]int64{}}
}

// Inc counts one occurrence of key.
func (t *Tally) Inc(key string) { t.counts[key]++ }

// Merge folds other into t.
func (t *Tally) Merge(other *Tally) {
	for k, v := range other.counts {
		t.counts[k] += v
	}
}

// Len returns the number of distinct keys.
func (t *Tally) Len() int { return len(t.counts) }

// Total returns the sum of all counts.
func (t *Tally) Total() int64 {
	var n int64
	for _, v := range t.counts {
		n += v
	}
	return n
}

// TallyEntry is one key with its count.
type TallyEntry struct {
	Prefix string
	Count  int64
}

// Top returns up to k entries ordered by count descending, then prefix
// ascending so reports are deterministic.
func (t *Tally) Top(k int) []TallyEntry {
	entries := make([]TallyEntry, 0, len(t.counts))
	for p, c := range t.counts {
		entries = append(entries, TallyEntry{Prefix: p, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Prefix < entries[j].Prefix
	})
	if k < len(entries) {
		entries = entries[:k]
	}
	return entries
}

// formatTop renders entries as "X×2, Z×1", showing "(empty)" for the
// empty prefix.
func formatTop(entries []TallyEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s×%d", displayPrefix(e.Prefix), e.Count)
	}
	return strings.Join(parts, ", ")
}

func displayPrefix(p string) string {
	if p == "" {
		return "(empty)"
	}
	return p
}

// FileStats is the per-file slice of a run report.
type FileStats struct {
	Path    string
	Rows    int64
	Skipped int64
}

// RunStats aggregates counters across all files of one run. It is mutated
// only by the single pipeline goroutine and reported at run end, never
// persisted.
type RunStats struct {
	Files         []FileStats
	Rows          int64
	Skipped       int64
	Batches       int
	FailedBatches int
	Submitted     int64
	Unmapped      *Tally
}

// NewRunStats returns zeroed statistics with an empty tally.
func NewRunStats() *RunStats {
	return &RunStats{Unmapped: NewTally()}
}

func (s *RunStats) addFile(path string, rows, skipped int64, unmapped *Tally) {
	s.Files = append(s.Files, FileStats{Path: path, Rows: rows, Skipped: skipped})
	s.Rows += rows
	s.Skipped += skipped
	s.Unmapped.Merge(unmapped)
}
