// Package file locates and opens the local CSV inputs for a run.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListCSV returns the .csv files directly inside dir (non-recursive),
// sorted by name for a deterministic processing order. A file whose base
// name equals excludeName is skipped; this keeps a colocated lookup table
// out of the input set. The extension match is case-insensitive.
func ListCSV(dir, excludeName string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		if excludeName != "" && name == excludeName {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

// Open opens path for the large sequential read the pipeline performs and
// gives the kernel a best-effort readahead hint.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	adviseSequential(f)
	return f, nil
}
