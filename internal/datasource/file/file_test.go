package file

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// TestListCSV verifies sorting, extension filtering, lookup-file
// exclusion, and non-recursion.
func TestListCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "b.csv")
	touch(t, dir, "a.csv")
	touch(t, dir, "upper.CSV")
	touch(t, dir, "notes.txt")
	touch(t, dir, "type_lookup.csv")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	touch(t, filepath.Join(dir, "nested"), "deep.csv")

	got, err := ListCSV(dir, "type_lookup.csv")
	if err != nil {
		t.Fatalf("ListCSV: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.csv"),
		filepath.Join(dir, "b.csv"),
		filepath.Join(dir, "upper.CSV"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ListCSV = %v, want %v", got, want)
	}
}

// TestListCSV_MissingDir verifies a missing directory errors.
func TestListCSV_MissingDir(t *testing.T) {
	t.Parallel()

	if _, err := ListCSV(filepath.Join(t.TempDir(), "nope"), ""); err == nil {
		t.Fatalf("missing directory should error")
	}
}

// TestOpen reads back a file opened with the readahead hint.
func TestOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "in.csv")
	f, err := Open(filepath.Join(dir, "in.csv"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	b := make([]byte, 2)
	if _, err := f.Read(b); err != nil {
		t.Fatalf("Read: %v", err)
	}
}
