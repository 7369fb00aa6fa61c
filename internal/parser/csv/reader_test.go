package csv

import (
	"io"
	"strings"
	"testing"
)

func readAll(t *testing.T, in string) (*Reader, []map[string]string) {
	t.Helper()
	r, err := NewReader(strings.NewReader(in))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	var rows []map[string]string
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		rows = append(rows, rec)
	}
	return r, rows
}

// TestReader_Basic verifies header keys and row values line up.
func TestReader_Basic(t *testing.T) {
	t.Parallel()

	_, rows := readAll(t, "guid_prefix,cat_num\nUAM:Mamm,123\nMSB:Bird,456\n")
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["guid_prefix"] != "UAM:Mamm" || rows[1]["cat_num"] != "456" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

// TestReader_ShortAndLongRows verifies short rows pad missing cells with
// empty strings and extra cells are dropped.
func TestReader_ShortAndLongRows(t *testing.T) {
	t.Parallel()

	_, rows := readAll(t, "a,b,c\n1\n1,2,3,4\n")
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	short := rows[0]
	if short["a"] != "1" || short["b"] != "" || short["c"] != "" {
		t.Fatalf("short row = %#v", short)
	}
	long := rows[1]
	if len(long) != 3 || long["c"] != "3" {
		t.Fatalf("long row = %#v", long)
	}
}

// TestReader_HeaderNormalization verifies BOM stripping and header folding.
func TestReader_HeaderNormalization(t *testing.T) {
	t.Parallel()

	r, rows := readAll(t, "\uFEFFGuid Prefix,Catálogo-Num\nX,9\n")
	want := []string{"guid_prefix", "catalogo_num"}
	got := r.Headers()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("headers = %v, want %v", got, want)
	}
	if rows[0]["guid_prefix"] != "X" || rows[0]["catalogo_num"] != "9" {
		t.Fatalf("row = %#v", rows[0])
	}
}

// TestReader_QuotedFields verifies embedded commas and newlines survive.
func TestReader_QuotedFields(t *testing.T) {
	t.Parallel()

	_, rows := readAll(t, "collectors,notes\n\"Smith, J., Jones, K.\",\"line1\nline2\"\n")
	if rows[0]["collectors"] != "Smith, J., Jones, K." {
		t.Fatalf("collectors = %q", rows[0]["collectors"])
	}
	if rows[0]["notes"] != "line1\nline2" {
		t.Fatalf("notes = %q", rows[0]["notes"])
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"guid_prefix":    "guid_prefix",
		"  Dec Lat ":     "dec_lat",
		"Coordinate.Unc": "coordinate_unc",
		"Číslo-Vozidla":  "cislo_vozidla",
		"%$#":            "col",
		"A--B":           "a_b",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
