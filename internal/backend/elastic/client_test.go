package elastic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"arctosloader/internal/backend"
	"arctosloader/internal/records"
)

// testClient points a Client at a httptest server.
func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	return NewClient(Config{Scheme: u.Scheme, Host: u.Hostname(), Port: port})
}

// TestExists covers the 200/404/other status mapping.
func TestExists(t *testing.T) {
	t.Parallel()

	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead || r.URL.Path != "/arctos" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(status)
	}))
	defer srv.Close()
	c := testClient(t, srv)
	ctx := context.Background()

	ok, err := c.Exists(ctx, "arctos")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}

	status = http.StatusNotFound
	ok, err = c.Exists(ctx, "arctos")
	if err != nil || ok {
		t.Fatalf("Exists = %v, %v; want false", ok, err)
	}

	status = http.StatusTeapot
	if _, err = c.Exists(ctx, "arctos"); err == nil {
		t.Fatalf("Exists on status %d: want error", status)
	}
}

// TestCreate_SendsMapping verifies the PUT body carries every field with
// its native type.
func TestCreate_SendsMapping(t *testing.T) {
	t.Parallel()

	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/arctos" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		fmt.Fprint(w, `{"acknowledged":true}`)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	err := c.Create(context.Background(), "arctos", map[string]string{
		"guid_prefix": "keyword",
		"dec_lat":     "float",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, want := range []string{`"mappings"`, `"properties"`, `"guid_prefix":{"type":"keyword"}`, `"dec_lat":{"type":"float"}`} {
		if !strings.Contains(gotBody, want) {
			t.Fatalf("mapping body %q missing %q", gotBody, want)
		}
	}
}

// TestDelete_ErrorStatus verifies non-2xx delete surfaces an error with the
// backend's message.
func TestDelete_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":"blocked"}`)
	}))
	defer srv.Close()

	err := testClient(t, srv).Delete(context.Background(), "arctos")
	if err == nil || !strings.Contains(err.Error(), "blocked") {
		t.Fatalf("Delete error = %v, want backend message included", err)
	}
}

// TestBulkIndex_Payload verifies the NDJSON layout: alternating action
// metadata and document lines, with _id only when set.
func TestBulkIndex_Payload(t *testing.T) {
	t.Parallel()

	var gotBody, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/_bulk" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotCT = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		fmt.Fprint(w, `{"errors":false,"items":[]}`)
	}))
	defer srv.Close()

	err := testClient(t, srv).BulkIndex(context.Background(), []backend.Action{
		{Collection: "arctos", Doc: records.Document{"guid_prefix": "X", "year": nil}},
		{Collection: "arctos", ID: "abc", Doc: records.Document{"guid_prefix": "Y"}},
	})
	if err != nil {
		t.Fatalf("BulkIndex: %v", err)
	}
	if gotCT != "application/x-ndjson" {
		t.Fatalf("content type = %q", gotCT)
	}

	lines := strings.Split(strings.TrimSpace(gotBody), "\n")
	if len(lines) != 4 {
		t.Fatalf("payload has %d lines, want 4:\n%s", len(lines), gotBody)
	}
	if lines[0] != `{"index":{"_index":"arctos"}}` {
		t.Fatalf("first action line = %q", lines[0])
	}
	if !strings.Contains(lines[1], `"year":null`) {
		t.Fatalf("doc line %q should carry explicit null", lines[1])
	}
	if !strings.Contains(lines[2], `"_id":"abc"`) {
		t.Fatalf("second action line %q missing _id", lines[2])
	}
}

// TestBulkIndex_ItemErrors verifies errors:true in the reply becomes a
// batch error naming the rejection reason.
func TestBulkIndex_ItemErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":true,"items":[
			{"index":{"status":201}},
			{"index":{"status":400,"error":{"type":"mapper_parsing_exception","reason":"bad year"}}}
		]}`)
	}))
	defer srv.Close()

	err := testClient(t, srv).BulkIndex(context.Background(), []backend.Action{
		{Collection: "arctos", Doc: records.Document{}},
	})
	if err == nil || !strings.Contains(err.Error(), "bad year") {
		t.Fatalf("BulkIndex error = %v, want item reason included", err)
	}
}

// TestDo_NoRetryByDefault verifies a 500 is not retried when MaxRetries is
// zero: one request, surfaced error.
func TestDo_NoRetryByDefault(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := testClient(t, srv).BulkIndex(context.Background(), []backend.Action{
		{Collection: "arctos", Doc: records.Document{}},
	})
	if err == nil {
		t.Fatalf("want error from 500")
	}
	if hits != 1 {
		t.Fatalf("server hit %d times, want 1", hits)
	}
}

// TestDo_RetryWhenConfigured verifies transient statuses are retried up to
// MaxRetries when enabled.
func TestDo_RetryWhenConfigured(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	c := NewClient(Config{Host: u.Hostname(), Port: port, MaxRetries: 3})
	c.sleep = func(time.Duration) {}

	ok, err := c.Exists(context.Background(), "arctos")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true after retries", ok, err)
	}
	if hits != 3 {
		t.Fatalf("server hit %d times, want 3", hits)
	}
}
