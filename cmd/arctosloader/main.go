package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"arctosloader/internal/backend/elastic"
	"arctosloader/internal/datasource/file"
	"arctosloader/internal/index"
	"arctosloader/internal/loader"
	"arctosloader/internal/lookup"
	"arctosloader/internal/metrics"
	"arctosloader/internal/metrics/datadog"
	"arctosloader/internal/metrics/prompush"
	"arctosloader/internal/pipeline"
)

// main is the entry point for the loader binary. It resolves the input
// directory and lookup table, optionally initializes a metrics backend,
// and executes either a preview (-test) or a live load.
func main() {
	var (
		dataDir           string
		lookupFile        string
		indexName         string
		host              string
		scheme            string
		port              int
		timeout           time.Duration
		insecure          bool
		chunkSize         int
		maxPreview        int
		stableIDs         bool
		preview           bool
		metricsBackendFlg string
		pushGatewayURLFlg string
		dogstatsdAddrFlg  string
	)

	flag.StringVar(&dataDir, "data-dir", "", "directory containing the occurrence CSV files (required)")
	flag.StringVar(&lookupFile, "lookup-file", "type_lookup.csv", "guid_prefix→type lookup table, relative to -data-dir unless absolute")
	flag.StringVar(&indexName, "index", "arctos", "target collection name")
	flag.StringVar(&host, "host", "localhost", "search backend host")
	flag.StringVar(&scheme, "scheme", "http", "search backend scheme (http or https)")
	flag.IntVar(&port, "port", 9200, "search backend port")
	flag.DurationVar(&timeout, "timeout", 60*time.Second, "per-request timeout")
	flag.BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	flag.IntVar(&chunkSize, "chunk-size", loader.DefaultBatchSize, "documents per bulk submission")
	flag.IntVar(&maxPreview, "max-preview", 5, "documents printed per file in -test mode")
	flag.BoolVar(&stableIDs, "stable-ids", false, "derive deterministic document IDs from document content")
	flag.BoolVar(&preview, "test", false, "preview mode: transform and report without touching the backend")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsdAddrFlg, "dogstatsd-addr", "", "DogStatsD address (overrides env DOGSTATSD_ADDR)")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if dataDir == "" {
		fatalf("-data-dir is required")
	}
	if _, err := os.Stat(dataDir); err != nil {
		fatalf("data directory: %v", err)
	}

	lookupPath := lookupFile
	if !filepath.IsAbs(lookupPath) {
		lookupPath = filepath.Join(dataDir, lookupFile)
	}
	types, err := lookup.Load(lookupPath)
	if err != nil {
		var serr *lookup.SchemaError
		if errors.As(err, &serr) {
			fatalf("lookup table %s is missing required columns: %v", serr.Path, serr.Missing)
		}
		fatalf("load lookup table: %v", err)
	}

	files, err := file.ListCSV(dataDir, filepath.Base(lookupFile))
	if err != nil {
		fatalf("list data files: %v", err)
	}
	if len(files) == 0 {
		fatalf("no CSV files found in %s", dataDir)
	}

	setupMetrics(metricsBackendFlg, pushGatewayURLFlg, dogstatsdAddrFlg, indexName, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	cfg := pipeline.Config{
		Collection: indexName,
		BatchSize:  chunkSize,
		MaxPreview: maxPreview,
		StableIDs:  stableIDs,
	}

	ctx := context.Background()
	start := time.Now()

	if preview {
		stats, err := pipeline.Preview(os.Stdout, files, types, cfg)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if *verbose {
			log.Printf("previewed %d file(s), %d rows in %s",
				len(stats.Files), stats.Rows, time.Since(start).Truncate(time.Millisecond))
		}
		return
	}

	client := elastic.NewClient(elastic.Config{
		Scheme:             scheme,
		Host:               host,
		Port:               port,
		Timeout:            timeout,
		InsecureSkipVerify: insecure,
	})
	if *verbose {
		log.Printf("backend: %s", client.BaseURL())
	}

	if err := index.EnsureFresh(ctx, client, indexName); err != nil {
		log.Fatalf("prepare collection %q: %v", indexName, err)
	}

	stats, err := pipeline.Run(ctx, client, files, types, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("run complete: files=%d rows=%d skipped=%d chunks=%d failed_chunks=%d indexed=%d elapsed=%s",
		len(stats.Files), stats.Rows, stats.Skipped, stats.Batches, stats.FailedBatches,
		stats.Submitted, time.Since(start).Truncate(time.Millisecond))
	if stats.FailedBatches > 0 {
		log.Printf("warning: %d chunk(s) were dropped; the collection is incomplete", stats.FailedBatches)
	}
	if n := stats.Unmapped.Len(); n > 0 {
		log.Printf("warning: %d distinct guid_prefix value(s) had no lookup entry", n)
	}
}

// setupMetrics decides the metrics backend: flag → env → default.
func setupMetrics(backendName, pushGatewayURL, dogstatsdAddr, jobName string, verbose bool) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		gwURL := pushGatewayURL
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, jobName)
		metrics.SetBackend(b)

	case "datadog":
		addr := dogstatsdAddr
		if addr == "" {
			addr = os.Getenv("DOGSTATSD_ADDR")
		}
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{
			Addr:      addr,
			Namespace: "arctosloader.",
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: addr=%v, backend=%v", addr, backendName)
		metrics.SetBackend(b)

	case "", "none":
		// metrics disabled; nop backend remains
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
