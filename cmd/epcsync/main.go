// Command epcsync runs a batch of catalog documents through extraction and
// submission, then writes the run summary once.
//
// Usage: go run ./cmd/epcsync -dir ./pdfs [-recursive] [-out results.json] [-xlsx report.xlsx] [-csv report.csv]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"epcsync/internal/app"
	"epcsync/internal/config"
	"epcsync/internal/logging"
	"epcsync/internal/report"
	"epcsync/internal/service"
)

type options struct {
	dir         string
	recursive   bool
	file        string
	out         string
	xlsx        string
	csv         string
	concurrency int
	upload      bool
	clear       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.dir, "dir", "", "directory of documents to process")
	flag.BoolVar(&opts.recursive, "recursive", false, "descend into subdirectories of -dir")
	flag.StringVar(&opts.file, "file", "", "single document to process")
	flag.StringVar(&opts.out, "out", "epc_processing_results.json", "JSON results summary path")
	flag.StringVar(&opts.xlsx, "xlsx", "", "optional XLSX report path")
	flag.StringVar(&opts.csv, "csv", "", "optional CSV report path")
	flag.IntVar(&opts.concurrency, "concurrency", 0, "documents processed at once (overrides config)")
	flag.BoolVar(&opts.upload, "upload", false, "upload written reports to the archive bucket")
	flag.BoolVar(&opts.clear, "clear", false, "clear the fingerprint store before running")
	flag.Parse()

	if opts.dir == "" && opts.file == "" {
		fmt.Fprintln(os.Stderr, "Error: -dir or -file is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		logrus.Fatal(err)
	}
}

func run(opts options) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logging.Setup(cfg.Log, os.Stderr)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.concurrency > 0 {
		cfg.Pipeline.Concurrency = opts.concurrency
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.clear {
		n, err := a.Tracker.Clear(ctx)
		if err != nil {
			return fmt.Errorf("clearing fingerprint store: %w", err)
		}
		logrus.Infof("epcsync: cleared %d processing record(s)", n)
	}

	docs, err := load(opts)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		logrus.Warn("epcsync: no supported documents found")
	}

	summary := service.NewBatch(a.Pipeline, service.BatchConfig{
		Concurrency:  cfg.Pipeline.Concurrency,
		PauseBetween: cfg.Pipeline.PauseBetween,
	}).Run(ctx, docs)

	var written []string
	for _, path := range []string{opts.out, opts.xlsx, opts.csv} {
		if path == "" {
			continue
		}
		if err := report.WriteFile(path, summary); err != nil {
			return err
		}
		logrus.Infof("epcsync: wrote %s", path)
		written = append(written, path)
	}

	if opts.upload {
		uploadReports(context.WithoutCancel(ctx), a, cfg, written)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed", summary.Failed, summary.Total)
	}
	return nil
}

func load(opts options) ([]service.Document, error) {
	var docs []service.Document
	if opts.file != "" {
		doc, err := service.LoadFile(opts.file)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if opts.dir != "" {
		more, err := service.LoadDirectory(opts.dir, opts.recursive)
		if err != nil {
			return nil, err
		}
		docs = append(docs, more...)
	}
	return docs, nil
}

func uploadReports(ctx context.Context, a *app.App, cfg *config.Config, paths []string) {
	if a.Storage == nil {
		logrus.Warn("epcsync: -upload ignored, no archive bucket configured")
		return
	}
	u := report.NewUploader(a.Storage, cfg.S3.Bucket, cfg.S3.Prefix)
	for _, path := range paths {
		if _, err := u.UploadFile(ctx, path); err != nil {
			logrus.Warnf("epcsync: uploading %s: %v", path, err)
		}
	}
}
