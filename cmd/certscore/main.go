// Command certscore scores a certificate PDF and prints the JSON response.
//
// Usage:
//
//	certscore [flags] [file.pdf]
//
// The PDF is read from stdin when no file is given.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/tsawler/certscore"
	"github.com/tsawler/certscore/config"
	"github.com/tsawler/certscore/tables"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("certscore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	workers := fs.Int("workers", 0, "pages processed at once (0 = number of CPUs)")
	ocrTimeout := fs.Duration("ocr-timeout", 60*time.Second, "time limit for the OCR fallback of each page")
	auditDir := fs.String("audit-dir", "", "write accepted tables as CSV files to this directory")
	lang := fs.String("lang", "eng", "OCR language, e.g. eng+hin")
	reference := fs.String("reference", "", "JSON file overriding the scoring tables")
	textMode := fs.Bool("text", false, "score a plain-text file instead of a PDF")
	verbose := fs.Bool("v", false, "log pipeline progress to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(stderr, "usage: certscore [flags] [file.pdf]")
		return 2
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := analyze(ctx, logger, options{
		path:       fs.Arg(0),
		stdin:      stdin,
		workers:    *workers,
		ocrTimeout: *ocrTimeout,
		auditDir:   *auditDir,
		lang:       *lang,
		reference:  *reference,
		text:       *textMode,
	})

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err != nil {
		_ = enc.Encode(certscore.FailureResponse(err))
		return 1
	}
	if err := enc.Encode(res.Response()); err != nil {
		fmt.Fprintf(stderr, "certscore: %v\n", err)
		return 1
	}
	for _, w := range res.Warnings {
		logger.Warn("certscore.warning", "code", w.Code, "page", w.Page, "message", w.Message)
	}
	return 0
}

type options struct {
	path       string
	stdin      io.Reader
	workers    int
	ocrTimeout time.Duration
	auditDir   string
	lang       string
	reference  string
	text       bool
}

func analyze(ctx context.Context, logger *slog.Logger, o options) (*certscore.Result, error) {
	data, err := readInput(o.path, o.stdin)
	if err != nil {
		return nil, err
	}

	a := certscore.New().
		Workers(o.workers).
		OCRTimeout(o.ocrTimeout).
		Language(o.lang).
		Logger(logger)

	if o.reference != "" {
		policy, err := config.LoadReference(o.reference, a.Scorer().Policy())
		if err != nil {
			return nil, err
		}
		a = a.Policy(policy)
	}

	if o.text {
		return a.AnalyzeText(string(data)), nil
	}

	if o.auditDir != "" {
		sink, err := tables.NewCSVSink(o.auditDir)
		if err != nil {
			return nil, err
		}
		a = a.AuditSink(sink)
	}
	return a.Analyze(ctx, data)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
