package certscore

import (
	"log/slog"
	"time"

	"github.com/tsawler/certscore/ocr"
	"github.com/tsawler/certscore/pagetext"
	"github.com/tsawler/certscore/raster"
	"github.com/tsawler/certscore/scoring"
	"github.com/tsawler/certscore/tables"
)

// AnalyzeOptions holds configuration for an analysis.
type AnalyzeOptions struct {
	// Concurrency (0 means runtime.NumCPU())
	workers int

	// OCR fallback
	ocrTimeout time.Duration
	recognizer ocr.Recognizer // nil selects ocr.Default
	rasterizer raster.Rasterizer
	language   string

	// Tables
	sink  tables.AuditSink
	sinks tables.SinkFactory // per-analysis sinks; overrides sink

	// Scoring
	policy *scoring.Policy
	now    func() time.Time
	loc    *time.Location

	logger *slog.Logger
}

// defaultOptions returns the default analysis options.
func defaultOptions() AnalyzeOptions {
	return AnalyzeOptions{
		workers:    0,
		ocrTimeout: pagetext.DefaultOCRTimeout,
		language:   "eng",
		sink:       tables.NopSink{},
	}
}

// clone creates a deep copy of AnalyzeOptions.
func (o AnalyzeOptions) clone() AnalyzeOptions {
	newOpts := o
	if o.policy != nil {
		p := o.policy.Clone()
		newOpts.policy = &p
	}
	return newOpts
}

func (o AnalyzeOptions) logOrDefault() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}
