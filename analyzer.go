package certscore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tsawler/certscore/document"
	"github.com/tsawler/certscore/features"
	"github.com/tsawler/certscore/model"
	"github.com/tsawler/certscore/ocr"
	"github.com/tsawler/certscore/pagetext"
	"github.com/tsawler/certscore/pipeline"
	"github.com/tsawler/certscore/raster"
	"github.com/tsawler/certscore/scoring"
	"github.com/tsawler/certscore/tables"
)

// Analyzer provides a fluent interface for scoring certificates.
// Each configuration method returns a new Analyzer instance, making it
// safe for concurrent use and allowing method chaining.
type Analyzer struct {
	options AnalyzeOptions
}

// New returns an Analyzer with default options
func New() *Analyzer {
	return &Analyzer{options: defaultOptions()}
}

// clone creates a copy of the Analyzer with a deep copy of options.
func (a *Analyzer) clone() *Analyzer {
	return &Analyzer{options: a.options.clone()}
}

// Workers limits the number of pages processed at once. Values below 1
// select runtime.NumCPU().
func (a *Analyzer) Workers(n int) *Analyzer {
	newA := a.clone()
	newA.options.workers = n
	return newA
}

// OCRTimeout bounds the OCR fallback of each page.
func (a *Analyzer) OCRTimeout(d time.Duration) *Analyzer {
	newA := a.clone()
	newA.options.ocrTimeout = d
	return newA
}

// Language sets the OCR language of the default engine, e.g. "eng+hin".
func (a *Analyzer) Language(lang string) *Analyzer {
	newA := a.clone()
	newA.options.language = lang
	return newA
}

// Recognizer replaces the OCR engine.
func (a *Analyzer) Recognizer(r ocr.Recognizer) *Analyzer {
	newA := a.clone()
	newA.options.recognizer = r
	return newA
}

// Rasterizer replaces the page rasterizer used before OCR.
func (a *Analyzer) Rasterizer(r raster.Rasterizer) *Analyzer {
	newA := a.clone()
	newA.options.rasterizer = r
	return newA
}

// AuditSink receives every accepted table of every analysis. It replaces
// any AuditSinks factory.
func (a *Analyzer) AuditSink(s tables.AuditSink) *Analyzer {
	newA := a.clone()
	newA.options.sink = s
	newA.options.sinks = nil
	return newA
}

// AuditSinks opens a fresh sink for each analysis and closes it when the
// analysis ends, so tables of different documents never share a sink.
func (a *Analyzer) AuditSinks(f tables.SinkFactory) *Analyzer {
	newA := a.clone()
	newA.options.sinks = f
	return newA
}

// Policy replaces the scoring reference tables.
func (a *Analyzer) Policy(p scoring.Policy) *Analyzer {
	newA := a.clone()
	cp := p.Clone()
	newA.options.policy = &cp
	return newA
}

// Clock sets the reference time certificate validity is judged against.
func (a *Analyzer) Clock(now func() time.Time) *Analyzer {
	newA := a.clone()
	newA.options.now = now
	return newA
}

// Location sets the time zone certificate dates are read in.
func (a *Analyzer) Location(loc *time.Location) *Analyzer {
	newA := a.clone()
	newA.options.loc = loc
	return newA
}

// Logger sets the structured logger.
func (a *Analyzer) Logger(l *slog.Logger) *Analyzer {
	newA := a.clone()
	newA.options.logger = l
	return newA
}

// Scorer returns the scorer built from the current options
func (a *Analyzer) Scorer() *scoring.Scorer {
	cfg := scoring.DefaultConfig()
	if a.options.policy != nil {
		cfg.Policy = *a.options.policy
	}
	if a.options.now != nil {
		cfg.Now = a.options.now
	}
	if a.options.loc != nil {
		cfg.Location = a.options.loc
	}
	return scoring.NewScorerWithConfig(cfg)
}

func (a *Analyzer) processor(sink tables.AuditSink) *pipeline.Processor {
	o := a.options
	logger := o.logOrDefault()

	recognizer := o.recognizer
	if recognizer == nil {
		recognizer = ocr.Default(ocr.Options{Language: o.language})
	}
	rasterizer := o.rasterizer
	if rasterizer == nil {
		rasterizer = raster.Default()
	}

	return &pipeline.Processor{
		Tables: tables.NewExtractorWithConfig(tables.Config{
			Sink:   sink,
			Logger: logger,
		}),
		Text: pagetext.NewExtractorWithConfig(pagetext.Config{
			Rasterizer: rasterizer,
			Recognizer: recognizer,
			OCRTimeout: o.ocrTimeout,
			Logger:     logger,
		}),
	}
}

// Analyze extracts, parses and scores the PDF in data. Malformed input is
// reported as a *document.InputError and a failed page as a
// *pipeline.PageError; no partial result is returned in either case.
func (a *Analyzer) Analyze(ctx context.Context, data []byte) (*Result, error) {
	start := time.Now()
	logger := a.options.logOrDefault()

	doc, err := document.Open(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	sink := a.options.sink
	if a.options.sinks != nil {
		if sink, err = a.options.sinks(); err != nil {
			return nil, fmt.Errorf("failed to open audit sink: %w", err)
		}
		defer func() {
			if cerr := tables.CloseSink(sink); cerr != nil {
				logger.Error("certscore.audit.close_failed", "error", cerr)
			}
		}()
	}

	agg := &pipeline.Aggregator{Workers: a.options.workers, Logger: logger}
	extracted, err := agg.Extract(ctx, doc, a.processor(sink))
	if err != nil {
		logger.Error("certscore.analyze.failed",
			"pages", doc.PageCount(),
			"error", err)
		return nil, err
	}

	res := a.score(extracted.Report())
	res.Pages = extracted.Pages
	res.Warnings = pageWarnings(extracted.Pages)

	logger.Info("certscore.analyze.done",
		"pages", doc.PageCount(),
		"tables", len(extracted.Tables()),
		"final_score", res.Score.FinalScore,
		"grade", res.Score.Grade,
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// AnalyzeText parses and scores already extracted text
func (a *Analyzer) AnalyzeText(text string) *Result {
	return a.score(text)
}

func (a *Analyzer) score(text string) *Result {
	f := features.Extract(text)
	return &Result{
		Text:   text,
		Score:  a.Scorer().Score(f),
		Status: StatusSuccess,
	}
}

func pageWarnings(pages []*model.Page) []Warning {
	var warnings []Warning
	for _, p := range pages {
		switch p.Source {
		case model.TextSourceOCR:
			warnings = append(warnings, newWarning(WarningOCRFallback, p.Number(), "text recognized by OCR"))
		case model.TextSourceNone:
			if len(p.Tables) == 0 {
				warnings = append(warnings, newWarning(WarningNoText, p.Number(), "no text recovered"))
			}
		}
	}
	return warnings
}
