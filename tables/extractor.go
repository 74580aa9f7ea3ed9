package tables

import (
	"context"
	"fmt"
	"log/slog"

	tmodel "github.com/tsawler/tabula/model"
	ttables "github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"

	"github.com/tsawler/certscore/model"
)

// Detector finds candidate table regions on a page. The tabula geometric
// detector satisfies it.
type Detector interface {
	Detect(page *tmodel.Page) ([]*tmodel.Table, error)
}

// Source is the per-page input needed for table detection
type Source interface {
	Index() int
	Size() (width, height float64)
	Fragments() ([]text.TextFragment, error)
	Graphics() ([]tmodel.Line, error)
}

// Config holds extractor configuration
type Config struct {
	// Detector finds candidate tables. Defaults to the tabula geometric detector.
	Detector Detector

	// Sink receives every accepted table. Defaults to NopSink.
	Sink AuditSink

	// MinRows is the number of non-empty rows a table needs to be kept
	MinRows int

	Logger *slog.Logger
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Detector: ttables.NewGeometricDetector(),
		Sink:     NopSink{},
		MinRows:  2,
	}
}

// Extractor detects and cleans the tables of a page. It holds no per-page
// state, so one Extractor may serve concurrent page tasks as long as its
// Detector and Sink are safe for concurrent use.
type Extractor struct {
	detector Detector
	sink     AuditSink
	minRows  int
	logger   *slog.Logger
}

// NewExtractor creates a table extractor with default configuration
func NewExtractor() *Extractor {
	return NewExtractorWithConfig(DefaultConfig())
}

// NewExtractorWithConfig creates a table extractor with custom configuration
func NewExtractorWithConfig(config Config) *Extractor {
	if config.Detector == nil {
		config.Detector = ttables.NewGeometricDetector()
	}
	if config.Sink == nil {
		config.Sink = NopSink{}
	}
	if config.MinRows < 2 {
		config.MinRows = 2
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Extractor{
		detector: config.Detector,
		sink:     config.Sink,
		minRows:  config.MinRows,
		logger:   config.Logger,
	}
}

// Extract returns the accepted tables of a page in detector order. Cell text
// is whitespace-normalized and entirely empty rows are removed; tables left
// with fewer than two rows are discarded.
func (e *Extractor) Extract(ctx context.Context, src Source) ([]model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fragments, err := src.Fragments()
	if err != nil {
		return nil, fmt.Errorf("failed to extract text fragments: %w", err)
	}
	lines, err := src.Graphics()
	if err != nil {
		return nil, fmt.Errorf("failed to extract graphics: %w", err)
	}

	width, height := src.Size()
	page := tmodel.NewPage(width, height)
	page.RawText = toModelFragments(fragments)
	page.RawLines = lines

	detected, err := e.detector.Detect(page)
	if err != nil {
		return nil, fmt.Errorf("table detection failed: %w", err)
	}

	var accepted []model.Table
	for _, candidate := range detected {
		if candidate == nil {
			continue
		}
		rows := Clean(cellText(candidate), e.minRows)
		if rows == nil {
			continue
		}
		table := model.Table{
			Page:       src.Index(),
			Index:      len(accepted),
			BBox:       model.RectFromBBox(candidate.BBox),
			Rows:       rows,
			Confidence: candidate.Confidence,
		}
		accepted = append(accepted, table)

		if err := e.sink.WriteTable(ctx, table); err != nil {
			e.logger.Warn("tables.audit.failed",
				"page", table.Page,
				"table", table.Index,
				"error", err)
		}
	}

	e.logger.Debug("tables.page.done",
		"page", src.Index(),
		"detected", len(detected),
		"accepted", len(accepted))

	return accepted, nil
}

// toModelFragments converts reader fragments to the representation used by
// the tabula detectors.
func toModelFragments(fragments []text.TextFragment) []tmodel.TextFragment {
	out := make([]tmodel.TextFragment, 0, len(fragments))
	for _, f := range fragments {
		out = append(out, tmodel.TextFragment{
			Text:     f.Text,
			BBox:     tmodel.NewBBox(f.X, f.Y, f.Width, f.Height),
			FontSize: f.FontSize,
			FontName: f.FontName,
		})
	}
	return out
}

func cellText(t *tmodel.Table) [][]string {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = cell.Text
		}
	}
	return rows
}
