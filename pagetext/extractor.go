package pagetext

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/tsawler/tabula/layout"
	"github.com/tsawler/tabula/text"

	"github.com/tsawler/certscore/model"
	"github.com/tsawler/certscore/ocr"
	"github.com/tsawler/certscore/raster"
)

// DefaultOCRTimeout bounds the fallback stage of a single page
const DefaultOCRTimeout = 60 * time.Second

// BlockDetector groups text fragments into blocks. The tabula
// layout block detector satisfies it.
type BlockDetector interface {
	Detect(fragments []text.TextFragment, pageWidth, pageHeight float64) *layout.BlockLayout
}

// Source is the per-page input of the extractor
type Source interface {
	raster.Page
	Fragments() ([]text.TextFragment, error)
}

// Config holds extractor configuration
type Config struct {
	// Blocks groups fragments. Defaults to the tabula block detector.
	Blocks BlockDetector

	// Rasterizer and Recognizer drive the OCR fallback. A nil Recognizer
	// disables the fallback.
	Rasterizer raster.Rasterizer
	Recognizer ocr.Recognizer

	// OCRTimeout bounds the whole fallback stage of a page
	OCRTimeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns default configuration: pdftoppm with an embedded
// image fallback, and the best OCR engine available.
func DefaultConfig() Config {
	return Config{
		Blocks:     layout.NewBlockDetector(),
		Rasterizer: raster.Default(),
		Recognizer: ocr.Default(ocr.Options{}),
		OCRTimeout: DefaultOCRTimeout,
	}
}

// Result is the recovered text of a page
type Result struct {
	Text   string
	Blocks []model.TextBlock // native blocks outside every table
	Source model.TextSource
}

// Extractor recovers page text. It holds no per-page state.
type Extractor struct {
	blocks     BlockDetector
	rasterizer raster.Rasterizer
	recognizer ocr.Recognizer
	timeout    time.Duration
	logger     *slog.Logger
}

// NewExtractor creates an extractor with default configuration
func NewExtractor() *Extractor {
	return NewExtractorWithConfig(DefaultConfig())
}

// NewExtractorWithConfig creates an extractor with custom configuration
func NewExtractorWithConfig(config Config) *Extractor {
	if config.Blocks == nil {
		config.Blocks = layout.NewBlockDetector()
	}
	if config.OCRTimeout <= 0 {
		config.OCRTimeout = DefaultOCRTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Extractor{
		blocks:     config.Blocks,
		rasterizer: config.Rasterizer,
		recognizer: config.Recognizer,
		timeout:    config.OCRTimeout,
		logger:     config.Logger,
	}
}

// Extract returns the text of src that lies outside tables. Only a failure
// to read the page's own text is returned as an error.
func (e *Extractor) Extract(ctx context.Context, src Source, tables []model.Rect) (Result, error) {
	blocks, err := e.Native(src, tables)
	if err != nil {
		return Result{}, err
	}

	res := Result{Blocks: blocks, Source: model.TextSourceNone}
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(b.Text)
		sb.WriteString("\n")
	}
	res.Text = sb.String()

	if strings.TrimSpace(res.Text) != "" {
		res.Source = model.TextSourceNative
		return res, nil
	}

	if recognized := e.fallback(ctx, src); recognized != "" {
		res.Text = recognized
		res.Source = model.TextSourceOCR
	}
	return res, nil
}

// Native returns the page's text blocks whose bounding boxes intersect none
// of tables. Blocks keep content-stream order: each is placed by the first
// of its fragments to appear in the stream, not by its position on the page.
func (e *Extractor) Native(src Source, tables []model.Rect) ([]model.TextBlock, error) {
	fragments, err := src.Fragments()
	if err != nil {
		return nil, err
	}
	if len(fragments) == 0 {
		return nil, nil
	}

	width, height := src.Size()
	detected := e.blocks.Detect(fragments, width, height)
	if detected == nil {
		return nil, nil
	}

	position := make(map[text.TextFragment]int, len(fragments))
	for i, f := range fragments {
		if _, seen := position[f]; !seen {
			position[f] = i
		}
	}

	type ordered struct {
		block model.TextBlock
		first int
	}
	var kept []ordered
	for i := range detected.Blocks {
		block := &detected.Blocks[i]
		rect := model.RectFromBBox(block.BBox)
		if rect.IntersectsAny(tables) {
			continue
		}
		first := len(fragments)
		for _, f := range block.Fragments {
			if p, ok := position[f]; ok && p < first {
				first = p
			}
		}
		kept = append(kept, ordered{model.TextBlock{BBox: rect, Text: block.GetText()}, first})
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].first < kept[j].first })

	out := make([]model.TextBlock, 0, len(kept))
	for _, k := range kept {
		out = append(out, k.block)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// fallback rasterizes the page and recognizes every image. It returns ""
// when the fallback is disabled, fails, or reads nothing.
func (e *Extractor) fallback(ctx context.Context, src Source) string {
	if e.rasterizer == nil || e.recognizer == nil {
		return ""
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	images, err := e.rasterizer.Rasterize(ctx, src)
	if err != nil {
		e.logger.Warn("pagetext.ocr.fallback",
			"page", src.Index(),
			"stage", "rasterize",
			"error", err)
		return ""
	}

	recognizer := ocr.WithTimeout(e.recognizer, e.timeout)
	var parts []string
	for _, img := range images {
		txt, err := recognizer.Recognize(ctx, img.PNG)
		if err != nil {
			e.logger.Warn("pagetext.ocr.fallback",
				"page", src.Index(),
				"stage", "recognize",
				"dpi", img.DPI,
				"error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if strings.TrimSpace(txt) != "" {
			parts = append(parts, txt)
		}
	}

	recognized := strings.Join(parts, "\n")
	if strings.TrimSpace(recognized) == "" {
		recognized = ""
	}
	e.logger.Debug("pagetext.ocr.done",
		"page", src.Index(),
		"images", len(images),
		"chars", len(recognized),
		"duration_ms", time.Since(start).Milliseconds())
	return recognized
}
