package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tsawler/certscore/document"
	"github.com/tsawler/certscore/internal/pdftest"
	"github.com/tsawler/certscore/model"
	"github.com/tsawler/certscore/ocr"
	"github.com/tsawler/certscore/pagetext"
	"github.com/tsawler/certscore/raster"
	"github.com/tsawler/certscore/tables"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// ============================================================================
// Aggregator
// ============================================================================

func TestRunOrdersByIndex(t *testing.T) {
	const count = 12
	rng := rand.New(rand.NewSource(1))
	delays := make([]time.Duration, count)
	for i := range delays {
		delays[i] = time.Duration(rng.Intn(10)) * time.Millisecond
	}

	agg := &Aggregator{Workers: 4, Logger: quiet}
	doc, err := agg.Run(context.Background(), count, func(ctx context.Context, i int) (*model.Page, error) {
		time.Sleep(delays[count-1-i])
		return &model.Page{Text: fmt.Sprintf("text %d", i)}, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if doc.PageCount() != count {
		t.Fatalf("PageCount() = %d, want %d", doc.PageCount(), count)
	}
	for i, p := range doc.Pages {
		if p.Index != i || p.Text != fmt.Sprintf("text %d", i) {
			t.Errorf("Pages[%d] = {%d %q}, want {%d %q}", i, p.Index, p.Text, i, fmt.Sprintf("text %d", i))
		}
	}
	if !strings.HasPrefix(doc.Report(), "Page 1:\ntext 0\n") {
		t.Errorf("Report() starts %q, want page 1 first", doc.Report()[:20])
	}
}

func TestRunRespectsWorkerLimit(t *testing.T) {
	var inFlight, peak int32
	agg := &Aggregator{Workers: 2, Logger: quiet}
	_, err := agg.Run(context.Background(), 10, func(ctx context.Context, i int) (*model.Page, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return &model.Page{}, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestRunPageError(t *testing.T) {
	boom := errors.New("corrupt stream")
	agg := &Aggregator{Workers: 1, Logger: quiet}
	doc, err := agg.Run(context.Background(), 5, func(ctx context.Context, i int) (*model.Page, error) {
		if i == 2 {
			return nil, boom
		}
		return &model.Page{}, nil
	})
	if doc != nil {
		t.Error("Run() returned a partial document")
	}
	var pageErr *PageError
	if !errors.As(err, &pageErr) {
		t.Fatalf("Run() error = %v, want *PageError", err)
	}
	if pageErr.Page != 2 || !errors.Is(err, boom) {
		t.Errorf("PageError = {%d, %v}, want {2, %v}", pageErr.Page, pageErr.Err, boom)
	}
	if got := pageErr.Error(); got != "page 3: corrupt stream" {
		t.Errorf("Error() = %q, want %q", got, "page 3: corrupt stream")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	agg := &Aggregator{Logger: quiet}
	_, err := agg.Run(ctx, 3, func(ctx context.Context, i int) (*model.Page, error) {
		atomic.AddInt32(&calls, 1)
		return &model.Page{}, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("PageFunc called %d times after cancellation", calls)
	}
}

func TestRunZeroPages(t *testing.T) {
	doc, err := (&Aggregator{Logger: quiet}).Run(context.Background(), 0, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if doc.PageCount() != 0 || doc.Report() != "" {
		t.Errorf("Run(0) = %d pages, report %q, want empty", doc.PageCount(), doc.Report())
	}
}

// ============================================================================
// Processor over real PDFs
// ============================================================================

func newTestProcessor(rec ocr.Recognizer) *Processor {
	return &Processor{
		Tables: tables.NewExtractorWithConfig(tables.Config{Logger: quiet}),
		Text: pagetext.NewExtractorWithConfig(pagetext.Config{
			Rasterizer: raster.Embedded{},
			Recognizer: rec,
			Logger:     quiet,
		}),
	}
}

func TestExtractDocument(t *testing.T) {
	data := pdftest.Pages(
		pdftest.TextContent("Certificate of Organic Farming", "Farmer Name: Ravi Kumar"),
		"",
		pdftest.TextContent("Valid Until: 15-03-2026"),
	)
	doc, err := document.Open(data)
	if err != nil {
		t.Fatalf("document.Open() error = %v", err)
	}
	defer doc.Close()

	out, err := (&Aggregator{Workers: 2, Logger: quiet}).Extract(context.Background(), doc, newTestProcessor(nil))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out.PageCount() != 3 {
		t.Fatalf("PageCount() = %d, want 3", out.PageCount())
	}

	report := out.Report()
	for _, want := range []string{"Page 1:\n", "Ravi Kumar", "Page 2:\n\n" + model.NoTablesMarker, "Page 3:\n", "15-03-2026", model.PageDelimiter} {
		if !strings.Contains(report, want) {
			t.Errorf("Report() missing %q:\n%s", want, report)
		}
	}
	if i1, i3 := strings.Index(report, "Page 1:"), strings.Index(report, "Page 3:"); i1 > i3 {
		t.Error("Report() pages out of order")
	}
	if out.Pages[0].Source != model.TextSourceNative {
		t.Errorf("Pages[0].Source = %q, want native", out.Pages[0].Source)
	}
	if out.Pages[1].Source != model.TextSourceNone {
		t.Errorf("Pages[1].Source = %q, want none", out.Pages[1].Source)
	}
}

func TestExtractBlankPageWithoutImagesSkipsOCR(t *testing.T) {
	doc, err := document.Open(pdftest.Pages(""))
	if err != nil {
		t.Fatalf("document.Open() error = %v", err)
	}
	defer doc.Close()

	var calls int32
	rec := ocr.RecognizerFunc(func(context.Context, []byte) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "text", nil
	})
	out, err := (&Aggregator{Logger: quiet}).Extract(context.Background(), doc, newTestProcessor(rec))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out.Pages[0].Text != "" {
		t.Errorf("Pages[0].Text = %q, want empty", out.Pages[0].Text)
	}
	if calls != 0 {
		t.Errorf("recognizer called %d times for a page with no images", calls)
	}
}
