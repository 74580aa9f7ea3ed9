package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tsawler/certscore/model"
)

// PageError reports the page whose extraction failed
type PageError struct {
	Page int // 0-based
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page+1, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// PageFunc extracts the page at index. It is called concurrently for
// different indices and must not share mutable state between calls.
type PageFunc func(ctx context.Context, index int) (*model.Page, error)

// Aggregator runs a PageFunc for every page with at most Workers in flight
type Aggregator struct {
	Workers int // default runtime.NumCPU()
	Logger  *slog.Logger
}

// Run extracts pages [0, count) and returns them in ascending index order.
// The first failure cancels the remaining pages and is returned as a
// *PageError; no partial document is returned.
func (a *Aggregator) Run(ctx context.Context, count int, fn PageFunc) (*model.Document, error) {
	workers := a.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pages := make([]*model.Page, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < count; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			page, err := fn(gctx, i)
			if err != nil {
				return &PageError{Page: i, Err: err}
			}
			if page == nil {
				page = &model.Page{Index: i, Source: model.TextSourceNone}
			}
			page.Index = i
			pages[i] = page

			logger.Debug("pipeline.page.done",
				"page", i,
				"tables", len(page.Tables),
				"source", page.Source,
				"duration_ms", time.Since(start).Milliseconds())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &model.Document{Pages: pages}, nil
}
