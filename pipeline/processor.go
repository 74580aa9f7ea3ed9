package pipeline

import (
	"context"

	"github.com/tsawler/certscore/document"
	"github.com/tsawler/certscore/model"
	"github.com/tsawler/certscore/pagetext"
	"github.com/tsawler/certscore/tables"
)

// Processor extracts one page: tables first, then the text outside them
type Processor struct {
	Tables *tables.Extractor
	Text   *pagetext.Extractor
}

// NewProcessor returns a Processor with default extractors
func NewProcessor() *Processor {
	return &Processor{
		Tables: tables.NewExtractor(),
		Text:   pagetext.NewExtractor(),
	}
}

// Pages returns a PageFunc reading pages of doc. Every call opens its own
// page reader and closes it before returning.
func (p *Processor) Pages(doc *document.Document) PageFunc {
	return func(ctx context.Context, index int) (*model.Page, error) {
		src, err := doc.OpenPage(index)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return p.Page(ctx, src)
	}
}

// Page extracts the tables and text of src
func (p *Processor) Page(ctx context.Context, src *document.Page) (*model.Page, error) {
	found, err := p.Tables.Extract(ctx, src)
	if err != nil {
		return nil, err
	}

	width, height := src.Size()
	page := &model.Page{
		Index:  src.Index(),
		Width:  width,
		Height: height,
		Tables: found,
	}

	res, err := p.Text.Extract(ctx, src, page.TableRects())
	if err != nil {
		return nil, err
	}
	page.Blocks = res.Blocks
	page.Text = res.Text
	page.Source = res.Source
	return page, nil
}

// Extract runs every page of doc through the Processor on the Aggregator
func (a *Aggregator) Extract(ctx context.Context, doc *document.Document, p *Processor) (*model.Document, error) {
	return a.Run(ctx, doc.PageCount(), p.Pages(doc))
}
