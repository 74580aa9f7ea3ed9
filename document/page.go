package document

import (
	"fmt"
	"sync"

	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/graphicsstate"
	tmodel "github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/text"
)

// Page is one page of a Document with its own reader. A Page is not safe
// for concurrent use.
type Page struct {
	index         int
	path          string
	width, height float64

	r    *reader.Reader
	page *pages.Page

	contentOnce sync.Once
	content     []byte
	contentErr  error

	fragOnce  sync.Once
	fragments []text.TextFragment
	fragErr   error
}

// Index returns the 0-based page index
func (p *Page) Index() int { return p.index }

// Size returns the MediaBox width and height in points
func (p *Page) Size() (float64, float64) { return p.width, p.height }

// Rotation returns the page's /Rotate value in degrees
func (p *Page) Rotation() int { return p.page.Rotate() }

// DocumentPath returns the file backing the page
func (p *Page) DocumentPath() string { return p.path }

// Fragments returns the positioned text of the page. The result is cached.
func (p *Page) Fragments() ([]text.TextFragment, error) {
	p.fragOnce.Do(func() {
		p.fragments, p.fragErr = p.r.ExtractTextFragments(p.page)
		if p.fragErr != nil {
			p.fragErr = fmt.Errorf("failed to extract text: %w", p.fragErr)
		}
	})
	return p.fragments, p.fragErr
}

// Graphics returns the ruling lines and rectangle edges drawn on the page
func (p *Page) Graphics() ([]tmodel.Line, error) {
	data, err := p.contentBytes()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	ge := graphicsstate.NewGraphicsExtractor()
	if err := ge.ExtractFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse graphics: %w", err)
	}
	return append(ge.ToModelLines(), ge.ToModelRectangles()...), nil
}

// Images returns the raster images the page draws
func (p *Page) Images() ([]reader.PageImage, error) {
	return p.r.ExtractPageImages(p.page)
}

// Close releases the page's reader
func (p *Page) Close() error {
	return p.r.Close()
}

// contentBytes decodes and concatenates the page's content streams
func (p *Page) contentBytes() ([]byte, error) {
	p.contentOnce.Do(func() {
		contents, err := p.page.Contents()
		if err != nil {
			p.contentErr = fmt.Errorf("failed to get contents: %w", err)
			return
		}
		for _, obj := range contents {
			stream, ok := obj.(*core.Stream)
			if !ok {
				continue
			}
			data, err := stream.Decode()
			if err != nil {
				p.contentErr = fmt.Errorf("failed to decode content stream: %w", err)
				return
			}
			p.content = append(p.content, data...)
		}
	})
	return p.content, p.contentErr
}
