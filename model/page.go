package model

import (
	"fmt"
	"strings"
)

// NoTablesMarker is written in place of rendered tables for pages without any
const NoTablesMarker = "No tables detected on this page."

// TextSource records where the text of a page came from
type TextSource string

const (
	TextSourceNone   TextSource = "none"   // no text recovered
	TextSourceNative TextSource = "native" // embedded text of the content stream
	TextSourceOCR    TextSource = "ocr"    // recognized from a rasterized page
)

// TextBlock is a run of text positioned on a page
type TextBlock struct {
	BBox Rect
	Text string
}

// Page holds the content recovered from a single page
type Page struct {
	Index  int // 0-based
	Width  float64
	Height float64
	Blocks []TextBlock
	Tables []Table
	Text   string // prose text outside every table region
	Source TextSource
}

// Number returns the 1-based page number used in reports
func (p *Page) Number() int {
	return p.Index + 1
}

// TableRects returns the bounding rectangles of all tables on the page
func (p *Page) TableRects() []Rect {
	rects := make([]Rect, len(p.Tables))
	for i := range p.Tables {
		rects[i] = p.Tables[i].BBox
	}
	return rects
}

// Format renders the page section of a report: the page header, the prose
// text, then either the rendered tables or NoTablesMarker.
func (p *Page) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Page %d:\n", p.Number())
	sb.WriteString(p.Text)
	sb.WriteString("\n")
	if len(p.Tables) == 0 {
		sb.WriteString(NoTablesMarker)
		return sb.String()
	}
	for i := range p.Tables {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Tables[i].ToGrid())
	}
	return sb.String()
}
