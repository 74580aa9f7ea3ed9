package model

import "strings"

// PageDelimiter terminates every page section of a report
const PageDelimiter = "\n========================================\n"

// Document is the ordered set of pages recovered from one input file
type Document struct {
	Pages []*Page
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Tables returns every table of the document in page order
func (d *Document) Tables() []Table {
	var all []Table
	for _, p := range d.Pages {
		all = append(all, p.Tables...)
	}
	return all
}

// Report concatenates the formatted pages in ascending index order, each
// followed by PageDelimiter. A document without pages yields "".
func (d *Document) Report() string {
	var sb strings.Builder
	for _, p := range d.Pages {
		sb.WriteString(p.Format())
		sb.WriteString(PageDelimiter)
	}
	return sb.String()
}
