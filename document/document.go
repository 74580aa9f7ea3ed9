package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tsawler/tabula/reader"
)

// pdfMagic is the header every accepted input starts with
const pdfMagic = "%PDF-"

// ErrNotPDF is returned when the input does not start with a PDF header
var ErrNotPDF = errors.New("input is not a PDF")

// InputError reports bytes that could not be read as a PDF
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err == nil {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s: %v", e.Reason, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// Document is a PDF spooled to a read-only temp file
type Document struct {
	dir       string
	path      string
	pageCount int

	closeOnce sync.Once
	closeErr  error
}

// Open validates data and spools it to a temp file. The caller must Close the
// returned Document to remove the file.
func Open(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte(pdfMagic)) {
		return nil, &InputError{Reason: "missing %PDF- header", Err: ErrNotPDF}
	}

	dir, err := os.MkdirTemp("", "certscore-")
	if err != nil {
		return nil, fmt.Errorf("failed to create spool dir: %w", err)
	}
	path := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(path, data, 0o400); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to spool input: %w", err)
	}

	r, err := reader.Open(path)
	if err != nil {
		os.RemoveAll(dir)
		return nil, &InputError{Reason: "cannot parse PDF", Err: err}
	}
	defer r.Close()

	count, err := r.PageCount()
	if err != nil {
		os.RemoveAll(dir)
		return nil, &InputError{Reason: "cannot read page tree", Err: err}
	}

	return &Document{dir: dir, path: path, pageCount: count}, nil
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return d.pageCount
}

// Path returns the spooled file
func (d *Document) Path() string {
	return d.path
}

// OpenPage opens page index (0-based) with a reader of its own
func (d *Document) OpenPage(index int) (*Page, error) {
	if index < 0 || index >= d.pageCount {
		return nil, fmt.Errorf("page %d out of range [0, %d)", index, d.pageCount)
	}

	r, err := reader.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reader: %w", err)
	}
	page, err := r.GetPage(index)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to get page %d: %w", index+1, err)
	}

	p := &Page{index: index, path: d.path, r: r, page: page}
	if p.width, err = page.Width(); err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to read page %d size: %w", index+1, err)
	}
	if p.height, err = page.Height(); err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to read page %d size: %w", index+1, err)
	}
	return p, nil
}

// Close removes the spooled file. It is safe to call more than once.
func (d *Document) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = os.RemoveAll(d.dir)
	})
	return d.closeErr
}
