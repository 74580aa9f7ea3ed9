package tables

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/tsawler/certscore/model"
)

// AuditSink receives accepted tables as a side effect of extraction.
// Implementations must be safe for concurrent use by page tasks.
type AuditSink interface {
	WriteTable(ctx context.Context, table model.Table) error
}

// SinkFactory opens the sink for one document. A sink that also implements
// io.Closer is closed once that document has been analyzed.
type SinkFactory func() (AuditSink, error)

// CSVPerDocument writes each document's tables to its own subdirectory of
// dir, named by a fresh uuid.
func CSVPerDocument(dir string) SinkFactory {
	return func() (AuditSink, error) {
		return NewCSVSink(filepath.Join(dir, uuid.NewString()))
	}
}

// XLSXPerDocument writes each document's tables to its own workbook
// dir/tables-<uuid>.xlsx.
func XLSXPerDocument(dir string) SinkFactory {
	return func() (AuditSink, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
		return NewXLSXSink(filepath.Join(dir, "tables-"+uuid.NewString()+".xlsx")), nil
	}
}

// CloseSink closes s when it implements io.Closer
func CloseSink(s AuditSink) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NopSink discards all tables
type NopSink struct{}

// WriteTable implements AuditSink
func (NopSink) WriteTable(context.Context, model.Table) error { return nil }

// CSVSink writes every table to its own CSV file in a directory, named
// page_<page>_table<index>.csv with 0-based page and table indexes.
type CSVSink struct {
	dir string
}

// NewCSVSink creates the directory if needed and returns a sink writing to it
func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	return &CSVSink{dir: dir}, nil
}

// Path returns the file a table is written to
func (s *CSVSink) Path(table model.Table) string {
	return filepath.Join(s.dir, fmt.Sprintf("page_%d_table%d.csv", table.Page, table.Index))
}

// WriteTable implements AuditSink
func (s *CSVSink) WriteTable(ctx context.Context, table model.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(s.Path(table), []byte(table.ToCSV()), 0o644); err != nil {
		return fmt.Errorf("failed to write table csv: %w", err)
	}
	return nil
}

// XLSXSink collects the tables of one document and writes them to one
// workbook on Close, one sheet per table ordered by page and table index.
// Use XLSXPerDocument when a process analyzes many documents.
type XLSXSink struct {
	path string

	mu     sync.Mutex
	tables []model.Table
	closed bool
}

// NewXLSXSink returns a sink that writes the workbook to path on Close
func NewXLSXSink(path string) *XLSXSink {
	return &XLSXSink{path: path}
}

// WriteTable implements AuditSink
func (s *XLSXSink) WriteTable(ctx context.Context, table model.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("xlsx sink %s is closed", s.path)
	}
	s.tables = append(s.tables, table)
	return nil
}

// SheetName returns the worksheet name used for a table
func SheetName(table model.Table) string {
	return fmt.Sprintf("page_%d_table%d", table.Page, table.Index)
}

// Close writes the workbook. A sink that received no tables writes nothing.
func (s *XLSXSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if len(s.tables) == 0 {
		return nil
	}

	sort.Slice(s.tables, func(i, j int) bool {
		if s.tables[i].Page != s.tables[j].Page {
			return s.tables[i].Page < s.tables[j].Page
		}
		return s.tables[i].Index < s.tables[j].Index
	})

	f := excelize.NewFile()
	defer f.Close()

	for i, table := range s.tables {
		sheet := SheetName(table)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("failed to name sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to add sheet: %w", err)
		}

		for r, row := range table.Rows {
			cells := make([]interface{}, len(row))
			for c, v := range row {
				cells[c] = v
			}
			ref, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, ref, &cells); err != nil {
				return fmt.Errorf("failed to write row %d of %s: %w", r, sheet, err)
			}
		}
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
