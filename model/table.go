package model

import (
	"encoding/csv"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Table is a rectangular region of a page holding a grid of text cells.
// The first row is treated as the header when rendering.
type Table struct {
	Page       int        // 0-based page index
	Index      int        // position among the accepted tables of the page
	BBox       Rect       // region covered by the table in page space
	Rows       [][]string // cell text, row-major
	Confidence float64    // detection confidence (0-1) reported by the detector
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// ColCount returns the width of the widest row
func (t *Table) ColCount() int {
	cols := 0
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return cols
}

// Header returns the first row, or nil for an empty table
func (t *Table) Header() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[0]
}

// Cell returns the text at row, col. Missing cells of ragged rows are "".
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	if col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// IsEmpty reports whether every cell of the table is blank
func (t *Table) IsEmpty() bool {
	for _, row := range t.Rows {
		if !IsRowEmpty(row) {
			return false
		}
	}
	return true
}

// IsRowEmpty reports whether every cell in row trims to the empty string
func IsRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ToCSV converts the table to CSV. Ragged rows are padded to ColCount.
func (t *Table) ToCSV() string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	cols := t.ColCount()
	for i := range t.Rows {
		record := make([]string, cols)
		for j := 0; j < cols; j++ {
			record[j] = t.Cell(i, j)
		}
		// Writes to a strings.Builder cannot fail.
		_ = w.Write(record)
	}
	w.Flush()
	return sb.String()
}

// ToGrid renders the table as a plain-text grid with the first row as the
// header:
//
//	+--------+--------+
//	| Crop   |   Area |
//	+========+========+
//	| Rice   |    2.5 |
//	+--------+--------+
//
// Columns whose body cells are all numeric are right-aligned, all other
// columns are left-aligned.
func (t *Table) ToGrid() string {
	cols := t.ColCount()
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	numeric := make([]bool, cols)
	for j := 0; j < cols; j++ {
		numeric[j] = len(t.Rows) > 1
		widths[j] = utf8.RuneCountInString(t.Cell(0, j)) + headerPadding
		for i := range t.Rows {
			cell := t.Cell(i, j)
			if n := utf8.RuneCountInString(cell); n > widths[j] {
				widths[j] = n
			}
			if i > 0 && !isNumber(cell) {
				numeric[j] = false
			}
		}
	}

	var sb strings.Builder
	writeRule := func(fill string) {
		for _, w := range widths {
			sb.WriteString("+")
			sb.WriteString(strings.Repeat(fill, w+2))
		}
		sb.WriteString("+\n")
	}
	writeRow := func(i int) {
		for j, w := range widths {
			cell := t.Cell(i, j)
			pad := strings.Repeat(" ", w-utf8.RuneCountInString(cell))
			sb.WriteString("| ")
			if numeric[j] {
				sb.WriteString(pad)
				sb.WriteString(cell)
			} else {
				sb.WriteString(cell)
				sb.WriteString(pad)
			}
			sb.WriteString(" ")
		}
		sb.WriteString("|\n")
	}

	writeRule("-")
	writeRow(0)
	if len(t.Rows) == 1 {
		writeRule("-")
		return strings.TrimSuffix(sb.String(), "\n")
	}
	writeRule("=")
	for i := 1; i < len(t.Rows); i++ {
		writeRow(i)
		writeRule("-")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// headerPadding is the extra width reserved around header labels
const headerPadding = 2

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
