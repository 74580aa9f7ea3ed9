package tables

import (
	"regexp"
	"strings"

	"github.com/tsawler/certscore/model"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeCell collapses runs of whitespace to a single space and trims
// the ends.
func NormalizeCell(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Clean normalizes every cell and drops rows that are entirely empty. It
// returns nil when fewer than minRows rows remain, which also covers tables
// that were empty to begin with.
func Clean(rows [][]string, minRows int) [][]string {
	var kept [][]string
	for _, row := range rows {
		cleaned := make([]string, len(row))
		for i, cell := range row {
			cleaned[i] = NormalizeCell(cell)
		}
		if model.IsRowEmpty(cleaned) {
			continue
		}
		kept = append(kept, cleaned)
	}
	if len(kept) < minRows {
		return nil
	}
	return kept
}
