package certscore

import (
	"fmt"
	"strings"
)

// WarningCode identifies the type of warning encountered during analysis.
type WarningCode int

const (
	// WarningOCRFallback indicates that a page had no native text and its
	// text was recognized from a rasterized image.
	WarningOCRFallback WarningCode = iota

	// WarningNoText indicates that neither the content stream nor OCR
	// yielded any text for a page.
	WarningNoText
)

// Warning represents a non-fatal issue encountered during analysis.
type Warning struct {
	Code    WarningCode
	Page    int // 1-based
	Message string
}

func newWarning(code WarningCode, page int, msg string) Warning {
	return Warning{Code: code, Page: page, Message: fmt.Sprintf("page %d: %s", page, msg)}
}

// String returns the warning message.
func (w Warning) String() string {
	return w.Message
}

// FormatWarnings returns a human-readable string of all warnings.
// Returns empty string if there are no warnings.
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	msgs := make([]string, len(warnings))
	for i, w := range warnings {
		msgs[i] = w.Message
	}
	return strings.Join(msgs, "; ")
}
