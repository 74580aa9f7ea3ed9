// Package certscore scores agricultural certificates supplied as PDF files.
//
// A document is split into pages that are processed concurrently. Tables
// are detected and rendered as text grids, the prose outside them is read
// from the content stream, and pages without any embedded text fall back to
// OCR. The combined text is parsed into certificate features that are scored
// against a reference policy.
//
// Basic usage:
//
//	res, err := certscore.New().Analyze(ctx, pdfBytes)
//	if err != nil {
//	    // handle error
//	}
//	fmt.Println(res.Score.FinalScore, res.Score.Grade)
//
// With options:
//
//	res, err := certscore.New().
//	    Workers(4).
//	    OCRTimeout(30 * time.Second).
//	    AuditSink(sink).
//	    Analyze(ctx, pdfBytes)
//
// For finer control the document, tables, pagetext, pipeline, features and
// scoring packages can be used directly.
package certscore

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	res := certscore.Must(certscore.New().Analyze(ctx, data))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
