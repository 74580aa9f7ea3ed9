// Package ocr recognizes text in page images.
//
// Two engines are provided. Tesseract links libtesseract through gosseract
// and is only functional when built with the "ocr" tag:
//
//	go build -tags ocr ./...
//
// CLI runs the tesseract executable and works in any build. Default picks
// whichever is available, falling back to a recognizer that always returns
// ErrOCRNotEnabled.
//
// Engines may not honour context cancellation, so callers bound each call
// with WithTimeout.
package ocr
