package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrOCRNotEnabled is returned when no OCR engine is available: the binary
// was built without the "ocr" tag and no tesseract executable was found.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr or install tesseract")

// ErrEmptyImage is returned when recognition is asked to read zero bytes
var ErrEmptyImage = errors.New("ocr: empty image")

// PageSegMode represents page segmentation modes for OCR.
// These control how Tesseract analyzes the page layout.
type PageSegMode int

// Page segmentation modes, numbered as in Tesseract.
const (
	PSM_OSD_ONLY               PageSegMode = 0  // Orientation and script detection only
	PSM_AUTO_OSD               PageSegMode = 1  // Automatic with OSD
	PSM_AUTO_ONLY              PageSegMode = 2  // Automatic, no OSD or OCR
	PSM_AUTO                   PageSegMode = 3  // Fully automatic (default)
	PSM_SINGLE_COLUMN          PageSegMode = 4  // Single column of variable sizes
	PSM_SINGLE_BLOCK_VERT_TEXT PageSegMode = 5  // Single uniform block of vertically aligned text
	PSM_SINGLE_BLOCK           PageSegMode = 6  // Single uniform block of text
	PSM_SINGLE_LINE            PageSegMode = 7  // Single text line
	PSM_SINGLE_WORD            PageSegMode = 8  // Single word
	PSM_CIRCLE_WORD            PageSegMode = 9  // Single word in a circle
	PSM_SINGLE_CHAR            PageSegMode = 10 // Single character
	PSM_SPARSE_TEXT            PageSegMode = 11 // Find as much text as possible
	PSM_SPARSE_TEXT_OSD        PageSegMode = 12 // Sparse text with OSD
	PSM_RAW_LINE               PageSegMode = 13 // Treat image as single text line
)

// Recognizer reads the text of a single image (PNG, TIFF, JPEG, etc.)
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// RecognizerFunc adapts a function to the Recognizer interface
type RecognizerFunc func(ctx context.Context, image []byte) (string, error)

// Recognize implements Recognizer
func (f RecognizerFunc) Recognize(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

// Unavailable is a Recognizer that always fails with ErrOCRNotEnabled
type Unavailable struct{}

// Recognize implements Recognizer
func (Unavailable) Recognize(context.Context, []byte) (string, error) {
	return "", ErrOCRNotEnabled
}

// Options configure the built-in engines
type Options struct {
	Language    string      // e.g. "eng" or "eng+hin"; default "eng"
	PageSegMode PageSegMode // 0 keeps the engine default
	Tesseract   string      // tesseract executable for the CLI engine; default "tesseract"
}

func (o Options) language() string {
	if o.Language == "" {
		return "eng"
	}
	return o.Language
}

// Default picks the best available engine: the linked Tesseract library when
// built with the "ocr" tag, else the tesseract executable if it is on the
// PATH, else Unavailable.
func Default(opts Options) Recognizer {
	if Available() {
		return &Tesseract{Options: opts}
	}
	cli := NewCLI(opts)
	if cli.Available() {
		return cli
	}
	return Unavailable{}
}

type timeoutRecognizer struct {
	next    Recognizer
	timeout time.Duration
}

// WithTimeout bounds every recognition by d. Engines that ignore context
// cancellation keep running in the background, but the caller gets
// context.DeadlineExceeded once d has elapsed. A non-positive d returns r.
func WithTimeout(r Recognizer, d time.Duration) Recognizer {
	if d <= 0 {
		return r
	}
	return &timeoutRecognizer{next: r, timeout: d}
}

type recognizeResult struct {
	text string
	err  error
}

func (t *timeoutRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan recognizeResult, 1)
	go func() {
		text, err := t.next.Recognize(ctx, image)
		done <- recognizeResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("recognition aborted: %w", ctx.Err())
	}
}
