//go:build !ocr

package ocr

import "context"

// Available reports whether an in-process OCR engine was compiled in
func Available() bool { return false }

// Client is a stub OCR client that returns errors for all operations.
type Client struct{}

// New returns an error indicating OCR support is not enabled.
// To enable OCR, rebuild with: go build -tags ocr
func New() (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op for the stub client.
// It is safe to call on a nil client.
func (c *Client) Close() error {
	return nil
}

// RecognizeImage returns an error indicating OCR support is not enabled.
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	return "", ErrOCRNotEnabled
}

// SetLanguage returns an error indicating OCR support is not enabled.
func (c *Client) SetLanguage(lang string) error {
	return ErrOCRNotEnabled
}

// SetPageSegMode returns an error indicating OCR support is not enabled.
func (c *Client) SetPageSegMode(mode PageSegMode) error {
	return ErrOCRNotEnabled
}

// Tesseract is the in-process engine. Without the "ocr" build tag every
// call fails with ErrOCRNotEnabled.
type Tesseract struct {
	Options Options
}

// Recognize implements Recognizer
func (t *Tesseract) Recognize(context.Context, []byte) (string, error) {
	return "", ErrOCRNotEnabled
}
