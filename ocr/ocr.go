//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Available reports whether an in-process OCR engine was compiled in
func Available() bool { return true }

// Client wraps a Tesseract instance. A Client is not safe for concurrent use.
type Client struct {
	client *gosseract.Client
}

// New creates a new OCR client.
// The client should be closed when no longer needed to release resources.
func New() (*Client, error) {
	return &Client{client: gosseract.NewClient()}, nil
}

// Close releases OCR resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// RecognizeImage performs OCR on image data.
// Returns the recognized text with leading/trailing whitespace trimmed.
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	if len(imageData) == 0 {
		return "", ErrEmptyImage
	}
	if err := c.client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	return strings.TrimSpace(text), nil
}

// SetLanguage sets the language(s) for OCR recognition as a "+" separated
// list, e.g. "eng+hin".
func (c *Client) SetLanguage(lang string) error {
	return c.client.SetLanguage(strings.Split(lang, "+")...)
}

// SetPageSegMode sets the page segmentation mode.
func (c *Client) SetPageSegMode(mode PageSegMode) error {
	return c.client.SetPageSegMode(gosseract.PageSegMode(mode))
}

// Tesseract is a Recognizer backed by the linked Tesseract library. Every
// call uses its own Client, so one Tesseract may serve concurrent pages.
type Tesseract struct {
	Options Options
}

// Recognize implements Recognizer
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client, err := New()
	if err != nil {
		return "", err
	}
	defer client.Close()

	if err := client.SetLanguage(t.Options.language()); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if t.Options.PageSegMode != 0 {
		if err := client.SetPageSegMode(t.Options.PageSegMode); err != nil {
			return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
		}
	}
	return client.RecognizeImage(image)
}
