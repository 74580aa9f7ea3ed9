// Package raster turns PDF pages into images ready for OCR.
package raster

import (
	"context"
	"errors"

	"github.com/tsawler/tabula/reader"
)

const (
	// RenderDPI is the resolution of a full-page render
	RenderDPI = 300

	// minPlausibleDPI is the lowest estimated DPI trusted for an embedded scan
	minPlausibleDPI = 60
	// targetDPI is the resolution low-DPI scans are upscaled toward
	targetDPI = 300
	// maxUpscale caps the enlargement of a single image
	maxUpscale = 3.0
)

// ErrNoImages is returned when a page yields nothing to recognize
var ErrNoImages = errors.New("raster: page has no images")

// Page is the view of a PDF page a Rasterizer needs
type Page interface {
	Index() int // 0-based
	Size() (width, height float64)
	Rotation() int
	DocumentPath() string
	Images() ([]reader.PageImage, error)
}

// Image is one OCR-ready PNG and its estimated resolution
type Image struct {
	PNG []byte
	DPI int
}

// Rasterizer produces OCR input for a page
type Rasterizer interface {
	Rasterize(ctx context.Context, page Page) ([]Image, error)
}

// Chain tries each Rasterizer in order and returns the first non-empty
// result. When all fail, the last error is returned.
type Chain []Rasterizer

// Rasterize implements Rasterizer
func (c Chain) Rasterize(ctx context.Context, page Page) ([]Image, error) {
	lastErr := ErrNoImages
	for _, r := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		images, err := r.Rasterize(ctx, page)
		if err != nil {
			lastErr = err
			continue
		}
		if len(images) > 0 {
			return images, nil
		}
	}
	return nil, lastErr
}

// Default renders the whole page with pdftoppm and falls back to the page's
// embedded images.
func Default() Rasterizer {
	return Chain{NewPdftoppm(), Embedded{}}
}

// EstimateDPI estimates the resolution of an image of pxW by pxH pixels drawn
// over a page of pageW by pageH points. The larger axis estimate wins; 0 means
// unknown.
func EstimateDPI(pxW, pxH int, pageW, pageH float64) int {
	best := 0
	if pageW > 0 {
		if d := int(float64(pxW)*72/pageW + 0.5); d > best {
			best = d
		}
	}
	if pageH > 0 {
		if d := int(float64(pxH)*72/pageH + 0.5); d > best {
			best = d
		}
	}
	return best
}

// Upscale returns the factor that lifts an image of the given DPI toward
// targetDPI. Unknown, implausible or near-target resolutions are not scaled.
func Upscale(dpi int) float64 {
	if dpi < minPlausibleDPI || dpi >= targetDPI-50 {
		return 1.0
	}
	s := float64(targetDPI) / float64(dpi)
	if s > maxUpscale {
		s = maxUpscale
	}
	return s
}
