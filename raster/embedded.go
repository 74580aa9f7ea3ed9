package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// Embedded prepares a page's embedded raster images. Each one is uprighted
// for the page rotation, converted to grayscale and upscaled toward 300 DPI
// when its estimated resolution is low.
type Embedded struct{}

// Rasterize implements Rasterizer. Images that fail to decode are skipped.
func (Embedded) Rasterize(ctx context.Context, page Page) ([]Image, error) {
	imgs, err := page.Images()
	if err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	w, h := page.Size()
	rotation := page.Rotation()
	if rotation%180 != 0 {
		w, h = h, w
	}

	var out []Image
	for i := range imgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		upright, err := imgs[i].ToPNGForOCR(rotation, 1.0)
		if err != nil {
			continue
		}
		decoded, err := png.Decode(bytes.NewReader(upright))
		if err != nil {
			continue
		}
		b := decoded.Bounds()
		dpi := EstimateDPI(b.Dx(), b.Dy(), w, h)
		scale := Upscale(dpi)
		data, err := Prepare(decoded, scale)
		if err != nil {
			continue
		}
		if scale > 1 {
			dpi = int(float64(dpi)*scale + 0.5)
		}
		out = append(out, Image{PNG: data, DPI: dpi})
	}
	return out, nil
}

// Prepare converts src to 8-bit grayscale, enlarged by scale when scale > 1,
// and encodes it as PNG.
func Prepare(src image.Image, scale float64) ([]byte, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if scale > 1 {
		w = int(float64(w)*scale + 0.5)
		h = int(float64(h)*scale + 0.5)
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
