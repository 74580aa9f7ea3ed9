package raster

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"reflect"
	"testing"

	"github.com/tsawler/tabula/reader"
)

// fakePage is an in-memory Page
type fakePage struct {
	index    int
	w, h     float64
	rotation int
	path     string
	images   []reader.PageImage
	err      error
}

func (p *fakePage) Index() int                          { return p.index }
func (p *fakePage) Size() (float64, float64)            { return p.w, p.h }
func (p *fakePage) Rotation() int                       { return p.rotation }
func (p *fakePage) DocumentPath() string                { return p.path }
func (p *fakePage) Images() ([]reader.PageImage, error) { return p.images, p.err }

func grayImage(w, h int) reader.PageImage {
	data := make([]byte, w*h)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return reader.PageImage{
		Name:             "Im1",
		Width:            w,
		Height:           h,
		ColorSpace:       "DeviceGray",
		BitsPerComponent: 8,
		Data:             data,
	}
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if _, ok := img.(*image.Gray); !ok {
		t.Errorf("decoded image is %T, want *image.Gray", img)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

// ============================================================================
// DPI helpers
// ============================================================================

func TestEstimateDPI(t *testing.T) {
	tests := []struct {
		pxW, pxH     int
		pageW, pageH float64
		want         int
	}{
		{2550, 3300, 612, 792, 300},
		{100, 50, 72, 72, 100},
		{100, 100, 0, 0, 0},
		{100, 200, 0, 72, 200},
	}
	for _, tt := range tests {
		if got := EstimateDPI(tt.pxW, tt.pxH, tt.pageW, tt.pageH); got != tt.want {
			t.Errorf("EstimateDPI(%d, %d, %v, %v) = %d, want %d", tt.pxW, tt.pxH, tt.pageW, tt.pageH, got, tt.want)
		}
	}
}

func TestUpscale(t *testing.T) {
	tests := []struct {
		dpi  int
		want float64
	}{
		{0, 1.0},
		{59, 1.0},
		{60, 3.0},
		{100, 3.0},
		{150, 2.0},
		{249, 300.0 / 249.0},
		{250, 1.0},
		{600, 1.0},
	}
	for _, tt := range tests {
		if got := Upscale(tt.dpi); got != tt.want {
			t.Errorf("Upscale(%d) = %v, want %v", tt.dpi, got, tt.want)
		}
	}
}

// ============================================================================
// Embedded
// ============================================================================

func TestEmbeddedUpscalesLowDPI(t *testing.T) {
	page := &fakePage{w: 72, h: 36, images: []reader.PageImage{grayImage(100, 50)}}

	got, err := Embedded{}.Rasterize(context.Background(), page)
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Rasterize() returned %d images, want 1", len(got))
	}
	if got[0].DPI != 300 {
		t.Errorf("DPI = %d, want 300", got[0].DPI)
	}
	if w, h := decodeSize(t, got[0].PNG); w != 300 || h != 150 {
		t.Errorf("size = %dx%d, want 300x150", w, h)
	}
}

func TestEmbeddedKeepsHighDPI(t *testing.T) {
	page := &fakePage{w: 10, h: 5, images: []reader.PageImage{grayImage(100, 50)}}

	got, err := Embedded{}.Rasterize(context.Background(), page)
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if w, h := decodeSize(t, got[0].PNG); w != 100 || h != 50 {
		t.Errorf("size = %dx%d, want 100x50", w, h)
	}
}

func TestEmbeddedRotates(t *testing.T) {
	page := &fakePage{w: 10, h: 5, rotation: 90, images: []reader.PageImage{grayImage(100, 50)}}

	got, err := Embedded{}.Rasterize(context.Background(), page)
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if w, h := decodeSize(t, got[0].PNG); w != 50 || h != 100 {
		t.Errorf("size = %dx%d, want 50x100", w, h)
	}
}

func TestEmbeddedSkipsUndecodable(t *testing.T) {
	broken := grayImage(10, 10)
	broken.Data = broken.Data[:3]
	page := &fakePage{w: 10, h: 10, images: []reader.PageImage{broken, grayImage(10, 10)}}

	got, err := Embedded{}.Rasterize(context.Background(), page)
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Rasterize() returned %d images, want 1", len(got))
	}
}

func TestEmbeddedImageError(t *testing.T) {
	page := &fakePage{err: errors.New("bad resources")}
	if _, err := (Embedded{}).Rasterize(context.Background(), page); err == nil {
		t.Error("Rasterize() succeeded, want error")
	}
}

// ============================================================================
// Pdftoppm
// ============================================================================

// renderRunner writes a PNG to the requested prefix like pdftoppm does
type renderRunner struct {
	name string
	args []string
	err  error
}

func (r *renderRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.name = name
	r.args = args
	if r.err != nil {
		return nil, []byte("Syntax Error"), r.err
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4)))
	if err := os.WriteFile(args[len(args)-1]+".png", buf.Bytes(), 0o644); err != nil {
		return nil, nil, err
	}
	return nil, nil, nil
}

func TestPdftoppmRasterize(t *testing.T) {
	runner := &renderRunner{}
	p := NewPdftoppm()
	p.Runner = runner

	got, err := p.Rasterize(context.Background(), &fakePage{index: 2, path: "/tmp/doc.pdf"})
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if len(got) != 1 || got[0].DPI != RenderDPI {
		t.Fatalf("Rasterize() = %+v, want one image at %d DPI", got, RenderDPI)
	}
	want := []string{"-png", "-r", "300", "-f", "3", "-l", "3", "-singlefile", "/tmp/doc.pdf"}
	if !reflect.DeepEqual(runner.args[:len(want)], want) {
		t.Errorf("args = %v, want prefix %v", runner.args, want)
	}
	if runner.name != "pdftoppm" {
		t.Errorf("binary = %q, want pdftoppm", runner.name)
	}
}

func TestPdftoppmFailure(t *testing.T) {
	p := NewPdftoppm()
	p.Runner = &renderRunner{err: errors.New("exit status 1")}
	if _, err := p.Rasterize(context.Background(), &fakePage{path: "/tmp/doc.pdf"}); err == nil {
		t.Error("Rasterize() succeeded, want error")
	}
}

func TestPdftoppmNoPath(t *testing.T) {
	p := NewPdftoppm()
	p.Runner = &renderRunner{}
	if _, err := p.Rasterize(context.Background(), &fakePage{}); err == nil {
		t.Error("Rasterize() without a file succeeded, want error")
	}
}

// ============================================================================
// Chain
// ============================================================================

type stubRasterizer struct {
	images []Image
	err    error
	calls  int
}

func (s *stubRasterizer) Rasterize(context.Context, Page) ([]Image, error) {
	s.calls++
	return s.images, s.err
}

func TestChain(t *testing.T) {
	failing := &stubRasterizer{err: errors.New("no pdftoppm")}
	empty := &stubRasterizer{}
	good := &stubRasterizer{images: []Image{{PNG: []byte{1}, DPI: 72}}}
	unused := &stubRasterizer{images: []Image{{PNG: []byte{2}}}}

	got, err := Chain{failing, empty, good, unused}.Rasterize(context.Background(), &fakePage{})
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if len(got) != 1 || got[0].PNG[0] != 1 {
		t.Errorf("Rasterize() = %+v, want the third stage's image", got)
	}
	if unused.calls != 0 {
		t.Errorf("stage after a success called %d times", unused.calls)
	}
}

func TestChainAllFail(t *testing.T) {
	boom := errors.New("boom")
	_, err := Chain{&stubRasterizer{}, &stubRasterizer{err: boom}}.Rasterize(context.Background(), &fakePage{})
	if !errors.Is(err, boom) {
		t.Errorf("Rasterize() error = %v, want %v", err, boom)
	}

	_, err = Chain{&stubRasterizer{}}.Rasterize(context.Background(), &fakePage{})
	if !errors.Is(err, ErrNoImages) {
		t.Errorf("Rasterize() error = %v, want ErrNoImages", err)
	}
}
