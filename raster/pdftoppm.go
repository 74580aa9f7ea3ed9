package raster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tsawler/certscore/internal/command"
)

// Pdftoppm renders a page to a single PNG with poppler's pdftoppm
type Pdftoppm struct {
	Binary  string // default "pdftoppm"
	DPI     int    // default RenderDPI
	Timeout time.Duration
	Runner  command.Runner
}

// NewPdftoppm returns a renderer at RenderDPI with a 60 second bound
func NewPdftoppm() *Pdftoppm {
	return &Pdftoppm{
		Binary:  "pdftoppm",
		DPI:     RenderDPI,
		Timeout: 60 * time.Second,
		Runner:  command.Exec{},
	}
}

// Available reports whether the pdftoppm binary can be found
func (p *Pdftoppm) Available() bool {
	return command.Available(p.binary())
}

func (p *Pdftoppm) binary() string {
	if p.Binary == "" {
		return "pdftoppm"
	}
	return p.Binary
}

// Rasterize implements Rasterizer. pdftoppm honours /Rotate, so the image
// comes back upright.
func (p *Pdftoppm) Rasterize(ctx context.Context, page Page) ([]Image, error) {
	path := page.DocumentPath()
	if path == "" {
		return nil, fmt.Errorf("pdftoppm: page %d has no backing file", page.Index()+1)
	}

	dpi := p.DPI
	if dpi <= 0 {
		dpi = RenderDPI
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	tmp, err := os.MkdirTemp("", "certscore-render-")
	if err != nil {
		return nil, fmt.Errorf("failed to create render dir: %w", err)
	}
	defer os.RemoveAll(tmp)
	prefix := filepath.Join(tmp, "page")

	n := strconv.Itoa(page.Index() + 1)
	runner := p.Runner
	if runner == nil {
		runner = command.Exec{}
	}
	_, stderr, err := runner.Run(ctx, p.binary(),
		"-png", "-r", strconv.Itoa(dpi), "-f", n, "-l", n, "-singlefile", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, command.Truncate(string(stderr), 512))
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to read render: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return []Image{{PNG: data, DPI: dpi}}, nil
}
