package ocr

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tsawler/certscore/internal/command"
)

// CLI is a Recognizer that shells out to the tesseract executable. It needs
// no cgo, so it serves builds without the "ocr" tag.
type CLI struct {
	Options Options
	Runner  command.Runner
}

// NewCLI returns a CLI recognizer using os/exec
func NewCLI(opts Options) *CLI {
	return &CLI{Options: opts, Runner: command.Exec{}}
}

func (c *CLI) binary() string {
	if c.Options.Tesseract == "" {
		return "tesseract"
	}
	return c.Options.Tesseract
}

// Available reports whether the tesseract executable can be found
func (c *CLI) Available() bool {
	return command.Available(c.binary())
}

// Recognize writes image to a temp file and runs
// "tesseract <file> stdout -l <lang> [--psm N]".
func (c *CLI) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}

	f, err := os.CreateTemp("", "certscore-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp image: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(image); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}

	args := []string{f.Name(), "stdout", "-l", c.Options.language()}
	if c.Options.PageSegMode != 0 {
		args = append(args, "--psm", strconv.Itoa(int(c.Options.PageSegMode)))
	}

	runner := c.Runner
	if runner == nil {
		runner = command.Exec{}
	}
	stdout, stderr, err := runner.Run(ctx, c.binary(), args...)
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w: %s", err, command.Truncate(strings.TrimSpace(string(stderr)), 512))
	}
	return strings.TrimSpace(string(stdout)), nil
}
