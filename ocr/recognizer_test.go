package ocr

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// fakeRunner records the last command and returns canned output
type fakeRunner struct {
	name   string
	args   []string
	image  []byte
	stdout string
	stderr string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	if len(args) > 0 {
		f.image, _ = os.ReadFile(args[0])
	}
	return []byte(f.stdout), []byte(f.stderr), f.err
}

// ============================================================================
// CLI
// ============================================================================

func TestCLIRecognize(t *testing.T) {
	runner := &fakeRunner{stdout: "  Certificate No: ORG/1  \n"}
	cli := &CLI{Options: Options{Language: "eng+hin", PageSegMode: PSM_SINGLE_BLOCK}, Runner: runner}

	got, err := cli.Recognize(context.Background(), []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if got != "Certificate No: ORG/1" {
		t.Errorf("Recognize() = %q, want trimmed stdout", got)
	}
	if runner.name != "tesseract" {
		t.Errorf("binary = %q, want tesseract", runner.name)
	}
	wantTail := []string{"stdout", "-l", "eng+hin", "--psm", "6"}
	if !reflect.DeepEqual(runner.args[1:], wantTail) {
		t.Errorf("args = %v, want <file> %v", runner.args, wantTail)
	}
	if string(runner.image) != "png-bytes" {
		t.Errorf("temp image = %q, want png-bytes", runner.image)
	}
	if _, err := os.Stat(runner.args[0]); !os.IsNotExist(err) {
		t.Errorf("temp image %s not removed", runner.args[0])
	}
}

func TestCLIDefaults(t *testing.T) {
	runner := &fakeRunner{}
	cli := &CLI{Runner: runner}
	if _, err := cli.Recognize(context.Background(), []byte{1}); err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	want := []string{"stdout", "-l", "eng"}
	if !reflect.DeepEqual(runner.args[1:], want) {
		t.Errorf("args = %v, want <file> %v", runner.args, want)
	}
}

func TestCLIFailure(t *testing.T) {
	runner := &fakeRunner{stderr: "Error opening data file", err: errors.New("exit status 1")}
	cli := &CLI{Runner: runner}
	_, err := cli.Recognize(context.Background(), []byte{1})
	if err == nil {
		t.Fatal("Recognize() succeeded, want error")
	}
	if !strings.Contains(err.Error(), "Error opening data file") {
		t.Errorf("error = %v, want stderr included", err)
	}
}

func TestCLIEmptyImage(t *testing.T) {
	cli := &CLI{Runner: &fakeRunner{}}
	if _, err := cli.Recognize(context.Background(), nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Recognize(nil) error = %v, want ErrEmptyImage", err)
	}
}

func TestCLIAvailableMissingBinary(t *testing.T) {
	cli := NewCLI(Options{Tesseract: "certscore-no-such-tesseract"})
	if cli.Available() {
		t.Error("Available() = true for a missing binary")
	}
}

// ============================================================================
// Timeouts
// ============================================================================

func TestWithTimeoutPassesThrough(t *testing.T) {
	r := WithTimeout(RecognizerFunc(func(context.Context, []byte) (string, error) {
		return "text", nil
	}), time.Second)

	got, err := r.Recognize(context.Background(), []byte{1})
	if err != nil || got != "text" {
		t.Errorf("Recognize() = %q, %v, want text, nil", got, err)
	}
}

func TestWithTimeoutExpires(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	r := WithTimeout(RecognizerFunc(func(context.Context, []byte) (string, error) {
		<-release // ignores cancellation
		return "late", nil
	}), 20*time.Millisecond)

	start := time.Now()
	_, err := r.Recognize(context.Background(), []byte{1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Recognize() error = %v, want DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Recognize() took %v, want about 20ms", elapsed)
	}
}

func TestWithTimeoutNonPositive(t *testing.T) {
	inner := Unavailable{}
	if got := WithTimeout(inner, 0); got != Recognizer(inner) {
		t.Errorf("WithTimeout(r, 0) = %v, want r", got)
	}
}

func TestUnavailable(t *testing.T) {
	if _, err := (Unavailable{}).Recognize(context.Background(), []byte{1}); !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("Recognize() error = %v, want ErrOCRNotEnabled", err)
	}
}

func TestDefaultWithoutEngines(t *testing.T) {
	if Available() {
		t.Skip("linked engine present")
	}
	r := Default(Options{Tesseract: "certscore-no-such-tesseract"})
	if _, ok := r.(Unavailable); !ok {
		t.Errorf("Default() = %T, want Unavailable", r)
	}
}
