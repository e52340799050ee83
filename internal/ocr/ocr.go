// Package ocr wraps an external OCR engine for page images. Tesseract is the
// only implementation; the pipeline only sees the Engine interface.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Engine recognizes text in a page image.
type Engine interface {
	// Recognize runs OCR on the PNG at imagePath and returns plain UTF-8 text.
	// preserveLayout keeps the engine's page layout analysis instead of
	// forcing a single uniform block of text; the quality tier decides.
	Recognize(ctx context.Context, imagePath string, preserveLayout bool) (string, error)

	// Available reports whether the engine can run on this host.
	Available() bool
}

// TesseractOptions configures the tesseract wrapper.
type TesseractOptions struct {
	// Binary is the tesseract executable name or path. Empty means "tesseract".
	Binary string

	// Language is the tesseract language spec, e.g. "por+eng".
	Language string

	Logger *slog.Logger
}

// Tesseract shells out to the tesseract CLI.
type Tesseract struct {
	binary   string
	language string
	logger   *slog.Logger
}

// NewTesseract builds a tesseract-backed engine.
func NewTesseract(opts TesseractOptions) *Tesseract {
	binary := opts.Binary
	if binary == "" {
		binary = "tesseract"
	}
	language := opts.Language
	if language == "" {
		language = "eng"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tesseract{
		binary:   binary,
		language: language,
		logger:   logger,
	}
}

// Available implements Engine.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// Recognize implements Engine. Output goes to stdout ("-" output base) so no
// intermediate files are left behind.
func (t *Tesseract) Recognize(ctx context.Context, imagePath string, preserveLayout bool) (string, error) {
	cmd := exec.CommandContext(ctx, t.binary, t.args(imagePath, preserveLayout)...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed for %s: %w (stderr: %s)",
			imagePath, err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(string(out))
	t.logger.Debug("OCR complete", "image", imagePath, "chars", len(text))
	return text, nil
}

func (t *Tesseract) args(imagePath string, preserveLayout bool) []string {
	args := []string{imagePath, "-", "-l", t.language}
	if !preserveLayout {
		// PSM 6: assume a single uniform block of text.
		args = append(args, "--psm", "6")
	}
	return args
}

var _ Engine = (*Tesseract)(nil)
