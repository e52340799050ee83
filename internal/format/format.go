// Package format defines the closed set of supported book formats and the
// capability interface their handlers implement.
package format

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"lectern/internal/book"
)

// Format tags a supported book format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatEPUB Format = "epub"
)

// Detect derives the format from the file extension. Unsupported extensions
// fail fast with book.ErrUnsupportedFormat before any I/O happens.
func Detect(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, nil
	case ".epub":
		return FormatEPUB, nil
	default:
		return "", fmt.Errorf("%w: %s (supported: .pdf, .epub)",
			book.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// OutlineEntry is one entry of a document's native table of contents.
type OutlineEntry struct {
	Title string
	Level int // 1 = top level
	Page  int // 1-indexed target page
}

// Info holds embedded document metadata.
type Info struct {
	Title     string
	Author    string
	Publisher string
	ISBN      string
	Language  string
	Year      int
}

// Document is the per-format handle the pipeline works against. For
// page-image formats a page is a physical page; for reflowable formats it is
// one spine item. Implementations are safe for concurrent PageText calls.
type Document interface {
	// Info returns embedded metadata. Zero fields mean "not present".
	Info() Info

	// PageCount returns the total number of pages (1-indexed addressing).
	PageCount() int

	// PageText extracts the native text layer of a page.
	PageText(ctx context.Context, pageNum int) (string, error)

	// Outline returns the document's native table of contents, or nil.
	Outline() []OutlineEntry

	// HasImages reports whether any of the first maxPages pages carries an
	// embedded raster image.
	HasImages(ctx context.Context, maxPages int) bool

	// Warnings returns non-fatal problems collected while opening, such as a
	// missing external tool degrading metadata richness.
	Warnings() []string

	Close() error
}

// PageRasterizer is implemented by documents that can render a page to a PNG
// for OCR. Reflowable formats do not implement it.
type PageRasterizer interface {
	RasterizePage(ctx context.Context, pageNum, dpi int, destPath string) error
}

// OpenOptions carries per-run extraction preferences down to the handler.
type OpenOptions struct {
	// PreserveLayout keeps the physical text layout during native extraction.
	// Quality tiers that feed text to heading detection want it on.
	PreserveLayout bool
}

// OpenFunc opens a document at path. The processor takes one of these so
// tests can substitute fakes.
type OpenFunc func(ctx context.Context, path string, opts OpenOptions) (Document, error)
