// Package pdf implements the format.Document capability for PDF files using
// pdfcpu for structural access and the poppler tools (pdfinfo, pdftotext,
// pdftoppm, pdfimages) for text, metadata and rasterization.
package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"lectern/internal/format"
)

// Options configures how a PDF document is opened.
type Options struct {
	// Layout preserves the physical text layout during native extraction.
	Layout bool
	Logger *slog.Logger
}

// Document is a PDF-backed format.Document.
type Document struct {
	path      string
	pageCount int
	info      format.Info
	outline   []format.OutlineEntry
	layout    bool
	warnings  []string
	logger    *slog.Logger
}

// Open opens and inspects a PDF file.
func Open(ctx context.Context, path string, opts Options) (*Document, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pageCount, err := api.PageCount(f, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	d := &Document{
		path:      path,
		pageCount: pageCount,
		layout:    opts.Layout,
		logger:    logger,
	}

	if err := api.ValidateFile(path, nil); err != nil {
		// Many real-world scans carry recoverable structure defects.
		d.warn(fmt.Sprintf("PDF validation reported problems: %v", err))
	}

	d.readInfo(ctx)
	d.readOutline(f)

	return d, nil
}

// Info implements format.Document.
func (d *Document) Info() format.Info {
	return d.info
}

// PageCount implements format.Document.
func (d *Document) PageCount() int {
	return d.pageCount
}

// Outline implements format.Document.
func (d *Document) Outline() []format.OutlineEntry {
	return d.outline
}

// Warnings implements format.Document.
func (d *Document) Warnings() []string {
	return d.warnings
}

// Close implements format.Document.
func (d *Document) Close() error {
	return nil
}

// PageText extracts the native text layer of a page via pdftotext.
// Page numbers are 1-indexed.
func (d *Document) PageText(ctx context.Context, pageNum int) (string, error) {
	if pageNum < 1 || pageNum > d.pageCount {
		return "", fmt.Errorf("page %d out of range [1,%d]", pageNum, d.pageCount)
	}

	pageStr := strconv.Itoa(pageNum)
	args := []string{"-f", pageStr, "-l", pageStr, "-enc", "UTF-8"}
	if d.layout {
		args = append(args, "-layout")
	}
	args = append(args, d.path, "-")

	cmd := exec.CommandContext(ctx, "pdftotext", args...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext failed for page %d: %w", pageNum, err)
	}
	return string(out), nil
}

// HasImages scans up to the first maxPages pages for embedded raster images
// via pdfimages.
func (d *Document) HasImages(ctx context.Context, maxPages int) bool {
	if maxPages > d.pageCount {
		maxPages = d.pageCount
	}
	cmd := exec.CommandContext(ctx, "pdfimages",
		"-f", "1", "-l", strconv.Itoa(maxPages), "-list", d.path)
	out, err := cmd.Output()
	if err != nil {
		d.logger.Debug("pdfimages failed", "path", d.path, "error", err)
		return false
	}

	// Output is a two-line header followed by one line per image.
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return len(lines) > 2
}

// RasterizePage renders a single page to a PNG at the given DPI using
// pdftoppm. Implements format.PageRasterizer.
func (d *Document) RasterizePage(ctx context.Context, pageNum, dpi int, destPath string) error {
	tmpDir, err := os.MkdirTemp("", "lectern-page-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := strconv.Itoa(pageNum)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(dpi),
		"-singlefile",
		d.path,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	srcPath := outputPrefix + ".png"
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create page image directory: %w", err)
	}
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write page image: %w", err)
	}
	return nil
}

var yearPattern = regexp.MustCompile(`\b(1[5-9]\d\d|20\d\d)\b`)

// readInfo reads embedded metadata via pdfinfo. A missing binary degrades to
// a warning; the analyzer falls back to a filename-derived title.
func (d *Document) readInfo(ctx context.Context) {
	cmd := exec.CommandContext(ctx, "pdfinfo", d.path)
	out, err := cmd.Output()
	if err != nil {
		d.warn(fmt.Sprintf("pdfinfo unavailable, metadata limited: %v", err))
		return
	}

	d.info = parseInfo(string(out))
}

// parseInfo extracts metadata fields from pdfinfo's "Key: value" output.
func parseInfo(out string) format.Info {
	var info format.Info
	for _, line := range strings.Split(out, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Title":
			info.Title = value
		case "Author":
			info.Author = value
		case "CreationDate":
			if m := yearPattern.FindString(value); m != "" {
				info.Year, _ = strconv.Atoi(m)
			}
		}
	}
	return info
}

// readOutline loads PDF bookmarks and flattens them into outline entries.
// Books without bookmarks simply get a nil outline.
func (d *Document) readOutline(f *os.File) {
	if _, err := f.Seek(0, 0); err != nil {
		return
	}
	bookmarks, err := api.Bookmarks(f, nil)
	if err != nil {
		d.logger.Debug("no usable PDF outline", "path", d.path, "error", err)
		return
	}
	d.outline = flattenBookmarks(bookmarks, 1)
}

func flattenBookmarks(bms []pdfcpu.Bookmark, level int) []format.OutlineEntry {
	var entries []format.OutlineEntry
	for _, bm := range bms {
		title := strings.TrimSpace(bm.Title)
		if title == "" || bm.PageFrom < 1 {
			continue
		}
		entries = append(entries, format.OutlineEntry{
			Title: title,
			Level: level,
			Page:  bm.PageFrom,
		})
		entries = append(entries, flattenBookmarks(bm.Kids, level+1)...)
	}
	return entries
}

func (d *Document) warn(msg string) {
	d.warnings = append(d.warnings, msg)
	d.logger.Warn(msg, "path", d.path)
}

var (
	_ format.Document       = (*Document)(nil)
	_ format.PageRasterizer = (*Document)(nil)
)
