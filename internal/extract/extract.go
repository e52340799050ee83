// Package extract pulls per-page text out of an opened document, falling back
// from the native text layer to OCR page by page. Page failures degrade to
// warnings; extraction as a whole only fails if the document does.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"lectern/internal/book"
	"lectern/internal/format"
	"lectern/internal/home"
	"lectern/internal/ocr"
	"lectern/internal/textgen"
)

// nativeTextThreshold is the minimum number of characters a page's native
// text layer must carry before OCR is skipped for that page. Scanned books
// often have a handful of stray characters per page.
const nativeTextThreshold = 100

// Confidence assigned per extraction path.
const (
	nativeConfidence = 0.9
	ocrConfidence    = 0.7
)

// Engine extracts page text for one book at a time.
type Engine struct {
	home   *home.Dir
	ocr    ocr.Engine
	gen    textgen.Generator
	logger *slog.Logger
}

// Options configures an extraction engine. OCR and Gen may be nil; pages
// needing those paths then degrade with a warning.
type Options struct {
	Home   *home.Dir
	OCR    ocr.Engine
	Gen    textgen.Generator
	Logger *slog.Logger
}

// New creates an extraction engine.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		home:   opts.Home,
		ocr:    opts.OCR,
		gen:    opts.Gen,
		logger: logger,
	}
}

// Request describes one extraction run.
type Request struct {
	BookID      string
	Doc         format.Document
	Quality     book.QualityConfig
	FirstPage   int // 1-indexed, inclusive. Zero means 1.
	LastPage    int // inclusive. Zero means the whole document.
	WindowPages int // pages per work window. Zero means 10.
	MaxWorkers  int // concurrent windows when Quality.Parallel. Zero means 4.
}

// Result is the output of one extraction run.
type Result struct {
	Pages    []book.PageRecord
	OCRPages int
	Warnings []string
}

type windowResult struct {
	pages    []book.PageRecord
	warnings []string
}

// Extract runs page extraction over the requested range.
func (e *Engine) Extract(ctx context.Context, req Request) (*Result, error) {
	first, last := req.FirstPage, req.LastPage
	if first < 1 {
		first = 1
	}
	total := req.Doc.PageCount()
	if last < 1 || last > total {
		last = total
	}
	if first > last {
		return nil, fmt.Errorf("empty page range [%d,%d]", first, last)
	}

	// Quality tiers meant for quick passes cap how much of the book is read.
	if req.Quality.MaxPages > 0 && last-first+1 > req.Quality.MaxPages {
		last = first + req.Quality.MaxPages - 1
	}

	windowPages := req.WindowPages
	if windowPages < 1 {
		windowPages = 10
	}
	windows := splitWindows(first, last, windowPages)

	var results []windowResult
	if req.Quality.Parallel && len(windows) > 1 {
		results = e.extractParallel(ctx, req, windows)
	} else {
		results = e.extractSequential(ctx, req, windows)
	}

	res := &Result{}
	for _, wr := range results {
		res.Pages = append(res.Pages, wr.pages...)
		res.Warnings = append(res.Warnings, wr.warnings...)
	}
	sort.Slice(res.Pages, func(i, j int) bool {
		return res.Pages[i].PageNum < res.Pages[j].PageNum
	})
	for _, p := range res.Pages {
		if p.OCRUsed {
			res.OCRPages++
		}
	}
	return res, nil
}

func (e *Engine) extractSequential(ctx context.Context, req Request, windows [][2]int) []windowResult {
	results := make([]windowResult, 0, len(windows))
	for _, w := range windows {
		if ctx.Err() != nil {
			break
		}
		results = append(results, e.extractWindow(ctx, req, w[0], w[1]))
	}
	return results
}

func (e *Engine) extractParallel(ctx context.Context, req Request, windows [][2]int) []windowResult {
	maxWorkers := req.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 4
	}

	// Collect results via channel - don't mutate shared state in goroutines.
	out := make(chan windowResult, len(windows))
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for _, w := range windows {
		wg.Add(1)
		go func(firstPage, lastPage int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					out <- windowResult{warnings: []string{
						fmt.Sprintf("pages %d-%d: extraction panic: %v", firstPage, lastPage, r),
					}}
				}
			}()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				out <- windowResult{warnings: []string{
					fmt.Sprintf("pages %d-%d: %v", firstPage, lastPage, ctx.Err()),
				}}
				return
			}

			out <- e.extractWindow(ctx, req, firstPage, lastPage)
		}(w[0], w[1])
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	var results []windowResult
	for wr := range out {
		results = append(results, wr)
	}
	return results
}

// extractWindow processes one contiguous span of pages.
func (e *Engine) extractWindow(ctx context.Context, req Request, first, last int) windowResult {
	var wr windowResult
	for page := first; page <= last; page++ {
		if ctx.Err() != nil {
			wr.warnings = append(wr.warnings, fmt.Sprintf("page %d: %v", page, ctx.Err()))
			wr.pages = append(wr.pages, emptyPage(page))
			continue
		}
		rec, warns := e.extractPage(ctx, req, page)
		wr.pages = append(wr.pages, rec)
		wr.warnings = append(wr.warnings, warns...)
	}
	return wr
}

// extractPage tries the native text layer first and OCR second. A page that
// fails both paths yields an empty record and warnings, never an error.
func (e *Engine) extractPage(ctx context.Context, req Request, page int) (book.PageRecord, []string) {
	var warnings []string

	native, err := req.Doc.PageText(ctx, page)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("page %d: native extraction failed: %v", page, err))
	} else if len(strings.TrimSpace(native)) >= nativeTextThreshold {
		return pageRecord(page, native, nativeConfidence, false, false), warnings
	}

	if !req.Quality.OCREnabled {
		// Draft tier: native text or nothing.
		return pageRecord(page, native, nativeConfidence, true, false), warnings
	}

	text, ok, ocrWarns := e.ocrPage(ctx, req, page)
	warnings = append(warnings, ocrWarns...)
	if !ok {
		// Keep whatever the native layer gave us.
		return pageRecord(page, native, nativeConfidence, true, false), warnings
	}

	if cleaned, applied := textgen.CleanupPage(ctx, e.gen, text, page); applied {
		text = cleaned
	}
	return pageRecord(page, text, ocrConfidence, true, true), warnings
}

// ocrPage rasterizes and recognizes one page. Returns ok=false when OCR is
// unavailable or failed.
func (e *Engine) ocrPage(ctx context.Context, req Request, page int) (string, bool, []string) {
	rasterizer, ok := req.Doc.(format.PageRasterizer)
	if !ok {
		return "", false, []string{fmt.Sprintf("page %d: format cannot be rasterized for OCR", page)}
	}
	if e.ocr == nil || !e.ocr.Available() {
		return "", false, []string{fmt.Sprintf("page %d: OCR engine unavailable", page)}
	}
	if err := e.home.EnsurePageImagesDir(req.BookID); err != nil {
		return "", false, []string{fmt.Sprintf("page %d: %v", page, err)}
	}

	imagePath := e.home.PageImagePath(req.BookID, page)
	if err := rasterizer.RasterizePage(ctx, page, req.Quality.DPI, imagePath); err != nil {
		return "", false, []string{fmt.Sprintf("page %d: rasterization failed: %v", page, err)}
	}

	var warnings []string
	if req.Quality.Preprocess {
		if err := ocr.PreprocessPNG(imagePath); err != nil {
			// OCR the raw render instead.
			warnings = append(warnings, fmt.Sprintf("page %d: preprocessing failed: %v", page, err))
		}
	}

	text, err := e.ocr.Recognize(ctx, imagePath, req.Quality.PreserveLayout)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("page %d: OCR failed: %v", page, err))
		return "", false, warnings
	}
	return text, true, warnings
}

func pageRecord(page int, text string, confidence float64, requiresOCR, ocrUsed bool) book.PageRecord {
	text = strings.TrimSpace(text)
	rec := book.PageRecord{
		PageNum:     page,
		Text:        text,
		Confidence:  confidence,
		RequiresOCR: requiresOCR,
		OCRUsed:     ocrUsed,
	}
	if text == "" {
		rec.Confidence = 0
	} else {
		sum := sha256.Sum256([]byte(text))
		rec.Hash = hex.EncodeToString(sum[:])
	}
	return rec
}

func emptyPage(page int) book.PageRecord {
	return book.PageRecord{PageNum: page}
}

// splitWindows cuts [first,last] into inclusive spans of up to size pages.
func splitWindows(first, last, size int) [][2]int {
	var windows [][2]int
	for start := first; start <= last; start += size {
		end := start + size - 1
		if end > last {
			end = last
		}
		windows = append(windows, [2]int{start, end})
	}
	return windows
}

// JoinPages concatenates page text for a page range (inclusive) from sorted
// records, skipping empty pages.
func JoinPages(pages []book.PageRecord, first, last int) string {
	var parts []string
	for _, p := range pages {
		if p.PageNum < first || p.PageNum > last || p.Text == "" {
			continue
		}
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}
