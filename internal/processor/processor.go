// Package processor orchestrates the ingestion pipeline: analyze a book
// file, extract its text, segment it into chapters and write study notes
// into the vault. Process never panics outward; every failure lands in the
// returned result.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"lectern/internal/authordir"
	"lectern/internal/book"
	"lectern/internal/config"
	"lectern/internal/extract"
	"lectern/internal/format"
	"lectern/internal/home"
	"lectern/internal/ocr"
	"lectern/internal/registry"
	"lectern/internal/segment"
	"lectern/internal/textgen"
	"lectern/internal/vault"
)

// deferralThresholdSeconds is the estimated-cost limit above which a run is
// deferred instead of executed immediately.
const deferralThresholdSeconds = 300

// firstPageOCRThreshold is the minimum native text on the first page for a
// book to count as text-based. Below it the whole book is assumed scanned.
const firstPageOCRThreshold = 50

// imageProbePages is how many leading pages the analyzer checks for
// embedded images.
const imageProbePages = 5

// Processor wires the pipeline's collaborators together.
type Processor struct {
	cfg      *config.Config
	home     *home.Dir
	store    vault.Store
	registry *registry.Registry
	ocr      ocr.Engine
	gen      textgen.Generator
	open     format.OpenFunc
	authors  *authordir.Resolver
	logger   *slog.Logger
}

// Options configures a Processor. Store, Registry and Open are required;
// OCR and Gen may be nil (their paths then degrade with warnings).
type Options struct {
	Config   *config.Config
	Home     *home.Dir
	Store    vault.Store
	Registry *registry.Registry
	OCR      ocr.Engine
	Gen      textgen.Generator
	Open     format.OpenFunc
	Logger   *slog.Logger
}

// New creates a Processor.
func New(opts Options) (*Processor, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Home == nil {
		return nil, fmt.Errorf("processor requires a home directory")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("processor requires a note store")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("processor requires a registry")
	}
	if opts.Open == nil {
		return nil, fmt.Errorf("processor requires a document opener")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		cfg:      opts.Config,
		home:     opts.Home,
		store:    opts.Store,
		registry: opts.Registry,
		ocr:      opts.OCR,
		gen:      opts.Gen,
		open:     opts.Open,
		authors:  authordir.New(logger),
		logger:   logger,
	}, nil
}

// Analyze inspects a book file without processing it. Idempotent; it never
// writes anything.
func (p *Processor) Analyze(ctx context.Context, filePath string) (*book.Metadata, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("cannot access book file: %w", err)
	}
	sizeMB := float64(stat.Size()) / (1024 * 1024)
	if maxMB := p.cfg.Processing.MaxFileSizeMB; maxMB > 0 && sizeMB > float64(maxMB) {
		return nil, fmt.Errorf("file is %.1f MB, above the %d MB limit", sizeMB, maxMB)
	}

	if _, err := format.Detect(filePath); err != nil {
		return nil, err
	}

	// Layout on: analysis feeds heading detection, which wants line structure.
	doc, err := p.open(ctx, filePath, format.OpenOptions{PreserveLayout: true})
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	return p.analyzeDoc(ctx, filePath, doc, sizeMB), nil
}

// analyzeDoc builds metadata from an already opened document.
func (p *Processor) analyzeDoc(ctx context.Context, filePath string, doc format.Document, sizeMB float64) *book.Metadata {
	info := doc.Info()

	title := strings.TrimSpace(info.Title)
	if title == "" {
		title = titleFromFilename(filePath)
	}
	author := strings.TrimSpace(info.Author)
	if author == "" {
		author = "Unknown"
	}
	language := strings.TrimSpace(info.Language)
	if language == "" {
		language = p.cfg.Processing.Language
	}

	requiresOCR := false
	if firstPage, err := doc.PageText(ctx, 1); err != nil {
		requiresOCR = true
	} else if len(strings.TrimSpace(firstPage)) < firstPageOCRThreshold {
		requiresOCR = true
	}

	totalPages := doc.PageCount()

	var hints []book.ChapterPoint
	if points, ok := segment.FromOutline(doc.Outline(), totalPages); ok {
		hints = points
	}
	// A scanned book is a book of images even when the probe misses them.
	hasImages := doc.HasImages(ctx, imageProbePages) || requiresOCR

	return &book.Metadata{
		Title:         title,
		Author:        author,
		Publisher:     info.Publisher,
		Year:          info.Year,
		ISBN:          info.ISBN,
		TotalPages:    totalPages,
		Language:      language,
		ChapterHints:  hints,
		HasImages:     hasImages,
		RequiresOCR:   requiresOCR,
		EstimatedTime: book.EstimateSeconds(totalPages, requiresOCR, hasImages),
		FileSizeMB:    sizeMB,
	}
}

// Request describes one processing run.
type Request struct {
	Path           string
	Quality        book.ProcessingQuality
	ScheduleNight  bool   // defer regardless of estimated cost
	ForceImmediate bool   // process now regardless of estimated cost
	OutputDir      string // vault-relative override for the book directory
}

// Process runs the full pipeline for one book. All failures are reported
// through the result's Status and Error fields, never as a panic.
func (p *Processor) Process(ctx context.Context, req Request) (result *book.ProcessingResult) {
	result = &book.ProcessingResult{
		RunID:     uuid.New().String(),
		Status:    book.StatusProcessing,
		StartTime: time.Now().UTC(),
	}
	defer func() {
		if r := recover(); r != nil {
			result.Status = book.StatusFailed
			result.Error = fmt.Sprintf("processing panic: %v", r)
		}
		result.EndTime = time.Now().UTC()
	}()

	quality := req.Quality
	if quality == "" {
		parsed, err := book.ParseQuality(p.cfg.Processing.DefaultQuality)
		if err != nil {
			return fail(result, err)
		}
		quality = parsed
	}

	meta, err := p.Analyze(ctx, req.Path)
	if err != nil {
		return fail(result, err)
	}
	result.Metadata = *meta

	if req.ScheduleNight || (meta.EstimatedTime > deferralThresholdSeconds && !req.ForceImmediate) {
		result.Status = book.StatusScheduled
		p.logger.Info("processing deferred",
			"title", meta.Title,
			"estimated_seconds", meta.EstimatedTime,
			"requested", req.ScheduleNight)
		return result
	}

	doc, err := p.open(ctx, req.Path, format.OpenOptions{
		PreserveLayout: quality.Config().PreserveLayout,
	})
	if err != nil {
		return fail(result, err)
	}
	defer doc.Close()
	result.Warnings = append(result.Warnings, doc.Warnings()...)

	bookID := registry.BookID(meta.Title, meta.Author)
	defer p.home.CleanPageImages(bookID)

	chapters, pages, warnings, err := p.extractAndSegment(ctx, bookID, doc, quality)
	if err != nil {
		return fail(result, err)
	}
	result.Warnings = append(result.Warnings, warnings...)

	nonEmpty := false
	for i := range chapters {
		chapters[i].Text = extract.JoinPages(pages, chapters[i].StartPage, chapters[i].EndPage)
		if chapters[i].Text != "" {
			nonEmpty = true
		}
	}
	if !nonEmpty {
		return fail(result, fmt.Errorf("no text could be extracted from any page"))
	}
	result.Chapters = chapters

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = p.resolveOutputDir(meta)
	}
	result.OutputDir = outputDir

	if err := p.writeBook(meta, chapters, outputDir, bookID, string(quality)); err != nil {
		return fail(result, err)
	}

	if err := p.registerProcessed(bookID, meta, chapters, req.Path, outputDir, string(quality)); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("registry update failed: %v", err))
	}

	result.Status = book.StatusCompleted
	p.logger.Info("book processed",
		"title", meta.Title,
		"chapters", len(chapters),
		"output_dir", outputDir,
		"duration", time.Since(result.StartTime).Round(time.Second))
	return result
}

// extractAndSegment pulls page text and finds chapter ranges. When boundary
// detection is inconclusive the book degrades to fixed page windows with a
// warning rather than failing.
func (p *Processor) extractAndSegment(ctx context.Context, bookID string, doc format.Document, quality book.ProcessingQuality) ([]book.Chapter, []book.PageRecord, []string, error) {
	engine := extract.New(extract.Options{
		Home:   p.home,
		OCR:    p.ocr,
		Gen:    p.gen,
		Logger: p.logger,
	})

	res, err := engine.Extract(ctx, extract.Request{
		BookID:      bookID,
		Doc:         doc,
		Quality:     quality.Config(),
		WindowPages: p.cfg.Processing.WindowPages,
		MaxWorkers:  p.cfg.Processing.MaxWorkers,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	warnings := res.Warnings

	totalPages := doc.PageCount()
	det, err := segment.Detect(doc.Outline(), res.Pages, totalPages)
	if err != nil {
		warnings = append(warnings,
			"no chapter boundaries found; falling back to fixed page windows")
		points := segment.Windowed(totalPages, p.cfg.Processing.WindowPages)
		chapters, rangeErr := segment.BuildRanges(points, totalPages, book.SourceWindowed, 1.0)
		if rangeErr != nil {
			return nil, nil, nil, rangeErr
		}
		return chapters, res.Pages, warnings, nil
	}
	warnings = append(warnings, det.Warnings...)
	if det.Confidence < 0.8 {
		warnings = append(warnings,
			fmt.Sprintf("chapter boundaries detected heuristically (confidence %.2f); review chapter ranges", det.Confidence))
	}

	chapters, err := segment.BuildRanges(det.Points, totalPages, det.Source, det.Confidence)
	if err != nil {
		return nil, nil, nil, err
	}
	return chapters, res.Pages, warnings, nil
}

// resolveOutputDir picks the vault-relative book directory, reusing an
// existing author directory when the author matches one closely enough.
func (p *Processor) resolveOutputDir(meta *book.Metadata) string {
	libraryDir := p.cfg.Vault.LibraryDir

	var existing []string
	if lister, ok := p.store.(interface {
		ListDirs(string) ([]string, error)
	}); ok {
		if dirs, err := lister.ListDirs(libraryDir); err == nil {
			existing = dirs
		}
	}

	authorDir := p.authors.Resolve(meta.Author, existing)
	titleDir := authordir.Sanitize(meta.Title)
	return path.Join(libraryDir, authorDir, titleDir)
}

// registerProcessed records a fully processed book so `lectern books` can
// list it. Every chapter is already done.
func (p *Processor) registerProcessed(bookID string, meta *book.Metadata, chapters []book.Chapter, sourcePath, outputDir, quality string) error {
	entry := &registry.Entry{
		BookID:     bookID,
		Title:      meta.Title,
		Author:     meta.Author,
		SourcePath: sourcePath,
		OutputDir:  outputDir,
		Quality:    quality,
		TotalPages: meta.TotalPages,
	}
	for _, ch := range chapters {
		entry.Chapters = append(entry.Chapters, registry.ChapterSummary{
			Number:    ch.Number,
			Title:     ch.Title,
			StartPage: ch.StartPage,
			EndPage:   ch.EndPage,
			Source:    ch.Source,
			Done:      true,
		})
	}
	entry.NextChapter = 0
	return p.registry.Register(entry)
}

func fail(result *book.ProcessingResult, err error) *book.ProcessingResult {
	result.Status = book.StatusFailed
	result.Error = err.Error()
	return result
}

// titleFromFilename derives a readable title from the file name when the
// document carries no embedded one.
func titleFromFilename(filePath string) string {
	base := filepath.Base(filePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled"
	}
	return base
}
