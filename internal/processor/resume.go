package processor

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"lectern/internal/book"
	"lectern/internal/extract"
	"lectern/internal/format"
	"lectern/internal/registry"
	"lectern/internal/segment"
)

// ResumeRequest describes one incremental processing step.
type ResumeRequest struct {
	Path      string
	Quality   book.ProcessingQuality
	Chapters  int    // chapters to process this invocation; zero means 1
	OutputDir string // vault-relative override, used only on first contact
}

// Resume processes the next batch of chapters for a book, creating the
// processing plan on first contact. Each completed chapter is durable: a
// crash mid-run loses at most the chapter in flight.
func (p *Processor) Resume(ctx context.Context, req ResumeRequest) (result *book.ProcessingResult) {
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

	bookID := registry.BookID(meta.Title, meta.Author)
	entry, err := p.registry.Get(bookID)
	if errors.Is(err, registry.ErrNotFound) {
		entry, err = p.planResume(meta, req, bookID, string(quality))
	}
	if err != nil {
		return fail(result, err)
	}
	result.OutputDir = entry.OutputDir

	if entry.Complete() {
		result.Status = book.StatusCompleted
		p.logger.Info("book already fully processed", "title", entry.Title)
		return result
	}

	doc, err := p.open(ctx, req.Path, format.OpenOptions{
		PreserveLayout: quality.Config().PreserveLayout,
	})
	if err != nil {
		return fail(result, err)
	}
	defer doc.Close()
	defer p.home.CleanPageImages(bookID)

	batch := req.Chapters
	if batch < 1 {
		batch = 1
	}

	engine := extract.New(extract.Options{
		Home:   p.home,
		OCR:    p.ocr,
		Gen:    p.gen,
		Logger: p.logger,
	})

	allChapters := entryChapters(entry)
	for i := 0; i < batch && !entry.Complete(); i++ {
		if ctx.Err() != nil {
			result.Warnings = append(result.Warnings, ctx.Err().Error())
			break
		}

		num := entry.NextChapter
		summary := entry.Chapters[num-1]

		res, err := engine.Extract(ctx, extract.Request{
			BookID:      bookID,
			Doc:         doc,
			Quality:     quality.Config(),
			FirstPage:   summary.StartPage,
			LastPage:    summary.EndPage,
			WindowPages: p.cfg.Processing.WindowPages,
			MaxWorkers:  p.cfg.Processing.MaxWorkers,
		})
		if err != nil {
			return fail(result, fmt.Errorf("chapter %d: %w", num, err))
		}
		result.Warnings = append(result.Warnings, res.Warnings...)

		ch := allChapters[num-1]
		ch.Text = extract.JoinPages(res.Pages, ch.StartPage, ch.EndPage)

		// Windowed chapters carry placeholder titles; a visible heading in
		// the extracted text is better.
		if ch.Source == book.SourceWindowed {
			if title, ok := segment.HeadingTitle(ch.Text); ok {
				ch.Title = title
				allChapters[num-1].Title = title
				if entry, err = p.registry.SetChapterTitle(bookID, num, title); err != nil {
					return fail(result, err)
				}
			}
		}

		if err := p.writeChapter(meta, allChapters, ch, entry.OutputDir); err != nil {
			return fail(result, err)
		}

		entry, err = p.registry.MarkChapterDone(bookID, num)
		if err != nil {
			return fail(result, err)
		}
		result.Chapters = append(result.Chapters, ch)
		p.logger.Info("chapter processed",
			"title", meta.Title, "chapter", num, "of", len(entry.Chapters))
	}

	if err := p.refreshIndex(meta, entry, bookID, string(quality)); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("index note update failed: %v", err))
	}

	if entry.Complete() {
		result.Status = book.StatusCompleted
	}
	return result
}

// planResume builds and registers the chapter plan for a book seen for the
// first time. The document outline provides boundaries when usable;
// otherwise fixed page windows keep each step small.
func (p *Processor) planResume(meta *book.Metadata, req ResumeRequest, bookID, quality string) (*registry.Entry, error) {
	points := meta.ChapterHints
	source := book.SourceTOC
	confidence := 0.95
	if len(points) < 2 {
		points = segment.Windowed(meta.TotalPages, p.cfg.Processing.WindowPages)
		source = book.SourceWindowed
		confidence = 1.0 // window edges are exact, just not meaningful
	}

	chapters, err := segment.BuildRanges(points, meta.TotalPages, source, confidence)
	if err != nil {
		return nil, err
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = p.resolveOutputDir(meta)
	}

	entry := &registry.Entry{
		BookID:     bookID,
		Title:      meta.Title,
		Author:     meta.Author,
		SourcePath: req.Path,
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
		})
	}
	if err := p.registry.Register(entry); err != nil {
		return nil, err
	}
	p.logger.Info("processing plan created",
		"title", meta.Title, "chapters", len(chapters), "source", source)
	return entry, nil
}

// refreshIndex rewrites the index note from the registry's progress state.
func (p *Processor) refreshIndex(meta *book.Metadata, entry *registry.Entry, bookID, quality string) error {
	chapters := entryChapters(entry)
	done := make(map[int]bool, len(entry.Chapters))
	for _, s := range entry.Chapters {
		done[s.Number] = s.Done
	}
	indexPath := path.Join(entry.OutputDir, indexNoteName)
	return p.upsertNote(indexPath,
		renderIndexNote(meta, chapters, done),
		indexFrontmatter(meta, bookID, quality))
}

// entryChapters converts registry summaries back into chapters (without
// text) for note rendering.
func entryChapters(entry *registry.Entry) []book.Chapter {
	chapters := make([]book.Chapter, 0, len(entry.Chapters))
	for _, s := range entry.Chapters {
		chapters = append(chapters, book.Chapter{
			Number:    s.Number,
			Title:     s.Title,
			StartPage: s.StartPage,
			EndPage:   s.EndPage,
			Source:    s.Source,
		})
	}
	return chapters
}
