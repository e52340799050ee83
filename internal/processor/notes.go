package processor

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"lectern/internal/authordir"
	"lectern/internal/book"
	"lectern/internal/vault"
)

const (
	indexNoteName    = "00 - Index"
	conceptsNoteName = "Key Concepts"
)

// writeBook writes the index note, one note per chapter and the key-concepts
// note. Re-running over an existing book directory updates the notes in
// place instead of failing.
func (p *Processor) writeBook(meta *book.Metadata, chapters []book.Chapter, outputDir, bookID, quality string) error {
	for _, ch := range chapters {
		notePath := path.Join(outputDir, chapterNoteName(ch))
		content := renderChapterNote(meta, chapters, ch)
		fm := chapterFrontmatter(meta, ch)
		if err := p.upsertNote(notePath, content, fm); err != nil {
			return fmt.Errorf("chapter %d note: %w", ch.Number, err)
		}
	}

	done := make(map[int]bool, len(chapters))
	for _, ch := range chapters {
		done[ch.Number] = ch.Text != ""
	}
	indexPath := path.Join(outputDir, indexNoteName)
	if err := p.upsertNote(indexPath, renderIndexNote(meta, chapters, done), indexFrontmatter(meta, bookID, quality)); err != nil {
		return fmt.Errorf("index note: %w", err)
	}

	conceptsPath := path.Join(outputDir, conceptsNoteName)
	if err := p.upsertNote(conceptsPath, renderConceptsNote(meta, chapters), conceptsFrontmatter(meta)); err != nil {
		return fmt.Errorf("key concepts note: %w", err)
	}
	return nil
}

// writeChapter writes a single chapter note and refreshes the index. Used by
// resumable processing.
func (p *Processor) writeChapter(meta *book.Metadata, chapters []book.Chapter, ch book.Chapter, outputDir string) error {
	notePath := path.Join(outputDir, chapterNoteName(ch))
	if err := p.upsertNote(notePath, renderChapterNote(meta, chapters, ch), chapterFrontmatter(meta, ch)); err != nil {
		return fmt.Errorf("chapter %d note: %w", ch.Number, err)
	}
	return nil
}

// upsertNote creates the note or updates it when it already exists.
func (p *Processor) upsertNote(notePath, content string, frontmatter map[string]any) error {
	_, err := p.store.GetNoteByPath(notePath)
	switch {
	case err == nil:
		_, err = p.store.UpdateNote(notePath, &content, frontmatter)
		return err
	case errors.Is(err, vault.ErrNotFound):
		_, err = p.store.CreateNote(notePath, content, frontmatter)
		return err
	default:
		return err
	}
}

// chapterNoteName builds the vault file name for a chapter, like
// "03 - Estética Transcendental".
func chapterNoteName(ch book.Chapter) string {
	return fmt.Sprintf("%02d - %s", ch.Number, authordir.Sanitize(ch.Title))
}

func indexFrontmatter(meta *book.Metadata, bookID, quality string) map[string]any {
	fm := map[string]any{
		"type":        "book-index",
		"title":       meta.Title,
		"author":      meta.Author,
		"book_id":     bookID,
		"total_pages": meta.TotalPages,
		"language":    meta.Language,
		"quality":     quality,
		"processed":   time.Now().UTC().Format("2006-01-02"),
	}
	if meta.Year > 0 {
		fm["year"] = meta.Year
	}
	if meta.Publisher != "" {
		fm["publisher"] = meta.Publisher
	}
	if meta.ISBN != "" {
		fm["isbn"] = meta.ISBN
	}
	return fm
}

func chapterFrontmatter(meta *book.Metadata, ch book.Chapter) map[string]any {
	return map[string]any{
		"type":       "chapter",
		"title":      ch.Title,
		"book":       meta.Title,
		"author":     meta.Author,
		"chapter":    ch.Number,
		"pages":      fmt.Sprintf("%d-%d", ch.StartPage, ch.EndPage),
		"source":     string(ch.Source),
		"confidence": ch.Confidence,
	}
}

func conceptsFrontmatter(meta *book.Metadata) map[string]any {
	return map[string]any{
		"type":   "key-concepts",
		"book":   meta.Title,
		"author": meta.Author,
	}
}

// renderIndexNote builds the book's landing note: title block, progress
// table and chapter wiki-links.
func renderIndexNote(meta *book.Metadata, chapters []book.Chapter, done map[int]bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", meta.Title)
	fmt.Fprintf(&b, "**Author:** %s\n", meta.Author)
	if meta.Year > 0 {
		fmt.Fprintf(&b, "**Year:** %d\n", meta.Year)
	}
	fmt.Fprintf(&b, "**Pages:** %d\n\n", meta.TotalPages)

	b.WriteString("## Chapters\n\n")
	b.WriteString("| # | Chapter | Pages | Status |\n")
	b.WriteString("|---|---------|-------|--------|\n")
	for _, ch := range chapters {
		status := "pending"
		if done[ch.Number] {
			status = "done"
		}
		fmt.Fprintf(&b, "| %d | [[%s]] | %d-%d | %s |\n",
			ch.Number, chapterNoteName(ch), ch.StartPage, ch.EndPage, status)
	}

	fmt.Fprintf(&b, "\n[[%s]]\n", conceptsNoteName)
	return b.String()
}

// renderChapterNote builds one chapter's note with its extracted text and
// previous/next navigation.
func renderChapterNote(meta *book.Metadata, chapters []book.Chapter, ch book.Chapter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", ch.Title)
	fmt.Fprintf(&b, "*%s — %s, pages %d-%d*\n\n", meta.Title, meta.Author, ch.StartPage, ch.EndPage)

	b.WriteString("## Text\n\n")
	if ch.Text == "" {
		b.WriteString("*No text extracted for this chapter yet.*\n")
	} else {
		b.WriteString(ch.Text)
		b.WriteString("\n")
	}

	b.WriteString("\n## Notes\n\n\n")

	b.WriteString("---\n")
	if ch.Number > 1 {
		fmt.Fprintf(&b, "Previous: [[%s]]\n", chapterNoteName(chapters[ch.Number-2]))
	}
	if ch.Number < len(chapters) {
		fmt.Fprintf(&b, "Next: [[%s]]\n", chapterNoteName(chapters[ch.Number]))
	}
	fmt.Fprintf(&b, "Index: [[%s]]\n", indexNoteName)
	return b.String()
}

// renderConceptsNote builds a skeleton for manual concept capture, one
// section per chapter.
func renderConceptsNote(meta *book.Metadata, chapters []book.Chapter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Key Concepts — %s\n\n", meta.Title)
	for _, ch := range chapters {
		fmt.Fprintf(&b, "## [[%s]]\n\n- \n\n", chapterNoteName(ch))
	}
	return b.String()
}
