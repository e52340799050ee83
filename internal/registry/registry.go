// Package registry tracks resumable per-book progress in a local bbolt
// database. One entry per book; the cursor advances one chapter at a time as
// resume runs complete.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"lectern/internal/book"
)

var booksBucket = []byte("books")

// ErrNotFound is returned when a book has no registry entry.
var ErrNotFound = errors.New("book not registered")

// ChapterSummary is the per-chapter slice of an Entry. Text is not stored;
// it is re-extracted on resume.
type ChapterSummary struct {
	Number    int                  `json:"number"`
	Title     string               `json:"title"`
	StartPage int                  `json:"start_page"`
	EndPage   int                  `json:"end_page"`
	Source    book.DetectionSource `json:"source"`
	Done      bool                 `json:"done"`
}

// Entry is one book's resumable state.
type Entry struct {
	BookID      string           `json:"book_id"`
	Title       string           `json:"title"`
	Author      string           `json:"author"`
	SourcePath  string           `json:"source_path"`
	OutputDir   string           `json:"output_dir"`
	Quality     string           `json:"quality"`
	TotalPages  int              `json:"total_pages"`
	Chapters    []ChapterSummary `json:"chapters"`
	NextChapter int              `json:"next_chapter"` // 1-indexed; 0 means all done
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Complete reports whether every chapter has been written out.
func (e *Entry) Complete() bool {
	return e.NextChapter == 0 || e.NextChapter > len(e.Chapters)
}

// Registry is a bbolt-backed book progress store.
type Registry struct {
	db *bolt.DB
}

// Open opens (or creates) the registry database at path.
func Open(path string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(booksBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create books bucket: %w", err)
	}

	return &Registry{db: db}, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Register stores a fresh entry, overwriting any previous run of the same
// book. The cursor starts at chapter 1.
func (r *Registry) Register(entry *Entry) error {
	if entry.BookID == "" {
		return fmt.Errorf("entry has no book id")
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	if entry.NextChapter == 0 && len(entry.Chapters) > 0 {
		entry.NextChapter = 1
	}
	return r.put(entry)
}

// Get loads one entry.
func (r *Registry) Get(bookID string) (*Entry, error) {
	var entry *Entry
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(booksBucket).Get([]byte(bookID))
		if raw == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, bookID)
		}
		entry = &Entry{}
		return json.Unmarshal(raw, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns all entries sorted by bbolt's key order (book id).
func (r *Registry) List() ([]*Entry, error) {
	var entries []*Entry
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(booksBucket).ForEach(func(_, raw []byte) error {
			entry := &Entry{}
			if err := json.Unmarshal(raw, entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkChapterDone records that a chapter's note was written and advances the
// cursor past it. Marking an already-done chapter is a no-op.
func (r *Registry) MarkChapterDone(bookID string, chapterNum int) (*Entry, error) {
	entry, err := r.Get(bookID)
	if err != nil {
		return nil, err
	}
	if chapterNum < 1 || chapterNum > len(entry.Chapters) {
		return nil, fmt.Errorf("chapter %d out of range [1,%d]", chapterNum, len(entry.Chapters))
	}

	entry.Chapters[chapterNum-1].Done = true

	// Cursor moves to the first not-done chapter, or 0 when finished.
	entry.NextChapter = 0
	for i, ch := range entry.Chapters {
		if !ch.Done {
			entry.NextChapter = i + 1
			break
		}
	}

	entry.UpdatedAt = time.Now().UTC()
	if err := r.put(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// SetChapterTitle replaces a chapter's title, for upgrades from placeholder
// window titles to real headings found during extraction.
func (r *Registry) SetChapterTitle(bookID string, chapterNum int, title string) (*Entry, error) {
	entry, err := r.Get(bookID)
	if err != nil {
		return nil, err
	}
	if chapterNum < 1 || chapterNum > len(entry.Chapters) {
		return nil, fmt.Errorf("chapter %d out of range [1,%d]", chapterNum, len(entry.Chapters))
	}
	entry.Chapters[chapterNum-1].Title = title
	entry.UpdatedAt = time.Now().UTC()
	if err := r.put(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete removes a book's entry. Deleting a missing entry is not an error.
func (r *Registry) Delete(bookID string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(booksBucket).Delete([]byte(bookID))
	})
}

func (r *Registry) put(entry *Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(booksBucket).Put([]byte(entry.BookID), raw)
	})
}
