// Package vault provides the note-storage contract the pipeline writes
// chapter notes through, plus a filesystem implementation for markdown
// vaults with YAML front-matter.
package vault

import "errors"

var (
	// ErrAlreadyExists is returned by CreateNote when the path is occupied.
	ErrAlreadyExists = errors.New("note already exists")

	// ErrNotFound is returned by UpdateNote and GetNoteByPath when the note
	// is absent.
	ErrNotFound = errors.New("note not found")
)

// Note is a text note with key-value front-matter.
type Note struct {
	Path        string
	Content     string
	Frontmatter map[string]any
}

// Store is the note-storage collaborator contract. Implementations are
// expected to serialize their own writes; the pipeline issues writes
// sequentially per book.
type Store interface {
	// CreateNote creates a note at path. Fails with ErrAlreadyExists if the
	// path is occupied.
	CreateNote(path, content string, frontmatter map[string]any) (*Note, error)

	// UpdateNote updates a note's content and/or front-matter. A nil content
	// leaves the body unchanged; front-matter keys are merged. Fails with
	// ErrNotFound if the note is absent.
	UpdateNote(path string, content *string, frontmatter map[string]any) (*Note, error)

	// GetNoteByPath returns the note at path, or ErrNotFound.
	GetNoteByPath(path string) (*Note, error)
}
