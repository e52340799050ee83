package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FSStore is a filesystem-backed Store for Obsidian-style markdown vaults.
// Note paths are vault-relative, forward-slash separated, without the .md
// extension handled for the caller.
type FSStore struct {
	root string
}

// NewFSStore creates a store rooted at the vault directory.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vault root: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Root returns the vault root directory.
func (s *FSStore) Root() string {
	return s.root
}

// CreateNote implements Store.
func (s *FSStore) CreateNote(path, content string, frontmatter map[string]any) (*Note, error) {
	full := s.fullPath(path)
	if _, err := os.Stat(full); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create note directory: %w", err)
	}

	note := &Note{Path: path, Content: content, Frontmatter: frontmatter}
	if err := s.write(full, note); err != nil {
		return nil, err
	}
	return note, nil
}

// UpdateNote implements Store.
func (s *FSStore) UpdateNote(path string, content *string, frontmatter map[string]any) (*Note, error) {
	note, err := s.GetNoteByPath(path)
	if err != nil {
		return nil, err
	}

	if content != nil {
		note.Content = *content
	}
	if len(frontmatter) > 0 {
		if note.Frontmatter == nil {
			note.Frontmatter = make(map[string]any, len(frontmatter))
		}
		for k, v := range frontmatter {
			note.Frontmatter[k] = v
		}
	}

	if err := s.write(s.fullPath(path), note); err != nil {
		return nil, err
	}
	return note, nil
}

// GetNoteByPath implements Store.
func (s *FSStore) GetNoteByPath(path string) (*Note, error) {
	data, err := os.ReadFile(s.fullPath(path))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read note: %w", err)
	}

	content, frontmatter := parseNote(string(data))
	return &Note{Path: path, Content: content, Frontmatter: frontmatter}, nil
}

// ListDirs returns the names of subdirectories at a vault-relative path.
// A missing directory yields an empty list, not an error.
func (s *FSStore) ListDirs(path string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, filepath.FromSlash(path)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list vault directory: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs, nil
}

func (s *FSStore) fullPath(path string) string {
	path = strings.TrimSuffix(path, ".md") + ".md"
	return filepath.Join(s.root, filepath.FromSlash(path))
}

// write renders front-matter + content to disk.
func (s *FSStore) write(full string, note *Note) error {
	var sb strings.Builder
	if len(note.Frontmatter) > 0 {
		data, err := yaml.Marshal(note.Frontmatter)
		if err != nil {
			return fmt.Errorf("failed to marshal front-matter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(data)
		sb.WriteString("---\n\n")
	}
	sb.WriteString(note.Content)

	if err := os.WriteFile(full, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write note: %w", err)
	}
	return nil
}

// parseNote splits a raw note file into body and front-matter.
func parseNote(raw string) (string, map[string]any) {
	if !strings.HasPrefix(raw, "---\n") {
		return raw, nil
	}
	rest := raw[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return raw, nil
	}

	var frontmatter map[string]any
	if err := yaml.Unmarshal([]byte(rest[:end+1]), &frontmatter); err != nil {
		return raw, nil
	}

	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimPrefix(body, "\n")
	return body, frontmatter
}

var _ Store = (*FSStore)(nil)
