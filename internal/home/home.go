package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the lectern home directory.
	DefaultDirName = ".lectern"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// RegistryFileName is the incremental registry database file.
	RegistryFileName = "registry.db"
)

// Dir represents the lectern home directory structure. It holds pipeline-owned
// state only; processed chapter notes live in the vault, not here.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.lectern).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// RegistryPath returns the path to the incremental registry database.
func (d *Dir) RegistryPath() string {
	return filepath.Join(d.path, RegistryFileName)
}

// EnsureExists creates the home directory if it doesn't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	return nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// PageImagesDir returns the scratch directory for rasterized page images of
// a book. Contents are transient; they exist only while OCR runs.
func (d *Dir) PageImagesDir(bookID string) string {
	return filepath.Join(d.path, "page_images", bookID)
}

// PageImagePath returns the path to a specific rasterized page image.
// Page numbers are 1-indexed.
func (d *Dir) PageImagePath(bookID string, pageNum int) string {
	return filepath.Join(d.PageImagesDir(bookID), fmt.Sprintf("page_%04d.png", pageNum))
}

// EnsurePageImagesDir creates the page image scratch directory for a book.
func (d *Dir) EnsurePageImagesDir(bookID string) error {
	return os.MkdirAll(d.PageImagesDir(bookID), 0o755)
}

// CleanPageImages removes a book's page image scratch directory.
func (d *Dir) CleanPageImages(bookID string) error {
	return os.RemoveAll(d.PageImagesDir(bookID))
}
