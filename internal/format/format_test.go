package format

import (
	"errors"
	"testing"

	"lectern/internal/book"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
		wantErr  bool
	}{
		{"book.pdf", FormatPDF, false},
		{"Book.PDF", FormatPDF, false},
		{"/abs/path/book.epub", FormatEPUB, false},
		{"book.mobi", "", true},
		{"book.djvu", "", true},
		{"noextension", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := Detect(tt.path)
			if tt.wantErr {
				if !errors.Is(err, book.ErrUnsupportedFormat) {
					t.Errorf("expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
