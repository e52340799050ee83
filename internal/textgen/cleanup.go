package textgen

import (
	"context"
	"fmt"
	"strings"
)

const cleanupSystemPrompt = `You restore OCR output of scanned philosophy books.
Fix obvious character recognition errors, rejoin words hyphenated across line
breaks, and remove page headers, footers and stray page numbers. Preserve the
original wording, paragraph structure and language exactly. Never summarize,
translate, or add text of your own. Return only the corrected text.`

// maxCleanupChars caps what a single cleanup request may carry. Pages past
// this size are almost certainly extraction garbage, not prose.
const maxCleanupChars = 12000

// CleanupPrompt builds the user prompt for restoring one page of OCR output.
func CleanupPrompt(pageText string, pageNum int) string {
	return fmt.Sprintf("Page %d of a scanned book follows.\n\n%s", pageNum, pageText)
}

// CleanupPage asks the generator to repair one page of OCR text. On any
// failure the original text comes back so a flaky endpoint never degrades
// the pipeline below plain OCR quality.
func CleanupPage(ctx context.Context, gen Generator, pageText string, pageNum int) (string, bool) {
	if gen == nil || strings.TrimSpace(pageText) == "" || len(pageText) > maxCleanupChars {
		return pageText, false
	}
	cleaned, err := gen.Generate(ctx, cleanupSystemPrompt, CleanupPrompt(pageText, pageNum))
	if err != nil || strings.TrimSpace(cleaned) == "" {
		return pageText, false
	}
	return cleaned, true
}
