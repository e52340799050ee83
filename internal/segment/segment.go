// Package segment turns a document into chapter page ranges. Detection tries
// the native outline first, then heading heuristics over extracted text;
// fixed page windows exist as an explicitly labeled fallback for resumable
// runs, never as a silent substitute.
package segment

import (
	"fmt"
	"regexp"
	"strings"

	"lectern/internal/book"
	"lectern/internal/format"
	"lectern/internal/textnorm"
)

// Confidence per detection source.
const (
	tocConfidence       = 0.95
	heuristicConfidence = 0.6
)

const (
	// headingScanLines bounds how far into a page a chapter heading may sit.
	headingScanLines = 12
	// maxHeadingLen rejects body text that happens to start with a keyword.
	maxHeadingLen = 120
	// minChapters is the fewest boundaries a detection result may have.
	// A single "chapter" spanning the whole book explains nothing.
	minChapters = 2
)

// headingPattern matches numbered chapter headings in English and Portuguese.
var headingPattern = regexp.MustCompile(`(?i)^(chapter|part|book|cap[ií]tulo|parte|livro)\s+(\d+|[ivxlcdm]+)\b`)

// Detection is the outcome of boundary detection.
type Detection struct {
	Points     []book.ChapterPoint
	Source     book.DetectionSource
	Confidence float64
	Warnings   []string
}

// Detect finds chapter start points, preferring the native outline over
// heading heuristics. totalPages bounds outline targets; entries pointing
// past the document are link artifacts, not chapters. Returns
// book.ErrSegmentationInconclusive when neither source yields at least two
// usable boundaries.
func Detect(outline []format.OutlineEntry, pages []book.PageRecord, totalPages int) (*Detection, error) {
	if points, ok := FromOutline(outline, totalPages); ok {
		return &Detection{
			Points:     points,
			Source:     book.SourceTOC,
			Confidence: tocConfidence,
		}, nil
	}

	var warnings []string
	if len(outline) > 0 {
		warnings = append(warnings, "document outline unusable, falling back to heading detection")
	}

	if points, ok := FromHeadings(pages); ok {
		return &Detection{
			Points:     points,
			Source:     book.SourceHeuristic,
			Confidence: heuristicConfidence,
			Warnings:   warnings,
		}, nil
	}

	return nil, fmt.Errorf("%w: no outline and fewer than %d headings found",
		book.ErrSegmentationInconclusive, minChapters)
}

// FromOutline extracts chapter points from a document outline. The shallowest
// level that yields at least two distinct pages wins; deeper levels are
// sections, not chapters.
func FromOutline(outline []format.OutlineEntry, totalPages int) ([]book.ChapterPoint, bool) {
	if len(outline) == 0 {
		return nil, false
	}

	maxLevel := 0
	for _, e := range outline {
		if e.Level > maxLevel {
			maxLevel = e.Level
		}
	}

	for level := 1; level <= maxLevel; level++ {
		points := outlineLevel(outline, level, totalPages)
		if len(points) >= minChapters {
			return points, true
		}
	}
	return nil, false
}

func outlineLevel(outline []format.OutlineEntry, level, totalPages int) []book.ChapterPoint {
	var points []book.ChapterPoint
	seenPage := make(map[int]bool)
	lastPage := 0
	for _, e := range outline {
		if e.Level != level || e.Page < 1 || seenPage[e.Page] {
			continue
		}
		// Targets past the last page are broken link destinations.
		if totalPages > 0 && e.Page > totalPages {
			continue
		}
		// Outlines are expected in reading order; out-of-order targets are
		// artifacts of broken link destinations.
		if e.Page < lastPage {
			continue
		}
		seenPage[e.Page] = true
		lastPage = e.Page
		points = append(points, book.ChapterPoint{
			Title:     strings.TrimSpace(e.Title),
			StartPage: e.Page,
		})
	}
	return points
}

// FromHeadings scans extracted page text for numbered chapter headings.
func FromHeadings(pages []book.PageRecord) ([]book.ChapterPoint, bool) {
	var points []book.ChapterPoint
	seen := make(map[string]bool)

	for _, page := range pages {
		if page.Text == "" {
			continue
		}
		lines := strings.Split(page.Text, "\n")
		if len(lines) > headingScanLines {
			lines = lines[:headingScanLines]
		}
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" || len(line) > maxHeadingLen {
				continue
			}
			if !headingPattern.MatchString(line) {
				continue
			}
			key := fmt.Sprintf("%d|%s", page.PageNum, textnorm.Key(line))
			if seen[key] {
				continue
			}
			seen[key] = true
			points = append(points, book.ChapterPoint{
				Title:     line,
				StartPage: page.PageNum,
			})
			// One heading per page: continuation lines repeat the title.
			break
		}
	}

	if len(points) < minChapters {
		return nil, false
	}
	return points, true
}

// HeadingTitle looks for a chapter heading near the top of a block of text.
// Used to give windowed chapters a real title when one is visible.
func HeadingTitle(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	if len(lines) > headingScanLines {
		lines = lines[:headingScanLines]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > maxHeadingLen {
			continue
		}
		if headingPattern.MatchString(line) {
			return line, true
		}
	}
	return "", false
}

// Windowed produces fixed-size page windows as chapter points. Used by
// resumable processing when real boundaries are not wanted or not found.
func Windowed(totalPages, windowPages int) []book.ChapterPoint {
	if windowPages < 1 {
		windowPages = 10
	}
	var points []book.ChapterPoint
	for start := 1; start <= totalPages; start += windowPages {
		end := start + windowPages - 1
		if end > totalPages {
			end = totalPages
		}
		points = append(points, book.ChapterPoint{
			Title:     fmt.Sprintf("Pages %d-%d", start, end),
			StartPage: start,
		})
	}
	return points
}

// BuildRanges materializes chapter points into inclusive, gap-free page
// ranges covering [1, totalPages]. The first chapter absorbs any front
// matter before its detected start; the last runs to the final page.
func BuildRanges(points []book.ChapterPoint, totalPages int, source book.DetectionSource, confidence float64) ([]book.Chapter, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no chapter points")
	}
	if totalPages < 1 {
		return nil, fmt.Errorf("invalid page count %d", totalPages)
	}

	chapters := make([]book.Chapter, 0, len(points))
	for i, p := range points {
		start := p.StartPage
		if i == 0 {
			start = 1
		}
		end := totalPages
		if i+1 < len(points) {
			end = points[i+1].StartPage - 1
		}
		if start > end {
			return nil, fmt.Errorf("chapter %d: empty range [%d,%d]", i+1, start, end)
		}

		title := strings.TrimSpace(p.Title)
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}

		chapters = append(chapters, book.Chapter{
			Number:     i + 1,
			Title:      title,
			StartPage:  start,
			EndPage:    end,
			Source:     source,
			Confidence: confidence,
		})
	}
	return chapters, nil
}
