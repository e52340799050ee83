package segment

import (
	"errors"
	"testing"

	"lectern/internal/book"
	"lectern/internal/format"
)

func TestDetectPrefersOutline(t *testing.T) {
	outline := []format.OutlineEntry{
		{Title: "Introdução", Level: 1, Page: 1},
		{Title: "Capítulo 1", Level: 1, Page: 10},
		{Title: "Seção 1.1", Level: 2, Page: 12},
		{Title: "Capítulo 2", Level: 1, Page: 25},
	}
	pages := []book.PageRecord{
		{PageNum: 3, Text: "Chapter 1\nsome text"},
		{PageNum: 9, Text: "Chapter 2\nsome text"},
	}

	det, err := Detect(outline, pages, 42)
	if err != nil {
		t.Fatal(err)
	}
	if det.Source != book.SourceTOC {
		t.Errorf("outline should win, got %s", det.Source)
	}
	if det.Confidence != tocConfidence {
		t.Errorf("confidence %v", det.Confidence)
	}
	if len(det.Points) != 3 {
		t.Fatalf("expected 3 top-level points, got %d", len(det.Points))
	}
	if det.Points[1].StartPage != 10 {
		t.Errorf("unexpected second point: %+v", det.Points[1])
	}
}

func TestDetectHeuristicFallback(t *testing.T) {
	// One-entry outline cannot segment anything.
	outline := []format.OutlineEntry{{Title: "Cover", Level: 1, Page: 1}}
	pages := []book.PageRecord{
		{PageNum: 5, Text: "Capítulo 1\n\nA dúvida metódica começa aqui."},
		{PageNum: 20, Text: "Capítulo 2\n\nDa existência de Deus."},
		{PageNum: 40, Text: "Capítulo 3\n\nDo erro."},
	}

	det, err := Detect(outline, pages, 50)
	if err != nil {
		t.Fatal(err)
	}
	if det.Source != book.SourceHeuristic {
		t.Errorf("expected heuristic fallback, got %s", det.Source)
	}
	if det.Confidence != heuristicConfidence {
		t.Errorf("confidence %v", det.Confidence)
	}
	if len(det.Warnings) == 0 {
		t.Error("downgrade from unusable outline should warn")
	}
	if len(det.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(det.Points))
	}
}

func TestDetectInconclusive(t *testing.T) {
	pages := []book.PageRecord{
		{PageNum: 1, Text: "Prose without any numbered headings."},
		{PageNum: 2, Text: "More continuous prose."},
	}
	_, err := Detect(nil, pages, 2)
	if !errors.Is(err, book.ErrSegmentationInconclusive) {
		t.Errorf("expected ErrSegmentationInconclusive, got %v", err)
	}
}

func TestFromOutlineDescendsLevels(t *testing.T) {
	// Single top-level entry; the real chapters sit at level 2.
	outline := []format.OutlineEntry{
		{Title: "Meditações", Level: 1, Page: 1},
		{Title: "Primeira Meditação", Level: 2, Page: 5},
		{Title: "Segunda Meditação", Level: 2, Page: 30},
	}
	points, ok := FromOutline(outline, 60)
	if !ok {
		t.Fatal("expected level-2 detection")
	}
	if len(points) != 2 || points[0].Title != "Primeira Meditação" {
		t.Errorf("unexpected points: %+v", points)
	}
}

func TestFromOutlineDropsDuplicatesAndBackrefs(t *testing.T) {
	outline := []format.OutlineEntry{
		{Title: "One", Level: 1, Page: 5},
		{Title: "One again", Level: 1, Page: 5},  // duplicate page
		{Title: "Backwards", Level: 1, Page: 2},  // out of reading order
		{Title: "Two", Level: 1, Page: 20},
	}
	points, ok := FromOutline(outline, 30)
	if !ok {
		t.Fatal("expected detection")
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %+v", points)
	}
}

func TestFromOutlineDropsOutOfRangeTargets(t *testing.T) {
	outline := []format.OutlineEntry{
		{Title: "One", Level: 1, Page: 1},
		{Title: "Two", Level: 1, Page: 10},
		{Title: "Ghost", Level: 1, Page: 99}, // broken link destination
	}
	points, ok := FromOutline(outline, 42)
	if !ok {
		t.Fatal("expected detection")
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %+v", points)
	}
	for _, p := range points {
		if p.StartPage > 42 {
			t.Errorf("out-of-range point survived: %+v", p)
		}
	}
}

func TestDetectCorruptOutlineFallsBack(t *testing.T) {
	// Only one in-range entry: the outline is unusable, not fatal.
	outline := []format.OutlineEntry{
		{Title: "One", Level: 1, Page: 1},
		{Title: "Ghost", Level: 1, Page: 500},
	}
	pages := []book.PageRecord{
		{PageNum: 5, Text: "Capítulo 1\ntexto"},
		{PageNum: 20, Text: "Capítulo 2\ntexto"},
	}
	det, err := Detect(outline, pages, 40)
	if err != nil {
		t.Fatal(err)
	}
	if det.Source != book.SourceHeuristic {
		t.Errorf("expected heuristic fallback, got %s", det.Source)
	}
}

func TestFromHeadings(t *testing.T) {
	tests := []struct {
		name  string
		pages []book.PageRecord
		want  int
		ok    bool
	}{
		{
			name: "english and roman numerals",
			pages: []book.PageRecord{
				{PageNum: 3, Text: "CHAPTER I\nThe beginning"},
				{PageNum: 18, Text: "Chapter II\nThe middle"},
			},
			want: 2,
			ok:   true,
		},
		{
			name: "heading too deep in page ignored",
			pages: []book.PageRecord{
				{PageNum: 1, Text: "line\nline\nline\nline\nline\nline\nline\nline\nline\nline\nline\nline\nChapter 1"},
				{PageNum: 2, Text: "Chapter 2\ntext"},
			},
			ok: false,
		},
		{
			name: "overlong line rejected",
			pages: []book.PageRecord{
				{PageNum: 1, Text: "Chapter 1 " + string(make([]byte, 150))},
				{PageNum: 2, Text: "Chapter 2\ntext"},
			},
			ok: false,
		},
		{
			name: "single heading insufficient",
			pages: []book.PageRecord{
				{PageNum: 1, Text: "Chapter 1\ntext"},
			},
			ok: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, ok := FromHeadings(tt.pages)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (points %+v)", ok, tt.ok, points)
			}
			if ok && len(points) != tt.want {
				t.Errorf("got %d points", len(points))
			}
		})
	}
}

func TestBuildRanges(t *testing.T) {
	points := []book.ChapterPoint{
		{Title: "One", StartPage: 1},
		{Title: "Two", StartPage: 10},
		{Title: "Three", StartPage: 25},
	}
	chapters, err := BuildRanges(points, 42, book.SourceTOC, tocConfidence)
	if err != nil {
		t.Fatal(err)
	}

	want := [][2]int{{1, 9}, {10, 24}, {25, 42}}
	for i, ch := range chapters {
		if ch.StartPage != want[i][0] || ch.EndPage != want[i][1] {
			t.Errorf("chapter %d: [%d,%d], want %v", i+1, ch.StartPage, ch.EndPage, want[i])
		}
		if ch.Number != i+1 {
			t.Errorf("chapter number %d", ch.Number)
		}
	}

	// Full coverage, no gaps or overlaps.
	covered := 0
	for _, ch := range chapters {
		covered += ch.Pages()
	}
	if covered != 42 {
		t.Errorf("chapters cover %d of 42 pages", covered)
	}
}

func TestBuildRangesClampsFrontMatter(t *testing.T) {
	points := []book.ChapterPoint{
		{Title: "One", StartPage: 7}, // front matter before page 7
		{Title: "Two", StartPage: 15},
	}
	chapters, err := BuildRanges(points, 30, book.SourceHeuristic, heuristicConfidence)
	if err != nil {
		t.Fatal(err)
	}
	if chapters[0].StartPage != 1 {
		t.Errorf("first chapter must absorb front matter, starts at %d", chapters[0].StartPage)
	}
	if chapters[len(chapters)-1].EndPage != 30 {
		t.Error("last chapter must run to the final page")
	}
}

func TestBuildRangesEmptyRange(t *testing.T) {
	points := []book.ChapterPoint{
		{Title: "One", StartPage: 1},
		{Title: "Two", StartPage: 10},
		{Title: "Dup", StartPage: 10},
	}
	if _, err := BuildRanges(points, 20, book.SourceTOC, tocConfidence); err == nil {
		t.Error("duplicate start pages should fail range construction")
	}
}

func TestWindowed(t *testing.T) {
	points := Windowed(25, 10)
	if len(points) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(points))
	}
	if points[2].StartPage != 21 || points[2].Title != "Pages 21-25" {
		t.Errorf("unexpected last window: %+v", points[2])
	}

	chapters, err := BuildRanges(points, 25, book.SourceWindowed, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if chapters[1].StartPage != 11 || chapters[1].EndPage != 20 {
		t.Errorf("unexpected window range: %+v", chapters[1])
	}
}
