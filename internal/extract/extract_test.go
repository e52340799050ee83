package extract

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"lectern/internal/book"
	"lectern/internal/format"
	"lectern/internal/home"
)

// fakeDoc serves canned page text and optional rasterization.
type fakeDoc struct {
	pages      map[int]string // missing pages return an error
	count      int            // zero means len(pages)
	rasterized sync.Map
	canRaster  bool
}

func (d *fakeDoc) Info() format.Info              { return format.Info{} }
func (d *fakeDoc) Outline() []format.OutlineEntry { return nil }
func (d *fakeDoc) Warnings() []string             { return nil }
func (d *fakeDoc) Close() error                   { return nil }

func (d *fakeDoc) HasImages(context.Context, int) bool { return false }

func (d *fakeDoc) PageCount() int {
	if d.count > 0 {
		return d.count
	}
	return len(d.pages)
}

func (d *fakeDoc) PageText(_ context.Context, pageNum int) (string, error) {
	text, ok := d.pages[pageNum]
	if !ok {
		return "", fmt.Errorf("page %d unreadable", pageNum)
	}
	return text, nil
}

func (d *fakeDoc) RasterizePage(_ context.Context, pageNum, _ int, destPath string) error {
	if !d.canRaster {
		return fmt.Errorf("no rasterizer")
	}
	d.rasterized.Store(pageNum, destPath)
	return nil
}

// fakeOCR returns fixed text per page image path and remembers the layout
// mode of the last call.
type fakeOCR struct {
	text      string
	err       error
	available bool

	mu         sync.Mutex
	lastLayout bool
}

func (o *fakeOCR) Available() bool { return o.available }
func (o *fakeOCR) Recognize(_ context.Context, _ string, preserveLayout bool) (string, error) {
	o.mu.Lock()
	o.lastLayout = preserveLayout
	o.mu.Unlock()
	return o.text, o.err
}

func longText(seed string) string {
	return strings.Repeat(seed+" ", 30) // comfortably past the native threshold
}

func testEngine(t *testing.T, ocrEngine *fakeOCR) *Engine {
	t.Helper()
	dir, err := home.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var opts Options
	opts.Home = dir
	if ocrEngine != nil {
		opts.OCR = ocrEngine
	}
	return New(opts)
}

func TestExtractNativePages(t *testing.T) {
	doc := &fakeDoc{pages: map[int]string{
		1: longText("primeira"),
		2: longText("segunda"),
		3: longText("terceira"),
	}}
	engine := testEngine(t, nil)

	res, err := engine.Extract(context.Background(), Request{
		BookID:  "abc",
		Doc:     doc,
		Quality: book.QualityStandard.Config(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(res.Pages))
	}
	for i, p := range res.Pages {
		if p.PageNum != i+1 {
			t.Errorf("pages out of order at %d: %+v", i, p)
		}
		if p.OCRUsed {
			t.Errorf("page %d should be native", p.PageNum)
		}
		if p.Confidence != nativeConfidence {
			t.Errorf("page %d confidence %v", p.PageNum, p.Confidence)
		}
		if p.Hash == "" {
			t.Errorf("page %d missing content hash", p.PageNum)
		}
	}
	if res.OCRPages != 0 {
		t.Errorf("no OCR expected, got %d", res.OCRPages)
	}
}

func TestExtractOCRFallback(t *testing.T) {
	doc := &fakeDoc{
		pages: map[int]string{
			1: longText("nativa"),
			2: "p. 37", // below native threshold
		},
		canRaster: true,
	}
	engine := testEngine(t, &fakeOCR{text: longText("reconhecida"), available: true})

	res, err := engine.Extract(context.Background(), Request{
		BookID:  "abc",
		Doc:     doc,
		Quality: book.QualityStandard.Config(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if res.Pages[0].OCRUsed {
		t.Error("page 1 has enough native text, OCR should be skipped")
	}
	p2 := res.Pages[1]
	if !p2.OCRUsed || !p2.RequiresOCR {
		t.Errorf("page 2 should be OCR'd: %+v", p2)
	}
	if p2.Confidence != ocrConfidence {
		t.Errorf("OCR confidence %v", p2.Confidence)
	}
	if res.OCRPages != 1 {
		t.Errorf("expected 1 OCR page, got %d", res.OCRPages)
	}
}

func TestExtractOCRLayoutFollowsQuality(t *testing.T) {
	newDoc := func() *fakeDoc {
		return &fakeDoc{
			pages:     map[int]string{1: "p. 37"}, // below native threshold
			canRaster: true,
		}
	}

	tests := []struct {
		name    string
		quality book.ProcessingQuality
		want    bool
	}{
		{"standard preserves layout", book.QualityStandard, true},
		{"high preserves layout", book.QualityHigh, true},
		{"academic preserves layout", book.QualityAcademic, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ocrEngine := &fakeOCR{text: longText("texto"), available: true}
			engine := testEngine(t, ocrEngine)
			if _, err := engine.Extract(context.Background(), Request{
				BookID:  "abc",
				Doc:     newDoc(),
				Quality: tt.quality.Config(),
			}); err != nil {
				t.Fatal(err)
			}
			if ocrEngine.lastLayout != tt.want {
				t.Errorf("OCR layout = %v, want %v", ocrEngine.lastLayout, tt.want)
			}
		})
	}

	t.Run("layout off passes through", func(t *testing.T) {
		ocrEngine := &fakeOCR{text: longText("texto"), available: true}
		engine := testEngine(t, ocrEngine)
		q := book.QualityStandard.Config()
		q.PreserveLayout = false
		if _, err := engine.Extract(context.Background(), Request{
			BookID:  "abc",
			Doc:     newDoc(),
			Quality: q,
		}); err != nil {
			t.Fatal(err)
		}
		if ocrEngine.lastLayout {
			t.Error("layout should be off when the quality bundle disables it")
		}
	})
}

func TestExtractDraftSkipsOCR(t *testing.T) {
	doc := &fakeDoc{
		pages:     map[int]string{1: "thin"},
		canRaster: true,
	}
	engine := testEngine(t, &fakeOCR{text: "should not run", available: true})

	res, err := engine.Extract(context.Background(), Request{
		BookID:  "abc",
		Doc:     doc,
		Quality: book.QualityDraft.Config(),
	})
	if err != nil {
		t.Fatal(err)
	}

	p := res.Pages[0]
	if p.OCRUsed {
		t.Error("draft tier must not OCR")
	}
	if !p.RequiresOCR {
		t.Error("thin page should still be flagged as needing OCR")
	}
	if p.Text != "thin" {
		t.Errorf("native text should be kept: %q", p.Text)
	}
}

func TestExtractPageFailureIsWarning(t *testing.T) {
	doc := &fakeDoc{
		pages: map[int]string{
			1: longText("boa"),
			3: longText("boa"),
			// page 2 missing: PageText errors, OCR unavailable
		},
		count: 3,
	}
	engine := testEngine(t, nil)

	res, err := engine.Extract(context.Background(), Request{
		BookID:   "abc",
		Doc:      doc,
		LastPage: 3,
		Quality:  book.QualityStandard.Config(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Pages) != 3 {
		t.Fatalf("all pages must be present, got %d", len(res.Pages))
	}
	if res.Pages[1].Text != "" || res.Pages[1].Confidence != 0 {
		t.Errorf("failed page should be empty: %+v", res.Pages[1])
	}
	if len(res.Warnings) == 0 {
		t.Error("expected warnings for the failed page")
	}
}

func TestExtractParallelOrdering(t *testing.T) {
	pages := make(map[int]string, 45)
	for i := 1; i <= 45; i++ {
		pages[i] = longText(fmt.Sprintf("pagina%d", i))
	}
	doc := &fakeDoc{pages: pages}
	engine := testEngine(t, nil)

	res, err := engine.Extract(context.Background(), Request{
		BookID:      "abc",
		Doc:         doc,
		Quality:     book.QualityStandard.Config(),
		WindowPages: 10,
		MaxWorkers:  3,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Pages) != 45 {
		t.Fatalf("expected 45 pages, got %d", len(res.Pages))
	}
	for i, p := range res.Pages {
		if p.PageNum != i+1 {
			t.Fatalf("pages out of order: index %d has page %d", i, p.PageNum)
		}
	}
}

func TestExtractMaxPagesCap(t *testing.T) {
	pages := make(map[int]string, 30)
	for i := 1; i <= 30; i++ {
		pages[i] = longText("pagina")
	}
	doc := &fakeDoc{pages: pages}
	engine := testEngine(t, nil)

	q := book.QualityDraft.Config()
	q.MaxPages = 20
	res, err := engine.Extract(context.Background(), Request{BookID: "abc", Doc: doc, Quality: q})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Pages) != 20 {
		t.Errorf("cap not applied: %d pages", len(res.Pages))
	}
}

func TestSplitWindows(t *testing.T) {
	tests := []struct {
		first, last, size int
		want              [][2]int
	}{
		{1, 25, 10, [][2]int{{1, 10}, {11, 20}, {21, 25}}},
		{5, 5, 10, [][2]int{{5, 5}}},
		{1, 10, 10, [][2]int{{1, 10}}},
	}
	for _, tt := range tests {
		got := splitWindows(tt.first, tt.last, tt.size)
		if len(got) != len(tt.want) {
			t.Fatalf("splitWindows(%d,%d,%d) = %v", tt.first, tt.last, tt.size, got)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("window %d: got %v, want %v", i, got[i], tt.want[i])
			}
		}
	}
}

func TestJoinPages(t *testing.T) {
	pages := []book.PageRecord{
		{PageNum: 1, Text: "um"},
		{PageNum: 2, Text: ""},
		{PageNum: 3, Text: "três"},
		{PageNum: 4, Text: "quatro"},
	}
	got := JoinPages(pages, 1, 3)
	if got != "um\n\ntrês" {
		t.Errorf("got %q", got)
	}
}
