// Package epub implements the format.Document capability for EPUB files.
// An EPUB is a zip container; "pages" are spine items in reading order.
package epub

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"

	"lectern/internal/format"
)

const containerPath = "META-INF/container.xml"

type containerXML struct {
	XMLName   xml.Name `xml:"container"`
	RootFiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	Titles      []string `xml:"title"`
	Creators    []string `xml:"creator"`
	Publisher   string   `xml:"publisher"`
	Language    string   `xml:"language"`
	Dates       []string `xml:"date"`
	Identifiers []struct {
		Scheme string `xml:"scheme,attr"`
		Value  string `xml:",chardata"`
	} `xml:"identifier"`
}

type opfManifest struct {
	Items []opfItem `xml:"item"`
}

type opfItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type opfSpine struct {
	TOC      string `xml:"toc,attr"`
	ItemRefs []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"itemref"`
}

type ncxNCX struct {
	XMLName xml.Name      `xml:"ncx"`
	NavMap  []ncxNavPoint `xml:"navMap>navPoint"`
}

type ncxNavPoint struct {
	Label   string `xml:"navLabel>text"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Kids []ncxNavPoint `xml:"navPoint"`
}

// Options configures how an EPUB document is opened.
type Options struct {
	Logger *slog.Logger
}

// Document is an EPUB-backed format.Document.
type Document struct {
	reader    *zip.ReadCloser
	files     map[string]*zip.File
	spine     []string // zip paths of spine items, reading order
	info      format.Info
	outline   []format.OutlineEntry
	hasImages bool
	warnings  []string
	logger    *slog.Logger
}

// Open opens and inspects an EPUB file.
func Open(_ context.Context, filePath string, opts Options) (*Document, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reader, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open EPUB container: %w", err)
	}

	d := &Document{
		reader: reader,
		files:  make(map[string]*zip.File, len(reader.File)),
		logger: logger,
	}
	for _, f := range reader.File {
		d.files[f.Name] = f
	}

	if err := d.load(); err != nil {
		reader.Close()
		return nil, err
	}
	return d, nil
}

// load walks container.xml -> OPF -> spine/metadata/NCX.
func (d *Document) load() error {
	var container containerXML
	if err := d.decodeXML(containerPath, &container); err != nil {
		return fmt.Errorf("invalid EPUB container: %w", err)
	}
	if len(container.RootFiles) == 0 {
		return fmt.Errorf("invalid EPUB container: no rootfile")
	}

	opfPath := container.RootFiles[0].FullPath
	var pkg opfPackage
	if err := d.decodeXML(opfPath, &pkg); err != nil {
		return fmt.Errorf("invalid EPUB package document: %w", err)
	}

	opfDir := path.Dir(opfPath)
	itemsByID := make(map[string]opfItem, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		itemsByID[item.ID] = item
		if strings.HasPrefix(item.MediaType, "image/") {
			d.hasImages = true
		}
	}

	for _, ref := range pkg.Spine.ItemRefs {
		item, ok := itemsByID[ref.IDRef]
		if !ok {
			d.warn(fmt.Sprintf("spine references unknown manifest item %q", ref.IDRef))
			continue
		}
		d.spine = append(d.spine, resolve(opfDir, item.Href))
	}
	if len(d.spine) == 0 {
		return fmt.Errorf("EPUB has an empty spine")
	}

	d.info = metadataToInfo(pkg.Metadata)
	d.loadOutline(opfDir, pkg.Spine.TOC, itemsByID)
	return nil
}

// loadOutline parses the NCX navigation map when present.
func (d *Document) loadOutline(opfDir, tocID string, items map[string]opfItem) {
	ncxItem, ok := items[tocID]
	if !ok {
		// Fall back to the conventional media type.
		for _, item := range items {
			if item.MediaType == "application/x-dtbncx+xml" {
				ncxItem = item
				ok = true
				break
			}
		}
	}
	if !ok {
		return
	}

	ncxPath := resolve(opfDir, ncxItem.Href)
	var ncx ncxNCX
	if err := d.decodeXML(ncxPath, &ncx); err != nil {
		d.warn(fmt.Sprintf("unreadable NCX navigation: %v", err))
		return
	}

	spineIndex := make(map[string]int, len(d.spine))
	for i, p := range d.spine {
		spineIndex[p] = i + 1 // pages are 1-indexed
	}
	d.outline = d.flattenNavPoints(ncx.NavMap, path.Dir(ncxPath), spineIndex, 1)
}

func (d *Document) flattenNavPoints(points []ncxNavPoint, ncxDir string, spineIndex map[string]int, level int) []format.OutlineEntry {
	var entries []format.OutlineEntry
	for _, np := range points {
		src, _, _ := strings.Cut(np.Content.Src, "#")
		page, ok := spineIndex[resolve(ncxDir, src)]
		title := strings.TrimSpace(np.Label)
		if ok && title != "" {
			entries = append(entries, format.OutlineEntry{
				Title: title,
				Level: level,
				Page:  page,
			})
		}
		entries = append(entries, d.flattenNavPoints(np.Kids, ncxDir, spineIndex, level+1)...)
	}
	return entries
}

// Info implements format.Document.
func (d *Document) Info() format.Info {
	return d.info
}

// PageCount implements format.Document. Spine items stand in for pages.
func (d *Document) PageCount() int {
	return len(d.spine)
}

// Outline implements format.Document.
func (d *Document) Outline() []format.OutlineEntry {
	return d.outline
}

// HasImages implements format.Document. The manifest already tells us; the
// page limit is irrelevant for reflowable formats.
func (d *Document) HasImages(_ context.Context, _ int) bool {
	return d.hasImages
}

// Warnings implements format.Document.
func (d *Document) Warnings() []string {
	return d.warnings
}

// Close implements format.Document.
func (d *Document) Close() error {
	return d.reader.Close()
}

// PageText implements format.Document: the stripped text of one spine item.
func (d *Document) PageText(_ context.Context, pageNum int) (string, error) {
	if pageNum < 1 || pageNum > len(d.spine) {
		return "", fmt.Errorf("page %d out of range [1,%d]", pageNum, len(d.spine))
	}
	raw, err := d.readFile(d.spine[pageNum-1])
	if err != nil {
		return "", fmt.Errorf("failed to read spine item %d: %w", pageNum, err)
	}
	return StripHTML(string(raw)), nil
}

func (d *Document) decodeXML(zipPath string, v any) error {
	raw, err := d.readFile(zipPath)
	if err != nil {
		return err
	}
	return xml.Unmarshal(raw, v)
}

func (d *Document) readFile(zipPath string) ([]byte, error) {
	f, ok := d.files[zipPath]
	if !ok {
		return nil, fmt.Errorf("missing file %q", zipPath)
	}
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (d *Document) warn(msg string) {
	d.warnings = append(d.warnings, msg)
	d.logger.Warn(msg)
}

// resolve joins an href to its base directory inside the zip.
func resolve(dir, href string) string {
	if dir == "." || dir == "" {
		return path.Clean(href)
	}
	return path.Clean(path.Join(dir, href))
}

func metadataToInfo(md opfMetadata) format.Info {
	var info format.Info
	if len(md.Titles) > 0 {
		info.Title = strings.TrimSpace(md.Titles[0])
	}
	if len(md.Creators) > 0 {
		info.Author = strings.TrimSpace(md.Creators[0])
	}
	info.Publisher = strings.TrimSpace(md.Publisher)
	info.Language = strings.TrimSpace(md.Language)
	for _, id := range md.Identifiers {
		value := strings.TrimSpace(id.Value)
		if strings.EqualFold(id.Scheme, "isbn") || strings.HasPrefix(strings.ToLower(value), "isbn") {
			info.ISBN = strings.TrimPrefix(strings.ToLower(value), "isbn:")
			break
		}
	}
	for _, date := range md.Dates {
		if m := yearPattern.FindString(date); m != "" {
			info.Year, _ = strconv.Atoi(m)
			break
		}
	}
	return info
}

var (
	yearPattern        = regexp.MustCompile(`\b(1[5-9]\d\d|20\d\d)\b`)
	htmlTagPattern     = regexp.MustCompile(`<[^>]*>`)
	numericEntity      = regexp.MustCompile(`&#(x[0-9a-fA-F]+|\d+);`)
	namedEntityPattern = regexp.MustCompile(`&[a-zA-Z]+;`)
	whitespacePattern  = regexp.MustCompile(`[ \t]+`)
	blankLinePattern   = regexp.MustCompile(`\n{3,}`)
)

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&apos;", "'",
	"&nbsp;", " ",
)

// decodeNumericEntities turns &#231; and &#xE7; style references into runes.
func decodeNumericEntities(s string) string {
	return numericEntity.ReplaceAllStringFunc(s, func(m string) string {
		body := m[2 : len(m)-1]
		var n int64
		var err error
		if body[0] == 'x' || body[0] == 'X' {
			n, err = strconv.ParseInt(body[1:], 16, 32)
		} else {
			n, err = strconv.ParseInt(body, 10, 32)
		}
		if err != nil || n < 1 {
			return " "
		}
		return string(rune(n))
	})
}

// StripHTML reduces an XHTML spine item to plain text, keeping paragraph
// breaks so the heading heuristic still sees line starts.
func StripHTML(markup string) string {
	// Block-level closers become newlines before tags are dropped.
	for _, tag := range []string{"</p>", "</div>", "</h1>", "</h2>", "</h3>", "</h4>", "</li>", "<br/>", "<br />", "<br>"} {
		markup = strings.ReplaceAll(markup, tag, tag+"\n")
	}

	text := htmlTagPattern.ReplaceAllString(markup, " ")
	text = decodeNumericEntities(text)
	text = entityReplacer.Replace(text)
	text = namedEntityPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		lines = append(lines, strings.TrimSpace(line))
	}
	text = strings.Join(lines, "\n")
	text = blankLinePattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

var _ format.Document = (*Document)(nil)
