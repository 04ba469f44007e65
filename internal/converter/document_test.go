package converter

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/yuanying/epub2html/internal/xmltree"
)

func parseDocument(t *testing.T, s string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		t.Fatalf("goquery error = %v", err)
	}
	return doc
}

func TestPager_Document(t *testing.T) {
	tb := threeChapterBook()
	tb.title = "Fish &amp; Chips"
	tb.lang = "en-GB"
	tb.css = "p { margin: 0 }"
	tb.withNCX = true

	d, err := NewPager(tb.load(t)).Document(true)
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	out, err := d.HTML()
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}

	if !strings.HasPrefix(out, `<!DOCTYPE html><html lang="en-GB"><head><meta charset="utf-8">`) {
		t.Errorf("unexpected document head: %s", out[:80])
	}

	doc := parseDocument(t, out)
	if got := doc.Find("title").Text(); got != "Fish & Chips" {
		t.Errorf("title = %q", got)
	}
	if got := doc.Find("style").Text(); got != "p { margin: 0 }\n" {
		t.Errorf("style = %q", got)
	}

	nav := doc.Find("body > nav#toc")
	if nav.Length() != 1 {
		t.Fatalf("inline TOC missing: %s", out)
	}
	if href, _ := nav.Find("ul > li > ul > li > a").Attr("href"); href != "#chapter-OEBPS-text-ch1-xhtml" {
		t.Errorf("nested TOC href = %q, want the chapter anchor when the fragment is missing", href)
	}
	if doc.Find("body > h1").Length() != 3 {
		t.Errorf("body should hold the three chapter headings")
	}
}

func TestPager_DocumentLinksResolve(t *testing.T) {
	tb := testBook{
		withNCX: true,
		chapters: []string{
			`<h1>One</h1><p id="s1">Section. <a href="ch2.xhtml">next</a></p>`,
			`<h1>Two</h1><p><a href="ch1.xhtml#s1">back</a> <a href="ch1.xhtml#gone">gone</a> <a href="https://example.com/x.xhtml">web</a></p>`,
		},
	}
	p := NewPager(tb.load(t))

	d, err := p.Document(true)
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	out, err := d.HTML()
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	doc := parseDocument(t, out)

	doc.Find(`a[href^="#"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if doc.Find(`[id="`+href[1:]+`"]`).Length() != 1 {
			t.Errorf("href %q matches no element id", href)
		}
	})
	if n := doc.Find(`nav#toc a[href^="#"]`).Length(); n != 2 {
		t.Errorf("in-document TOC links = %d, want 2: %s", n, out)
	}

	var hrefs []string
	doc.Find("body > p a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		hrefs = append(hrefs, href)
	})
	want := []string{"#chapter-OEBPS-text-ch2-xhtml", "#s1", "#chapter-OEBPS-text-ch1-xhtml", "https://example.com/x.xhtml"}
	if strings.Join(hrefs, " ") != strings.Join(want, " ") {
		t.Errorf("body hrefs = %v, want %v", hrefs, want)
	}
	if doc.Find(`body > a#chapter-OEBPS-text-ch1-xhtml + h1`).Text() != "One" {
		t.Errorf("chapter anchor not in front of its heading: %s", out)
	}

	pages, err := p.Pages()
	if err != nil {
		t.Fatalf("Pages() error = %v", err)
	}
	joined := strings.Join(pages, "")
	if !strings.Contains(joined, `href="OEBPS/text/ch2.xhtml"`) || strings.Contains(joined, "chapter-") {
		t.Errorf("pages should keep archive path links: %s", joined)
	}
}

func TestPager_Build(t *testing.T) {
	tb := threeChapterBook()
	tb.withNCX = true
	p := NewPager(tb.load(t))

	var calls int
	p.OnProgress(func(float64) { calls++ })

	d, pages, err := p.Build(true)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if calls != 4 {
		t.Errorf("progress calls = %d, want one conversion pass of 4", calls)
	}
	if len(pages) == 0 {
		t.Fatalf("Build() returned no pages")
	}
	if strings.Contains(strings.Join(pages, ""), "chapter-") {
		t.Errorf("pages carry document anchors: %v", pages)
	}
	out, err := d.HTML()
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if parseDocument(t, out).Find("body > h1").Length() != 3 {
		t.Errorf("document lost chapters: %s", out)
	}
}

func TestPager_DocumentWithoutTOC(t *testing.T) {
	tb := threeChapterBook()
	tb.withNCX = true

	d, err := NewPager(tb.load(t)).Document(false)
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if d.TOC != nil {
		t.Errorf("TOC = %v, want nil", d.TOC)
	}
}

func TestPager_DocumentMissingNCX(t *testing.T) {
	d, err := NewPager(threeChapterBook().load(t)).Document(true)
	if err != nil {
		t.Fatalf("Document() error = %v, a missing TOC must not fail conversion", err)
	}
	out, err := d.HTML()
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if parseDocument(t, out).Find("nav").Length() != 0 {
		t.Errorf("unexpected nav in %s", out)
	}
}

func TestDocument_Minimal(t *testing.T) {
	d := &Document{}
	out, err := d.HTML()
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	want := `<!DOCTYPE html><html><head><meta charset="utf-8"></head><body></body></html>`
	if out != want {
		t.Errorf("HTML() = %q, want %q", out, want)
	}
}

func TestDocument_EscapesStyleEnd(t *testing.T) {
	d := &Document{
		Stylesheet: `p::after { content: "</style><script>" }`,
		Body:       xmltree.Wrap("body", []*xmltree.Node{xmltree.NewElement("p", xmltree.NewText("x"))}),
	}
	out, err := d.HTML()
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	doc := parseDocument(t, out)
	if doc.Find("script").Length() != 0 {
		t.Errorf("stylesheet escaped its element: %s", out)
	}
	if doc.Find("body p").Text() != "x" {
		t.Errorf("body lost: %s", out)
	}
}

func TestDocument_WriteToCountsBytes(t *testing.T) {
	d := &Document{Title: "T"}
	var sb strings.Builder
	n, err := d.WriteTo(&sb)
	if err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if int(n) != sb.Len() {
		t.Errorf("WriteTo() = %d, wrote %d", n, sb.Len())
	}
}
