package converter

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/yuanying/epub2html/internal/epub"
	"github.com/yuanying/epub2html/internal/xmltree"
)

const testContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1"><navLabel><text>Chapter 1</text></navLabel><content src="text/ch1.xhtml"/>
      <navPoint id="np2"><navLabel><text>Section 1.1</text></navLabel><content src="text/ch1.xhtml#s1"/></navPoint>
    </navPoint>
  </navMap>
</ncx>`

var testPNG = "\x89PNG\r\n\x1a\nfake-png"

// testBook describes a small EPUB whose chapters are text/ch1.xhtml,
// text/ch2.xhtml... in spine order.
type testBook struct {
	title    string
	lang     string
	css      string
	chapters []string // body markup of each chapter
	withNCX  bool
}

func (tb testBook) opf() string {
	var manifest, spine strings.Builder
	for i := range tb.chapters {
		fmt.Fprintf(&manifest, `<item id="ch%d" href="text/ch%d.xhtml" media-type="application/xhtml+xml"/>`, i+1, i+1)
		fmt.Fprintf(&spine, `<itemref idref="ch%d"/>`, i+1)
	}
	manifest.WriteString(`<item id="pic" href="images/pic.png" media-type="image/png"/>`)
	if tb.css != "" {
		manifest.WriteString(`<item id="css" href="style.css" media-type="text/css"/>`)
	}
	if tb.withNCX {
		manifest.WriteString(`<item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>`)
	}

	var md strings.Builder
	if tb.title != "" {
		md.WriteString("<dc:title>" + tb.title + "</dc:title>")
	}
	if tb.lang != "" {
		md.WriteString("<dc:language>" + tb.lang + "</dc:language>")
	}

	return `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
<metadata xmlns:dc="http://purl.org/dc/elements/1.1/">` + md.String() + `</metadata>
<manifest>` + manifest.String() + `</manifest>
<spine>` + spine.String() + `</spine>
</package>`
}

// build zips the book behind a mimetype entry.
func (tb testBook) build() ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	add := func(name, body string) error {
		fw, err := w.Create(name)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		_, err = fw.Write([]byte(body))
		return err
	}

	files := [][2]string{
		{"mimetype", "application/epub+zip"},
		{"META-INF/container.xml", testContainerXML},
		{"OEBPS/content.opf", tb.opf()},
		{"OEBPS/images/pic.png", testPNG},
	}
	if tb.css != "" {
		files = append(files, [2]string{"OEBPS/style.css", tb.css})
	}
	if tb.withNCX {
		files = append(files, [2]string{"OEBPS/toc.ncx", testNCX})
	}
	for i, body := range tb.chapters {
		files = append(files, [2]string{
			fmt.Sprintf("OEBPS/text/ch%d.xhtml", i+1),
			`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:xlink="http://www.w3.org/1999/xlink">
<head><title>Chapter</title></head>
<body>` + body + `</body>
</html>`,
		})
	}

	for _, f := range files {
		if err := add(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func (tb testBook) bytes(t *testing.T) []byte {
	t.Helper()
	data, err := tb.build()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func (tb testBook) load(t *testing.T) *epub.Book {
	t.Helper()
	b, err := epub.Load(tb.bytes(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return b
}

func mustParseBody(t *testing.T, markup string) *xmltree.Node {
	t.Helper()
	n, err := xmltree.Parse([]byte("<body>" + markup + "</body>"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return n
}

func mustRender(t *testing.T, n *xmltree.Node) string {
	t.Helper()
	s, err := xmltree.Render(n)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return s
}
