package epub

import (
	"archive/zip"
	"bytes"
	"testing"
)

// testFile is one archive entry of a hand-built EPUB.
type testFile struct {
	name string
	body string
}

const testContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Test Book</dc:title>
    <dc:language>en-US</dc:language>
    <dc:identifier id="other">urn:other</dc:identifier>
    <dc:identifier id="uid">urn:uuid:1234</dc:identifier>
    <dc:creator opf:role="aut">Jane Doe</dc:creator>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="css2" href="styles/b.css" media-type="text/css"/>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="css1" href="styles/a.css" media-type="text/css"/>
    <item id="cover-img" href="images/cover.jpg" media-type="image/jpeg"/>
    <item id="pic" href="images/pic.png" media-type="image/png"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch2"/>
    <itemref idref="ch1"/>
  </spine>
</package>`

const testNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>Chapter 1</text></navLabel>
      <content src="text/ch1.xhtml"/>
      <navPoint id="np2" playOrder="2">
        <navLabel><text>Section 1.1</text></navLabel>
        <content src="text/ch1.xhtml#s1"/>
      </navPoint>
    </navPoint>
    <navPoint id="np3" playOrder="3">
      <navLabel><text>Chapter 2</text></navLabel>
      <content src="text/ch2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

const testChapter1 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:xlink="http://www.w3.org/1999/xlink">
<head><title>Chapter 1</title></head>
<body id="start">
<h1>Chapter 1</h1>
<p id="s1">See <a href="ch2.xhtml">the next chapter</a> or <a href="ch2.xhtml#n1">a note</a>.</p>
<p><img src="../images/pic.png" alt="pic"/></p>
<svg xmlns="http://www.w3.org/2000/svg" height="100%"><image xlink:href="../images/cover.jpg"/></svg>
<p><a href="http://example.com/">web</a> <a href="#s1">here</a></p>
</body>
</html>`

const testChapter2 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Chapter 2</title></head>
<body><h1>Chapter 2</h1><p id="n1">Second.</p></body>
</html>`

var (
	testPNG = "\x89PNG\r\n\x1a\nfake-png"
	testJPG = "\xff\xd8\xff\xe0fake-jpeg"
)

func defaultTestFiles() []testFile {
	return []testFile{
		{"META-INF/container.xml", testContainerXML},
		{"OEBPS/content.opf", testOPF},
		{"OEBPS/toc.ncx", testNCX},
		{"OEBPS/styles/a.css", "p { margin: 0 }"},
		{"OEBPS/styles/b.css", "h1 { color: red }"},
		{"OEBPS/text/ch1.xhtml", testChapter1},
		{"OEBPS/text/ch2.xhtml", testChapter2},
		{"OEBPS/images/pic.png", testPNG},
		{"OEBPS/images/cover.jpg", testJPG},
	}
}

// replaceFile returns files with the entry called name replaced (or added).
func replaceFile(files []testFile, name, body string) []testFile {
	out := make([]testFile, 0, len(files)+1)
	found := false
	for _, f := range files {
		if f.name == name {
			f.body = body
			found = true
		}
		out = append(out, f)
	}
	if !found {
		out = append(out, testFile{name, body})
	}
	return out
}

// removeFile returns files without the entry called name.
func removeFile(files []testFile, name string) []testFile {
	var out []testFile
	for _, f := range files {
		if f.name != name {
			out = append(out, f)
		}
	}
	return out
}

// buildTestEPUB zips files behind a stored mimetype entry.
func buildTestEPUB(t *testing.T, files []testFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatalf("failed to create mimetype: %v", err)
	}
	mw.Write([]byte("application/epub+zip"))

	for _, f := range files {
		fw, err := w.Create(f.name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", f.name, err)
		}
		fw.Write([]byte(f.body))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func loadTestBook(t *testing.T, files []testFile) *Book {
	t.Helper()
	b, err := Load(buildTestEPUB(t, files))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return b
}
