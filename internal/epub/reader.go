package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/yuanying/epub2html/internal/xmltree"
)

// Archive provides path-based access to the entries of an EPUB zip container.
// Every read opens, decompresses and closes the entry; nothing is cached.
type Archive struct {
	files map[string]*zip.File
}

// NewArchive opens an in-memory EPUB zip container.
func NewArchive(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open EPUB: %w", err)
	}

	a := &Archive{files: make(map[string]*zip.File, len(zr.File))}

	// Build file map with normalized paths
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		a.files[normalizePath(f.Name)] = f
	}
	return a, nil
}

// Has reports whether an entry exists at p.
func (a *Archive) Has(p string) bool {
	_, ok := a.files[normalizePath(p)]
	return ok
}

// Names returns every entry path in lexical order.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.files))
	for name := range a.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Read returns the contents of the entry at p.
func (a *Archive) Read(p string) ([]byte, error) {
	p = normalizePath(p)
	f, ok := a.files[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", p, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// ReadString returns the entry at p as text.
func (a *Archive) ReadString(p string) (string, error) {
	data, err := a.Read(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadXML reads and parses the XML document at p.
func (a *Archive) ReadXML(p string) (*xmltree.Node, error) {
	data, err := a.Read(p)
	if err != nil {
		return nil, err
	}
	root, err := xmltree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return root, nil
}

// Locate resolves href against the directory of base, the archive path of
// the document that holds the reference. Hrefs from a document at the
// archive root come back as given, without a "./" prefix. A leading slash
// makes href relative to the archive root. Any query string is dropped.
func Locate(base, href string) string {
	if i := strings.IndexByte(href, '?'); i >= 0 {
		href = href[:i]
	}
	href = unescapeHref(href)
	if strings.HasPrefix(href, "/") {
		return path.Clean(strings.TrimLeft(href, "/"))
	}
	return path.Join(path.Dir(base), href)
}

// unescapeHref decodes percent-escapes; zip entry names are stored raw.
func unescapeHref(href string) string {
	if !strings.Contains(href, "%") {
		return href
	}
	if u, err := url.PathUnescape(href); err == nil {
		return u
	}
	return href
}

// EscapePath percent-escapes each segment of an archive path for use in an
// href.
func EscapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// splitFragment splits a source path into the path and fragment identifier.
func splitFragment(src string) (p, fragment string) {
	p, fragment, _ = strings.Cut(src, "#")
	return p, fragment
}

// normalizePath normalizes file paths (removes ./ prefix)
func normalizePath(p string) string {
	p = strings.TrimPrefix(p, "./")
	return strings.TrimPrefix(p, "/")
}
