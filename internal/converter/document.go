package converter

import (
	"bufio"
	"html"
	"io"
	"strings"

	"github.com/yuanying/epub2html/internal/epub"
	"github.com/yuanying/epub2html/internal/xmltree"
)

// Document is a converted book ready to be written as one HTML file.
type Document struct {
	Title      string
	Lang       string
	Stylesheet string
	TOC        []*epub.NavPoint
	Body       *xmltree.Node

	// links, when set, points TOC entries at chapter anchors in Body.
	links *links
}

// WriteTo writes the complete HTML page to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}

	cw.writeString("<!DOCTYPE html>")
	if d.Lang != "" {
		cw.writeString(`<html lang="` + html.EscapeString(d.Lang) + `">`)
	} else {
		cw.writeString("<html>")
	}
	cw.writeString(`<head><meta charset="utf-8">`)
	if d.Title != "" {
		cw.writeString("<title>" + html.EscapeString(d.Title) + "</title>")
	}
	if d.Stylesheet != "" {
		cw.writeString("<style>" + escapeStyle(d.Stylesheet) + "</style>")
	}
	cw.writeString("</head>")

	body := d.Body
	if body == nil {
		body = xmltree.Wrap("body", nil)
	}
	if toc := InlineTOC(d.TOC); toc != nil {
		if d.links != nil {
			d.links.apply(toc)
		}
		body = &xmltree.Node{
			Kind:     xmltree.ElementNode,
			Name:     body.Name,
			Attr:     body.Attr,
			Children: append([]*xmltree.Node{toc}, body.Children...),
		}
	}
	if cw.err == nil {
		cw.err = xmltree.RenderTo(cw, body)
	}
	cw.writeString("</html>")

	if cw.err == nil {
		cw.err = cw.w.Flush()
	}
	return cw.n, cw.err
}

// HTML renders the document to a string.
func (d *Document) HTML() (string, error) {
	var sb strings.Builder
	if _, err := d.WriteTo(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// escapeStyle keeps stylesheet text from closing the <style> element early.
func escapeStyle(css string) string {
	return strings.ReplaceAll(css, "</style", `<\/style`)
}

// countingWriter remembers the first write error and the bytes written.
type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	if cw.err != nil {
		return 0, cw.err
	}
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	cw.err = err
	return n, err
}

func (cw *countingWriter) writeString(s string) {
	cw.Write([]byte(s))
}
