package converter

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/yuanying/epub2html/internal/xmltree"
)

// links maps archive path targets onto fragments of a single document.
type links struct {
	chapters map[string]string // chapter archive path -> anchor id
	ids      map[string]bool   // element ids present in the document
}

// linkChapters returns a copy of a's body with an empty anchor element in
// front of each chapter's first node, and the links that point at them.
// Hrefs in the body are rewritten in place.
func linkChapters(a *assembly) (*xmltree.Node, *links) {
	l := &links{
		chapters: make(map[string]string, len(a.chapters)),
		ids:      make(map[string]bool),
	}
	for _, n := range xmltree.Find(a.body, func(n *xmltree.Node) bool { return n.IsElement() }) {
		if id, ok := n.Attr["id"]; ok && id != "" {
			l.ids[id] = true
		}
	}

	anchors := make([]*xmltree.Node, len(a.chapters))
	for i, ch := range a.chapters {
		id := l.chapterID(ch.Path())
		l.chapters[ch.Path()] = id
		l.ids[id] = true
		anchors[i] = xmltree.NewElement("a")
		anchors[i].SetAttr("id", id)
	}

	children := make([]*xmltree.Node, 0, len(a.body.Children)+len(anchors))
	next := 0
	for _, c := range a.body.Children {
		if k, ok := a.owner[c]; ok {
			for ; next <= k; next++ {
				children = append(children, anchors[next])
			}
		}
		children = append(children, c)
	}
	children = append(children, anchors[next:]...)

	body := xmltree.Wrap(a.body.Name, children)
	l.apply(body)
	return body, l
}

// chapterID derives a document-unique anchor id from a chapter path.
func (l *links) chapterID(p string) string {
	var sb strings.Builder
	sb.WriteString("chapter-")
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	id := sb.String()
	for i := 2; l.ids[id]; i++ {
		id = sb.String() + "-" + strconv.Itoa(i)
	}
	return id
}

// resolve returns the in-document href for an archive path href. Hrefs
// that do not point at a chapter are reported as not found.
func (l *links) resolve(href string) (string, bool) {
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, fragment, _ := strings.Cut(href, "#")
	if u, err := url.Parse(ref); err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	anchor, ok := l.chapters[unescape(ref)]
	if !ok {
		return "", false
	}
	if fragment != "" && l.ids[unescape(fragment)] {
		return "#" + fragment, true
	}
	return "#" + anchor, true
}

// apply rewrites every <a href> under root that resolves to a chapter.
func (l *links) apply(root *xmltree.Node) {
	for _, a := range xmltree.Find(root, func(n *xmltree.Node) bool { return n.Is("a") }) {
		if target, ok := l.resolve(a.Attr["href"]); ok {
			a.SetAttr("href", target)
		}
	}
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
