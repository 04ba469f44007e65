package xmltree

import (
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// voidElements never carry children in HTML output.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"keygen": true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// Render serializes n to an HTML string. Text is escaped, attributes are
// written in key order, and comments render as the empty string.
func Render(n *Node) (string, error) {
	var b strings.Builder
	if err := RenderTo(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderAll serializes a node list and concatenates the results.
func RenderAll(nodes []*Node) (string, error) {
	var b strings.Builder
	for _, n := range nodes {
		if err := RenderTo(&b, n); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// RenderTo writes the HTML serialization of n to w.
func RenderTo(w io.Writer, n *Node) error {
	h := toHTML(n)
	if h == nil {
		return nil
	}
	return html.Render(w, h)
}

func toHTML(n *Node) *html.Node {
	switch n.Kind {
	case TextNode:
		return &html.Node{Type: html.TextNode, Data: n.Text}
	case ElementNode:
	default:
		return nil
	}

	h := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Name,
		DataAtom: atom.Lookup([]byte(n.Name)),
	}

	keys := make([]string, 0, len(n.Attr))
	for k := range n.Attr {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Attr = append(h.Attr, html.Attribute{Key: k, Val: n.Attr[k]})
	}

	if voidElements[n.Name] {
		return h
	}
	for _, c := range n.Children {
		if ch := toHTML(c); ch != nil {
			h.AppendChild(ch)
		}
	}
	return h
}
