package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ErrNoRoot is returned when a document holds no element at all.
var ErrNoRoot = errors.New("document has no root element")

// readSettings accepts HTML-ish XHTML: named HTML entities, void elements
// left open, and mismatched closing tags.
func readSettings() etree.ReadSettings {
	return etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
		Entity:        xml.HTMLEntity,
		AutoClose:     xml.HTMLAutoClose,
	}
}

// Parse parses an XML document and returns its root element as a tree.
// Namespace prefixes are kept in element names and attribute keys
// (e.g. "dc:title", "xlink:href").
func Parse(data []byte) (*Node, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = readSettings()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrNoRoot
	}
	return fromEtree(root), nil
}

func fromEtree(e *etree.Element) *Node {
	n := &Node{
		Kind: ElementNode,
		Name: e.FullTag(),
		Attr: make(map[string]string, len(e.Attr)),
	}
	for _, a := range e.Attr {
		n.Attr[a.FullKey()] = a.Value
	}
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.Element:
			c := fromEtree(t)
			n.Children = append(n.Children, c)
			// Content swallowed by an unclosed <br> or <img> belongs after it.
			if voidElements[c.LocalName()] && len(c.Children) > 0 {
				n.Children = append(n.Children, c.Children...)
				c.Children = nil
			}
		case *etree.CharData:
			n.appendText(t.Data)
		case *etree.Comment:
			n.Children = append(n.Children, NewComment(t.Data))
		}
	}
	return n
}

// appendText merges adjacent character data into a single text leaf.
func (n *Node) appendText(s string) {
	if k := len(n.Children); k > 0 && n.Children[k-1].IsText() {
		n.Children[k-1].Text += s
		return
	}
	n.Children = append(n.Children, NewText(s))
}

// ParseHTML parses data with the HTML5 algorithm and returns the <html>
// element. It never fails on malformed markup; the parser synthesizes
// missing html/head/body elements.
func ParseHTML(data []byte) (*Node, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return fromHTML(c), nil
		}
	}
	return nil, ErrNoRoot
}

func fromHTML(h *html.Node) *Node {
	n := &Node{
		Kind: ElementNode,
		Name: h.Data,
		Attr: make(map[string]string, len(h.Attr)),
	}
	for _, a := range h.Attr {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		n.Attr[key] = a.Val
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			n.Children = append(n.Children, fromHTML(c))
		case html.TextNode:
			n.appendText(c.Data)
		case html.CommentNode:
			n.Children = append(n.Children, NewComment(c.Data))
		}
	}
	return n
}
