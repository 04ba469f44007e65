package converter

import (
	"regexp"
	"strings"

	"github.com/yuanying/epub2html/internal/xmltree"
)

// emptyContainers are the tags dropped by cleanup when they hold nothing.
var emptyContainers = map[string]bool{
	"em":   true,
	"div":  true,
	"p":    true,
	"span": true,
	"b":    true,
	"i":    true,
}

// onions are parent/child pairs where the wrapper adds nothing when it has
// exactly one child.
var onions = [][2]string{
	{"p", "span"},
	{"span", "span"},
	{"div", "div"},
	{"h1", "strong"},
	{"h2", "strong"},
	{"h3", "strong"},
	{"h4", "strong"},
}

// fullHeightRe matches a full-viewport height declaration in an inline style.
var fullHeightRe = regexp.MustCompile(`height: 100%(;\s?)?`)

// ApplyFilters normalizes the assembled tree in place. The passes always run
// in the same order: trim, cleanup, deonion, figures, fixHeights.
func ApplyFilters(root *xmltree.Node) {
	trim(root)
	cleanup(root)
	deonion(root)
	figures(root)
	fixHeights(root)
}

// trim drops whitespace-only text at both ends of every element, so
// <div> <p>...</p> </div> becomes <div><p>...</p></div>.
func trim(n *xmltree.Node) {
	if len(n.Children) == 0 {
		return
	}
	for _, c := range n.Children {
		trim(c)
	}

	ch := n.Children
	last := ch[len(ch)-1]
	if len(ch) > 1 && isBlank(last) {
		ch = ch[:len(ch)-1]
	}
	if isBlank(ch[0]) {
		ch = ch[1:]
	}
	n.Children = ch
}

func isBlank(n *xmltree.Node) bool {
	return n.IsText() && strings.TrimSpace(n.Text) == ""
}

// cleanup removes empty formatting containers.
func cleanup(n *xmltree.Node) {
	if len(n.Children) == 0 {
		return
	}
	kept := n.Children[:0]
	for _, c := range n.Children {
		cleanup(c)
		if c.IsElement() && emptyContainers[c.Name] && len(c.Children) == 0 {
			continue
		}
		kept = append(kept, c)
	}
	n.Children = kept
}

// isOnion reports whether n is a parent element with a single child element
// of the given names, e.g. <div><p>...</p></div> is a div/p onion.
func isOnion(n *xmltree.Node, parent, child string) bool {
	return n.Is(parent) && len(n.Children) == 1 && n.Children[0].Is(child)
}

// deonion collapses redundant single-child wrappers. Children are handled
// before their parent so nested onions of one shape fold in a single pass.
func deonion(n *xmltree.Node) {
	for _, c := range n.Children {
		deonion(c)

		for _, pair := range onions {
			if isOnion(c, pair[0], pair[1]) {
				c.Children = c.Children[0].Children
				break
			}
		}

		if isOnion(c, "div", "p") {
			p := c.Children[0]
			c.Name = p.Name
			c.Attr = p.Attr
			c.Children = p.Children
		}
	}
}

// figures renames a p or div whose only child is an image to figure.
func figures(n *xmltree.Node) {
	for _, c := range n.Children {
		figures(c)
	}
	if isOnion(n, "p", "img") || isOnion(n, "div", "img") {
		n.Name = "figure"
	}
}

// fixHeights drops full-viewport heights from images and SVG wrappers.
func fixHeights(n *xmltree.Node) {
	for _, c := range n.Children {
		fixHeights(c)
	}

	if n.Is("img") {
		if style, ok := n.Attr["style"]; ok && strings.Contains(style, "height: 100%") {
			if loc := fullHeightRe.FindStringIndex(style); loc != nil {
				n.Attr["style"] = style[:loc[0]] + style[loc[1]:]
			}
		}
		return
	}

	if n.Is("svg") && n.Attr["height"] == "100%" {
		delete(n.Attr, "height")
	}
}
