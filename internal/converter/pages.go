package converter

import (
	"strings"
	"unicode/utf8"

	"github.com/yuanying/epub2html/internal/xmltree"
)

const (
	// PageLines is the capacity of a page in pseudo-lines.
	PageLines = 40
	// LineWidth is the number of characters counted as one pseudo-line.
	LineWidth = 77
)

// textContainers are the only elements given a non-zero measure.
var textContainers = map[string]bool{
	"a":          true,
	"p":          true,
	"blockquote": true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
}

// Measure estimates how many pseudo-lines n occupies on a page. Anything
// that is not a text container counts as zero.
func Measure(n *xmltree.Node) int {
	if !n.IsElement() || !textContainers[strings.ToLower(n.LocalName())] {
		return 0
	}
	chars := utf8.RuneCountInString(n.TextContent())
	return (chars + LineWidth - 1) / LineWidth
}

// Split bins elements greedily into pages of at most PageLines, each
// wrapped in a div. An element larger than a page gets a page of its own.
func Split(elements []*xmltree.Node) []*xmltree.Node {
	var pages []*xmltree.Node
	for len(elements) > 0 {
		var page []*xmltree.Node
		page, elements = nextPage(elements)
		pages = append(pages, xmltree.Wrap("div", page))
	}
	return pages
}

// nextPage takes elements from the front until the next one no longer fits.
func nextPage(elements []*xmltree.Node) (page, rest []*xmltree.Node) {
	free := PageLines
	i := 0
	for free > 0 && i < len(elements) {
		size := Measure(elements[i])
		if size > free && i > 0 {
			break
		}
		free -= size
		i++
	}
	return elements[:i:i], elements[i:]
}
