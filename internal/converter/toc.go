package converter

import (
	"github.com/yuanying/epub2html/internal/epub"
	"github.com/yuanying/epub2html/internal/xmltree"
)

const tocHeading = "Table of Contents"

// InlineTOC renders points as a nav element holding nested <ul>/<li>
// lists of links to each point's archive target. It returns nil when there
// are no points.
func InlineTOC(points []*epub.NavPoint) *xmltree.Node {
	if len(points) == 0 {
		return nil
	}
	nav := xmltree.NewElement("nav",
		xmltree.NewElement("h1", xmltree.NewText(tocHeading)),
		tocList(points),
	)
	nav.SetAttr("id", "toc")
	return nav
}

// tocList recursively writes points as a <ul>.
func tocList(points []*epub.NavPoint) *xmltree.Node {
	ul := xmltree.NewElement("ul")
	for _, np := range points {
		a := xmltree.NewElement("a", xmltree.NewText(np.Title))
		a.SetAttr("href", np.Target())

		li := xmltree.NewElement("li", a)
		if len(np.Children) > 0 {
			li.Children = append(li.Children, tocList(np.Children))
		}
		ul.Children = append(ul.Children, li)
	}
	return ul
}

// TOCEntry is a JSON-friendly view of a navigation point.
type TOCEntry struct {
	Title    string     `json:"title"`
	Target   string     `json:"target"`
	Children []TOCEntry `json:"children,omitempty"`
}

// TOCEntries converts navigation points into TOCEntry values.
func TOCEntries(points []*epub.NavPoint) []TOCEntry {
	entries := make([]TOCEntry, 0, len(points))
	for _, np := range points {
		entry := TOCEntry{
			Title:  np.Title,
			Target: np.Target(),
		}
		if len(np.Children) > 0 {
			entry.Children = TOCEntries(np.Children)
		}
		entries = append(entries, entry)
	}
	return entries
}
