package epub

import (
	"fmt"
	"strings"

	"github.com/yuanying/epub2html/internal/xmltree"
)

// NavPoint represents a single navigation point in the table of contents.
type NavPoint struct {
	Title    string
	Path     string // fragment-free archive path, resolved against the NCX location
	Fragment string // fragment identifier (without #)
	Children []*NavPoint
}

// Target returns the archive path of the point, with "#fragment" appended
// when the NCX src carried one.
func (np *NavPoint) Target() string {
	if np.Fragment == "" {
		return np.Path
	}
	return np.Path + "#" + np.Fragment
}

// ncxItem picks the NCX manifest item: the spine's toc reference first,
// then the first item with the NCX media type.
func (p *Package) ncxItem() (ManifestItem, bool) {
	if p.TocID != "" {
		if item, ok := p.Manifest[p.TocID]; ok && item.MediaType == MediaTypeNCX {
			return item, true
		}
	}
	items := p.ItemsByMediaType(MediaTypeNCX)
	if len(items) == 0 {
		return ManifestItem{}, false
	}
	return items[0], true
}

// loadTOC reads and parses the package's NCX document.
func loadTOC(a *Archive, pkg *Package) ([]*NavPoint, error) {
	item, ok := pkg.ncxItem()
	if !ok {
		return nil, ErrMissingTOC
	}
	root, err := a.ReadXML(item.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load NCX: %w", err)
	}
	return parseNCX(root, item.Path), nil
}

// parseNCX walks navMap/navPoint recursively. Content srcs are resolved
// against ncxPath, the NCX document's own archive path.
func parseNCX(root *xmltree.Node, ncxPath string) []*NavPoint {
	navMap := ncxChild(root, "navMap")
	if navMap == nil {
		return nil
	}
	return parseNavPoints(navMap, ncxPath)
}

func parseNavPoints(parent *xmltree.Node, ncxPath string) []*NavPoint {
	var points []*NavPoint
	for _, p := range ncxChildren(parent, "navPoint") {
		np := &NavPoint{Title: navLabel(p)}
		if content := ncxChild(p, "content"); content != nil {
			src, fragment := splitFragment(content.Attr["src"])
			if src != "" {
				np.Path = Locate(ncxPath, src)
			} else {
				np.Path = ncxPath
			}
			np.Fragment = fragment
		}
		np.Children = parseNavPoints(p, ncxPath)
		points = append(points, np)
	}
	return points
}

// navLabel returns the first text child of the first navLabel/text element.
func navLabel(p *xmltree.Node) string {
	label := ncxChild(p, "navLabel")
	if label == nil {
		return ""
	}
	text := ncxChild(label, "text")
	if text == nil {
		return ""
	}
	return strings.TrimSpace(text.FirstText())
}

// ncxChild returns the child named name, falling back to the "ncx:"
// prefixed form used by some packagers.
func ncxChild(n *xmltree.Node, name string) *xmltree.Node {
	if c := n.ChildNamed(name); c != nil {
		return c
	}
	return n.ChildNamed("ncx:" + name)
}

func ncxChildren(n *xmltree.Node, name string) []*xmltree.Node {
	var out []*xmltree.Node
	for _, c := range n.Children {
		if c.Is(name) || c.Is("ncx:"+name) {
			out = append(out, c)
		}
	}
	return out
}
