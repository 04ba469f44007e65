package epub

import (
	"fmt"
	"strings"

	"github.com/yuanying/epub2html/internal/xmltree"
)

const containerPath = "META-INF/container.xml"

// rootFilePath reads container.xml and returns the archive path of the OPF
// package declared by its first rootfile element.
func rootFilePath(a *Archive) (string, error) {
	root, err := a.ReadXML(containerPath)
	if err != nil {
		return "", err
	}

	var rootFile *xmltree.Node
	if rootFiles := root.ChildLocal("rootfiles"); rootFiles != nil {
		rootFile = rootFiles.ChildLocal("rootfile")
	}
	if rootFile == nil {
		return "", fmt.Errorf("%w: no rootfile in %s", ErrFormat, containerPath)
	}

	if mt := rootFile.Attr["media-type"]; mt != MediaTypeOPF {
		return "", fmt.Errorf("%w: expected %q, got %q", ErrFormat, MediaTypeOPF, mt)
	}

	fullPath := normalizePath(rootFile.Attr["full-path"])
	if fullPath == "" {
		return "", fmt.Errorf("%w: rootfile has no full-path", ErrFormat)
	}
	return fullPath, nil
}

// ParseOPF builds the package model from a parsed OPF document located at
// opfPath. Manifest hrefs are resolved against the OPF's own directory.
func ParseOPF(root *xmltree.Node, opfPath string) *Package {
	pkg := &Package{
		Path:     opfPath,
		Manifest: make(map[string]ManifestItem),
		byPath:   make(map[string]string),
	}

	if md := root.ChildLocal("metadata"); md != nil {
		pkg.Metadata = parseMetadata(md, root.Attr["unique-identifier"])
	}

	if manifest := root.ChildLocal("manifest"); manifest != nil {
		for _, item := range manifest.ChildrenLocal("item") {
			id := item.Attr["id"]
			if id == "" {
				continue
			}
			href := item.Attr["href"]
			mi := ManifestItem{
				ID:        id,
				Href:      href,
				Path:      Locate(opfPath, href),
				MediaType: item.Attr["media-type"],
			}
			if _, dup := pkg.Manifest[id]; !dup {
				pkg.ManifestOrder = append(pkg.ManifestOrder, id)
			}
			pkg.Manifest[id] = mi
			if _, seen := pkg.byPath[mi.Path]; !seen {
				pkg.byPath[mi.Path] = id
			}
		}
	}

	if spine := root.ChildLocal("spine"); spine != nil {
		pkg.TocID = spine.Attr["toc"]
		for _, ref := range spine.ChildrenLocal("itemref") {
			pkg.Spine = append(pkg.Spine, SpineItem{
				IDRef:  ref.Attr["idref"],
				Linear: ref.Attr["linear"] != "no",
			})
		}
	}

	return pkg
}

// parseMetadata parses the metadata section. Missing fields stay empty.
func parseMetadata(md *xmltree.Node, uniqueID string) Metadata {
	var m Metadata

	m.Title = firstText(md, "title")
	m.Language = firstText(md, "language")
	m.Publisher = firstText(md, "publisher")
	m.Date = firstText(md, "date")
	m.Description = firstText(md, "description")

	// Identifier (find the one marked as unique-identifier)
	for _, id := range md.ChildrenLocal("identifier") {
		if uniqueID != "" && id.Attr["id"] == uniqueID {
			m.Identifier = strings.TrimSpace(id.TextContent())
			break
		}
	}
	if m.Identifier == "" {
		m.Identifier = firstText(md, "identifier")
	}

	for _, c := range md.ChildrenLocal("creator") {
		m.Creators = append(m.Creators, Creator{
			Name: strings.TrimSpace(c.TextContent()),
			Role: attrLocal(c, "role"),
		})
	}

	for _, meta := range md.ChildrenLocal("meta") {
		if meta.Attr["name"] == "cover" && meta.Attr["content"] != "" {
			m.CoverID = meta.Attr["content"]
			break
		}
	}

	return m
}

// firstText returns the trimmed text of the first child with the given
// local name. Elements with attributes and bare text elements yield the
// same string.
func firstText(n *xmltree.Node, local string) string {
	c := n.ChildLocal(local)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.TextContent())
}

// attrLocal looks an attribute up by local name, ignoring its prefix.
func attrLocal(n *xmltree.Node, local string) string {
	if v, ok := n.Attr[local]; ok {
		return v
	}
	for k, v := range n.Attr {
		if i := strings.LastIndexByte(k, ':'); i >= 0 && k[i+1:] == local && k[:i] != "xmlns" {
			return v
		}
	}
	return ""
}

// Item returns the manifest item with the given id.
func (p *Package) Item(id string) (ManifestItem, bool) {
	item, ok := p.Manifest[id]
	return item, ok
}

// ItemByPath returns the manifest item whose resolved archive path is p.
func (p *Package) ItemByPath(archivePath string) (ManifestItem, bool) {
	id, ok := p.byPath[archivePath]
	if !ok {
		return ManifestItem{}, false
	}
	return p.Manifest[id], true
}

// ItemsByMediaType returns, in manifest order, every item of the given type.
func (p *Package) ItemsByMediaType(mediaType string) []ManifestItem {
	var items []ManifestItem
	for _, id := range p.ManifestOrder {
		if item := p.Manifest[id]; item.MediaType == mediaType {
			items = append(items, item)
		}
	}
	return items
}
