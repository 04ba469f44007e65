package epub

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/vincent-petithory/dataurl"
	"go.uber.org/zap"

	"github.com/yuanying/epub2html/internal/xmltree"
)

// Chapter is one spine document. Its content is read, parsed and rewritten
// on first use; later calls reuse that result.
type Chapter struct {
	Item ManifestItem

	book *Book
	once sync.Once
	body []*xmltree.Node
	err  error
}

// Path returns the chapter's archive path.
func (c *Chapter) Path() string {
	return c.Item.Path
}

// Elements returns the children of the chapter's <body> with links
// normalized and images embedded. The returned nodes are a private copy the
// caller may mutate.
func (c *Chapter) Elements() ([]*xmltree.Node, error) {
	c.once.Do(func() {
		c.body, c.err = c.read()
	})
	if c.err != nil {
		return nil, c.err
	}
	return xmltree.CloneAll(c.body), nil
}

// HTML returns the chapter content serialized as HTML.
func (c *Chapter) HTML() (string, error) {
	elements, err := c.Elements()
	if err != nil {
		return "", err
	}
	return xmltree.RenderAll(elements)
}

func (c *Chapter) read() ([]*xmltree.Node, error) {
	data, err := c.book.archive.Read(c.Path())
	if err != nil {
		return nil, &ChapterError{Path: c.Path(), Err: err}
	}

	doc, err := xmltree.Parse(data)
	if err != nil {
		c.book.log.Warn("chapter is not well-formed XML, falling back to HTML parser",
			zap.String("path", c.Path()), zap.Error(err))
		doc, err = xmltree.ParseHTML(data)
		if err != nil {
			return nil, &ChapterError{Path: c.Path(), Err: err}
		}
	}

	// Links first: they must see the hrefs as written in the source.
	c.rewriteLinks(doc)

	if err := c.embedImages(doc); err != nil {
		return nil, &ChapterError{Path: c.Path(), Err: err}
	}

	body := doc.ChildLocal("body")
	if body == nil {
		return nil, &ChapterError{
			Path: c.Path(),
			Err:  fmt.Errorf("%w: no <body> element", ErrMalformedDocument),
		}
	}
	return body.Children, nil
}

func isImage(n *xmltree.Node) bool {
	return n.Is("img") || n.Is("image")
}

// imageHrefAttr returns the attribute holding an image reference: src for
// <img>, xlink:href for SVG <image> (plain href for SVG 2 documents).
func imageHrefAttr(n *xmltree.Node) string {
	if n.Name == "img" {
		return "src"
	}
	if _, ok := n.Attr["xlink:href"]; !ok {
		if _, ok := n.Attr["href"]; ok {
			return "href"
		}
	}
	return "xlink:href"
}

// embedImages replaces every image reference with a data URI built from
// the manifest item it resolves to.
func (c *Chapter) embedImages(doc *xmltree.Node) error {
	pkg := c.book.pkg
	for _, image := range xmltree.Find(doc, isImage) {
		attr := imageHrefAttr(image)
		href := image.Attr[attr]
		if href == "" || strings.HasPrefix(href, "data:") || isExternal(href) {
			continue
		}

		ref, _ := splitFragment(href)
		imagePath := Locate(c.Path(), ref)
		item, ok := pkg.ItemByPath(imagePath)
		if !ok {
			return fmt.Errorf("%w %s", ErrImageNotFound, imagePath)
		}

		data, err := c.book.archive.Read(item.Path)
		if err != nil {
			return err
		}
		image.SetAttr(attr, dataURI(data, item.MediaType))
	}
	return nil
}

// rewriteLinks turns relative <a href> values into archive paths resolved
// against the chapter, keeping any fragment. Fragment-only and absolute
// hrefs are left alone.
func (c *Chapter) rewriteLinks(doc *xmltree.Node) {
	for _, a := range xmltree.Find(doc, func(n *xmltree.Node) bool { return n.Is("a") }) {
		href, ok := a.Attr["href"]
		if !ok || href == "" || strings.HasPrefix(href, "#") || isExternal(href) {
			continue
		}
		ref, fragment := splitFragment(href)
		target := EscapePath(Locate(c.Path(), ref))
		if fragment != "" {
			target += "#" + fragment
		}
		a.SetAttr("href", target)
	}
}

// isExternal reports whether href carries a scheme or a host.
func isExternal(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return u.Scheme != "" || u.Host != ""
}

// dataURI returns a base64 data URI for data.
func dataURI(data []byte, mediaType string) string {
	if strings.Count(mediaType, "/") != 1 {
		mediaType = "application/octet-stream"
	}
	return dataurl.New(data, mediaType).String()
}
