package converter

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/yuanying/epub2html/internal/epub"
	"github.com/yuanying/epub2html/internal/xmltree"
)

// ProgressFunc receives the fraction of chapters converted so far, from 0 to 1.
type ProgressFunc func(fraction float64)

// Pager assembles a book's chapters into a single filtered body and splits
// it into pages.
type Pager struct {
	book *epub.Book
	log  *zap.Logger

	mu        sync.Mutex
	nextID    int
	observers []observer
}

type observer struct {
	id int
	fn ProgressFunc
}

// Option configures a Pager.
type Option func(*Pager)

// WithLogger sets the logger used for per-chapter progress.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pager) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPager creates a pager for book.
func NewPager(book *epub.Book, opts ...Option) *Pager {
	p := &Pager{book: book, log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnProgress registers fn to be called synchronously at every progress step.
// Observers run in registration order. The returned function removes fn.
func (p *Pager) OnProgress(fn ProgressFunc) (remove func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.observers = append(p.observers, observer{id: id, fn: fn})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, o := range p.observers {
			if o.id == id {
				p.observers = append(p.observers[:i:i], p.observers[i+1:]...)
				return
			}
		}
	}
}

func (p *Pager) report(fraction float64) {
	p.mu.Lock()
	observers := make([]observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.Unlock()

	for _, o := range observers {
		o.fn(fraction)
	}
}

// assembly is the filtered body of a book. owner records, for every
// top-level node, the index of the chapter it came from; the filters keep
// top-level nodes in place or drop them, so the record survives filtering.
type assembly struct {
	body     *xmltree.Node
	chapters []*epub.Chapter
	owner    map[*xmltree.Node]int
}

// assemble builds the filtered body, reporting progress as it goes.
func (p *Pager) assemble() (*assembly, error) {
	chapters := p.book.Chapters()
	n := len(chapters)

	p.report(0)

	a := &assembly{chapters: chapters, owner: make(map[*xmltree.Node]int)}
	var elements []*xmltree.Node
	for i, ch := range chapters {
		content, err := ch.Elements()
		if err != nil {
			return nil, err
		}
		for _, c := range content {
			a.owner[c] = i
		}
		elements = append(elements, content...)
		p.log.Debug("converted chapter",
			zap.String("path", ch.Path()),
			zap.Int("index", i+1),
			zap.Int("total", n))
		p.report(float64(i+1) / float64(n))
	}
	if n == 0 {
		p.report(1)
	}

	a.body = xmltree.Wrap("body", elements)
	ApplyFilters(a.body)
	return a, nil
}

// Body concatenates the content of every chapter, in spine order, into one
// body element and applies the filters to it. Progress is reported as 0
// before the first chapter and i/n after chapter i of n.
func (p *Pager) Body() (*xmltree.Node, error) {
	a, err := p.assemble()
	if err != nil {
		return nil, err
	}
	return a.body, nil
}

// Convert returns the whole book serialized as a single <body> element.
// Links keep their archive path form.
func (p *Pager) Convert() (string, error) {
	body, err := p.Body()
	if err != nil {
		return "", err
	}
	return xmltree.Render(body)
}

// Pages returns the book as a sequence of HTML fragments, one <div> per page.
func (p *Pager) Pages() ([]string, error) {
	body, err := p.Body()
	if err != nil {
		return nil, err
	}
	return renderPages(body)
}

func renderPages(body *xmltree.Node) ([]string, error) {
	pages := Split(body.Children)
	out := make([]string, 0, len(pages))
	for i, page := range pages {
		s, err := xmltree.Render(page)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Document assembles the filtered body into a complete standalone page
// carrying the book's title, language and stylesheet. When withTOC is set
// and the book has a table of contents, it is rendered at the top of the
// body. Every chapter starts with an anchor, and links to a chapter, in the
// body and in the table of contents, point at that anchor or at the
// fragment they name.
func (p *Pager) Document(withTOC bool) (*Document, error) {
	a, err := p.assemble()
	if err != nil {
		return nil, err
	}
	return p.document(a, withTOC)
}

// Build converts the book once and returns both the standalone document and
// its pages. The pages keep archive path links.
func (p *Pager) Build(withTOC bool) (*Document, []string, error) {
	a, err := p.assemble()
	if err != nil {
		return nil, nil, err
	}
	pages, err := renderPages(a.body)
	if err != nil {
		return nil, nil, err
	}
	doc, err := p.document(a, withTOC)
	if err != nil {
		return nil, nil, err
	}
	return doc, pages, nil
}

// document links the chapters of a. It rewrites hrefs in place, so pages
// must be rendered from a before.
func (p *Pager) document(a *assembly, withTOC bool) (*Document, error) {
	css, err := p.book.Stylesheet()
	if err != nil {
		return nil, fmt.Errorf("failed to read stylesheet: %w", err)
	}

	body, links := linkChapters(a)
	doc := &Document{
		Title:      p.book.Title(),
		Stylesheet: css,
		Body:       body,
		links:      links,
	}

	if tag, err := p.book.LanguageTag(); err != nil {
		p.log.Warn("invalid book language", zap.String("language", p.book.Language()), zap.Error(err))
		doc.Lang = p.book.Language()
	} else if tag != language.Und {
		doc.Lang = tag.String()
	}

	if withTOC {
		toc, err := p.book.TOC()
		if err != nil {
			p.log.Warn("table of contents unavailable", zap.Error(err))
		} else {
			doc.TOC = toc
		}
	}
	return doc, nil
}
