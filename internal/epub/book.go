package epub

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Book is a loaded EPUB package.
type Book struct {
	archive  *Archive
	pkg      *Package
	chapters []*Chapter
	log      *zap.Logger
}

// Option configures Load and Open.
type Option func(*Book)

// WithLogger sets the logger used for recoverable oddities in the package.
func WithLogger(l *zap.Logger) Option {
	return func(b *Book) {
		if l != nil {
			b.log = l
		}
	}
}

// Open reads the EPUB file at filename and loads it.
func Open(filename string, opts ...Option) (*Book, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read EPUB: %w", err)
	}
	return Load(data, opts...)
}

// Load parses an EPUB archive held in memory: container.xml, then the OPF
// package it declares, then the spine.
func Load(data []byte, opts ...Option) (*Book, error) {
	b := &Book{log: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}

	a, err := NewArchive(data)
	if err != nil {
		return nil, err
	}
	b.archive = a

	opfPath, err := rootFilePath(a)
	if err != nil {
		return nil, err
	}

	root, err := a.ReadXML(opfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OPF: %w", err)
	}
	b.pkg = ParseOPF(root, opfPath)

	for _, ref := range b.pkg.Spine {
		item, ok := b.pkg.Manifest[ref.IDRef]
		if !ok {
			b.log.Warn("spine item not found in manifest, skipping", zap.String("idref", ref.IDRef))
			continue
		}
		b.chapters = append(b.chapters, &Chapter{Item: item, book: b})
	}

	b.log.Debug("loaded package",
		zap.String("opf", opfPath),
		zap.Int("manifest", len(b.pkg.Manifest)),
		zap.Int("chapters", len(b.chapters)))

	return b, nil
}

// Title returns the book's title, or "" when the OPF has none.
func (b *Book) Title() string {
	return b.pkg.Metadata.Title
}

// Language returns the dc:language value as found in the OPF.
func (b *Book) Language() string {
	return b.pkg.Metadata.Language
}

// LanguageTag parses the book's language as a BCP 47 tag.
func (b *Book) LanguageTag() (language.Tag, error) {
	if b.Language() == "" {
		return language.Und, nil
	}
	return language.Parse(b.Language())
}

// Metadata returns the package metadata.
func (b *Book) Metadata() Metadata {
	return b.pkg.Metadata
}

// Package returns the parsed OPF package.
func (b *Book) Package() *Package {
	return b.pkg
}

// Archive returns the underlying archive.
func (b *Book) Archive() *Archive {
	return b.archive
}

// Chapters returns the spine documents in reading order.
func (b *Book) Chapters() []*Chapter {
	return b.chapters
}

// TOC returns the navigation tree of the book's NCX document. It fails
// with ErrMissingTOC when the manifest has no NCX item.
func (b *Book) TOC() ([]*NavPoint, error) {
	return loadTOC(b.archive, b.pkg)
}

// Stylesheet concatenates, in manifest order, every text/css item. Each
// sheet is followed by a newline. A book without stylesheets yields "".
func (b *Book) Stylesheet() (string, error) {
	var sb strings.Builder
	for _, item := range b.pkg.ItemsByMediaType(MediaTypeCSS) {
		css, err := b.archive.ReadString(item.Path)
		if err != nil {
			return "", err
		}
		sb.WriteString(css)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
