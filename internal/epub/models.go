package epub

// Media types the loader treats specially.
const (
	MediaTypeOPF = "application/oebps-package+xml"
	MediaTypeNCX = "application/x-dtbncx+xml"
	MediaTypeCSS = "text/css"
)

// Package is the parsed OPF package document. It is built once at load
// time and never mutated afterwards.
type Package struct {
	Path          string                  // archive path of the OPF file
	Metadata      Metadata
	Manifest      map[string]ManifestItem // id -> item
	ManifestOrder []string                // ids in document order
	Spine         []SpineItem
	TocID         string // <spine toc="..."> reference, may be empty

	byPath map[string]string // resolved archive path -> id
}

// Metadata represents the metadata section of the OPF
type Metadata struct {
	Title       string
	Language    string
	Creators    []Creator
	Identifier  string
	Publisher   string
	Date        string
	Description string
	CoverID     string // EPUB 2.0 cover image manifest item ID (from meta name="cover")
}

// Creator represents a creator (author, editor, etc.) of the book
type Creator struct {
	Name string
	Role string // e.g., "aut" for author, "edt" for editor
}

// ManifestItem represents an item in the manifest
type ManifestItem struct {
	ID        string
	Href      string // as written in the OPF, relative to the OPF directory
	Path      string // resolved archive path
	MediaType string
}

// SpineItem represents an item reference in the spine
type SpineItem struct {
	IDRef  string
	Linear bool
}
