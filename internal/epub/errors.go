package epub

import "errors"

var (
	// ErrNotFound reports a referenced archive path with no matching entry.
	ErrNotFound = errors.New("file not found in archive")

	// ErrFormat reports a container.xml whose rootfile is not an OPF package.
	ErrFormat = errors.New("unexpected package format")

	// ErrMalformedDocument reports a chapter document without a <body> element.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrImageNotFound reports an image reference with no matching manifest item.
	ErrImageNotFound = errors.New("couldn't find image")

	// ErrMissingTOC reports a package without an NCX manifest item.
	ErrMissingTOC = errors.New("table of contents not found")
)

// ChapterError prefixes a chapter conversion failure with the chapter's
// archive path. The inner error stays reachable through errors.Is/As.
type ChapterError struct {
	Path string
	Err  error
}

func (e *ChapterError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *ChapterError) Unwrap() error {
	return e.Err
}
