package epub

// Image is a manifest image whose bytes are read on demand.
type Image struct {
	ID        string
	Path      string
	MediaType string

	archive *Archive
}

// Data reads the image bytes from the archive.
func (im *Image) Data() ([]byte, error) {
	return im.archive.Read(im.Path)
}

// Cover returns the image named by the EPUB 2.0 <meta name="cover">
// element, or nil when there is no such meta or the manifest lacks the
// item it points to.
func (b *Book) Cover() *Image {
	id := b.pkg.Metadata.CoverID
	if id == "" {
		return nil
	}
	item, ok := b.pkg.Manifest[id]
	if !ok {
		return nil
	}
	return &Image{
		ID:        item.ID,
		Path:      item.Path,
		MediaType: item.MediaType,
		archive:   b.archive,
	}
}
