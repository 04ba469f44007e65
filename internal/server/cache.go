package server

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/yuanying/epub2html/internal/converter"
	"github.com/yuanying/epub2html/internal/epub"
)

// conversion is a converted book as served by the html and pages endpoints.
type conversion struct {
	html  string
	pages []string
}

func (cv *conversion) cost() int64 {
	n := int64(len(cv.html))
	for _, p := range cv.pages {
		n += int64(len(p))
	}
	return n
}

// cacheKey changes whenever the file is replaced or rewritten.
func cacheKey(kind, name string, info os.FileInfo) string {
	return fmt.Sprintf("%s:%s:%d:%d", kind, name, info.Size(), info.ModTime().UnixNano())
}

func (s *Server) cached(key string) (any, bool) {
	if s.cache == nil {
		return nil, false
	}
	v, ok := s.cache.Get(key)
	if ok {
		s.log.Debug("cache hit", zap.String("key", key))
	}
	return v, ok
}

func (s *Server) store(key string, v any, cost int64) {
	if s.cache == nil {
		return
	}
	s.cache.Set(key, v, cost)
}

// book loads the named book, from the cache when possible.
func (s *Server) book(name string) (*epub.Book, error) {
	path, info, err := s.bookFile(name)
	if err != nil {
		return nil, err
	}
	key := cacheKey("book", name, info)
	if v, ok := s.cached(key); ok {
		return v.(*epub.Book), nil
	}

	b, err := epub.Open(path, epub.WithLogger(s.log.With(zap.String("book", name))))
	if err != nil {
		return nil, err
	}
	s.store(key, b, info.Size())
	return b, nil
}

// converted returns the conversion of the book named in the request.
// Conversions not found in the cache wait for the rate limiter.
func (s *Server) converted(c *fiber.Ctx) (*conversion, error) {
	name := c.Params("name")
	_, info, err := s.bookFile(name)
	if err != nil {
		return nil, err
	}
	key := cacheKey("html", name, info)
	if v, ok := s.cached(key); ok {
		return v.(*conversion), nil
	}

	b, err := s.book(name)
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Wait(c.UserContext()); err != nil {
		return nil, fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}

	log := s.log.With(zap.String("book", name))
	pager := converter.NewPager(b, converter.WithLogger(log))
	remove := pager.OnProgress(func(f float64) {
		log.Debug("conversion progress", zap.Float64("fraction", f))
	})
	defer remove()

	doc, pages, err := pager.Build(true)
	if err != nil {
		return nil, err
	}
	html, err := doc.HTML()
	if err != nil {
		return nil, err
	}

	cv := &conversion{html: html, pages: pages}
	s.store(key, cv, cv.cost())
	log.Info("converted book", zap.Int("pages", len(pages)), zap.Int("bytes", len(html)))
	return cv, nil
}
